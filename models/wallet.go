package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInsufficientWallet = errors.New("insufficient wallet balance")

type WalletTransaction struct {
	ID          int             `gorm:"primary_key" json:"id"`
	AgentId     int             `gorm:"index;not null" json:"agent_id"`
	ProposalId  int             `gorm:"index" json:"proposal_id"`
	QuoteId     int             `gorm:"index" json:"quote_id"`
	Direction   string          `gorm:"size:10;not null" json:"direction"` // Debit | Credit
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(20,4)" json:"balance_after"`
	Reference   string          `gorm:"size:100" json:"reference"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

const (
	WalletDirectionDebit  = "Debit"
	WalletDirectionCredit = "Credit"
)

func walletLockKey(agentId int) string {
	return fmt.Sprintf("Lock:Wallet:%d", agentId)
}

// withWalletLock takes a best-effort redis lock plus a MySQL advisory lock,
// so two replicas cannot debit the same wallet concurrently even when redis
// is down.
func withWalletLock(ctx context.Context, db *gorm.DB, agentId int, fn func(tx *gorm.DB) error) error {
	logger := config.GetLogger()

	var lock *redislock.Lock
	if locker := config.GetRedisLock(); locker != nil {
		var err error
		lock, err = locker.Obtain(ctx, walletLockKey(agentId), 15*time.Second, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(200*time.Millisecond), 10),
		})
		if err != nil {
			config.LogError(logger, "models", "withWalletLock", "redis lock", logrus.Fields{"agentId": agentId}, err)
		}
	}
	if lock != nil {
		defer lock.Release(ctx)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var got int
		if err := tx.Raw("SELECT GET_LOCK(?, 10)", walletLockKey(agentId)).Scan(&got).Error; err != nil {
			return err
		}
		if got != 1 {
			return errors.New("wallet is busy, try again")
		}
		defer tx.Exec("SELECT RELEASE_LOCK(?)", walletLockKey(agentId))
		return fn(tx)
	})
}

// DebitWallet charges the agent's wallet for a subscription. The balance is
// re-read under lock inside the transaction; whatever the caller's screen
// showed earlier does not matter.
func DebitWallet(ctx context.Context, agentId int, amount decimal.Decimal, proposalId int, quoteId int, reference string) (*WalletTransaction, error) {

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("debit amount must be positive")
	}

	db := config.GetDB()
	var result WalletTransaction
	var username string

	err := withWalletLock(ctx, db, agentId, func(tx *gorm.DB) error {
		var user User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&user, agentId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		username = user.Username
		if user.WalletAmount.LessThan(amount) {
			return ErrInsufficientWallet
		}

		newBalance := user.WalletAmount.Sub(amount)
		if err := tx.Model(&User{}).Where("id = ?", agentId).Update("wallet_amount", newBalance).Error; err != nil {
			return err
		}

		result = WalletTransaction{
			AgentId:      agentId,
			ProposalId:   proposalId,
			QuoteId:      quoteId,
			Direction:    WalletDirectionDebit,
			Amount:       amount,
			BalanceAfter: newBalance,
			Reference:    reference,
		}
		if err := tx.Create(&result).Error; err != nil {
			return err
		}

		correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
		return AppendOutboxEvent(tx, EventTypeWalletDebited, result.ID, "WalletTransaction", map[string]any{
			"agent_id":      agentId,
			"proposal_id":   proposalId,
			"amount":        amount.String(),
			"balance_after": newBalance.String(),
			"reference":     reference,
		}, correlationId)
	})
	if err != nil {
		return nil, err
	}

	_ = (User{Username: username}).RemoveInstanceRedis()
	return &result, nil
}

// CreditWallet tops the wallet up, used when a replenish application is
// approved.
func CreditWallet(ctx context.Context, agentId int, amount decimal.Decimal, reference string) (*WalletTransaction, error) {

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("credit amount must be positive")
	}

	db := config.GetDB()
	var result WalletTransaction
	var username string

	err := withWalletLock(ctx, db, agentId, func(tx *gorm.DB) error {
		var user User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&user, agentId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		username = user.Username

		newBalance := user.WalletAmount.Add(amount)
		if err := tx.Model(&User{}).Where("id = ?", agentId).Update("wallet_amount", newBalance).Error; err != nil {
			return err
		}

		result = WalletTransaction{
			AgentId:      agentId,
			Direction:    WalletDirectionCredit,
			Amount:       amount,
			BalanceAfter: newBalance,
			Reference:    reference,
		}
		return tx.Create(&result).Error
	})
	if err != nil {
		return nil, err
	}

	_ = (User{Username: username}).RemoveInstanceRedis()
	return &result, nil
}

func WalletBalance(ctx context.Context, agentId int) (decimal.Decimal, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Take(&user, agentId).Error; err != nil {
		return decimal.Zero, utils.ErrorRecordNotFound
	}
	return user.WalletAmount, nil
}

func ListWalletTransactions(ctx context.Context, agentId int) ([]*WalletTransaction, error) {
	return utils.FetchModelsWhere[WalletTransaction](ctx, "agent_id = ?", agentId)
}
