package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/shopspring/decimal"
)

// PremiumQuote is the server-side record of the amounts offered for one
// subscription attempt. All three mode amounts are computed together when the
// quote is fetched; whichever mode the agent later picks, the charge comes
// from THIS row, never from a recomputation at pay time.
type PremiumQuote struct {
	ID             int             `gorm:"primary_key" json:"id"`
	AgentId        int             `gorm:"index;not null" json:"agent_id"`
	PlanId         int             `gorm:"index;not null" json:"plan_id"`
	Variant        ProductVariant  `gorm:"type:enum('Travel','Practo','Ayush');default:Practo" json:"variant"`
	AmountFullPay  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_full_pay"`
	AmountDiscount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_discount"`
	AmountUpfront  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_upfront"`
	PaymentModeHint PaymentMode    `gorm:"type:enum('FP','DC','UC');default:FP" json:"payment_mode_hint"`
	ValidUntil     time.Time       `json:"valid_until"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// discountRate and upfrontRate mirror the commercial terms: Discount knocks
// the commission off the sticker price, Upfront charges only the first
// installment.
var (
	discountRate = decimal.NewFromFloat(0.90)
	upfrontRate  = decimal.NewFromFloat(0.25)
)

func quoteLifespanMinutes() int {
	return utils.IntFromEnv("QUOTE_MINUTE_LIFESPAN", 30)
}

// FetchQuote computes a fresh quote for the agent/plan pair, persists it and
// caches it in redis under the agent id.
func FetchQuote(ctx context.Context, agentId int, planId int) (*PremiumQuote, error) {
	plan, err := GetPlan(ctx, planId)
	if err != nil {
		return nil, err
	}

	total := plan.Breakdown().Total

	quote := PremiumQuote{
		AgentId:         agentId,
		PlanId:          planId,
		Variant:         plan.Variant,
		AmountFullPay:   total,
		AmountDiscount:  total.Mul(discountRate).Round(2),
		AmountUpfront:   total.Mul(upfrontRate).Round(2),
		PaymentModeHint: PaymentModeFullPay,
		ValidUntil:      time.Now().Add(time.Duration(quoteLifespanMinutes()) * time.Minute),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&quote).Error; err != nil {
		return nil, err
	}

	utils.StoreRedis[PremiumQuote](&quote, agentId)
	return &quote, nil
}

// LastQuote returns the agent's most recent quote, redis first.
func LastQuote(ctx context.Context, agentId int) (*PremiumQuote, error) {
	var cached PremiumQuote
	exists, err := config.GetRedisObject(quoteCacheKey(agentId), &cached)
	if err == nil && exists && cached.ID != 0 {
		return &cached, nil
	}

	db := config.GetDB()
	var quote PremiumQuote
	if err := db.WithContext(ctx).Where("agent_id = ?", agentId).Order("id DESC").Take(&quote).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &quote, nil
}

// AmountFor resolves the charge for a mode from this quote. Expired quotes
// refuse instead of silently recomputing.
func (q *PremiumQuote) AmountFor(mode PaymentMode) (decimal.Decimal, error) {
	if !q.ValidUntil.IsZero() && time.Now().After(q.ValidUntil) {
		return decimal.Zero, errors.New("quote expired, fetch a fresh quote")
	}
	switch mode {
	case PaymentModeFullPay:
		return q.AmountFullPay, nil
	case PaymentModeDiscount:
		return q.AmountDiscount, nil
	case PaymentModeUpfront:
		return q.AmountUpfront, nil
	}
	return decimal.Zero, fmt.Errorf("unknown payment mode %q", mode)
}

// quotes are cached per agent, not per row
func quoteCacheKey(agentId int) string {
	return fmt.Sprintf("PremiumQuote:%d", agentId)
}
