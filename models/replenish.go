package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReplenishApplication is an agent's request to top up the wallet, backed by
// a bank-deposit proof image. Admins work the pending queue.
type ReplenishApplication struct {
	ID              int             `gorm:"primary_key" json:"id"`
	AgentId         int             `gorm:"index;not null" json:"agent_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	DepositProofKey string          `gorm:"size:255" json:"deposit_proof_key"`
	ProofThumbKey   string          `gorm:"size:255" json:"proof_thumb_key"`
	BankReference   string          `gorm:"size:100" json:"bank_reference"`
	CurrentStatus   ReplenishStatus `gorm:"type:enum('Pending','Approved','Rejected');default:Pending" json:"current_status"`
	ReviewedBy      int             `json:"reviewed_by"`
	ReviewNote      string          `gorm:"size:255" json:"review_note"`
	ReviewedAt      *time.Time      `json:"reviewed_at"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewReplenishApplication struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	BankReference string          `json:"bank_reference"`
}

func CreateReplenishApplication(ctx context.Context, agentId int, input *NewReplenishApplication, proofKey string, thumbKey string) (*ReplenishApplication, error) {

	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("amount must be positive")
	}

	app := ReplenishApplication{
		AgentId:         agentId,
		Amount:          input.Amount,
		DepositProofKey: proofKey,
		ProofThumbKey:   thumbKey,
		BankReference:   strings.TrimSpace(input.BankReference),
		CurrentStatus:   ReplenishStatusPending,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func ListPendingReplenishApplications(ctx context.Context) ([]*ReplenishApplication, error) {
	return utils.FetchModelsWhere[ReplenishApplication](ctx, "current_status = ?", ReplenishStatusPending)
}

func ListReplenishApplicationsByAgent(ctx context.Context, agentId int) ([]*ReplenishApplication, error) {
	return utils.FetchModelsWhere[ReplenishApplication](ctx, "agent_id = ?", agentId)
}

// ReplenishProofURL hands the reviewer short-lived links to the stored proof
// image and its thumbnail. Older rows kept full URLs instead of object keys,
// so both forms are accepted.
func ReplenishProofURL(ctx context.Context, applicationId int) (proofURL, thumbURL string, err error) {
	app, err := utils.FetchSingleModel[ReplenishApplication](ctx, applicationId)
	if err != nil {
		return "", "", err
	}
	if key := utils.ExtractObjectKeyFromURL(app.DepositProofKey); key != "" {
		if u, signErr := utils.SignDownload(ctx, key, 15*time.Minute); signErr == nil {
			proofURL = u
		} else {
			proofURL = utils.BuildObjectAccessURL(key)
		}
	}
	if key := utils.ExtractObjectKeyFromURL(app.ProofThumbKey); key != "" {
		if u, signErr := utils.SignDownload(ctx, key, 15*time.Minute); signErr == nil {
			thumbURL = u
		} else {
			thumbURL = utils.BuildObjectAccessURL(key)
		}
	}
	if proofURL == "" {
		return "", "", errors.New("no deposit proof on file")
	}
	return proofURL, thumbURL, nil
}

// ReviewReplenishApplication settles a pending application. Approval credits
// the wallet in the same flow; the status flip guards against double review.
func ReviewReplenishApplication(ctx context.Context, reviewerId int, applicationId int, approve bool, note string) (*ReplenishApplication, error) {

	db := config.GetDB()
	var app ReplenishApplication

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&app, applicationId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if app.CurrentStatus != ReplenishStatusPending {
			return errors.New("application already reviewed")
		}

		status := ReplenishStatusRejected
		if approve {
			status = ReplenishStatusApproved
		}
		now := time.Now()
		res := tx.Model(&ReplenishApplication{}).
			Where("id = ? AND current_status = ?", applicationId, ReplenishStatusPending).
			Updates(map[string]interface{}{
				"current_status": status,
				"reviewed_by":    reviewerId,
				"review_note":    note,
				"reviewed_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("application already reviewed")
		}
		app.CurrentStatus = status
		app.ReviewedBy = reviewerId
		app.ReviewNote = note
		app.ReviewedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if app.CurrentStatus == ReplenishStatusApproved {
		if _, err := CreditWallet(ctx, app.AgentId, app.Amount, "Replenish:"+app.BankReference); err != nil {
			return nil, err
		}
	}
	return &app, nil
}

// BatchPayment is the insurer-settlement side: paid certificates are batched,
// a UTR (bank transfer reference) is filled in once the transfer is made, and
// an admin approves or rejects the batch.
type BatchPayment struct {
	ID            int                `gorm:"primary_key" json:"id"`
	BatchNo       string             `gorm:"size:100;uniqueIndex;not null" json:"batch_no"`
	CreatedBy     int                `gorm:"index" json:"created_by"`
	TotalAmount   decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PaymentCount  int                `gorm:"default:0" json:"payment_count"`
	UTRNumber     string             `gorm:"size:100" json:"utr_number"`
	CurrentStatus BatchPaymentStatus `gorm:"type:enum('Pending','UTRFilled','Approved','Rejected');default:Pending" json:"current_status"`
	ReviewedBy    int                `json:"reviewed_by"`
	ReviewNote    string             `gorm:"size:255" json:"review_note"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBatchPayment struct {
	BatchNo    string `json:"batch_no" binding:"required"`
	PaymentIds []int  `json:"payment_ids" binding:"required"`
}

func CreateBatchPayment(ctx context.Context, creatorId int, input *NewBatchPayment) (*BatchPayment, error) {

	db := config.GetDB()
	var batch BatchPayment

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payments []*PaymentRecord
		if err := tx.Where("id IN ? AND status = ?", input.PaymentIds, PaymentStatusPaid).Find(&payments).Error; err != nil {
			return err
		}
		if len(payments) != len(utils.UniqueSlice(input.PaymentIds)) {
			return errors.New("batch may only contain paid records")
		}

		total := decimal.Zero
		for _, p := range payments {
			total = total.Add(p.Amount)
		}
		batch = BatchPayment{
			BatchNo:       input.BatchNo,
			CreatedBy:     creatorId,
			TotalAmount:   total,
			PaymentCount:  len(payments),
			CurrentStatus: BatchPaymentStatusPending,
		}
		return tx.Create(&batch).Error
	})
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func FillBatchUTR(ctx context.Context, batchId int, utr string) (*BatchPayment, error) {

	utr = strings.TrimSpace(utr)
	if utr == "" {
		return nil, errors.New("UTR number is required")
	}

	db := config.GetDB()
	res := db.WithContext(ctx).Model(&BatchPayment{}).
		Where("id = ? AND current_status = ?", batchId, BatchPaymentStatusPending).
		Updates(map[string]interface{}{
			"utr_number":     utr,
			"current_status": BatchPaymentStatusUTRFilled,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.New("batch not pending")
	}

	var batch BatchPayment
	if err := db.WithContext(ctx).Take(&batch, batchId).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func ReviewBatchPayment(ctx context.Context, reviewerId int, batchId int, approve bool, note string) (*BatchPayment, error) {

	status := BatchPaymentStatusRejected
	if approve {
		status = BatchPaymentStatusApproved
	}

	db := config.GetDB()
	res := db.WithContext(ctx).Model(&BatchPayment{}).
		Where("id = ? AND current_status = ?", batchId, BatchPaymentStatusUTRFilled).
		Updates(map[string]interface{}{
			"current_status": status,
			"reviewed_by":    reviewerId,
			"review_note":    note,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.New("batch is not awaiting review")
	}

	var batch BatchPayment
	if err := db.WithContext(ctx).Take(&batch, batchId).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func ListBatchPayments(ctx context.Context, statuses ...BatchPaymentStatus) ([]*BatchPayment, error) {
	if len(statuses) == 0 {
		return utils.FetchAllModels[BatchPayment](ctx)
	}
	return utils.FetchModelsWhere[BatchPayment](ctx, "current_status IN ?", statuses)
}
