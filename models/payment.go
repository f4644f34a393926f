package models

import (
	"context"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PaymentRecord struct {
	ID              int             `gorm:"primary_key" json:"id"`
	AgentId         int             `gorm:"index;not null" json:"agent_id"`
	ProposalId      int             `gorm:"index;not null" json:"proposal_id"`
	ProviderOrderId string          `gorm:"size:100;index" json:"provider_order_id"`
	ProviderPayId   string          `gorm:"size:100;index" json:"provider_pay_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Currency        string          `gorm:"size:10;default:INR" json:"currency"`
	Mode            PaymentMode     `gorm:"type:enum('FP','DC','UC');default:FP" json:"mode"`
	Status          PaymentStatus   `gorm:"type:enum('Paid','Failed','Cancelled','Uncertain');not null" json:"status"`
	Reason          string          `gorm:"size:100" json:"reason"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// PaymentData is staged before the hosted checkout opens so the payment
// screen can rebuild itself after the redirect.
type PaymentData struct {
	ProposalId      int             `json:"proposal_id"`
	CertificateNo   string          `json:"certificate_no"`
	ProviderOrderId string          `json:"provider_order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Mode            PaymentMode     `json:"mode"`
}

// PaymentSuccessData feeds the success screen.
type PaymentSuccessData struct {
	PaymentRecordId int             `json:"payment_record_id"`
	CertificateNo   string          `json:"certificate_no"`
	ProviderPayId   string          `json:"provider_pay_id"`
	Amount          decimal.Decimal `json:"amount"`
	PaidAt          time.Time       `json:"paid_at"`
}

// PaymentFailureData feeds the cancel screen. Reason distinguishes a
// user dismissal from the uncertain case where the charge may have gone
// through.
type PaymentFailureData struct {
	ProposalId    int    `json:"proposal_id"`
	CertificateNo string `json:"certificate_no"`
	Reason        string `json:"reason"`
	ProviderPayId string `json:"provider_pay_id"`
}

// ResolvePaymentOutcome maps what happened around the hosted checkout to a
// payment status. providerConfirmed means the provider reported the charge
// as captured; recordErr is the error (if any) from persisting our own
// record afterwards.
//
// The dangerous corner: provider confirmed but we failed to record. The
// money may have moved, so the outcome is Uncertain with the API_error
// reason, never a plain failure.
func ResolvePaymentOutcome(providerConfirmed bool, recordErr error, dismissed bool) (PaymentStatus, string) {
	if providerConfirmed {
		if recordErr != nil {
			return PaymentStatusUncertain, PaymentReasonAPIError
		}
		return PaymentStatusPaid, ""
	}
	if dismissed {
		return PaymentStatusCancelled, PaymentReasonDismissed
	}
	return PaymentStatusFailed, ""
}

// RecordCheckoutPayment persists a confirmed charge and moves the proposal to
// Paid, atomically with the outbox event.
func RecordCheckoutPayment(ctx context.Context, agentId int, proposal *Proposal, orderId string, payId string, amount decimal.Decimal, mode PaymentMode) (*PaymentRecord, error) {

	db := config.GetDB()
	record := PaymentRecord{
		AgentId:         agentId,
		ProposalId:      proposal.ID,
		ProviderOrderId: orderId,
		ProviderPayId:   payId,
		Amount:          amount,
		Currency:        "INR",
		Mode:            mode,
		Status:          PaymentStatusPaid,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if err := tx.Model(&Proposal{}).Where("id = ?", proposal.ID).Update("current_status", ProposalStatusPaid).Error; err != nil {
			return err
		}
		correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
		return AppendOutboxEvent(tx, EventTypePaymentRecorded, record.ID, "PaymentRecord", map[string]any{
			"proposal_id":    proposal.ID,
			"certificate_no": proposal.CertificateNo,
			"order_id":       orderId,
			"pay_id":         payId,
			"amount":         amount.String(),
			"mode":           string(mode),
		}, correlationId)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// RecordUncertainPayment is best-effort bookkeeping for the API_error path.
// The primary record already failed once, so a second failure here is logged
// and swallowed; the staged failure blob is the source of truth for the
// screen.
func RecordUncertainPayment(ctx context.Context, agentId int, proposal *Proposal, orderId string, payId string, amount decimal.Decimal, mode PaymentMode) {

	logger := config.GetLogger()
	db := config.GetDB()

	record := PaymentRecord{
		AgentId:         agentId,
		ProposalId:      proposal.ID,
		ProviderOrderId: orderId,
		ProviderPayId:   payId,
		Amount:          amount,
		Currency:        "INR",
		Mode:            mode,
		Status:          PaymentStatusUncertain,
		Reason:          PaymentReasonAPIError,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
		return AppendOutboxEvent(tx, EventTypePaymentUncertain, record.ID, "PaymentRecord", map[string]any{
			"proposal_id": proposal.ID,
			"order_id":    orderId,
			"pay_id":      payId,
			"amount":      amount.String(),
		}, correlationId)
	})
	if err != nil {
		config.LogError(logger, "models", "RecordUncertainPayment", "persist uncertain payment", logrus.Fields{
			"proposalId": proposal.ID,
			"orderId":    orderId,
			"payId":      payId,
		}, err)
	}
}

// RecordCheckoutFailure writes a failed or cancelled attempt. No outbox
// event; nothing downstream cares about an unpaid attempt.
func RecordCheckoutFailure(ctx context.Context, agentId int, proposalId int, orderId string, mode PaymentMode, status PaymentStatus, reason string) (*PaymentRecord, error) {

	db := config.GetDB()
	record := PaymentRecord{
		AgentId:         agentId,
		ProposalId:      proposalId,
		ProviderOrderId: orderId,
		Currency:        "INR",
		Mode:            mode,
		Status:          status,
		Reason:          reason,
	}
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func ListPaymentsByAgent(ctx context.Context, agentId int) ([]*PaymentRecord, error) {
	return utils.FetchModelsWhere[PaymentRecord](ctx, "agent_id = ?", agentId)
}

func GetPaymentByProviderOrder(ctx context.Context, orderId string) (*PaymentRecord, error) {
	db := config.GetDB()
	var record PaymentRecord
	if err := db.WithContext(ctx).Where("provider_order_id = ?", orderId).Order("id DESC").Take(&record).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &record, nil
}
