package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrAlreadySubscribed = errors.New("subscription already completed for this quote")

const subscribeHandlerName = "wallet.subscribe"

// SubscriptionPipeline runs the wallet subscription end to end:
// resolve the charge from the agent's last quote, create the proposal,
// debit the wallet, then best-effort invoice. The steps are func fields so
// tests can swap them without a database.
type SubscriptionPipeline struct {
	Logger *logrus.Logger

	FetchLastQuote func(ctx context.Context, agentId int) (*models.PremiumQuote, error)
	CreateProposal func(ctx context.Context, agentId int, draft *models.NewProposal, outcome models.ValidationOutcome, proposalNo, referenceNo string) (*models.Proposal, error)
	DebitWallet    func(ctx context.Context, agentId int, amount decimal.Decimal, proposalId int, quoteId int, reference string) (*models.WalletTransaction, error)
	MarkPaid       func(ctx context.Context, proposalId int) error
	RenderInvoice  func(ctx context.Context, proposal *models.Proposal, amount decimal.Decimal) ([]byte, error)
	StoreInvoice   func(ctx context.Context, proposal *models.Proposal, paymentId int, amount decimal.Decimal, pdf []byte) (*models.Invoice, error)

	// Optional durable guard keyed per agent+quote+mode so a re-sent
	// subscribe never double-debits. Nil guards are skipped.
	BeginGuard  func(ctx context.Context, messageId string) (skip bool, err error)
	FinishGuard func(ctx context.Context, messageId string, succeeded bool, cause error)
}

type SubscriptionResult struct {
	Proposal    *models.Proposal          `json:"proposal"`
	Transaction *models.WalletTransaction `json:"transaction"`
	Invoice     *models.Invoice           `json:"invoice,omitempty"`
}

func NewSubscriptionPipeline(renderInvoice func(ctx context.Context, proposal *models.Proposal, amount decimal.Decimal) ([]byte, error)) *SubscriptionPipeline {
	return &SubscriptionPipeline{
		Logger:         config.GetLogger(),
		FetchLastQuote: models.LastQuote,
		CreateProposal: models.CreateProposal,
		DebitWallet:    models.DebitWallet,
		MarkPaid:       markProposalPaid,
		RenderInvoice:  renderInvoice,
		StoreInvoice:   models.CreateInvoice,
		BeginGuard:     beginSubscribeGuard,
		FinishGuard:    finishSubscribeGuard,
	}
}

func beginSubscribeGuard(ctx context.Context, messageId string) (bool, error) {
	return BeginIdempotency(config.GetDB().WithContext(ctx), subscribeHandlerName, messageId)
}

func finishSubscribeGuard(ctx context.Context, messageId string, succeeded bool, cause error) {
	db := config.GetDB().WithContext(ctx)
	var err error
	if succeeded {
		err = MarkIdempotencySucceeded(db, subscribeHandlerName, messageId)
	} else {
		err = MarkIdempotencyFailed(db, subscribeHandlerName, messageId, cause)
	}
	if err != nil {
		config.LogError(config.GetLogger(), "workflow", "finishSubscribeGuard", "update idempotency key", logrus.Fields{"messageId": messageId}, err)
	}
}

func (p *SubscriptionPipeline) finish(ctx context.Context, messageId string, succeeded bool, cause error) {
	if p.FinishGuard != nil {
		p.FinishGuard(ctx, messageId, succeeded, cause)
	}
}

func markProposalPaid(ctx context.Context, proposalId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&models.Proposal{}).
		Where("id = ?", proposalId).
		Update("current_status", models.ProposalStatusPaid).Error
}

// Subscribe charges the wallet for the draft and issues the proposal.
// The amount always comes from the last fetched quote for the selected mode,
// not from anything the caller sends. Invoice failures never fail the
// subscription; the debit already happened.
func (p *SubscriptionPipeline) Subscribe(ctx context.Context, agentId int, draft *models.NewProposal, outcome models.ValidationOutcome, proposalNo, referenceNo string) (*SubscriptionResult, error) {

	quote, err := p.FetchLastQuote(ctx, agentId)
	if err != nil {
		return nil, fmt.Errorf("no quote on file: %w", err)
	}

	mode := draft.PaymentMode
	if mode == "" {
		mode = models.PaymentModeFullPay
	}
	amount, err := quote.AmountFor(mode)
	if err != nil {
		return nil, err
	}
	draft.BasePremium = amount
	draft.TotalPremium = amount

	guardKey := fmt.Sprintf("%d:%d:%s", agentId, quote.ID, mode)
	if p.BeginGuard != nil {
		skip, err := p.BeginGuard(ctx, guardKey)
		if err != nil {
			return nil, err
		}
		if skip {
			return nil, ErrAlreadySubscribed
		}
	}

	proposal, err := p.CreateProposal(ctx, agentId, draft, outcome, proposalNo, referenceNo)
	if err != nil {
		p.finish(ctx, guardKey, false, err)
		return nil, err
	}

	txn, err := p.DebitWallet(ctx, agentId, amount, proposal.ID, quote.ID, "Subscription:"+proposal.CertificateNo)
	if err != nil {
		p.finish(ctx, guardKey, false, err)
		return nil, err
	}
	p.finish(ctx, guardKey, true, nil)

	if err := p.MarkPaid(ctx, proposal.ID); err != nil {
		config.LogError(p.Logger, "workflow", "Subscribe", "mark proposal paid", logrus.Fields{"proposalId": proposal.ID}, err)
	}

	result := &SubscriptionResult{Proposal: proposal, Transaction: txn}

	if !config.InvoiceGenerationEnabled() || p.RenderInvoice == nil {
		return result, nil
	}
	pdf, err := p.RenderInvoice(ctx, proposal, amount)
	if err != nil {
		config.LogError(p.Logger, "workflow", "Subscribe", "render invoice", logrus.Fields{"proposalId": proposal.ID}, err)
		return result, nil
	}
	invoice, err := p.StoreInvoice(ctx, proposal, txn.ID, amount, pdf)
	if err != nil {
		config.LogError(p.Logger, "workflow", "Subscribe", "store invoice", logrus.Fields{"proposalId": proposal.ID}, err)
		return result, nil
	}
	result.Invoice = invoice
	return result, nil
}
