package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/models"
	"github.com/shopspring/decimal"
)

// DB-free pipeline with every step faked; only Subscribe's orchestration is
// under test.
type pipelineRecorder struct {
	debitedAmount  decimal.Decimal
	debitCalled    bool
	markPaidCalled bool
	invoiceStored  bool
}

func testQuote() *models.PremiumQuote {
	return &models.PremiumQuote{
		ID:             11,
		AgentId:        3,
		PlanId:         1,
		AmountFullPay:  decimal.NewFromInt(3540),
		AmountDiscount: decimal.NewFromInt(3186),
		AmountUpfront:  decimal.NewFromInt(885),
		ValidUntil:     time.Now().Add(time.Hour),
	}
}

func newTestPipeline(rec *pipelineRecorder, debitErr error, renderErr error) *SubscriptionPipeline {
	return &SubscriptionPipeline{
		Logger: config.GetLogger(),
		FetchLastQuote: func(ctx context.Context, agentId int) (*models.PremiumQuote, error) {
			return testQuote(), nil
		},
		CreateProposal: func(ctx context.Context, agentId int, draft *models.NewProposal, outcome models.ValidationOutcome, proposalNo, referenceNo string) (*models.Proposal, error) {
			return &models.Proposal{ID: 42, CertificateNo: "TS0000000001", TotalPremium: draft.TotalPremium}, nil
		},
		DebitWallet: func(ctx context.Context, agentId int, amount decimal.Decimal, proposalId int, quoteId int, reference string) (*models.WalletTransaction, error) {
			rec.debitCalled = true
			rec.debitedAmount = amount
			if debitErr != nil {
				return nil, debitErr
			}
			return &models.WalletTransaction{ID: 5, Amount: amount}, nil
		},
		MarkPaid: func(ctx context.Context, proposalId int) error {
			rec.markPaidCalled = true
			return nil
		},
		RenderInvoice: func(ctx context.Context, proposal *models.Proposal, amount decimal.Decimal) ([]byte, error) {
			if renderErr != nil {
				return nil, renderErr
			}
			return []byte("%PDF-1.4"), nil
		},
		StoreInvoice: func(ctx context.Context, proposal *models.Proposal, paymentId int, amount decimal.Decimal, pdf []byte) (*models.Invoice, error) {
			rec.invoiceStored = true
			return &models.Invoice{ID: 9, ProposalId: proposal.ID, Amount: amount}, nil
		},
	}
}

func draftWithMode(mode models.PaymentMode) *models.NewProposal {
	return &models.NewProposal{
		PlanId:      1,
		PaymentMode: mode,
		// The caller's amount is deliberately wrong; the quote must win.
		TotalPremium: decimal.NewFromInt(1),
	}
}

func TestSubscribeChargesQuoteAmountNotCallerAmount(t *testing.T) {
	rec := &pipelineRecorder{}
	p := newTestPipeline(rec, nil, nil)

	result, err := p.Subscribe(context.Background(), 3, draftWithMode(models.PaymentModeDiscount), models.ValidationOutcomeValidated, "P1", "R1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.debitedAmount.Equal(decimal.NewFromInt(3186)) {
		t.Errorf("debited %s, want the quote's discount amount 3186", rec.debitedAmount)
	}
	if result.Transaction == nil {
		t.Error("expected a wallet transaction in the result")
	}
	if !rec.markPaidCalled {
		t.Error("proposal should be marked paid after a successful debit")
	}
}

func TestSubscribeModeSwitchesAmount(t *testing.T) {
	cases := []struct {
		mode models.PaymentMode
		want int64
	}{
		{models.PaymentModeFullPay, 3540},
		{models.PaymentModeDiscount, 3186},
		{models.PaymentModeUpfront, 885},
	}
	for _, tc := range cases {
		rec := &pipelineRecorder{}
		p := newTestPipeline(rec, nil, nil)
		if _, err := p.Subscribe(context.Background(), 3, draftWithMode(tc.mode), models.ValidationOutcomeValidated, "P1", "R1"); err != nil {
			t.Fatalf("mode %s: unexpected error: %v", tc.mode, err)
		}
		if !rec.debitedAmount.Equal(decimal.NewFromInt(tc.want)) {
			t.Errorf("mode %s: debited %s, want %d", tc.mode, rec.debitedAmount, tc.want)
		}
	}
}

func TestSubscribeDebitFailureStopsPipeline(t *testing.T) {
	rec := &pipelineRecorder{}
	p := newTestPipeline(rec, models.ErrInsufficientWallet, nil)

	_, err := p.Subscribe(context.Background(), 3, draftWithMode(models.PaymentModeFullPay), models.ValidationOutcomeValidated, "P1", "R1")
	if !errors.Is(err, models.ErrInsufficientWallet) {
		t.Fatalf("expected insufficient-wallet error, got %v", err)
	}
	if rec.markPaidCalled {
		t.Error("proposal must not be marked paid when the debit fails")
	}
	if rec.invoiceStored {
		t.Error("no invoice may be stored when the debit fails")
	}
}

func TestSubscribeInvoiceFailureDoesNotFailSubscription(t *testing.T) {
	rec := &pipelineRecorder{}
	p := newTestPipeline(rec, nil, errors.New("insurer down"))

	result, err := p.Subscribe(context.Background(), 3, draftWithMode(models.PaymentModeFullPay), models.ValidationOutcomeValidated, "P1", "R1")
	if err != nil {
		t.Fatalf("invoice problems must not fail the subscription: %v", err)
	}
	if result.Invoice != nil {
		t.Error("no invoice expected when rendering failed")
	}
	if !rec.debitCalled {
		t.Error("debit should still have happened")
	}
}

func TestSubscribeGuardSkipMeansAlreadySubscribed(t *testing.T) {
	rec := &pipelineRecorder{}
	p := newTestPipeline(rec, nil, nil)
	p.BeginGuard = func(ctx context.Context, messageId string) (bool, error) {
		return true, nil
	}

	_, err := p.Subscribe(context.Background(), 3, draftWithMode(models.PaymentModeFullPay), models.ValidationOutcomeValidated, "P1", "R1")
	if !errors.Is(err, ErrAlreadySubscribed) {
		t.Fatalf("expected ErrAlreadySubscribed, got %v", err)
	}
	if rec.debitCalled {
		t.Error("no debit may happen when the guard says the work is done")
	}
}

func TestSubscribeGuardRecordsOutcome(t *testing.T) {
	var finished, succeeded bool
	rec := &pipelineRecorder{}
	p := newTestPipeline(rec, nil, nil)
	p.BeginGuard = func(ctx context.Context, messageId string) (bool, error) { return false, nil }
	p.FinishGuard = func(ctx context.Context, messageId string, ok bool, cause error) {
		finished = true
		succeeded = ok
	}

	if _, err := p.Subscribe(context.Background(), 3, draftWithMode(models.PaymentModeFullPay), models.ValidationOutcomeValidated, "P1", "R1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !finished || !succeeded {
		t.Errorf("guard should be finished as succeeded, got finished=%v succeeded=%v", finished, succeeded)
	}

	finished, succeeded = false, false
	p = newTestPipeline(rec, models.ErrInsufficientWallet, nil)
	p.BeginGuard = func(ctx context.Context, messageId string) (bool, error) { return false, nil }
	p.FinishGuard = func(ctx context.Context, messageId string, ok bool, cause error) {
		finished = true
		succeeded = ok
	}
	if _, err := p.Subscribe(context.Background(), 3, draftWithMode(models.PaymentModeFullPay), models.ValidationOutcomeValidated, "P1", "R1"); err == nil {
		t.Fatal("expected the debit failure to surface")
	}
	if !finished || succeeded {
		t.Errorf("guard should be finished as failed, got finished=%v succeeded=%v", finished, succeeded)
	}
}

func TestSubscribeExpiredQuoteRefuses(t *testing.T) {
	rec := &pipelineRecorder{}
	p := newTestPipeline(rec, nil, nil)
	p.FetchLastQuote = func(ctx context.Context, agentId int) (*models.PremiumQuote, error) {
		q := testQuote()
		q.ValidUntil = time.Now().Add(-time.Minute)
		return q, nil
	}

	if _, err := p.Subscribe(context.Background(), 3, draftWithMode(models.PaymentModeFullPay), models.ValidationOutcomeValidated, "P1", "R1"); err == nil {
		t.Fatal("expected refusal on an expired quote")
	}
	if rec.debitCalled {
		t.Error("no debit may happen on an expired quote")
	}
}
