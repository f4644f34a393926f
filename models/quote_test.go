package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func storedQuote() *PremiumQuote {
	return &PremiumQuote{
		ID:             7,
		AgentId:        3,
		PlanId:         1,
		AmountFullPay:  decimal.NewFromInt(3540),
		AmountDiscount: decimal.NewFromInt(3186),
		AmountUpfront:  decimal.NewFromInt(885),
		ValidUntil:     time.Now().Add(30 * time.Minute),
	}
}

func TestAmountForSwitchesWithMode(t *testing.T) {
	quote := storedQuote()

	cases := []struct {
		mode PaymentMode
		want decimal.Decimal
	}{
		{PaymentModeFullPay, decimal.NewFromInt(3540)},
		{PaymentModeDiscount, decimal.NewFromInt(3186)},
		{PaymentModeUpfront, decimal.NewFromInt(885)},
	}
	for _, tc := range cases {
		got, err := quote.AmountFor(tc.mode)
		if err != nil {
			t.Errorf("AmountFor(%s): unexpected error %v", tc.mode, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("AmountFor(%s) = %s, want %s", tc.mode, got, tc.want)
		}
	}
}

func TestAmountForRejectsUnknownMode(t *testing.T) {
	if _, err := storedQuote().AmountFor(PaymentMode("XX")); err == nil {
		t.Error("expected error for unknown payment mode")
	}
}

func TestAmountForRejectsExpiredQuote(t *testing.T) {
	quote := storedQuote()
	quote.ValidUntil = time.Now().Add(-time.Minute)
	if _, err := quote.AmountFor(PaymentModeFullPay); err == nil {
		t.Error("expected error for an expired quote")
	}
}
