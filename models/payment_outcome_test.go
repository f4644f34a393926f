package models

import (
	"errors"
	"testing"
)

func TestResolvePaymentOutcome(t *testing.T) {
	recordErr := errors.New("db write failed")

	cases := []struct {
		name              string
		providerConfirmed bool
		recordErr         error
		dismissed         bool
		wantStatus        PaymentStatus
		wantReason        string
	}{
		{"confirmed and recorded", true, nil, false, PaymentStatusPaid, ""},
		{"confirmed but record failed", true, recordErr, false, PaymentStatusUncertain, PaymentReasonAPIError},
		{"user dismissed the widget", false, nil, true, PaymentStatusCancelled, PaymentReasonDismissed},
		{"provider declined", false, nil, false, PaymentStatusFailed, ""},
	}
	for _, tc := range cases {
		status, reason := ResolvePaymentOutcome(tc.providerConfirmed, tc.recordErr, tc.dismissed)
		if status != tc.wantStatus || reason != tc.wantReason {
			t.Errorf("%s: got (%s, %q), want (%s, %q)", tc.name, status, reason, tc.wantStatus, tc.wantReason)
		}
	}
}

// The uncertain path must never look like a plain failure: the provider has
// the money even though our record is missing.
func TestUncertainOutcomeIsNotFailure(t *testing.T) {
	status, reason := ResolvePaymentOutcome(true, errors.New("timeout"), false)
	if status == PaymentStatusFailed || status == PaymentStatusCancelled {
		t.Fatalf("record failure after provider confirmation must not downgrade to %s", status)
	}
	if reason != PaymentReasonAPIError {
		t.Errorf("reason = %q, want %q", reason, PaymentReasonAPIError)
	}
}

// Staged policy blobs written before payment_mode existed decode with an
// empty mode; checkout must treat those as full-pay, not error out.
func TestPolicyDetailsModeOrDefault(t *testing.T) {
	cases := []struct {
		mode PaymentMode
		want PaymentMode
	}{
		{"", PaymentModeFullPay},
		{PaymentModeFullPay, PaymentModeFullPay},
		{PaymentModeDiscount, PaymentModeDiscount},
		{PaymentModeUpfront, PaymentModeUpfront},
	}
	for _, tc := range cases {
		if got := (PolicyDetails{PaymentMode: tc.mode}).ModeOrDefault(); got != tc.want {
			t.Errorf("ModeOrDefault(%q) = %q, want %q", tc.mode, got, tc.want)
		}
	}
}
