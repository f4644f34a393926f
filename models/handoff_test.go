package models

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/travelshield/portal_backend/utils"
)

func TestReadHandoffWithoutTokenFails(t *testing.T) {
	var draft NewProposal
	if err := ReadHandoff(context.Background(), HandoffKeyProposalData, &draft); err == nil {
		t.Fatal("reading a staged blob without a session token must fail")
	}
}

// With no staged blob on file, the read maps to the missing-handoff error so
// handlers can answer the silent dashboard redirect.
func TestReadHandoffMissingBlobRedirects(t *testing.T) {
	ctx := utils.SetTokenInContext(context.Background(), "test-token")

	var draft NewProposal
	err := ReadHandoff(ctx, HandoffKeyProposalData, &draft)
	if !errors.Is(err, utils.ErrorMissingHandoff) {
		t.Fatalf("expected ErrorMissingHandoff, got %v", err)
	}
}
