package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/travelshield/portal_backend/utils"
)

func validDraft() *NewProposal {
	return &NewProposal{
		PlanId:          1,
		FirstName:       "Asha",
		LastName:        "Verma",
		PassportNo:      "A1234567",
		DateOfBirth:     time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC),
		Email:           "asha@example.com",
		Mobile:          "9876543210",
		Pincode:         "400001",
		PolicyStartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		PolicyEndDate:   time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		TotalPremium:    decimal.NewFromInt(3540),
	}
}

func testPlan() *TravelPlan {
	return &TravelPlan{
		ID:           1,
		BasePremium:  decimal.NewFromInt(3000),
		GSTRate:      decimal.NewFromFloat(0.18),
		MinAgeMonths: 3,
		MaxAgeMonths: 972,
		IsActive:     utils.NewTrue(),
	}
}

func TestValidateDraftAcceptsCleanDraft(t *testing.T) {
	fieldErrors, err := ValidateDraft(validDraft(), testPlan())
	if err != nil {
		t.Fatalf("unexpected error: %v (fields: %v)", err, fieldErrors)
	}
}

func TestDiseaseRuleBlocksNamedDisease(t *testing.T) {
	draft := validDraft()
	draft.HasDisease = utils.NewTrue()
	draft.DiseaseName = "Diabetes"

	_, err := ValidateDraft(draft, testPlan())
	if err == nil {
		t.Fatal("expected the disease rule to block submission")
	}
	if err.Error() != DiseaseRejectionMessage {
		t.Errorf("wrong rejection message: %q", err.Error())
	}
}

func TestDiseaseRuleIgnoresDeclarationFlag(t *testing.T) {
	// The flag and the name arrive as independent JSON fields; a named
	// disease blocks even when the declaration says no or is absent.
	flags := map[string]*bool{"nil": nil, "false": utils.NewFalse()}
	for label, flag := range flags {
		draft := validDraft()
		draft.HasDisease = flag
		draft.DiseaseName = "Diabetes"

		_, err := ValidateDraft(draft, testPlan())
		if err == nil {
			t.Fatalf("has_disease=%s: expected the named disease to block", label)
		}
		if err.Error() != DiseaseRejectionMessage {
			t.Errorf("has_disease=%s: wrong rejection message: %q", label, err.Error())
		}
	}
}

func TestDiseaseRuleAllowsEmptyAndAnyOther(t *testing.T) {
	for _, name := range []string{"", DiseaseAnyOther} {
		for _, flag := range []*bool{utils.NewTrue(), nil} {
			draft := validDraft()
			draft.HasDisease = flag
			draft.DiseaseName = name
			if _, err := ValidateDraft(draft, testPlan()); err != nil {
				t.Errorf("disease name %q should not block: %v", name, err)
			}
		}
	}
}

func TestDiseaseRuleWinsOverFieldErrors(t *testing.T) {
	draft := validDraft()
	draft.Email = "broken"
	draft.HasDisease = utils.NewTrue()
	draft.DiseaseName = "Asthma"

	fieldErrors, err := ValidateDraft(draft, testPlan())
	if err == nil || err.Error() != DiseaseRejectionMessage {
		t.Fatalf("disease rule should win over field errors, got err=%v fields=%v", err, fieldErrors)
	}
	if fieldErrors != nil {
		t.Errorf("no field map expected on a disease rejection, got %v", fieldErrors)
	}
}

func TestValidateDraftFieldErrors(t *testing.T) {
	draft := validDraft()
	draft.Email = "broken"
	draft.Mobile = "123"
	draft.Pincode = "0400"

	fieldErrors, err := ValidateDraft(draft, testPlan())
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, field := range []string{"email", "mobile", "pincode"} {
		if _, ok := fieldErrors[field]; !ok {
			t.Errorf("missing field error for %s, got %v", field, fieldErrors)
		}
	}
}

func TestValidateDraftAgeWindow(t *testing.T) {
	// Younger than 3 months at policy start.
	draft := validDraft()
	draft.DateOfBirth = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	fieldErrors, err := ValidateDraft(draft, testPlan())
	if err == nil {
		t.Fatal("expected age-window rejection for an infant")
	}
	if _, ok := fieldErrors["date_of_birth"]; !ok {
		t.Errorf("expected date_of_birth error, got %v", fieldErrors)
	}

	// Older than 81 years (972 months).
	draft = validDraft()
	draft.DateOfBirth = time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := ValidateDraft(draft, testPlan()); err == nil {
		t.Error("expected age-window rejection for an 86-year-old")
	}

	// End date before start date.
	draft = validDraft()
	draft.PolicyEndDate = draft.PolicyStartDate.AddDate(0, 0, -1)
	fieldErrors, err = ValidateDraft(draft, testPlan())
	if err == nil {
		t.Fatal("expected rejection for inverted policy dates")
	}
	if _, ok := fieldErrors["policy_end_date"]; !ok {
		t.Errorf("expected policy_end_date error, got %v", fieldErrors)
	}
}

func TestMergePassportRecordPreservesDates(t *testing.T) {
	draft := validDraft()
	originalDOB := draft.DateOfBirth
	originalStart := draft.PolicyStartDate
	originalEnd := draft.PolicyEndDate

	rec := &PassportRecord{
		FirstName:       "Aisha",
		Email:           "aisha@example.com",
		DateOfBirth:     time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC),
		PolicyStartDate: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		PolicyEndDate:   time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	MergePassportRecord(draft, rec)

	if draft.FirstName != "Aisha" || draft.Email != "aisha@example.com" {
		t.Error("lookup fields should overwrite contact details")
	}
	if !draft.DateOfBirth.Equal(originalDOB) {
		t.Error("date of birth must never be overwritten by a lookup")
	}
	if !draft.PolicyStartDate.Equal(originalStart) || !draft.PolicyEndDate.Equal(originalEnd) {
		t.Error("policy dates must never be overwritten by a lookup")
	}
}

func TestMergePassportRecordFillsMissingDates(t *testing.T) {
	draft := validDraft()
	draft.DateOfBirth = time.Time{}
	draft.PolicyStartDate = time.Time{}
	draft.PolicyEndDate = time.Time{}

	rec := &PassportRecord{
		DateOfBirth:     time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC),
		PolicyStartDate: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		PolicyEndDate:   time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	MergePassportRecord(draft, rec)

	if draft.DateOfBirth.IsZero() || draft.PolicyStartDate.IsZero() || draft.PolicyEndDate.IsZero() {
		t.Error("empty dates should be filled from the lookup")
	}
}

func TestPlaceholderIdentifiers(t *testing.T) {
	p1, r1 := PlaceholderIdentifiers()
	p2, r2 := PlaceholderIdentifiers()
	if p1 == p2 || r1 == r2 {
		t.Error("placeholder identifiers must be unique per call")
	}
	if len(p1) == 0 || len(r1) == 0 {
		t.Error("placeholder identifiers must not be empty")
	}
}
