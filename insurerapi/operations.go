package insurerapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

type ValidationResult struct {
	Accepted    bool   `json:"accepted"`
	ProposalNo  string `json:"proposal_no"`
	ReferenceNo string `json:"reference_no"`
	Message     string `json:"message"`
}

type draftPayload struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	PassportNo      string `json:"passport_no"`
	DateOfBirth     string `json:"date_of_birth"`
	PolicyStartDate string `json:"policy_start_date"`
	PolicyEndDate   string `json:"policy_end_date"`
	PlanCode        string `json:"plan_code"`
	Premium         string `json:"premium"`
}

// ValidateProposal submits the draft for acceptance. A transport or server
// error comes back as err; the caller decides whether bypass is offered.
func (c *Client) ValidateProposal(ctx context.Context, firstName, lastName, passportNo string, dob, start, end time.Time, planCode, premium string) (*ValidationResult, error) {

	payload := draftPayload{
		FirstName:       firstName,
		LastName:        lastName,
		PassportNo:      passportNo,
		DateOfBirth:     dob.Format("2006-01-02"),
		PolicyStartDate: start.Format("2006-01-02"),
		PolicyEndDate:   end.Format("2006-01-02"),
		PlanCode:        planCode,
		Premium:         premium,
	}

	raw, err := c.do(ctx, http.MethodPost, "/v1/proposals/validate", nil, payload)
	if err != nil {
		return nil, err
	}
	var result ValidationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type PassportLookupResult struct {
	Found           bool   `json:"found"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	DateOfBirth     string `json:"date_of_birth"`
	Email           string `json:"email"`
	Mobile          string `json:"mobile"`
	Address         string `json:"address"`
	Pincode         string `json:"pincode"`
	PolicyStartDate string `json:"policy_start_date"`
	PolicyEndDate   string `json:"policy_end_date"`
}

// LookupPassport fetches traveller details previously known to the insurer.
func (c *Client) LookupPassport(ctx context.Context, passportNo string) (*PassportLookupResult, error) {
	params := url.Values{}
	params.Set("passport_no", passportNo)

	raw, err := c.do(ctx, http.MethodGet, "/v1/travellers/lookup", params, nil)
	if err != nil {
		return nil, err
	}
	var result PassportLookupResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchPolicyPDF downloads the issued certificate document.
func (c *Client) FetchPolicyPDF(ctx context.Context, proposalNo string) ([]byte, error) {
	params := url.Values{}
	params.Set("proposal_no", proposalNo)
	return c.do(ctx, http.MethodGet, "/v1/policies/document", params, nil)
}

// FetchInvoicePDF downloads the premium invoice document.
func (c *Client) FetchInvoicePDF(ctx context.Context, proposalNo string) ([]byte, error) {
	params := url.Values{}
	params.Set("proposal_no", proposalNo)
	return c.do(ctx, http.MethodGet, "/v1/invoices/document", params, nil)
}
