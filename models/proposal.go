package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiseaseRejectionMessage is the fixed message shown whenever a named
// pre-existing disease is declared. Wording is part of the product contract;
// do not vary it per disease.
const DiseaseRejectionMessage = "Proposals with the declared pre-existing disease cannot be accepted online. Please contact your branch office."

// DiseaseAnyOther is the only named selection that does NOT block submission.
const DiseaseAnyOther = "AnyOther"

type Proposal struct {
	ID                 int               `gorm:"primary_key" json:"id"`
	AgentId            int               `gorm:"index;not null" json:"agent_id"`
	PlanId             int               `gorm:"index;not null" json:"plan_id"`
	Variant            ProductVariant    `gorm:"type:enum('Travel','Practo','Ayush');default:Travel" json:"variant"`
	CertificateNo      string            `gorm:"size:100;uniqueIndex" json:"certificate_no"`
	InsurerProposalNo  string            `gorm:"size:100" json:"insurer_proposal_no"`
	InsurerReferenceNo string            `gorm:"size:100" json:"insurer_reference_no"`
	FirstName          string            `gorm:"size:100;not null" json:"first_name"`
	LastName           string            `gorm:"size:100;not null" json:"last_name"`
	PassportNo         string            `gorm:"size:20;index;not null" json:"passport_no"`
	DateOfBirth        time.Time         `gorm:"not null" json:"date_of_birth"`
	Email              string            `gorm:"size:100;not null" json:"email"`
	Mobile             string            `gorm:"size:20;not null" json:"mobile"`
	Landline           string            `gorm:"size:20" json:"landline"`
	Address            string            `gorm:"size:255" json:"address"`
	Pincode            string            `gorm:"size:10;not null" json:"pincode"`
	PolicyStartDate    time.Time         `gorm:"not null" json:"policy_start_date"`
	PolicyEndDate      time.Time         `gorm:"not null" json:"policy_end_date"`
	NomineeName        string            `gorm:"size:100" json:"nominee_name"`
	NomineeRelation    string            `gorm:"size:50" json:"nominee_relation"`
	HasDisease         *bool             `gorm:"not null;default:false" json:"has_disease"`
	DiseaseName        string            `gorm:"size:100" json:"disease_name"`
	BasePremium        decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"base_premium"`
	GSTAmount          decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"gst_amount"`
	TotalPremium       decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"total_premium"`
	PaymentMode        PaymentMode       `gorm:"type:enum('FP','DC','UC');default:FP" json:"payment_mode"`
	ValidationOutcome  ValidationOutcome `gorm:"type:enum('Validated','BypassedByUser','Failed');default:Validated" json:"validation_outcome"`
	CurrentStatus      ProposalStatus    `gorm:"type:enum('Draft','Submitted','Validated','Bypassed','Paid','Invoiced');default:Submitted" json:"current_status"`
	CreatedAt          time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewProposal is the draft the plan-selection screen stages and the
// submission screen finalizes. It round-trips through the proposalData
// handoff blob.
type NewProposal struct {
	PlanId          int             `json:"plan_id" binding:"required"`
	Variant         ProductVariant  `json:"variant"`
	FirstName       string          `json:"first_name" binding:"required"`
	LastName        string          `json:"last_name" binding:"required"`
	PassportNo      string          `json:"passport_no" binding:"required"`
	DateOfBirth     time.Time       `json:"date_of_birth" binding:"required"`
	Email           string          `json:"email" binding:"required"`
	Mobile          string          `json:"mobile" binding:"required"`
	Landline        string          `json:"landline"`
	Address         string          `json:"address"`
	Pincode         string          `json:"pincode" binding:"required"`
	PolicyStartDate time.Time       `json:"policy_start_date" binding:"required"`
	PolicyEndDate   time.Time       `json:"policy_end_date" binding:"required"`
	NomineeName     string          `json:"nominee_name"`
	NomineeRelation string          `json:"nominee_relation"`
	HasDisease      *bool           `json:"has_disease"`
	DiseaseName     string          `json:"disease_name"`
	BasePremium     decimal.Decimal `json:"base_premium"`
	GSTAmount       decimal.Decimal `json:"gst_amount"`
	TotalPremium    decimal.Decimal `json:"total_premium"`
	PaymentMode     PaymentMode     `json:"payment_mode"`
}

// PassportRecord is what the insurer lookup returns for an existing traveller.
type PassportRecord struct {
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	DateOfBirth     time.Time `json:"date_of_birth"`
	Email           string    `json:"email"`
	Mobile          string    `json:"mobile"`
	Address         string    `json:"address"`
	Pincode         string    `json:"pincode"`
	PolicyStartDate time.Time `json:"policy_start_date"`
	PolicyEndDate   time.Time `json:"policy_end_date"`
}

// MergePassportRecord fills draft fields from a lookup result.
// Date-of-birth and the policy start/end dates already present in the draft
// are never overwritten; everything else yields to the looked-up value when
// the lookup returned one.
func MergePassportRecord(draft *NewProposal, rec *PassportRecord) {
	if rec == nil {
		return
	}
	if rec.FirstName != "" {
		draft.FirstName = rec.FirstName
	}
	if rec.LastName != "" {
		draft.LastName = rec.LastName
	}
	if rec.Email != "" {
		draft.Email = rec.Email
	}
	if rec.Mobile != "" {
		draft.Mobile = rec.Mobile
	}
	if rec.Address != "" {
		draft.Address = rec.Address
	}
	if rec.Pincode != "" {
		draft.Pincode = rec.Pincode
	}
	if draft.DateOfBirth.IsZero() {
		draft.DateOfBirth = rec.DateOfBirth
	}
	if draft.PolicyStartDate.IsZero() {
		draft.PolicyStartDate = rec.PolicyStartDate
	}
	if draft.PolicyEndDate.IsZero() {
		draft.PolicyEndDate = rec.PolicyEndDate
	}
}

// ValidateDraft runs the submission-screen checks. Field problems come back
// as a field->message map; the disease rule returns its fixed message and
// wins over everything else.
func ValidateDraft(draft *NewProposal, plan *TravelPlan) (map[string]string, error) {
	// Disease rule first: a named disease blocks regardless of other fields.
	// The name alone decides; the declaration flag cannot clear it, since the
	// two fields arrive independently and may disagree.
	if name := strings.TrimSpace(draft.DiseaseName); name != "" && name != DiseaseAnyOther {
		return nil, errors.New(DiseaseRejectionMessage)
	}

	fieldErrors := map[string]string{}
	if strings.TrimSpace(draft.FirstName) == "" {
		fieldErrors["first_name"] = "required"
	}
	if strings.TrimSpace(draft.LastName) == "" {
		fieldErrors["last_name"] = "required"
	}
	if !utils.IsValidEmail(draft.Email) {
		fieldErrors["email"] = "invalid email address"
	}
	if !utils.IsValidMobile(draft.Mobile) {
		fieldErrors["mobile"] = "invalid mobile number"
	}
	if !utils.IsValidPincode(draft.Pincode) {
		fieldErrors["pincode"] = "invalid pincode"
	}
	if !utils.IsValidPassport(draft.PassportNo) {
		fieldErrors["passport_no"] = "invalid passport number"
	}
	if !utils.IsValidLandline(draft.Landline) {
		fieldErrors["landline"] = "invalid landline number"
	}
	if draft.DateOfBirth.IsZero() {
		fieldErrors["date_of_birth"] = "required"
	}
	if draft.PolicyStartDate.IsZero() {
		fieldErrors["policy_start_date"] = "required"
	}
	if draft.PolicyEndDate.IsZero() {
		fieldErrors["policy_end_date"] = "required"
	} else if !draft.PolicyStartDate.IsZero() && draft.PolicyEndDate.Before(draft.PolicyStartDate) {
		fieldErrors["policy_end_date"] = "must not be before the start date"
	}

	if plan != nil && !draft.DateOfBirth.IsZero() && !draft.PolicyStartDate.IsZero() {
		if err := plan.CheckAgeWindow(draft.DateOfBirth, draft.PolicyStartDate); err != nil {
			fieldErrors["date_of_birth"] = err.Error()
		}
	}

	if len(fieldErrors) > 0 {
		return fieldErrors, errors.New("validation failed")
	}
	return nil, nil
}

// PlaceholderIdentifiers generates local insurer identifiers for the bypass
// path (the insurer call failed and the user chose to continue).
func PlaceholderIdentifiers() (proposalNo string, referenceNo string) {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "LOCAL-" + id[:12], "LOCALREF-" + id[12:24]
}

func CreateProposal(ctx context.Context, agentId int, draft *NewProposal, outcome ValidationOutcome, insurerProposalNo, insurerReferenceNo string) (*Proposal, error) {

	db := config.GetDB()

	status := ProposalStatusValidated
	if outcome == ValidationOutcomeBypassed {
		status = ProposalStatusBypassed
	}

	proposal := Proposal{
		AgentId:            agentId,
		PlanId:             draft.PlanId,
		Variant:            draft.Variant,
		CertificateNo:      nextCertificateNo(),
		InsurerProposalNo:  insurerProposalNo,
		InsurerReferenceNo: insurerReferenceNo,
		FirstName:          draft.FirstName,
		LastName:           draft.LastName,
		PassportNo:         strings.ToUpper(strings.TrimSpace(draft.PassportNo)),
		DateOfBirth:        draft.DateOfBirth,
		Email:              strings.ToLower(draft.Email),
		Mobile:             draft.Mobile,
		Landline:           draft.Landline,
		Address:            draft.Address,
		Pincode:            draft.Pincode,
		PolicyStartDate:    draft.PolicyStartDate,
		PolicyEndDate:      draft.PolicyEndDate,
		NomineeName:        draft.NomineeName,
		NomineeRelation:    draft.NomineeRelation,
		HasDisease:         draft.HasDisease,
		DiseaseName:        draft.DiseaseName,
		BasePremium:        draft.BasePremium,
		GSTAmount:          draft.GSTAmount,
		TotalPremium:       draft.TotalPremium,
		PaymentMode:        draft.PaymentMode,
		ValidationOutcome:  outcome,
		CurrentStatus:      status,
	}
	if proposal.HasDisease == nil {
		proposal.HasDisease = utils.NewFalse()
	}
	if proposal.PaymentMode == "" {
		proposal.PaymentMode = PaymentModeFullPay
	}

	if err := db.WithContext(ctx).Create(&proposal).Error; err != nil {
		return nil, err
	}

	return &proposal, nil
}

func nextCertificateNo() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "TS" + id[:10]
}

// UpdatePolicy covers the UpdatePolicyInsurance screen: contact and nominee
// fields are mutable; identity, dates and premium are not.
type UpdatePolicyInput struct {
	CertificateNo   string `json:"certificate_no" binding:"required"`
	Email           string `json:"email"`
	Mobile          string `json:"mobile"`
	Landline        string `json:"landline"`
	Address         string `json:"address"`
	Pincode         string `json:"pincode"`
	NomineeName     string `json:"nominee_name"`
	NomineeRelation string `json:"nominee_relation"`
}

func UpdatePolicy(ctx context.Context, agentId int, input *UpdatePolicyInput) (*Proposal, error) {
	db := config.GetDB()

	var proposal Proposal
	if err := db.WithContext(ctx).Where("certificate_no = ? AND agent_id = ?", input.CertificateNo, agentId).Take(&proposal).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	updates := map[string]interface{}{}
	if input.Email != "" {
		if !utils.IsValidEmail(input.Email) {
			return nil, errors.New("invalid email address")
		}
		updates["email"] = strings.ToLower(input.Email)
	}
	if input.Mobile != "" {
		if !utils.IsValidMobile(input.Mobile) {
			return nil, errors.New("invalid mobile number")
		}
		updates["mobile"] = input.Mobile
	}
	if input.Landline != "" {
		if !utils.IsValidLandline(input.Landline) {
			return nil, errors.New("invalid landline number")
		}
		updates["landline"] = input.Landline
	}
	if input.Address != "" {
		updates["address"] = input.Address
	}
	if input.Pincode != "" {
		if !utils.IsValidPincode(input.Pincode) {
			return nil, errors.New("invalid pincode")
		}
		updates["pincode"] = input.Pincode
	}
	if input.NomineeName != "" {
		updates["nominee_name"] = input.NomineeName
	}
	if input.NomineeRelation != "" {
		updates["nominee_relation"] = input.NomineeRelation
	}
	if len(updates) == 0 {
		return &proposal, nil
	}

	if err := db.WithContext(ctx).Model(&Proposal{}).Where("id = ?", proposal.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Take(&proposal, proposal.ID).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

func GetProposal(ctx context.Context, id int) (*Proposal, error) {
	return utils.FetchSingleModel[Proposal](ctx, id)
}

func GetProposalByCertificateNo(ctx context.Context, certificateNo string) (*Proposal, error) {
	db := config.GetDB()
	var proposal Proposal
	if err := db.WithContext(ctx).Where("certificate_no = ?", certificateNo).Take(&proposal).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &proposal, nil
}

func ListProposalsByAgent(ctx context.Context, agentId int) ([]*Proposal, error) {
	return utils.FetchModelsWhere[Proposal](ctx, "agent_id = ?", agentId)
}

// PolicyDetails is the payment context staged after a successful submit;
// the payment screen reads it back (falling back to paymentData
// reconstruction when absent).
type PolicyDetails struct {
	ProposalId    int             `json:"proposal_id"`
	CertificateNo string          `json:"certificate_no"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMode   PaymentMode     `json:"payment_mode"`
	ContactEmail  string          `json:"contact_email"`
	ContactMobile string          `json:"contact_mobile"`
	HolderName    string          `json:"holder_name"`
}

// ModeOrDefault keeps older staged blobs (no payment_mode yet) working.
func (d PolicyDetails) ModeOrDefault() PaymentMode {
	if d.PaymentMode == "" {
		return PaymentModeFullPay
	}
	return d.PaymentMode
}
