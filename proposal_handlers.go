package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/insurerapi"
	"bitbucket.org/travelshield/portal_backend/models"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

func listPlansHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		plans, err := models.ListPlans(c.Request.Context())
		if err != nil {
			handleModelError(c, err)
			return
		}
		filtered := make([]*models.TravelPlan, 0, len(plans))
		for _, p := range plans {
			if config.ProductVariantEnabled(string(p.Variant)) {
				filtered = append(filtered, p)
			}
		}
		respondOK(c, filtered, "")
	}
}

// stageProposalHandler saves the draft between the plan-selection and
// submission screens.
func stageProposalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		var draft models.NewProposal
		if err := c.ShouldBindJSON(&draft); err != nil {
			if _, ok := err.(validator.ValidationErrors); ok {
				c.JSON(http.StatusBadRequest, apiResponse{Status: "Failure", MasterData: utils.ProcessValidationErrors(err), Message: "invalid proposal draft"})
				return
			}
			respondError(c, http.StatusBadRequest, "invalid proposal draft")
			return
		}
		if !config.ProductVariantEnabled(string(draft.Variant)) && draft.Variant != "" {
			respondError(c, http.StatusBadRequest, "product is not available")
			return
		}
		if err := models.StageHandoff(c.Request.Context(), models.HandoffKeyProposalData, draft); err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, nil, "draft staged")
	}
}

func readStagedProposalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		var draft models.NewProposal
		if err := models.ReadHandoff(c.Request.Context(), models.HandoffKeyProposalData, &draft); err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, draft, "")
	}
}

// passportLookupHandler pulls known traveller details from the insurer and
// merges them into the staged draft. DOB and policy dates already on the
// draft survive the merge.
func passportLookupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		passportNo := strings.TrimSpace(c.Query("passport_no"))
		if !utils.IsValidPassport(passportNo) {
			respondError(c, http.StatusBadRequest, "invalid passport number")
			return
		}

		var draft models.NewProposal
		if err := models.ReadHandoff(c.Request.Context(), models.HandoffKeyProposalData, &draft); err != nil {
			handleModelError(c, err)
			return
		}

		client, err := getInsurerClient()
		if err != nil {
			respondError(c, http.StatusServiceUnavailable, "insurer lookup is unavailable")
			return
		}
		result, err := client.LookupPassport(c.Request.Context(), passportNo)
		if err != nil {
			config.LogError(config.GetLogger(), "proposal_handlers", "passportLookupHandler", "insurer lookup", logrus.Fields{"passportNo": passportNo}, err)
			respondError(c, http.StatusBadGateway, "passport lookup failed")
			return
		}
		if !result.Found {
			respondOK(c, draft, "no existing traveller found")
			return
		}

		record := passportRecordFromLookup(result)
		models.MergePassportRecord(&draft, record)
		draft.PassportNo = passportNo

		if err := models.StageHandoff(c.Request.Context(), models.HandoffKeyProposalData, draft); err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, draft, "traveller details merged")
	}
}

func passportRecordFromLookup(result *insurerapi.PassportLookupResult) *models.PassportRecord {
	rec := &models.PassportRecord{
		FirstName: result.FirstName,
		LastName:  result.LastName,
		Email:     result.Email,
		Mobile:    result.Mobile,
		Address:   result.Address,
		Pincode:   result.Pincode,
	}
	rec.DateOfBirth = parseAPIDate(result.DateOfBirth)
	rec.PolicyStartDate = parseAPIDate(result.PolicyStartDate)
	rec.PolicyEndDate = parseAPIDate(result.PolicyEndDate)
	return rec
}

func parseAPIDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type submitProposalRequest struct {
	Bypass bool `json:"bypass"`
}

// submitProposalHandler validates the staged draft, runs insurer validation
// (or the user-chosen bypass after a failed call) and creates the proposal.
func submitProposalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		var req submitProposalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			req = submitProposalRequest{}
		}

		ctx := c.Request.Context()
		var draft models.NewProposal
		if err := models.ReadHandoff(ctx, models.HandoffKeyProposalData, &draft); err != nil {
			handleModelError(c, err)
			return
		}

		plan, err := models.GetPlan(ctx, draft.PlanId)
		if err != nil {
			handleModelError(c, err)
			return
		}

		if fieldErrors, err := models.ValidateDraft(&draft, plan); err != nil {
			if len(fieldErrors) > 0 {
				c.JSON(http.StatusBadRequest, apiResponse{Status: "Failure", MasterData: fieldErrors, Message: "validation failed"})
				return
			}
			// Disease rule: fixed message, submission blocked.
			respondError(c, http.StatusUnprocessableEntity, err.Error())
			return
		}

		outcome := models.ValidationOutcomeValidated
		proposalNo := ""
		referenceNo := ""

		validated, valErr := runInsurerValidation(ctx, &draft, plan)
		switch {
		case valErr == nil && validated != nil && validated.Accepted:
			proposalNo = validated.ProposalNo
			referenceNo = validated.ReferenceNo
		case valErr == nil && validated != nil:
			// Insurer answered and said no. Bypass is not an option here.
			respondError(c, http.StatusUnprocessableEntity, validated.Message)
			return
		default:
			// Call failed. Offer bypass only when the flag allows and the
			// user asked for it.
			if !req.Bypass {
				masterData := gin.H{"bypass_allowed": config.InsurerValidationBypassAllowed()}
				c.JSON(http.StatusBadGateway, apiResponse{Status: "Failure", MasterData: masterData, Message: "insurer validation failed"})
				return
			}
			if !config.InsurerValidationBypassAllowed() {
				respondError(c, http.StatusForbidden, "validation bypass is not allowed")
				return
			}
			outcome = models.ValidationOutcomeBypassed
			proposalNo, referenceNo = models.PlaceholderIdentifiers()
		}

		proposal, err := models.CreateProposal(ctx, user.ID, &draft, outcome, proposalNo, referenceNo)
		if err != nil {
			handleModelError(c, err)
			return
		}

		details := models.PolicyDetails{
			ProposalId:    proposal.ID,
			CertificateNo: proposal.CertificateNo,
			Amount:        proposal.TotalPremium,
			Currency:      "INR",
			PaymentMode:   proposal.PaymentMode,
			ContactEmail:  proposal.Email,
			ContactMobile: proposal.Mobile,
			HolderName:    proposal.FirstName + " " + proposal.LastName,
		}
		if err := models.StageHandoff(ctx, models.HandoffKeyPolicyDetails, details); err != nil {
			config.LogError(config.GetLogger(), "proposal_handlers", "submitProposalHandler", "stage policy details", logrus.Fields{"proposalId": proposal.ID}, err)
		}
		_ = models.ClearHandoff(ctx, models.HandoffKeyProposalData)

		respondOK(c, proposal, "proposal submitted")
	}
}

func runInsurerValidation(ctx context.Context, draft *models.NewProposal, plan *models.TravelPlan) (*insurerapi.ValidationResult, error) {
	client, err := getInsurerClient()
	if err != nil {
		return nil, err
	}
	return client.ValidateProposal(ctx,
		draft.FirstName, draft.LastName, draft.PassportNo,
		draft.DateOfBirth, draft.PolicyStartDate, draft.PolicyEndDate,
		strconv.Itoa(plan.ID), draft.TotalPremium.String())
}

func updatePolicyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		var input models.UpdatePolicyInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		proposal, err := models.UpdatePolicy(c.Request.Context(), user.ID, &input)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, proposal, "policy updated")
	}
}

func listProposalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		proposals, err := models.ListProposalsByAgent(c.Request.Context(), user.ID)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, proposals, "")
	}
}
