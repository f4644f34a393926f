package main

import (
	"context"
	"errors"
	"net/http"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/models"
	"bitbucket.org/travelshield/portal_backend/utils"
	"bitbucket.org/travelshield/portal_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var subscriptionPipeline = workflow.NewSubscriptionPipeline(renderInvoicePDF)

// renderInvoicePDF pulls the premium invoice from the insurer.
func renderInvoicePDF(ctx context.Context, proposal *models.Proposal, amount decimal.Decimal) ([]byte, error) {
	client, err := getInsurerClient()
	if err != nil {
		return nil, err
	}
	return client.FetchInvoicePDF(ctx, proposal.InsurerProposalNo)
}

func walletBalanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		balance, err := models.WalletBalance(c.Request.Context(), user.ID)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, gin.H{"wallet_amount": balance}, "")
	}
}

func walletTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		transactions, err := models.ListWalletTransactions(c.Request.Context(), user.ID)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, transactions, "")
	}
}

type fetchQuoteRequest struct {
	PlanId int `json:"plan_id" binding:"required"`
}

// fetchQuoteHandler computes and stores the three payment-mode amounts. The
// subscribe step always charges from this stored quote.
func fetchQuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		var req fetchQuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "plan_id is required")
			return
		}
		if err := utils.ValidateResourceId[models.TravelPlan](c.Request.Context(), req.PlanId); err != nil {
			handleModelError(c, err)
			return
		}
		quote, err := models.FetchQuote(c.Request.Context(), user.ID, req.PlanId)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, quote, "")
	}
}

type subscribeRequest struct {
	Bypass bool `json:"bypass"`
}

// subscribeHandler runs the wallet subscription for the staged draft:
// insurer validation (with the same bypass rules as submit), then the
// quote-priced wallet debit and best-effort invoice.
func subscribeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		var req subscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			req = subscribeRequest{}
		}

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
			respondError(c, http.StatusUnprocessableEntity, validated.Message)
			return
		default:
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

		result, err := subscriptionPipeline.Subscribe(ctx, user.ID, &draft, outcome, proposalNo, referenceNo)
		if err != nil {
			if errors.Is(err, models.ErrInsufficientWallet) {
				respondError(c, http.StatusPaymentRequired, err.Error())
				return
			}
			if errors.Is(err, workflow.ErrAlreadySubscribed) || errors.Is(err, workflow.ErrIdempotencyInProgress) {
				respondError(c, http.StatusConflict, err.Error())
				return
			}
			handleModelError(c, err)
			return
		}

		_ = models.ClearHandoff(ctx, models.HandoffKeyProposalData)
		// the quote is consumed; a fresh one is required for the next subscription
		_ = utils.ClearRedisCache[models.PremiumQuote](user.ID)
		respondOK(c, result, "subscription successful")
	}
}
