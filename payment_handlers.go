package main

import (
	"net/http"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/models"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// createOrderHandler opens the hosted checkout: resolve the staged policy
// details (or rebuild from a previously staged order), register the order
// with the provider and stage paymentData for the redirect round-trip.
func createOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		ctx := c.Request.Context()

		var details models.PolicyDetails
		if err := models.ReadHandoff(ctx, models.HandoffKeyPolicyDetails, &details); err != nil {
			// No fresh submit on file; the payment screen may be reloading
			// with an order already staged.
			var staged models.PaymentData
			if err2 := models.ReadHandoff(ctx, models.HandoffKeyPaymentData, &staged); err2 == nil {
				respondOK(c, gin.H{"order": staged, "key_id": checkoutKeyID()}, "order already staged")
				return
			}
			handleModelError(c, err)
			return
		}

		client, err := getCheckoutClient()
		if err != nil {
			respondError(c, http.StatusServiceUnavailable, "checkout is unavailable")
			return
		}

		order, err := client.CreateOrder(ctx, utils.ToMinorUnits(details.Amount), details.CertificateNo)
		if err != nil {
			config.LogError(config.GetLogger(), "payment_handlers", "createOrderHandler", "create order", logrus.Fields{"certificateNo": details.CertificateNo}, err)
			respondError(c, http.StatusBadGateway, "could not create payment order")
			return
		}

		data := models.PaymentData{
			ProposalId:      details.ProposalId,
			CertificateNo:   details.CertificateNo,
			ProviderOrderId: order.ID,
			Amount:          details.Amount,
			Currency:        "INR",
			Mode:            details.ModeOrDefault(),
		}
		if err := models.StageHandoff(ctx, models.HandoffKeyPaymentData, data); err != nil {
			handleModelError(c, err)
			return
		}

		respondOK(c, gin.H{"order": data, "key_id": client.KeyID(), "contact_email": details.ContactEmail, "contact_mobile": details.ContactMobile, "holder_name": details.HolderName}, "order created")
	}
}

func checkoutKeyID() string {
	client, err := getCheckoutClient()
	if err != nil {
		return ""
	}
	return client.KeyID()
}

type confirmPaymentRequest struct {
	OrderId   string `json:"order_id" binding:"required"`
	PaymentId string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// confirmPaymentHandler lands the post-checkout callback. Signature valid
// means the provider confirmed the charge; if our own record then fails, the
// outcome is staged as Uncertain with the API_error reason rather than a
// plain failure, because the money may have moved.
func confirmPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		var req confirmPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "order_id, payment_id and signature are required")
			return
		}

		var staged models.PaymentData
		if err := models.ReadHandoff(ctx, models.HandoffKeyPaymentData, &staged); err != nil {
			handleModelError(c, err)
			return
		}
		if staged.ProviderOrderId != req.OrderId {
			respondError(c, http.StatusBadRequest, "order mismatch")
			return
		}

		// re-sent confirmation for an order we already recorded as paid
		if existing, err := models.GetPaymentByProviderOrder(ctx, req.OrderId); err == nil && existing != nil && existing.Status == models.PaymentStatusPaid {
			respondOK(c, existing, "payment already recorded")
			return
		}

		client, err := getCheckoutClient()
		if err != nil {
			respondError(c, http.StatusServiceUnavailable, "checkout is unavailable")
			return
		}
		if !client.VerifySignature(req.OrderId, req.PaymentId, req.Signature) {
			failure := models.PaymentFailureData{
				ProposalId:    staged.ProposalId,
				CertificateNo: staged.CertificateNo,
				Reason:        "signature verification failed",
			}
			_ = models.StageHandoff(ctx, models.HandoffKeyPaymentFailureData, failure)
			_, _ = models.RecordCheckoutFailure(ctx, user.ID, staged.ProposalId, req.OrderId, staged.Mode, models.PaymentStatusFailed, "signature verification failed")
			respondError(c, http.StatusBadRequest, "payment could not be verified")
			return
		}

		proposal, err := models.GetProposal(ctx, staged.ProposalId)
		if err != nil {
			handleModelError(c, err)
			return
		}

		record, recordErr := models.RecordCheckoutPayment(ctx, user.ID, proposal, req.OrderId, req.PaymentId, staged.Amount, staged.Mode)
		status, reason := models.ResolvePaymentOutcome(true, recordErr, false)

		if status == models.PaymentStatusUncertain {
			models.RecordUncertainPayment(ctx, user.ID, proposal, req.OrderId, req.PaymentId, staged.Amount, staged.Mode)
			failure := models.PaymentFailureData{
				ProposalId:    staged.ProposalId,
				CertificateNo: staged.CertificateNo,
				Reason:        reason,
				ProviderPayId: req.PaymentId,
			}
			_ = models.StageHandoff(ctx, models.HandoffKeyPaymentFailureData, failure)
			_ = models.ClearHandoff(ctx, models.HandoffKeyPaymentData)
			c.JSON(http.StatusOK, apiResponse{Status: "Uncertain", MasterData: failure, Message: "payment recorded by provider but confirmation failed"})
			return
		}

		success := models.PaymentSuccessData{
			PaymentRecordId: record.ID,
			CertificateNo:   staged.CertificateNo,
			ProviderPayId:   req.PaymentId,
			Amount:          staged.Amount,
			PaidAt:          time.Now(),
		}
		_ = models.StageHandoff(ctx, models.HandoffKeyPaymentSuccessData, success)
		_ = models.ClearHandoff(ctx, models.HandoffKeyPaymentData, models.HandoffKeyPolicyDetails)

		issuePolicyBestEffort(c, proposal)

		respondOK(c, success, "payment successful")
	}
}

// issuePolicyBestEffort fetches and stores the certificate PDF after payment.
// Failures are logged; the agent can re-download later.
func issuePolicyBestEffort(c *gin.Context, proposal *models.Proposal) {
	ctx := c.Request.Context()
	logger := config.GetLogger()

	client, err := getInsurerClient()
	if err != nil {
		config.LogError(logger, "payment_handlers", "issuePolicyBestEffort", "insurer client", logrus.Fields{"proposalId": proposal.ID}, err)
		return
	}
	pdf, err := client.FetchPolicyPDF(ctx, proposal.InsurerProposalNo)
	if err != nil {
		config.LogError(logger, "payment_handlers", "issuePolicyBestEffort", "fetch policy pdf", logrus.Fields{"proposalId": proposal.ID}, err)
		pdf = nil
	}
	if _, err := models.IssuePolicy(ctx, proposal, pdf); err != nil {
		config.LogError(logger, "payment_handlers", "issuePolicyBestEffort", "issue policy", logrus.Fields{"proposalId": proposal.ID}, err)
	}
}

type cancelPaymentRequest struct {
	OrderId   string `json:"order_id"`
	Dismissed bool   `json:"dismissed"`
	Reason    string `json:"reason"`
}

// cancelPaymentHandler records a dismissed or failed checkout and stages the
// failure context for the cancel screen.
func cancelPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		var req cancelPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			req = cancelPaymentRequest{}
		}

		var staged models.PaymentData
		if err := models.ReadHandoff(ctx, models.HandoffKeyPaymentData, &staged); err != nil {
			handleModelError(c, err)
			return
		}

		status, reason := models.ResolvePaymentOutcome(false, nil, req.Dismissed)
		if req.Reason != "" && !req.Dismissed {
			reason = req.Reason
		}

		if _, err := models.RecordCheckoutFailure(ctx, user.ID, staged.ProposalId, staged.ProviderOrderId, staged.Mode, status, reason); err != nil {
			config.LogError(config.GetLogger(), "payment_handlers", "cancelPaymentHandler", "record failure", logrus.Fields{"proposalId": staged.ProposalId}, err)
		}

		failure := models.PaymentFailureData{
			ProposalId:    staged.ProposalId,
			CertificateNo: staged.CertificateNo,
			Reason:        reason,
		}
		_ = models.StageHandoff(ctx, models.HandoffKeyPaymentFailureData, failure)
		_ = models.ClearHandoff(ctx, models.HandoffKeyPaymentData)

		respondOK(c, failure, "payment not completed")
	}
}

// paymentOutcomeHandler lets the success and cancel screens re-read their
// staged outcome after the redirect.
func paymentOutcomeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		ctx := c.Request.Context()

		var success models.PaymentSuccessData
		if err := models.ReadHandoff(ctx, models.HandoffKeyPaymentSuccessData, &success); err == nil {
			respondOK(c, gin.H{"outcome": "success", "data": success}, "")
			return
		}
		var failure models.PaymentFailureData
		if err := models.ReadHandoff(ctx, models.HandoffKeyPaymentFailureData, &failure); err == nil {
			respondOK(c, gin.H{"outcome": "failure", "data": failure}, "")
			return
		}
		respondMissingHandoff(c)
	}
}

func listPaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		payments, err := models.ListPaymentsByAgent(c.Request.Context(), user.ID)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, payments, "")
	}
}
