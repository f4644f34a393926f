package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/travelshield/portal_backend/models"
	"github.com/gin-gonic/gin"
)

// misReportHandler exports the agent's business report as a spreadsheet and
// answers with a signed download link. Admins may request all agents.
func misReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		to := time.Now()
		from := to.AddDate(0, -1, 0)
		if v := strings.TrimSpace(c.Query("from")); v != "" {
			parsed, err := time.Parse("2006-01-02", v)
			if err != nil {
				respondError(c, http.StatusBadRequest, "from must be YYYY-MM-DD")
				return
			}
			from = parsed
		}
		if v := strings.TrimSpace(c.Query("to")); v != "" {
			parsed, err := time.Parse("2006-01-02", v)
			if err != nil {
				respondError(c, http.StatusBadRequest, "to must be YYYY-MM-DD")
				return
			}
			// inclusive end of day
			to = parsed.AddDate(0, 0, 1).Add(-time.Second)
		}
		if to.Before(from) {
			respondError(c, http.StatusBadRequest, "to must not precede from")
			return
		}

		agentId := user.ID
		if user.EmployeeType == models.EmployeeTypeAdmin {
			agentId = 0
			if v := strings.TrimSpace(c.Query("agent_id")); v != "" {
				parsed, err := strconv.Atoi(v)
				if err != nil {
					respondError(c, http.StatusBadRequest, "invalid agent_id")
					return
				}
				agentId = parsed
			}
		}

		url, count, err := models.ExportMISReport(ctx, agentId, from, to)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, gin.H{"download_url": url, "row_count": count}, "report ready")
	}
}

// policyDownloadHandler answers a signed link for the issued certificate.
// Agents may only fetch their own policies.
func policyDownloadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		certificateNo := c.Param("certificateNo")

		proposal, err := models.GetProposalByCertificateNo(ctx, certificateNo)
		if err != nil {
			handleModelError(c, err)
			return
		}
		if user.EmployeeType != models.EmployeeTypeAdmin && proposal.AgentId != user.ID {
			respondError(c, http.StatusForbidden, "not your policy")
			return
		}

		doc, err := models.GetPolicyByCertificateNo(ctx, certificateNo)
		if err != nil {
			handleModelError(c, err)
			return
		}
		url, err := models.PolicyDownloadURL(ctx, doc)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, gin.H{"download_url": url}, "")
	}
}

func invoiceDownloadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		proposalId, err := strconv.Atoi(c.Param("proposalId"))
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid proposal id")
			return
		}

		proposal, err := models.GetProposal(ctx, proposalId)
		if err != nil {
			handleModelError(c, err)
			return
		}
		if user.EmployeeType != models.EmployeeTypeAdmin && proposal.AgentId != user.ID {
			respondError(c, http.StatusForbidden, "not your invoice")
			return
		}

		invoice, err := models.GetInvoiceByProposal(ctx, proposalId)
		if err != nil {
			handleModelError(c, err)
			return
		}
		url, err := models.InvoiceDownloadURL(ctx, invoice)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, gin.H{"download_url": url, "invoice_no": invoice.InvoiceNo}, "")
	}
}
