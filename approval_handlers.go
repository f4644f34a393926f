package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/models"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/bsm/redislock"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const maxProofSizeBytes = 5 << 20

// createReplenishHandler takes the top-up form as multipart: amount, bank
// reference and the deposit-proof image. The proof and a thumbnail land in
// GCS before the application row is written.
func createReplenishHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		amount, err := utils.ParseAmount(c.PostForm("amount"))
		if err != nil || amount.LessThanOrEqual(decimal.Zero) {
			respondError(c, http.StatusBadRequest, "a positive amount is required")
			return
		}

		fileHeader, err := c.FormFile("deposit_proof")
		if err != nil {
			respondError(c, http.StatusBadRequest, "deposit proof image is required")
			return
		}
		if fileHeader.Size > maxProofSizeBytes {
			respondError(c, http.StatusBadRequest, "file size exceeds 5MB limit")
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "could not read uploaded file")
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			respondError(c, http.StatusBadRequest, "could not read uploaded file")
			return
		}

		objectKey := "deposit-proofs/" + utils.GenerateUniqueFilename() + path.Ext(fileHeader.Filename)
		if err := utils.UploadFileToGCS(ctx, objectKey, bytes.NewReader(data)); err != nil {
			respondError(c, http.StatusBadGateway, "could not store deposit proof")
			return
		}

		thumbKey, err := storeProofThumbnail(c, objectKey, data)
		if err != nil {
			// Thumbnail is cosmetic; keep going with the original only.
			thumbKey = ""
		}

		input := models.NewReplenishApplication{
			Amount:        amount,
			BankReference: c.PostForm("bank_reference"),
		}
		app, err := models.CreateReplenishApplication(ctx, user.ID, &input, objectKey, thumbKey)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, app, "replenish application submitted")
	}
}

func storeProofThumbnail(c *gin.Context, objectKey string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return "", err
	}

	thumbKey := thumbnailObjectKey(objectKey)
	if err := utils.UploadBytesToGCS(c.Request.Context(), thumbKey, "image/jpeg", buf.Bytes()); err != nil {
		return "", err
	}
	return thumbKey, nil
}

func thumbnailObjectKey(objectKey string) string {
	dir := path.Dir(objectKey)
	base := strings.TrimSuffix(path.Base(objectKey), path.Ext(objectKey))
	return path.Join(dir, "thumbs", base+"_thumb.jpg")
}

// replenishProofHandler gives the reviewing admin short-lived links to the
// deposit proof and its thumbnail.
func replenishProofHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireAdmin(c); !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid application id")
			return
		}
		proofURL, thumbURL, err := models.ReplenishProofURL(c.Request.Context(), id)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, gin.H{"proof_url": proofURL, "thumb_url": thumbURL}, "")
	}
}

func listReplenishHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		apps, err := models.ListReplenishApplicationsByAgent(c.Request.Context(), user.ID)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, apps, "")
	}
}

func pendingReplenishHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireAdmin(c); !ok {
			return
		}
		apps, err := models.ListPendingReplenishApplications(c.Request.Context())
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, apps, "")
	}
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// acquireApproverLock keeps one review in flight per approver, so a
// double-clicked approve cannot race itself. When redis is unavailable the
// status guards on the rows still hold; the lock is only the fast path.
func acquireApproverLock(c *gin.Context, approverId int) (func(), bool) {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}, true
	}
	lock, err := locker.Obtain(c.Request.Context(), fmt.Sprintf("Lock:Approver:%d", approverId), 30*time.Second, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			respondError(c, http.StatusConflict, "another review is already in progress")
			return nil, false
		}
		return func() {}, true
	}
	return func() { _ = lock.Release(c.Request.Context()) }, true
}

func reviewReplenishHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := requireAdmin(c)
		if !ok {
			return
		}
		release, ok := acquireApproverLock(c, admin.ID)
		if !ok {
			return
		}
		defer release()
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid application id")
			return
		}
		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		app, err := models.ReviewReplenishApplication(c.Request.Context(), admin.ID, id, req.Approve, req.Note)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, app, "application reviewed")
	}
}

func createBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := requireAdmin(c)
		if !ok {
			return
		}
		var input models.NewBatchPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, http.StatusBadRequest, "batch_no and payment_ids are required")
			return
		}
		batch, err := models.CreateBatchPayment(c.Request.Context(), admin.ID, &input)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, batch, "batch created")
	}
}

type utrRequest struct {
	UTRNumber string `json:"utr_number" binding:"required"`
}

func fillBatchUTRHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireAdmin(c); !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid batch id")
			return
		}
		var req utrRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "utr_number is required")
			return
		}
		batch, err := models.FillBatchUTR(c.Request.Context(), id, req.UTRNumber)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, batch, "UTR recorded")
	}
}

func reviewBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := requireAdmin(c)
		if !ok {
			return
		}
		release, ok := acquireApproverLock(c, admin.ID)
		if !ok {
			return
		}
		defer release()
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid batch id")
			return
		}
		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		batch, err := models.ReviewBatchPayment(c.Request.Context(), admin.ID, id, req.Approve, req.Note)
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, batch, "batch reviewed")
	}
}

func listBatchesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireAdmin(c); !ok {
			return
		}
		statusParam := strings.TrimSpace(c.Query("status"))
		var batches []*models.BatchPayment
		var err error
		if statusParam == "" {
			batches, err = models.ListBatchPayments(c.Request.Context())
		} else {
			batches, err = models.ListBatchPayments(c.Request.Context(), models.BatchPaymentStatus(statusParam))
		}
		if err != nil {
			handleModelError(c, err)
			return
		}
		respondOK(c, batches, "")
	}
}
