package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/utils"
	"gorm.io/gorm"
)

// PolicyDocument is the issued certificate PDF for a paid proposal.
type PolicyDocument struct {
	ID            int       `gorm:"primary_key" json:"id"`
	ProposalId    int       `gorm:"index;not null" json:"proposal_id"`
	CertificateNo string    `gorm:"size:100;uniqueIndex;not null" json:"certificate_no"`
	PdfObjectKey  string    `gorm:"size:255" json:"pdf_object_key"`
	IssuedAt      time.Time `json:"issued_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// IssuePolicy stores the certificate PDF and records issuance with its event.
func IssuePolicy(ctx context.Context, proposal *Proposal, pdf []byte) (*PolicyDocument, error) {

	objectKey := fmt.Sprintf("policies/%s.pdf", proposal.CertificateNo)
	if len(pdf) > 0 {
		if err := utils.UploadBytesToGCS(ctx, objectKey, "application/pdf", pdf); err != nil {
			return nil, err
		}
	} else {
		objectKey = ""
	}

	doc := PolicyDocument{
		ProposalId:    proposal.ID,
		CertificateNo: proposal.CertificateNo,
		PdfObjectKey:  objectKey,
		IssuedAt:      time.Now(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
		return AppendOutboxEvent(tx, EventTypePolicyIssued, doc.ID, "PolicyDocument", map[string]any{
			"proposal_id":    proposal.ID,
			"certificate_no": proposal.CertificateNo,
		}, correlationId)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func GetPolicyByCertificateNo(ctx context.Context, certificateNo string) (*PolicyDocument, error) {
	db := config.GetDB()
	var doc PolicyDocument
	if err := db.WithContext(ctx).Where("certificate_no = ?", certificateNo).Take(&doc).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &doc, nil
}

// PolicyDownloadURL returns a short-lived signed link for the certificate.
func PolicyDownloadURL(ctx context.Context, doc *PolicyDocument) (string, error) {
	if doc.PdfObjectKey == "" {
		return "", utils.ErrorRecordNotFound
	}
	signed, err := utils.SignDownload(ctx, doc.PdfObjectKey, 15*time.Minute)
	if err != nil {
		return utils.BuildObjectAccessURL(doc.PdfObjectKey), nil
	}
	return signed, nil
}
