package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Invoice struct {
	ID           int             `gorm:"primary_key" json:"id"`
	ProposalId   int             `gorm:"index;not null" json:"proposal_id"`
	PaymentId    int             `gorm:"index" json:"payment_id"`
	InvoiceNo    string          `gorm:"size:100;uniqueIndex" json:"invoice_no"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4)" json:"amount"`
	PdfObjectKey string          `gorm:"size:255" json:"pdf_object_key"`
	GeneratedAt  time.Time       `json:"generated_at"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// CreateInvoice stores the rendered PDF in GCS and records the row, moving
// the proposal to Invoiced.
func CreateInvoice(ctx context.Context, proposal *Proposal, paymentId int, amount decimal.Decimal, pdf []byte) (*Invoice, error) {

	invoiceNo := fmt.Sprintf("INV-%s-%d", proposal.CertificateNo, time.Now().Year())
	objectKey := fmt.Sprintf("invoices/%s.pdf", invoiceNo)

	if len(pdf) > 0 {
		if err := utils.UploadBytesToGCS(ctx, objectKey, "application/pdf", pdf); err != nil {
			return nil, err
		}
	} else {
		objectKey = ""
	}

	invoice := Invoice{
		ProposalId:   proposal.ID,
		PaymentId:    paymentId,
		InvoiceNo:    invoiceNo,
		Amount:       amount,
		PdfObjectKey: objectKey,
		GeneratedAt:  time.Now(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		return tx.Model(&Proposal{}).Where("id = ?", proposal.ID).Update("current_status", ProposalStatusInvoiced).Error
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func GetInvoiceByProposal(ctx context.Context, proposalId int) (*Invoice, error) {
	db := config.GetDB()
	var invoice Invoice
	if err := db.WithContext(ctx).Where("proposal_id = ?", proposalId).Order("id DESC").Take(&invoice).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &invoice, nil
}

// InvoiceDownloadURL returns a short-lived signed link for the stored PDF.
func InvoiceDownloadURL(ctx context.Context, invoice *Invoice) (string, error) {
	if invoice.PdfObjectKey == "" {
		return "", utils.ErrorRecordNotFound
	}
	signed, err := utils.SignDownload(ctx, invoice.PdfObjectKey, 15*time.Minute)
	if err != nil {
		return utils.BuildObjectAccessURL(invoice.PdfObjectKey), nil
	}
	return signed, nil
}
