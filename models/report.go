package models

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/xuri/excelize/v2"
)

// MISRow is one line of the agent business report.
type MISRow struct {
	CertificateNo   string    `json:"certificate_no"`
	HolderName      string    `json:"holder_name"`
	PassportNo      string    `json:"passport_no"`
	PolicyStartDate time.Time `json:"policy_start_date"`
	PolicyEndDate   time.Time `json:"policy_end_date"`
	TotalPremium    string    `json:"total_premium"`
	PaymentMode     string    `json:"payment_mode"`
	CurrentStatus   string    `json:"current_status"`
	CreatedAt       time.Time `json:"created_at"`
}

// QueryMIS pulls the agent's proposals in the window, newest first.
// An admin passes agentId 0 for an all-agents report.
func QueryMIS(ctx context.Context, agentId int, from time.Time, to time.Time) ([]*MISRow, error) {

	db := config.GetDB()
	query := db.WithContext(ctx).Model(&Proposal{}).
		Select(`certificate_no,
			CONCAT(first_name, ' ', last_name) AS holder_name,
			passport_no, policy_start_date, policy_end_date,
			total_premium, payment_mode, current_status, created_at`).
		Where("created_at BETWEEN ? AND ?", from, to).
		Order("created_at DESC")
	if agentId != 0 {
		query = query.Where("agent_id = ?", agentId)
	}

	var rows []*MISRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

var misHeaders = []string{
	"Certificate No", "Holder Name", "Passport No", "Policy Start", "Policy End",
	"Premium", "Payment Mode", "Status", "Created",
}

// BuildMISWorkbook renders the rows as a spreadsheet.
func BuildMISWorkbook(rows []*MISRow) (*bytes.Buffer, error) {

	f := excelize.NewFile()
	defer f.Close()

	sheet := "MIS"
	f.SetSheetName("Sheet1", sheet)

	for i, h := range misHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(misHeaders), 1)
		f.SetCellStyle(sheet, "A1", last, headerStyle)
	}

	for r, row := range rows {
		values := []interface{}{
			row.CertificateNo,
			row.HolderName,
			row.PassportNo,
			row.PolicyStartDate.Format("2006-01-02"),
			row.PolicyEndDate.Format("2006-01-02"),
			row.TotalPremium,
			row.PaymentMode,
			row.CurrentStatus,
			row.CreatedAt.Format("2006-01-02 15:04"),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	return f.WriteToBuffer()
}

// ExportMISReport builds the workbook, uploads it and returns a signed
// download link.
func ExportMISReport(ctx context.Context, agentId int, from time.Time, to time.Time) (string, int, error) {

	rows, err := QueryMIS(ctx, agentId, from, to)
	if err != nil {
		return "", 0, err
	}

	buf, err := BuildMISWorkbook(rows)
	if err != nil {
		return "", 0, err
	}

	objectKey := fmt.Sprintf("reports/mis_%d_%s.xlsx", agentId, time.Now().Format("20060102_150405"))
	if err := utils.UploadBytesToGCS(ctx, objectKey, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes()); err != nil {
		return "", 0, err
	}

	url, err := utils.SignDownload(ctx, objectKey, 15*time.Minute)
	if err != nil {
		url = utils.BuildObjectAccessURL(objectKey)
	}
	return url, len(rows), nil
}
