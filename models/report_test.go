package models

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestBuildMISWorkbook(t *testing.T) {
	rows := []*MISRow{
		{
			CertificateNo:   "TS0000000001",
			HolderName:      "Asha Verma",
			PassportNo:      "A1234567",
			PolicyStartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			PolicyEndDate:   time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
			TotalPremium:    "3540",
			PaymentMode:     "FP",
			CurrentStatus:   "Paid",
			CreatedAt:       time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC),
		},
	}

	buf, err := BuildMISWorkbook(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("workbook does not reopen: %v", err)
	}
	defer f.Close()

	header, err := f.GetCellValue("MIS", "A1")
	if err != nil || header != "Certificate No" {
		t.Errorf("A1 = %q (%v), want Certificate No", header, err)
	}
	cert, _ := f.GetCellValue("MIS", "A2")
	if cert != "TS0000000001" {
		t.Errorf("A2 = %q, want TS0000000001", cert)
	}
	name, _ := f.GetCellValue("MIS", "B2")
	if name != "Asha Verma" {
		t.Errorf("B2 = %q, want Asha Verma", name)
	}
}
