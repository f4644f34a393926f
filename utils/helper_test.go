package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"3000", "3000", false},
		{"3,000", "3000", false},
		{"INR 3,000", "3000", false},
		{"Rs. 3000.50", "3000.5", false},
		{"₹ 1,250", "1250", false},
		{"-1,250", "-1250", false},
		{"  2500.75  ", "2500.75", false},
		{"", "", true},
		{"abc", "", true},
		{"Rs.", "", true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error, got %s", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): unexpected error %v", tc.in, err)
			continue
		}
		want, _ := decimal.NewFromString(tc.want)
		if !got.Equal(want) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tc.in, got, want)
		}
	}
}

func TestToMinorUnits(t *testing.T) {
	if got := ToMinorUnits(decimal.NewFromFloat(1234.56)); got != 123456 {
		t.Errorf("ToMinorUnits(1234.56) = %d, want 123456", got)
	}
	if got := ToMinorUnits(decimal.NewFromInt(0)); got != 0 {
		t.Errorf("ToMinorUnits(0) = %d, want 0", got)
	}
}

func TestFieldValidators(t *testing.T) {
	if !IsValidEmail("agent@example.com") || IsValidEmail("not-an-email") {
		t.Error("email validation broken")
	}
	if !IsValidMobile("9876543210") || IsValidMobile("1234567890") || IsValidMobile("98765") {
		t.Error("mobile validation broken")
	}
	if !IsValidPincode("400001") || IsValidPincode("040001") || IsValidPincode("4000") {
		t.Error("pincode validation broken")
	}
	if !IsValidPassport("A1234567") || IsValidPassport("Q1234567") || IsValidPassport("A0234567") {
		t.Error("passport validation broken")
	}
	// Landline is optional: empty is fine, junk is not.
	if !IsValidLandline("") || !IsValidLandline("022-12345678") || IsValidLandline("abc") {
		t.Error("landline validation broken")
	}
}

func TestAgeInMonths(t *testing.T) {
	dob := time.Date(2000, 3, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		asOf time.Time
		want int
	}{
		{time.Date(2000, 3, 15, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2000, 6, 15, 0, 0, 0, 0, time.UTC), 3},
		{time.Date(2000, 6, 14, 0, 0, 0, 0, time.UTC), 2},
		{time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), 300},
		{time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		if got := AgeInMonths(dob, tc.asOf); got != tc.want {
			t.Errorf("AgeInMonths(%s) = %d, want %d", tc.asOf.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{1, 2, 2, 3, 1})
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("UniqueSlice = %v, want [1 2 3]", got)
	}
}
