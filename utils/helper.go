package utils

import (
	"fmt"
	"math/rand"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "IN"

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	mobileRegex   = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	pincodeRegex  = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	passportRegex = regexp.MustCompile(`^[A-PR-WY][1-9][0-9]{6}$`)
	landlineRegex = regexp.MustCompile(`^[0-9]{2,4}-?[0-9]{6,8}$`)
)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func IsValidMobile(mobile string) bool {
	return mobileRegex.MatchString(mobile)
}

func IsValidPincode(pincode string) bool {
	return pincodeRegex.MatchString(pincode)
}

func IsValidPassport(passportNo string) bool {
	return passportRegex.MatchString(strings.ToUpper(strings.TrimSpace(passportNo)))
}

func IsValidLandline(landline string) bool {
	if strings.TrimSpace(landline) == "" {
		// landline is optional
		return true
	}
	return landlineRegex.MatchString(landline)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err // Phone number is invalid
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil // Phone number is valid for the specified country code
}

// AgeInMonths returns the traveller's age in whole months as of the given date.
func AgeInMonths(dateOfBirth, asOf time.Time) int {
	if asOf.Before(dateOfBirth) {
		return 0
	}
	years := asOf.Year() - dateOfBirth.Year()
	months := int(asOf.Month()) - int(dateOfBirth.Month())
	total := years*12 + months
	if asOf.Day() < dateOfBirth.Day() {
		total--
	}
	if total < 0 {
		return 0
	}
	return total
}

// ParseAmount accepts common user-formatted premium strings like:
// - "3,000"
// - "INR 3,000"
// - "Rs. 3000.50"
// - "₹ -1,250"
//
// Keep digits, '.', and a leading '-' only.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s != "" {
		s = strings.ReplaceAll(s, ",", "")
		s = strings.ReplaceAll(s, "INR", "")
		s = strings.ReplaceAll(s, "inr", "")
		s = strings.ReplaceAll(s, "Rs.", "")
		s = strings.ReplaceAll(s, "Rs", "")
		s = strings.ReplaceAll(s, "rs", "")
		s = strings.ReplaceAll(s, "₹", "")
		s = strings.TrimSpace(s)
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	var b strings.Builder
	b.Grow(len(s) + 1)
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return decimal.NewFromInt(0), fmt.Errorf("invalid value")
	}
	if neg {
		clean = "-" + clean
	}

	val, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.NewFromInt(0), err
	}
	return val, nil
}

// ToMinorUnits converts a rupee amount to paise for the hosted checkout.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func GenerateUniqueFilename() string {

	timestamp := time.Now().UnixNano()

	random := rand.Intn(1000)

	uniqueFilename := fmt.Sprintf("%d_%d", timestamp, random)

	return uniqueFilename
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

func IntFromEnv(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func UniqueSlice[T comparable](in []T) []T {
	seen := make(map[T]bool, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
