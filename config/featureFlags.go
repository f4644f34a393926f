package config

import (
	"os"
	"strings"
)

// InsurerValidationBypassAllowed controls whether a failed insurer-validation call
// may be bypassed with user confirmation (placeholder identifiers are generated locally).
//
// Set via env:
// - INSURER_VALIDATION_BYPASS=true
func InsurerValidationBypassAllowed() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("INSURER_VALIDATION_BYPASS")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// InvoiceGenerationEnabled controls the best-effort invoice PDF step after a wallet debit.
// When disabled the subscription result simply omits the download link.
//
// Set via env:
// - INVOICE_GENERATION=true
func InvoiceGenerationEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("INVOICE_GENERATION")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// ProductVariantEnabled gates the per-product proposal variants (Practo, Ayush).
//
// Set via env:
// - PRODUCT_VARIANTS="PRACTO,AYUSH"
//
// Product keys are case-insensitive.
func ProductVariantEnabled(product string) bool {
	product = strings.ToUpper(strings.TrimSpace(product))
	if product == "" {
		return false
	}
	raw := os.Getenv("PRODUCT_VARIANTS")
	if strings.TrimSpace(raw) == "" {
		// All variants enabled unless explicitly restricted.
		return true
	}
	for _, part := range strings.Split(raw, ",") {
		if strings.ToUpper(strings.TrimSpace(part)) == product {
			return true
		}
	}
	return false
}
