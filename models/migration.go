package models

import (
	"bitbucket.org/travelshield/portal_backend/config"
)

// MigrateTable runs gorm auto-migration for every table this service owns.
func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&User{},
		&TravelPlan{},
		&Proposal{},
		&PremiumQuote{},
		&WalletTransaction{},
		&PaymentRecord{},
		&Invoice{},
		&PolicyDocument{},
		&ReplenishApplication{},
		&BatchPayment{},
		&PolicyEventOutbox{},
		&IdempotencyKey{},
	)
}
