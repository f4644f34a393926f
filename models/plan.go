package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/shopspring/decimal"
)

type TravelPlan struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Name          string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Variant       ProductVariant  `gorm:"type:enum('Travel','Practo','Ayush');default:Travel" json:"variant"`
	Description   string          `gorm:"size:255" json:"description"`
	BasePremium   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"base_premium"`
	GSTRate       decimal.Decimal `gorm:"type:decimal(6,4);default:0.18" json:"gst_rate"`
	MinAgeMonths  int             `gorm:"not null;default:3" json:"min_age_months"`
	MaxAgeMonths  int             `gorm:"not null;default:972" json:"max_age_months"`
	MaxTripDays   int             `gorm:"default:180" json:"max_trip_days"`
	SumInsured    decimal.Decimal `gorm:"type:decimal(20,4)" json:"sum_insured"`
	IsActive      *bool           `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

/*
caches:
	TravelPlanList
*/

// ListPlans serves the agent plan-selection view; the catalog rarely changes
// so it is cached as a list in redis.
func ListPlans(ctx context.Context) ([]*TravelPlan, error) {
	results, err := utils.RetrieveRedisList[TravelPlan]()
	if err != nil {
		return nil, err
	}
	if results == nil {
		results, err = utils.FetchModelsWhere[TravelPlan](ctx, "is_active = ?", true)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[TravelPlan](results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func GetPlan(ctx context.Context, id int) (*TravelPlan, error) {
	db := config.GetDB()
	var plan TravelPlan
	if err := db.WithContext(ctx).First(&plan, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &plan, nil
}

// PremiumBreakdown is the client-facing split shown on the plan screen.
type PremiumBreakdown struct {
	BasePremium decimal.Decimal `json:"base_premium"`
	GSTAmount   decimal.Decimal `json:"gst_amount"`
	Total       decimal.Decimal `json:"total"`
}

func (p *TravelPlan) Breakdown() PremiumBreakdown {
	gst := p.BasePremium.Mul(p.GSTRate).Round(2)
	return PremiumBreakdown{
		BasePremium: p.BasePremium,
		GSTAmount:   gst,
		Total:       p.BasePremium.Add(gst),
	}
}

func (p *TravelPlan) CheckAgeWindow(dateOfBirth time.Time, asOf time.Time) error {
	months := utils.AgeInMonths(dateOfBirth, asOf)
	if months < p.MinAgeMonths || months > p.MaxAgeMonths {
		return errors.New("traveller age is outside the insurable window for this plan")
	}
	return nil
}
