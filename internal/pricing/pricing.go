// Package pricing converts a brand's requested campaign duration into
// billing weeks, a discount multiplier and the amount actually charged.
package pricing

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

type PackageType string

const (
	PackageBasic   PackageType = "basic"
	PackagePremium PackageType = "premium"
)

const (
	HoursPerWeek = 168
	HoursPerDay  = 24
)

var (
	ErrInvalidPackage   = errors.New("invalid package type")
	ErrInvalidTimeLimit = errors.New("time limit must be a positive number of hours")
)

var basePrices = map[PackageType]decimal.Decimal{
	PackageBasic:   decimal.NewFromInt(7000),
	PackagePremium: decimal.NewFromInt(10000),
}

// legacyDailyRates applied to campaigns persisted before daily allocations
// were stored per campaign.
var legacyDailyRates = map[PackageType]decimal.Decimal{
	PackageBasic:   decimal.NewFromInt(1000),
	PackagePremium: decimal.RequireFromString("1428.57"),
}

type Quote struct {
	PackageType     PackageType     `json:"package_type"`
	TimeLimitHours  float64         `json:"time_limit_hours"`
	Weeks           int64           `json:"weeks"`
	Days            int64           `json:"days"`
	BasePrice       decimal.Decimal `json:"base_price"`
	AllocatedBudget decimal.Decimal `json:"allocated_budget"`
	Multiplier      decimal.Decimal `json:"multiplier"`
	ChargedAmount   decimal.Decimal `json:"charged_amount"`
	DailyAllocation decimal.Decimal `json:"daily_allocation"`
}

func (p PackageType) Valid() bool {
	_, ok := basePrices[p]
	return ok
}

func BasePrice(p PackageType) (decimal.Decimal, error) {
	price, ok := basePrices[p]
	if !ok {
		return decimal.Zero, ErrInvalidPackage
	}
	return price, nil
}

func LegacyDailyRate(p PackageType) (decimal.Decimal, error) {
	rate, ok := legacyDailyRates[p]
	if !ok {
		return decimal.Zero, ErrInvalidPackage
	}
	return rate, nil
}

// BillingWeeks rounds any partial week up to a full billing week.
func BillingWeeks(timeLimitHours float64) int64 {
	return ceilAtLeastOne(timeLimitHours / HoursPerWeek)
}

func BillingDays(timeLimitHours float64) int64 {
	return ceilAtLeastOne(timeLimitHours / HoursPerDay)
}

func ceilAtLeastOne(v float64) int64 {
	n := int64(math.Ceil(v))
	if n < 1 {
		return 1
	}
	return n
}

// DiscountMultiplier returns floor((0.9*weeks + 10^-weeks) * 10) / 10, or
// exactly 1 for a single week.
func DiscountMultiplier(weeks int64) decimal.Decimal {
	if weeks <= 1 {
		return decimal.NewFromInt(1)
	}
	raw := decimal.New(9, -1).Mul(decimal.NewFromInt(weeks)).
		Add(decimal.New(1, -int32(weeks)))
	ten := decimal.NewFromInt(10)
	return raw.Mul(ten).Floor().Div(ten)
}

// DailyAllocation spreads a total budget over the campaign's calendar days,
// rounded to two decimals.
func DailyAllocation(totalBudget decimal.Decimal, timeLimitHours float64) decimal.Decimal {
	days := BillingDays(timeLimitHours)
	return totalBudget.Div(decimal.NewFromInt(days)).Round(2)
}

func ChargedAmount(basePrice decimal.Decimal, multiplier decimal.Decimal) decimal.Decimal {
	return basePrice.Mul(multiplier).Round(0)
}

func Calculate(p PackageType, timeLimitHours float64) (*Quote, error) {
	base, err := BasePrice(p)
	if err != nil {
		return nil, err
	}
	if timeLimitHours <= 0 || math.IsNaN(timeLimitHours) || math.IsInf(timeLimitHours, 0) {
		return nil, ErrInvalidTimeLimit
	}

	weeks := BillingWeeks(timeLimitHours)
	multiplier := DiscountMultiplier(weeks)
	charged := ChargedAmount(base, multiplier)

	return &Quote{
		PackageType:     p,
		TimeLimitHours:  timeLimitHours,
		Weeks:           weeks,
		Days:            BillingDays(timeLimitHours),
		BasePrice:       base,
		AllocatedBudget: base.Mul(decimal.NewFromInt(weeks)),
		Multiplier:      multiplier,
		ChargedAmount:   charged,
		DailyAllocation: DailyAllocation(charged, timeLimitHours),
	}, nil
}
