// Package discount resolves discount eligibility into a closed plan and
// applies it to a priced appointment.
package discount

import (
	"github.com/shopspring/decimal"

	"interpreting-pricing/core/money"
	apperrors "interpreting-pricing/internal/errors"
)

// Eligibility is supplied by the discounts subsystem. Zero values mean absent.
type Eligibility struct {
	MembershipFreeMinutes int             `json:"membership_free_minutes,omitempty"`
	MembershipPercent     decimal.Decimal `json:"membership_percent"`
	PromoPercent          decimal.Decimal `json:"promo_percent"`
	PromoMinutesThreshold int             `json:"promo_minutes_threshold,omitempty"`

	// PromoCode is kept for attribution only
	PromoCode string `json:"promo_code,omitempty"`
}

// Validate rejects negative allotments and percentages outside 0..100
func (e Eligibility) Validate() error {
	if e.MembershipFreeMinutes < 0 {
		return apperrors.Input("membership free minutes must not be negative, got %d", e.MembershipFreeMinutes)
	}
	if e.PromoMinutesThreshold < 0 {
		return apperrors.Input("promo minutes threshold must not be negative, got %d", e.PromoMinutesThreshold)
	}
	for name, pct := range map[string]decimal.Decimal{"membership": e.MembershipPercent, "promo": e.PromoPercent} {
		if pct.IsNegative() || pct.GreaterThan(money.Hundred) {
			return apperrors.Input("%s percent must be within 0..100, got %s", name, pct)
		}
	}
	return nil
}

// Kind is the resolved discount variant
type Kind string

const (
	NoDiscount          Kind = "no_discount"
	MinutesOnly         Kind = "minutes_only"
	PercentOnly         Kind = "percent_only"
	MinutesThenPercent  Kind = "minutes_then_percent"
	PromoThenMembership Kind = "promo_then_membership"
)

// Source is the bucket a discount delta is attributed to
type Source string

const (
	SourceMembershipMinutes Source = "membership_minutes"
	SourceMembershipPercent Source = "membership_percent"
	SourcePromoPercent      Source = "promo_percent"
)

// MinutesStage waives Percent of the price of the next Minutes minutes
type MinutesStage struct {
	Minutes int             `json:"minutes"`
	Percent decimal.Decimal `json:"percent"`
	Source  Source          `json:"source"`
}

// PercentStage takes a flat percentage off the remaining amount
type PercentStage struct {
	Percent decimal.Decimal `json:"percent"`
	Source  Source          `json:"source"`
}

// Plan is resolved once per calculation. Stages run in field order:
// Minutes, then Threshold, then Percent.
type Plan struct {
	Kind      Kind          `json:"kind"`
	Minutes   *MinutesStage `json:"minutes,omitempty"`
	Threshold *MinutesStage `json:"threshold,omitempty"`
	Percent   *PercentStage `json:"percent,omitempty"`
}

// Resolve picks the plan for an eligibility record.
//
// Only one minutes-bounded discount runs in the minutes stage: membership
// minutes win, promo minutes are used only without any membership discount.
// In the percentage stage the larger percentage is primary; a primary promo
// with its own threshold covers the remaining minutes before the membership
// percentage applies.
func Resolve(e Eligibility) Plan {
	hasMinutes := e.MembershipFreeMinutes > 0
	hasMembershipPct := e.MembershipPercent.IsPositive()
	hasPromoPct := e.PromoPercent.IsPositive()
	hasThreshold := e.PromoMinutesThreshold > 0

	var p Plan
	promoUsed := false

	switch {
	case hasMinutes:
		p.Minutes = &MinutesStage{Minutes: e.MembershipFreeMinutes, Percent: money.Hundred, Source: SourceMembershipMinutes}
	case hasPromoPct && hasThreshold && !hasMembershipPct:
		p.Minutes = &MinutesStage{Minutes: e.PromoMinutesThreshold, Percent: e.PromoPercent, Source: SourcePromoPercent}
		promoUsed = true
	}

	promo := hasPromoPct && !promoUsed
	membership := &PercentStage{Percent: e.MembershipPercent, Source: SourceMembershipPercent}
	flatPromo := &PercentStage{Percent: e.PromoPercent, Source: SourcePromoPercent}

	switch {
	case hasMembershipPct && promo && e.PromoPercent.GreaterThanOrEqual(e.MembershipPercent):
		if hasThreshold {
			p.Threshold = &MinutesStage{Minutes: e.PromoMinutesThreshold, Percent: e.PromoPercent, Source: SourcePromoPercent}
			p.Percent = membership
		} else {
			p.Percent = flatPromo
		}
	case hasMembershipPct:
		p.Percent = membership
	case promo:
		p.Percent = flatPromo
	}

	switch {
	case p.Threshold != nil:
		p.Kind = PromoThenMembership
	case p.Minutes != nil && p.Percent != nil:
		p.Kind = MinutesThenPercent
	case p.Minutes != nil:
		p.Kind = MinutesOnly
	case p.Percent != nil:
		p.Kind = PercentOnly
	default:
		p.Kind = NoDiscount
	}
	return p
}
