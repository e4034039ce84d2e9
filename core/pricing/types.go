// Package pricing turns an appointment day into billable blocks.
// It reads rate rows through RateSource and never mutates them.
package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"interpreting-pricing/core/rates"
)

// RateSource looks up a single rate row
type RateSource interface {
	Rate(ctx context.Context, k rates.Key) (rates.Row, error)
}

// Params describes what is being booked
type Params struct {
	Service rates.Service `json:"service"`
	Topic   rates.Topic   `json:"topic"`
}

// MaxDayMinutes bounds the duration of a single appointment day
const MaxDayMinutes = 24 * 60

// Day is one scheduled interval of an appointment
type Day struct {
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Payer selects the price column
type Payer struct {
	Role      rates.Role `json:"role"`
	TaxLiable bool       `json:"tax_liable"`
}

// Block is one priced time increment
type Block struct {
	Price     decimal.Decimal `json:"price"`
	Minutes   int             `json:"duration_minutes"`
	Qualifier rates.Qualifier `json:"qualifier"`
	Sequence  rates.Sequence  `json:"sequence"`

	// Split marks a block cut at the peak boundary
	Split bool `json:"split,omitempty"`
}

// PeakSplit records how the block crossing the peak boundary was divided.
// PrePeakMinutes + PostPeakMinutes always equals BlockMinutes.
type PeakSplit struct {
	PrePeakMinutes  int `json:"pre_peak_minutes"`
	PostPeakMinutes int `json:"post_peak_minutes"`
	BlockMinutes    int `json:"block_minutes"`
}

// Result is the price of one day
type Result struct {
	TotalPrice decimal.Decimal `json:"total_price"`
	Blocks     []Block         `json:"price_by_blocks"`

	// RoundingAdjustmentMinutes is billed minutes minus requested minutes
	RoundingAdjustmentMinutes int `json:"rounding_adjustment_minutes"`

	PeakSplit *PeakSplit `json:"peak_split,omitempty"`
}

// BilledMinutes sums block durations
func (r *Result) BilledMinutes() int {
	n := 0
	for _, b := range r.Blocks {
		n += b.Minutes
	}
	return n
}

func (r *Result) add(b Block) {
	r.Blocks = append(r.Blocks, b)
	r.TotalPrice = r.TotalPrice.Add(b.Price)
}
