package discount

import (
	"github.com/shopspring/decimal"

	"interpreting-pricing/core/money"
	"interpreting-pricing/core/pricing"
)

// Step records one applied stage for auditing
type Step struct {
	Source  Source          `json:"source"`
	Stage   string          `json:"stage"`
	Percent decimal.Decimal `json:"percent"`
	Minutes int             `json:"minutes,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
}

// Result is the discounted amount and its attribution.
// Final + ByMembershipMinutes + ByMembershipPercent + ByPromoPercent == Base.
type Result struct {
	Plan  Kind            `json:"plan"`
	Base  decimal.Decimal `json:"base"`
	Final decimal.Decimal `json:"final"`

	ByMembershipMinutes decimal.Decimal `json:"by_membership_minutes"`
	ByMembershipPercent decimal.Decimal `json:"by_membership_percent"`
	ByPromoPercent      decimal.Decimal `json:"by_promo_percent"`

	// TaxExcluded is set when Base and Final are net of GST
	TaxExcluded bool `json:"tax_excluded"`

	CoveredMinutes int    `json:"covered_minutes"`
	Steps          []Step `json:"steps,omitempty"`
}

// Total returns the sum of all discount deltas
func (r *Result) Total() decimal.Decimal {
	return money.Sum(r.ByMembershipMinutes, r.ByMembershipPercent, r.ByPromoPercent)
}

func (r *Result) record(s Step) {
	if s.Amount.IsZero() {
		return
	}
	switch s.Source {
	case SourceMembershipMinutes:
		r.ByMembershipMinutes = r.ByMembershipMinutes.Add(s.Amount)
	case SourceMembershipPercent:
		r.ByMembershipPercent = r.ByMembershipPercent.Add(s.Amount)
	case SourcePromoPercent:
		r.ByPromoPercent = r.ByPromoPercent.Add(s.Amount)
	}
	r.Steps = append(r.Steps, s)
}

// Apply runs the plan against a pre-discount amount and its blocks.
// When the payer is tax liable and GST has not been excluded yet, the amount
// and every block are converted to net before any discount arithmetic.
func Apply(preDiscount decimal.Decimal, plan Plan, blocks []pricing.Block, taxLiable, taxExcluded bool) *Result {
	net := taxLiable && !taxExcluded

	res := &Result{
		Plan:                plan.Kind,
		Base:                preDiscount,
		ByMembershipMinutes: decimal.Zero,
		ByMembershipPercent: decimal.Zero,
		ByPromoPercent:      decimal.Zero,
		TaxExcluded:         taxExcluded || net,
	}
	if net {
		res.Base = money.Net(preDiscount)
	}

	w := newWalker(blocks, net)
	amount := res.Base

	// free stays true while every minute walked so far was discounted in
	// full; once nothing is left uncovered the remainder is netting residue
	free := true
	minutesCut := func(s *MinutesStage) decimal.Decimal {
		cut := money.Min(w.cover(s.Minutes, s.Percent), amount)
		free = free && s.Percent.Equal(money.Hundred)
		if free && w.uncovered() == 0 {
			cut = amount
		}
		return cut
	}

	if s := plan.Minutes; s != nil && amount.IsPositive() {
		cut := minutesCut(s)
		amount = amount.Sub(cut)
		res.record(Step{Source: s.Source, Stage: "minutes", Percent: s.Percent, Minutes: s.Minutes, Amount: cut})
	}

	if w.uncovered() > 0 && amount.IsPositive() {
		if s := plan.Threshold; s != nil {
			cut := minutesCut(s)
			amount = amount.Sub(cut)
			res.record(Step{Source: s.Source, Stage: "threshold", Percent: s.Percent, Minutes: s.Minutes, Amount: cut})
		}
		if s := plan.Percent; s != nil && amount.IsPositive() {
			cut := money.Min(money.Percent(amount, s.Percent), amount)
			amount = amount.Sub(cut)
			res.record(Step{Source: s.Source, Stage: "percent", Percent: s.Percent, Amount: cut})
		}
	}

	res.Final = amount
	res.CoveredMinutes = w.offset
	return res
}

// walker tracks how many minutes earlier stages covered and what is left
// of every block, so consecutive minutes stages never overlap.
type walker struct {
	blocks    []walkBlock
	offset    int
	totalMins int
}

type walkBlock struct {
	minutes   int
	original  decimal.Decimal
	remaining decimal.Decimal
}

func newWalker(blocks []pricing.Block, net bool) *walker {
	w := &walker{blocks: make([]walkBlock, 0, len(blocks))}
	for _, b := range blocks {
		price := b.Price
		if net {
			price = money.Net(price)
		}
		w.blocks = append(w.blocks, walkBlock{minutes: b.Minutes, original: price, remaining: price})
		w.totalMins += b.Minutes
	}
	return w
}

func (w *walker) uncovered() int {
	return w.totalMins - w.offset
}

// cover discounts pct of the next allotment minutes. Partially covered blocks
// are reduced in proportion to the covered share of their duration.
func (w *walker) cover(allotment int, pct decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	factor := pct.Div(money.Hundred)

	pos := 0
	for i := range w.blocks {
		if allotment <= 0 {
			break
		}
		b := &w.blocks[i]
		blockStart, blockEnd := pos, pos+b.minutes
		pos = blockEnd
		if b.minutes <= 0 || blockEnd <= w.offset {
			continue
		}

		from := max(blockStart, w.offset)
		covered := min(blockEnd-from, allotment)

		cut := money.Min(money.Prorate(b.original, covered, b.minutes, factor), b.remaining)
		b.remaining = b.remaining.Sub(cut)
		total = total.Add(cut)

		w.offset = from + covered
		allotment -= covered
	}
	return total
}
