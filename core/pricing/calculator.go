package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"interpreting-pricing/core/money"
	"interpreting-pricing/core/rates"
	apperrors "interpreting-pricing/internal/errors"
)

// DefaultPeakHour is the hour after which after-hours rates apply
const DefaultPeakHour = 22

var one = decimal.NewFromInt(1)

// Calculator prices appointment days against a rate source.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	source   RateSource
	peakHour int
	loc      *time.Location
}

// NewCalculator creates a calculator. A nil location means UTC.
func NewCalculator(source RateSource, peakHour int, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{source: source, peakHour: peakHour, loc: loc}
}

// PeakTime returns the peak boundary on the schedule date of start
func (c *Calculator) PeakTime(start time.Time) time.Time {
	s := start.In(c.loc)
	return time.Date(s.Year(), s.Month(), s.Day(), c.peakHour, 0, 0, 0, c.loc)
}

// PriceForDay computes the blocks and total for one scheduled interval
func (c *Calculator) PriceForDay(ctx context.Context, p Params, day Day, payer Payer) (*Result, error) {
	if err := validate(p, day, payer); err != nil {
		return nil, err
	}

	q := quoter{
		ctx:     ctx,
		calc:    c,
		service: p.Service,
		special: p.Topic.Special(),
		payer:   payer,
	}

	var (
		res *Result
		err error
	)
	if p.Service.Mode.WholeDay() {
		res, err = q.wholeDay()
	} else {
		res, err = q.blocks(day)
	}
	if err != nil {
		return nil, err
	}
	res.RoundingAdjustmentMinutes = res.BilledMinutes() - day.DurationMinutes
	return res, nil
}

func validate(p Params, day Day, payer Payer) error {
	if day.DurationMinutes <= 0 {
		return apperrors.Input("duration must be positive, got %d minutes", day.DurationMinutes)
	}
	if day.DurationMinutes > MaxDayMinutes {
		return apperrors.Input("duration exceeds %d minutes per day, got %d", MaxDayMinutes, day.DurationMinutes)
	}
	if day.Start.IsZero() {
		return apperrors.Input("schedule start time is required")
	}
	if payer.Role != rates.RoleClient && payer.Role != rates.RoleInterpreter {
		return apperrors.Input("unknown payer role %q", payer.Role)
	}
	if p.Service.Category == "" || p.Service.Scheduling == "" || p.Service.Channel == "" || p.Service.Mode == "" {
		return apperrors.Input("incomplete service %s", p.Service)
	}
	return nil
}

// quoter carries the per-call lookup state
type quoter struct {
	ctx     context.Context
	calc    *Calculator
	service rates.Service
	special bool
	payer   Payer
}

func (q *quoter) row(qual rates.Qualifier, seq rates.Sequence) (rates.Row, error) {
	k := rates.KeyFor(q.service, qual, seq)
	row, err := q.calc.source.Rate(q.ctx, k)
	if err != nil {
		if apperrors.IsType(err, apperrors.TypeNotFound) {
			return rates.Row{}, apperrors.Wrap(apperrors.TypeConfig, "incorrect parameter combination", err).
				WithContext("key", k.String())
		}
		return rates.Row{}, err
	}
	if row.BlockMinutes <= 0 {
		return rates.Row{}, apperrors.Config("rate %s has no block duration", k)
	}
	return row, nil
}

func (q *quoter) price(r rates.Row) decimal.Decimal {
	return r.Price(q.payer.Role, q.payer.TaxLiable, q.special)
}

// wholeDay prices simultaneous and escort bookings as one flat block
func (q *quoter) wholeDay() (*Result, error) {
	r, err := q.row(rates.StandardHours, rates.FirstBlock)
	if err != nil {
		return nil, err
	}
	res := &Result{TotalPrice: decimal.Zero}
	res.add(Block{Price: q.price(r), Minutes: r.BlockMinutes, Qualifier: r.Qualifier, Sequence: r.Sequence})
	return res, nil
}

// lineup is the set of rows one calculation needs
type lineup struct {
	stdFirst, stdAdditional rates.Row
	ahFirst, ahAdditional   rates.Row
}

func (q *quoter) blocks(day Day) (*Result, error) {
	// billing runs on whole minutes
	start := day.Start.In(q.calc.loc).Truncate(time.Minute)
	end := start.Add(time.Duration(day.DurationMinutes) * time.Minute)
	peak := q.calc.PeakTime(start)

	straddles := start.Before(peak) && end.After(peak)
	postPeak := !start.Before(peak)

	var (
		l   lineup
		err error
	)
	if l.stdFirst, err = q.row(rates.StandardHours, rates.FirstBlock); err != nil {
		return nil, err
	}
	overtime := day.DurationMinutes > l.stdFirst.BlockMinutes
	if overtime && !postPeak {
		if l.stdAdditional, err = q.row(rates.StandardHours, rates.AdditionalBlock); err != nil {
			return nil, err
		}
	}
	if straddles || postPeak {
		if l.ahFirst, err = q.row(rates.AfterHours, rates.FirstBlock); err != nil {
			return nil, err
		}
		if day.DurationMinutes > l.ahFirst.BlockMinutes || (straddles && overtime) {
			if l.ahAdditional, err = q.row(rates.AfterHours, rates.AdditionalBlock); err != nil {
				return nil, err
			}
		}
	}

	switch {
	case straddles:
		prePeak := int(peak.Sub(start) / time.Minute)
		return q.straddling(l, day.DurationMinutes, prePeak)
	case postPeak:
		return q.baseRate(l.ahFirst, l.ahAdditional, day.DurationMinutes), nil
	default:
		return q.baseRate(l.stdFirst, l.stdAdditional, day.DurationMinutes), nil
	}
}

// baseRate charges the first block and then whole additional blocks
// until the duration is covered.
func (q *quoter) baseRate(first, additional rates.Row, duration int) *Result {
	res := &Result{TotalPrice: decimal.Zero}
	res.add(Block{Price: q.price(first), Minutes: first.BlockMinutes, Qualifier: first.Qualifier, Sequence: rates.FirstBlock})

	remaining := duration - first.BlockMinutes
	if remaining <= 0 {
		return res
	}
	n := (remaining + additional.BlockMinutes - 1) / additional.BlockMinutes
	for i := 0; i < n; i++ {
		res.add(Block{Price: q.price(additional), Minutes: additional.BlockMinutes, Qualifier: additional.Qualifier, Sequence: rates.AdditionalBlock})
	}
	return res
}

// straddling walks the blocks with a minute cursor. The block containing the
// peak boundary is cut in two; every block after it is after-hours.
func (q *quoter) straddling(l lineup, duration, prePeak int) (*Result, error) {
	res := &Result{TotalPrice: decimal.Zero}

	crossed := false
	cursor := l.stdFirst.BlockMinutes
	if prePeak >= l.stdFirst.BlockMinutes {
		res.add(Block{Price: q.price(l.stdFirst), Minutes: l.stdFirst.BlockMinutes, Qualifier: rates.StandardHours, Sequence: rates.FirstBlock})
	} else {
		if err := q.split(res, l.stdFirst, l.ahFirst, prePeak, rates.FirstBlock); err != nil {
			return nil, err
		}
		crossed = true
	}

	for cursor < duration {
		before := prePeak - cursor
		switch {
		case crossed || before <= 0:
			res.add(Block{Price: q.price(l.ahAdditional), Minutes: l.ahAdditional.BlockMinutes, Qualifier: rates.AfterHours, Sequence: rates.AdditionalBlock})
			cursor += l.ahAdditional.BlockMinutes
			crossed = true
		case before >= l.stdAdditional.BlockMinutes:
			res.add(Block{Price: q.price(l.stdAdditional), Minutes: l.stdAdditional.BlockMinutes, Qualifier: rates.StandardHours, Sequence: rates.AdditionalBlock})
			cursor += l.stdAdditional.BlockMinutes
		default:
			if err := q.split(res, l.stdAdditional, l.ahAdditional, before, rates.AdditionalBlock); err != nil {
				return nil, err
			}
			cursor += l.stdAdditional.BlockMinutes
			crossed = true
		}
	}
	return res, nil
}

// split cuts one block at the peak boundary: pre minutes at the standard
// price, the rest at the after-hours price. The walk sets crossed after the
// first split; split itself rejects a second cut or a cut outside the block.
func (q *quoter) split(res *Result, std, ah rates.Row, pre int, seq rates.Sequence) error {
	if res.PeakSplit != nil {
		return apperrors.Internal("peak boundary split twice for %s", q.service)
	}
	blockMinutes := std.BlockMinutes
	if pre <= 0 || pre >= blockMinutes {
		return apperrors.Internal("peak split at minute %d outside %d minute block for %s", pre, blockMinutes, q.service)
	}
	post := blockMinutes - pre
	res.add(Block{
		Price:     money.Prorate(q.price(std), pre, blockMinutes, one),
		Minutes:   pre,
		Qualifier: rates.StandardHours,
		Sequence:  seq,
		Split:     true,
	})
	res.add(Block{
		Price:     money.Prorate(q.price(ah), post, ah.BlockMinutes, one),
		Minutes:   post,
		Qualifier: rates.AfterHours,
		Sequence:  seq,
		Split:     true,
	})
	res.PeakSplit = &PeakSplit{PrePeakMinutes: pre, PostPeakMinutes: post, BlockMinutes: blockMinutes}
	return nil
}
