package quote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"interpreting-pricing/core/discount"
	"interpreting-pricing/core/money"
	"interpreting-pricing/core/pricing"
	"interpreting-pricing/core/rates"
	"interpreting-pricing/core/tax"
	apperrors "interpreting-pricing/internal/errors"
	"interpreting-pricing/internal/logging"
	"interpreting-pricing/internal/metrics"
)

// DayQuote is the priced breakdown of one day for both sides
type DayQuote struct {
	Start           time.Time       `json:"start"`
	DurationMinutes int             `json:"duration_minutes"`
	Client          *pricing.Result `json:"client"`
	Interpreter     *pricing.Result `json:"interpreter"`
}

// Quote is handed to the payments subsystem
type Quote struct {
	ID uuid.UUID `json:"id"`

	Amount            decimal.Decimal `json:"amount"`
	NetAmount         decimal.Decimal `json:"net_amount"`
	TaxAmount         decimal.Decimal `json:"tax_amount"`
	PreDiscountAmount decimal.Decimal `json:"pre_discount_amount"`

	DiscountByMembershipMinutes decimal.Decimal `json:"discount_by_membership_minutes"`
	DiscountByMembershipPercent decimal.Decimal `json:"discount_by_membership_percent"`
	DiscountByPromoPercent      decimal.Decimal `json:"discount_by_promo_percent"`
	Plan                        discount.Kind   `json:"plan"`

	Liability         tax.Liability `json:"liability"`
	InterpreterPayout tax.Breakdown `json:"interpreter_payout"`
	Days              []DayQuote    `json:"days"`

	RateTableVersion  int64           `json:"rate_table_version"`
	RawDiscountRecord json.RawMessage `json:"raw_discount_record"`
}

// auditRecord is the discount trail kept with the payment
type auditRecord struct {
	QuoteID          uuid.UUID            `json:"quote_id"`
	RateTableID      uuid.UUID            `json:"rate_table_id"`
	RateTableVersion int64                `json:"rate_table_version"`
	RateTableHash    string               `json:"rate_table_hash"`
	PromoCode        string               `json:"promo_code,omitempty"`
	Eligibility      discount.Eligibility `json:"eligibility"`
	Plan             discount.Plan        `json:"plan"`
	Result           *discount.Result     `json:"result"`
}

// Options configures the service
type Options struct {
	PeakHour int
	Location *time.Location
	Resolver *tax.Resolver
	Metrics  *metrics.Metrics
}

// Service quotes appointments against the registry's active table
type Service struct {
	registry *rates.Registry
	peakHour int
	loc      *time.Location
	resolver *tax.Resolver
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewService creates a quote service
func NewService(registry *rates.Registry, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Resolver == nil {
		opts.Resolver = tax.NewResolver("")
	}
	return &Service{
		registry: registry,
		peakHour: opts.PeakHour,
		loc:      opts.Location,
		resolver: opts.Resolver,
		metrics:  opts.Metrics,
		log:      logging.Component("quote"),
	}
}

// Quote prices every day of the appointment, applies discounts to the
// client side and decomposes GST for both sides. All days are priced
// against the same table snapshot.
func (s *Service) Quote(ctx context.Context, req Request) (*Quote, error) {
	q, err := s.quote(ctx, req)
	if err != nil {
		s.metrics.ObserveError(string(apperrors.TypeOf(err)))
		s.log.Warn("quote rejected",
			zap.String("category", req.Appointment.InterpreterCategory),
			zap.String("mode", req.Appointment.InterpretingMode),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.ObserveQuote(string(q.Plan))
	s.log.Debug("quote computed",
		zap.String("id", q.ID.String()),
		zap.String("amount", money.Format(q.Amount)),
		zap.String("plan", string(q.Plan)),
		zap.Int64("table_version", q.RateTableVersion),
	)
	return q, nil
}

func (s *Service) quote(ctx context.Context, req Request) (*Quote, error) {
	params, err := req.Appointment.Params()
	if err != nil {
		return nil, err
	}
	days, err := req.Appointment.Days(s.loc)
	if err != nil {
		return nil, err
	}
	if err := req.Eligibility.Validate(); err != nil {
		return nil, err
	}

	table := s.registry.Current()
	calc := pricing.NewCalculator(table, s.peakHour, s.loc)
	liability := s.resolver.Liability(req.Payer.Transaction())

	q := &Quote{
		ID:               uuid.New(),
		Liability:        liability,
		RateTableVersion: table.Version,
		Days:             make([]DayQuote, 0, len(days)),
	}

	var (
		clientBlocks []pricing.Block
		clientTotal  = decimal.Zero
		payout       = decimal.Zero
	)
	for _, day := range days {
		client, err := calc.PriceForDay(ctx, params, day, pricing.Payer{Role: rates.RoleClient, TaxLiable: liability.Client})
		if err != nil {
			return nil, err
		}
		interpreter, err := calc.PriceForDay(ctx, params, day, pricing.Payer{Role: rates.RoleInterpreter, TaxLiable: liability.Interpreter})
		if err != nil {
			return nil, err
		}
		clientBlocks = append(clientBlocks, client.Blocks...)
		clientTotal = clientTotal.Add(client.TotalPrice)
		payout = payout.Add(interpreter.TotalPrice)
		q.Days = append(q.Days, DayQuote{Start: day.Start, DurationMinutes: day.DurationMinutes, Client: client, Interpreter: interpreter})
	}

	plan := discount.Resolve(req.Eligibility)
	applied := discount.Apply(clientTotal, plan, clientBlocks, liability.Client, false)

	gross := clientTotal
	if !applied.Total().IsZero() {
		gross = applied.Final
		if applied.TaxExcluded && liability.Client {
			gross = money.Gross(applied.Final)
		}
	}
	charge := tax.Decompose(gross, liability.Client)

	q.Amount = charge.Gross
	q.NetAmount = charge.Net
	q.TaxAmount = charge.Tax
	q.PreDiscountAmount = clientTotal
	q.DiscountByMembershipMinutes = applied.ByMembershipMinutes
	q.DiscountByMembershipPercent = applied.ByMembershipPercent
	q.DiscountByPromoPercent = applied.ByPromoPercent
	q.Plan = plan.Kind
	q.InterpreterPayout = tax.Decompose(payout, liability.Interpreter)

	raw, err := json.Marshal(auditRecord{
		QuoteID:          q.ID,
		RateTableID:      table.ID,
		RateTableVersion: table.Version,
		RateTableHash:    table.ContentHash,
		PromoCode:        req.Eligibility.PromoCode,
		Eligibility:      req.Eligibility,
		Plan:             plan,
		Result:           applied,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInternal, "encode discount record", err)
	}
	q.RawDiscountRecord = raw
	return q, nil
}
