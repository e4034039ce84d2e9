package rates

import (
	"github.com/shopspring/decimal"

	"interpreting-pricing/core/money"
	apperrors "interpreting-pricing/internal/errors"
)

// Derivation coefficients. The seed is the GST-inclusive client price of the
// on-demand audio consecutive first block in standard hours.
var (
	afterHoursMultiplier = decimal.RequireFromString("1.4")
	additionalFactor     = decimal.RequireFromString("0.95")
	videoMultiplier      = decimal.RequireFromString("2.2")
	faceToFaceMultiplier = decimal.NewFromInt(6)
	faceToFaceDiscount   = decimal.RequireFromString("0.9")
	preBookedDiscount    = decimal.RequireFromString("0.9")
	signMultiplier       = decimal.RequireFromString("1.25")
	specialSurcharge     = decimal.RequireFromString("1.1")
	one                  = decimal.NewFromInt(1)

	faceToFaceShare = decimal.RequireFromString("0.65")
	standardShare   = decimal.RequireFromString("0.55")
)

// Block lengths in minutes
const (
	OnDemandFirstMinutes        = 15
	OnDemandAdditionalMinutes   = 5
	PreBookedFirstMinutes       = 30
	PreBookedAdditionalMinutes  = 15
	FaceToFaceFirstMinutes      = 90
	FaceToFaceAdditionalMinutes = 30
	WholeDayMinutes             = 480
)

// wholeDayRate is a flat price that is not derived from the seed
type wholeDayRate struct {
	mode               Mode
	client             string
	clientSpecial      string
	interpreter        string
	interpreterSpecial string
}

var wholeDayRates = []wholeDayRate{
	{mode: Simultaneous, client: "1650.00", clientSpecial: "1815.00", interpreter: "1072.50", interpreterSpecial: "1179.75"},
	{mode: Escort, client: "1100.00", clientSpecial: "1210.00", interpreter: "715.00", interpreterSpecial: "786.50"},
}

// family is one (service, block layout, standard first-block price) combination
type family struct {
	service           Service
	firstMinutes      int
	additionalMinutes int
	firstPrice        decimal.Decimal
}

// Generate derives the full catalog for a category from one seed price.
// Rows come back in canonical order.
func Generate(category Category, firstBlockStandardPrice decimal.Decimal) ([]Row, error) {
	if _, err := ParseCategory(string(category)); err != nil {
		return nil, apperrors.Input("%v", err)
	}
	if !firstBlockStandardPrice.IsPositive() {
		return nil, apperrors.Input("seed price for %s must be positive, got %s", category, firstBlockStandardPrice)
	}

	seed := money.Round(firstBlockStandardPrice)
	svc := func(s Scheduling, c Channel, m Mode) Service {
		return Service{Category: category, Scheduling: s, Channel: c, Mode: m}
	}

	audioOnDemand := seed
	videoOnDemand := money.Scale(seed, videoMultiplier)
	audioPreBooked := money.Prorate(audioOnDemand, PreBookedFirstMinutes, OnDemandFirstMinutes, preBookedDiscount)
	videoPreBooked := money.Prorate(videoOnDemand, PreBookedFirstMinutes, OnDemandFirstMinutes, preBookedDiscount)
	faceToFace := money.Scale(money.Scale(seed, faceToFaceMultiplier), faceToFaceDiscount)
	signFaceToFace := money.Scale(faceToFace, signMultiplier)
	signVideoOnDemand := money.Prorate(signFaceToFace, OnDemandFirstMinutes, FaceToFaceFirstMinutes, one)
	signVideoPreBooked := money.Prorate(signFaceToFace, PreBookedFirstMinutes, FaceToFaceFirstMinutes, one)

	families := []family{
		{svc(OnDemand, Audio, Consecutive), OnDemandFirstMinutes, OnDemandAdditionalMinutes, audioOnDemand},
		{svc(OnDemand, Video, Consecutive), OnDemandFirstMinutes, OnDemandAdditionalMinutes, videoOnDemand},
		{svc(PreBooked, Audio, Consecutive), PreBookedFirstMinutes, PreBookedAdditionalMinutes, audioPreBooked},
		{svc(PreBooked, Video, Consecutive), PreBookedFirstMinutes, PreBookedAdditionalMinutes, videoPreBooked},
		{svc(PreBooked, FaceToFace, Consecutive), FaceToFaceFirstMinutes, FaceToFaceAdditionalMinutes, faceToFace},
		{svc(OnDemand, Video, SignLanguage), OnDemandFirstMinutes, OnDemandAdditionalMinutes, signVideoOnDemand},
		{svc(PreBooked, Video, SignLanguage), PreBookedFirstMinutes, PreBookedAdditionalMinutes, signVideoPreBooked},
		{svc(PreBooked, FaceToFace, SignLanguage), FaceToFaceFirstMinutes, FaceToFaceAdditionalMinutes, signFaceToFace},
	}

	rows := make([]Row, 0, len(families)*4+len(wholeDayRates))
	for _, f := range families {
		rows = append(rows, f.rows()...)
	}

	if category == CategoryProfessional {
		for _, w := range wholeDayRates {
			rows = append(rows, w.row(svc(PreBooked, FaceToFace, w.mode)))
		}
	}

	sortRows(rows)
	return rows, nil
}

func (f family) rows() []Row {
	additional := money.Prorate(f.firstPrice, f.additionalMinutes, f.firstMinutes, additionalFactor)

	out := make([]Row, 0, 4)
	for _, q := range []Qualifier{StandardHours, AfterHours} {
		first, extra := f.firstPrice, additional
		if q == AfterHours {
			first = money.Scale(first, afterHoursMultiplier)
			extra = money.Scale(extra, afterHoursMultiplier)
		}
		out = append(out,
			f.row(q, FirstBlock, f.firstMinutes, first),
			f.row(q, AdditionalBlock, f.additionalMinutes, extra),
		)
	}
	return out
}

func (f family) row(q Qualifier, seq Sequence, minutes int, clientPrice decimal.Decimal) Row {
	share := standardShare
	if f.service.Channel == FaceToFace && f.service.Mode == Consecutive {
		share = faceToFaceShare
	}

	special := clientPrice
	if f.service.Mode == Consecutive {
		special = money.Scale(clientPrice, specialSurcharge)
	}

	return Row{
		Key:          KeyFor(f.service, q, seq),
		BlockMinutes: minutes,
		General:      splitCommission(clientPrice, share),
		Special:      splitCommission(special, share),
	}
}

func (w wholeDayRate) row(s Service) Row {
	return Row{
		Key:          KeyFor(s, StandardHours, FirstBlock),
		BlockMinutes: WholeDayMinutes,
		General:      flatPriceSet(money.MustParse(w.client), money.MustParse(w.interpreter)),
		Special:      flatPriceSet(money.MustParse(w.clientSpecial), money.MustParse(w.interpreterSpecial)),
	}
}

// splitCommission derives the four columns from a GST-inclusive client price
func splitCommission(clientWithTax, interpreterShare decimal.Decimal) PriceSet {
	return flatPriceSet(clientWithTax, money.Scale(clientWithTax, interpreterShare))
}

func flatPriceSet(clientWithTax, interpreterWithTax decimal.Decimal) PriceSet {
	return PriceSet{
		ClientWithTax:         clientWithTax,
		ClientWithoutTax:      money.Net(clientWithTax),
		InterpreterWithTax:    interpreterWithTax,
		InterpreterWithoutTax: money.Net(interpreterWithTax),
	}
}
