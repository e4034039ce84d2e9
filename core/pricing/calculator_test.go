package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"interpreting-pricing/core/rates"
	apperrors "interpreting-pricing/internal/errors"
	"interpreting-pricing/internal/logging"
)

func init() {
	logging.UseNop()
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newCalculator(t *testing.T, loc *time.Location) *Calculator {
	t.Helper()
	reg := rates.NewRegistry()
	pro, err := rates.Generate(rates.CategoryProfessional, dec("28.00"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	para, err := rates.Generate(rates.CategoryParaprofessional, dec("22.00"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := reg.Replace(append(pro, para...)); err != nil {
		t.Fatalf("replace: %v", err)
	}
	return NewCalculator(reg, DefaultPeakHour, loc)
}

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2024-06-03 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func service(s rates.Scheduling, c rates.Channel, m rates.Mode) rates.Service {
	return rates.Service{Category: rates.CategoryProfessional, Scheduling: s, Channel: c, Mode: m}
}

var clientLiable = Payer{Role: rates.RoleClient, TaxLiable: true}

type wantBlock struct {
	price   string
	minutes int
}

func TestPriceForDay(t *testing.T) {
	calc := newCalculator(t, time.UTC)
	audio := service(rates.OnDemand, rates.Audio, rates.Consecutive)
	f2f := service(rates.PreBooked, rates.FaceToFace, rates.Consecutive)

	tests := []struct {
		name       string
		service    rates.Service
		topic      rates.Topic
		payer      Payer
		start      string
		duration   int
		blocks     []wantBlock
		total      string
		adjustment int
		split      *PeakSplit
	}{
		{
			name:     "on-demand audio with one additional block",
			service:  audio,
			payer:    clientLiable,
			start:    "10:00",
			duration: 20,
			blocks:   []wantBlock{{"28.00", 15}, {"8.87", 5}},
			total:    "36.87",
		},
		{
			name:       "shorter than first block",
			service:    audio,
			payer:      clientLiable,
			start:      "10:00",
			duration:   7,
			blocks:     []wantBlock{{"28.00", 15}},
			total:      "28.00",
			adjustment: 8,
		},
		{
			name:       "partial additional block rounds up",
			service:    audio,
			payer:      clientLiable,
			start:      "10:00",
			duration:   22,
			blocks:     []wantBlock{{"28.00", 15}, {"8.87", 5}, {"8.87", 5}},
			total:      "45.74",
			adjustment: 3,
		},
		{
			name:     "entirely after peak",
			service:  audio,
			payer:    clientLiable,
			start:    "22:30",
			duration: 20,
			blocks:   []wantBlock{{"39.20", 15}, {"12.42", 5}},
			total:    "51.62",
		},
		{
			name:     "starting exactly at peak is after hours",
			service:  audio,
			payer:    clientLiable,
			start:    "22:00",
			duration: 15,
			blocks:   []wantBlock{{"39.20", 15}},
			total:    "39.20",
		},
		{
			name:     "ending exactly at peak is standard",
			service:  audio,
			payer:    clientLiable,
			start:    "21:40",
			duration: 20,
			blocks:   []wantBlock{{"28.00", 15}, {"8.87", 5}},
			total:    "36.87",
		},
		{
			name:     "face-to-face first block straddles peak",
			service:  f2f,
			payer:    clientLiable,
			start:    "20:40",
			duration: 90,
			blocks:   []wantBlock{{"134.40", 80}, {"23.52", 10}},
			total:    "157.92",
			split:    &PeakSplit{PrePeakMinutes: 80, PostPeakMinutes: 10, BlockMinutes: 90},
		},
		{
			name:     "first block split then after-hours overtime",
			service:  audio,
			payer:    clientLiable,
			start:    "21:50",
			duration: 25,
			blocks:   []wantBlock{{"18.67", 10}, {"13.07", 5}, {"12.42", 5}, {"12.42", 5}},
			total:    "56.58",
			split:    &PeakSplit{PrePeakMinutes: 10, PostPeakMinutes: 5, BlockMinutes: 15},
		},
		{
			name:     "additional block straddles peak",
			service:  audio,
			payer:    clientLiable,
			start:    "21:43",
			duration: 30,
			blocks:   []wantBlock{{"28.00", 15}, {"3.55", 2}, {"7.45", 3}, {"12.42", 5}, {"12.42", 5}},
			total:    "63.84",
			split:    &PeakSplit{PrePeakMinutes: 2, PostPeakMinutes: 3, BlockMinutes: 5},
		},
		{
			name:     "block boundary on peak needs no split",
			service:  audio,
			payer:    clientLiable,
			start:    "21:40",
			duration: 30,
			blocks:   []wantBlock{{"28.00", 15}, {"8.87", 5}, {"12.42", 5}, {"12.42", 5}},
			total:    "61.71",
		},
		{
			name:     "legal topic reads the special column",
			service:  audio,
			topic:    rates.TopicLegal,
			payer:    clientLiable,
			start:    "10:00",
			duration: 15,
			blocks:   []wantBlock{{"30.80", 15}},
			total:    "30.80",
		},
		{
			name:     "interpreter without tax",
			service:  audio,
			payer:    Payer{Role: rates.RoleInterpreter},
			start:    "10:00",
			duration: 20,
			blocks:   []wantBlock{{"14.00", 15}, {"4.44", 5}},
			total:    "18.44",
		},
		{
			name:       "whole day simultaneous",
			service:    service(rates.PreBooked, rates.FaceToFace, rates.Simultaneous),
			payer:      clientLiable,
			start:      "09:00",
			duration:   300,
			blocks:     []wantBlock{{"1650.00", 480}},
			total:      "1650.00",
			adjustment: 180,
		},
		{
			name:       "whole day escort past the day length",
			service:    service(rates.PreBooked, rates.FaceToFace, rates.Escort),
			topic:      rates.TopicMedical,
			payer:      clientLiable,
			start:      "21:00",
			duration:   600,
			blocks:     []wantBlock{{"1210.00", 480}},
			total:      "1210.00",
			adjustment: -120,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic := tt.topic
			if topic == "" {
				topic = rates.TopicGeneral
			}
			res, err := calc.PriceForDay(context.Background(),
				Params{Service: tt.service, Topic: topic},
				Day{Start: at(tt.start), DurationMinutes: tt.duration},
				tt.payer)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(res.Blocks) != len(tt.blocks) {
				t.Fatalf("blocks = %+v, want %d blocks", res.Blocks, len(tt.blocks))
			}
			for i, b := range tt.blocks {
				got := res.Blocks[i]
				if !got.Price.Equal(dec(b.price)) || got.Minutes != b.minutes {
					t.Errorf("block %d = {%s,%d}, want {%s,%d}", i, got.Price, got.Minutes, b.price, b.minutes)
				}
			}
			if !res.TotalPrice.Equal(dec(tt.total)) {
				t.Errorf("total = %s, want %s", res.TotalPrice, tt.total)
			}
			if res.RoundingAdjustmentMinutes != tt.adjustment {
				t.Errorf("rounding adjustment = %d, want %d", res.RoundingAdjustmentMinutes, tt.adjustment)
			}

			switch {
			case tt.split == nil && res.PeakSplit != nil:
				t.Errorf("unexpected peak split %+v", *res.PeakSplit)
			case tt.split != nil && res.PeakSplit == nil:
				t.Errorf("missing peak split, want %+v", *tt.split)
			case tt.split != nil && *res.PeakSplit != *tt.split:
				t.Errorf("peak split = %+v, want %+v", *res.PeakSplit, *tt.split)
			}
		})
	}
}

func TestPriceForDayUsesScheduleTimeZone(t *testing.T) {
	sydney := time.FixedZone("AEST", 10*60*60)
	calc := newCalculator(t, sydney)

	// 11:50 UTC is 21:50 in Sydney
	start := time.Date(2024, 6, 3, 11, 50, 0, 0, time.UTC)
	res, err := calc.PriceForDay(context.Background(),
		Params{Service: service(rates.OnDemand, rates.Audio, rates.Consecutive), Topic: rates.TopicGeneral},
		Day{Start: start, DurationMinutes: 15},
		clientLiable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PeakSplit == nil || res.PeakSplit.PrePeakMinutes != 10 {
		t.Fatalf("peak split = %+v, want 10 minutes before peak", res.PeakSplit)
	}
}

func TestPriceForDayErrors(t *testing.T) {
	calc := newCalculator(t, time.UTC)
	audio := Params{Service: service(rates.OnDemand, rates.Audio, rates.Consecutive), Topic: rates.TopicGeneral}

	tests := []struct {
		name    string
		params  Params
		day     Day
		payer   Payer
		errType apperrors.Type
	}{
		{"zero duration", audio, Day{Start: at("10:00")}, clientLiable, apperrors.TypeInput},
		{"negative duration", audio, Day{Start: at("10:00"), DurationMinutes: -5}, clientLiable, apperrors.TypeInput},
		{"longer than a day", audio, Day{Start: at("21:00"), DurationMinutes: MaxDayMinutes + 1}, clientLiable, apperrors.TypeInput},
		{"overflowing duration", audio, Day{Start: at("21:00"), DurationMinutes: 160_000_000}, clientLiable, apperrors.TypeInput},
		{"missing start", audio, Day{DurationMinutes: 15}, clientLiable, apperrors.TypeInput},
		{"unknown role", audio, Day{Start: at("10:00"), DurationMinutes: 15}, Payer{Role: "broker"}, apperrors.TypeInput},
		{
			"whole day for paraprofessional",
			Params{Service: rates.Service{Category: rates.CategoryParaprofessional, Scheduling: rates.PreBooked, Channel: rates.FaceToFace, Mode: rates.Simultaneous}},
			Day{Start: at("10:00"), DurationMinutes: 60}, clientLiable, apperrors.TypeConfig,
		},
		{
			"on-demand face-to-face",
			Params{Service: service(rates.OnDemand, rates.FaceToFace, rates.Consecutive)},
			Day{Start: at("10:00"), DurationMinutes: 60}, clientLiable, apperrors.TypeConfig,
		},
		{
			"category without catalog",
			Params{Service: rates.Service{Category: rates.CategoryRecognised, Scheduling: rates.OnDemand, Channel: rates.Audio, Mode: rates.Consecutive}},
			Day{Start: at("10:00"), DurationMinutes: 15}, clientLiable, apperrors.TypeConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.PriceForDay(context.Background(), tt.params, tt.day, tt.payer)
			if !apperrors.IsType(err, tt.errType) {
				t.Errorf("got %v, want %s", err, tt.errType)
			}
		})
	}
}

func TestPriceForDayIsIdempotent(t *testing.T) {
	calc := newCalculator(t, time.UTC)
	params := Params{Service: service(rates.PreBooked, rates.Video, rates.Consecutive), Topic: rates.TopicMedical}
	day := Day{Start: at("21:37"), DurationMinutes: 95}

	first, err := calc.PriceForDay(context.Background(), params, day, clientLiable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := calc.PriceForDay(context.Background(), params, day, clientLiable)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("results differ:\n%s\n%s", a, b)
	}
}

// TestBlockInvariants sweeps start times around the peak for every block service
func TestBlockInvariants(t *testing.T) {
	calc := newCalculator(t, time.UTC)
	services := []rates.Service{
		service(rates.OnDemand, rates.Audio, rates.Consecutive),
		service(rates.OnDemand, rates.Video, rates.SignLanguage),
		service(rates.PreBooked, rates.Video, rates.Consecutive),
		service(rates.PreBooked, rates.FaceToFace, rates.Consecutive),
		service(rates.PreBooked, rates.FaceToFace, rates.SignLanguage),
	}

	for _, svc := range services {
		for offset := -200; offset <= 30; offset += 7 {
			for _, duration := range []int{1, 14, 15, 16, 44, 90, 91, 181, 240} {
				name := fmt.Sprintf("%s/%+d/%d", svc, offset, duration)
				start := at("22:00").Add(time.Duration(offset) * time.Minute)
				res, err := calc.PriceForDay(context.Background(),
					Params{Service: svc, Topic: rates.TopicGeneral},
					Day{Start: start, DurationMinutes: duration},
					clientLiable)
				if err != nil {
					t.Fatalf("%s: %v", name, err)
				}

				sum := decimal.Zero
				for _, b := range res.Blocks {
					sum = sum.Add(b.Price)
				}
				if !sum.Equal(res.TotalPrice) {
					t.Errorf("%s: block sum %s != total %s", name, sum, res.TotalPrice)
				}
				if res.BilledMinutes() < duration {
					t.Errorf("%s: billed %d < requested %d", name, res.BilledMinutes(), duration)
				}
				if res.RoundingAdjustmentMinutes != res.BilledMinutes()-duration {
					t.Errorf("%s: rounding adjustment %d", name, res.RoundingAdjustmentMinutes)
				}
				if s := res.PeakSplit; s != nil && s.PrePeakMinutes+s.PostPeakMinutes != s.BlockMinutes {
					t.Errorf("%s: split %+v does not cover its block", name, *s)
				}
			}
		}
	}
}

func TestSplitGuards(t *testing.T) {
	calc := newCalculator(t, time.UTC)
	q := &quoter{ctx: context.Background(), calc: calc, service: service(rates.OnDemand, rates.Audio, rates.Consecutive), payer: clientLiable}

	std, err := q.row(rates.StandardHours, rates.FirstBlock)
	if err != nil {
		t.Fatal(err)
	}
	ah, err := q.row(rates.AfterHours, rates.FirstBlock)
	if err != nil {
		t.Fatal(err)
	}

	res := &Result{TotalPrice: decimal.Zero}
	if err := q.split(res, std, ah, 10, rates.FirstBlock); err != nil {
		t.Fatalf("first split: %v", err)
	}
	if err := q.split(res, std, ah, 5, rates.FirstBlock); !apperrors.IsType(err, apperrors.TypeInternal) {
		t.Errorf("second split: got %v, want internal error", err)
	}
	if len(res.Blocks) != 2 {
		t.Errorf("blocks = %d after rejected split, want 2", len(res.Blocks))
	}

	for _, pre := range []int{-1, 0, std.BlockMinutes, std.BlockMinutes + 1} {
		if err := q.split(&Result{TotalPrice: decimal.Zero}, std, ah, pre, rates.FirstBlock); !apperrors.IsType(err, apperrors.TypeInternal) {
			t.Errorf("split at %d: got %v, want internal error", pre, err)
		}
	}
}

func TestPriceForDaySubMinuteStart(t *testing.T) {
	calc := newCalculator(t, time.UTC)
	params := Params{Service: service(rates.OnDemand, rates.Audio, rates.Consecutive), Topic: rates.TopicGeneral}

	res, err := calc.PriceForDay(context.Background(), params, Day{Start: at("21:59").Add(30 * time.Second), DurationMinutes: 15}, clientLiable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := PeakSplit{PrePeakMinutes: 1, PostPeakMinutes: 14, BlockMinutes: 15}
	if res.PeakSplit == nil || *res.PeakSplit != want {
		t.Errorf("peak split = %+v, want %+v", res.PeakSplit, want)
	}
}
