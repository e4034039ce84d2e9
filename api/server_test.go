package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"interpreting-pricing/core/quote"
	"interpreting-pricing/core/rates"
	"interpreting-pricing/core/tax"
	"interpreting-pricing/internal/logging"
	"interpreting-pricing/internal/metrics"
)

func init() {
	logging.UseNop()
}

func newTestServer(t *testing.T) (*Server, *rates.Registry) {
	t.Helper()
	reg := rates.NewRegistry()
	rows, err := rates.Generate(rates.CategoryProfessional, decimal.RequireFromString("28.00"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Replace(rows); err != nil {
		t.Fatal(err)
	}
	m := metrics.New()
	svc := quote.NewService(reg, quote.Options{PeakHour: 22, Location: time.UTC, Resolver: tax.NewResolver("AU"), Metrics: m})
	return NewServer("test", Deps{Quotes: svc, Registry: reg, Metrics: m}), reg
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v\n%s", err, rec.Body.String())
	}
	return body.Error.Code
}

const quoteBody = `{
  "appointment": {
    "interpreter_category": "professional",
    "scheduling_mode": "on_demand",
    "communication_channel": "audio",
    "interpreting_mode": "consecutive",
    "topic": "general",
    "duration_minutes": 20,
    "schedule_start_time": "2024-06-03T10:00:00Z"
  },
  "payer": {"country": "AU", "interpreter_country": "AU", "tax_registration_status": "registered"},
  "eligibility": {}
}`

func TestHandleQuote(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, "POST", "/quotes", quoteBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Amount    decimal.Decimal `json:"amount"`
		TaxAmount decimal.Decimal `json:"tax_amount"`
		Plan      string          `json:"plan"`
		Metadata  ResponseMetadata
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Amount.Equal(decimal.RequireFromString("36.87")) {
		t.Errorf("amount = %s, want 36.87", resp.Amount)
	}
	if !resp.TaxAmount.Equal(decimal.RequireFromString("3.35")) {
		t.Errorf("tax = %s, want 3.35", resp.TaxAmount)
	}
	if resp.Plan != "no_discount" {
		t.Errorf("plan = %s", resp.Plan)
	}
	if len(resp.Metadata.InputHash) != 64 || resp.Metadata.EngineVersion != "test" {
		t.Errorf("metadata = %+v", resp.Metadata)
	}
}

func TestHandleQuoteErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"appointment":`, http.StatusBadRequest, "PARSING_ERROR"},
		{"bad duration", strings.Replace(quoteBody, `"duration_minutes": 20`, `"duration_minutes": 0`, 1), http.StatusBadRequest, "INPUT_ERROR"},
		{"oversized duration", strings.Replace(quoteBody, `"duration_minutes": 20`, `"duration_minutes": 1000000000`, 1), http.StatusBadRequest, "INPUT_ERROR"},
		{"missing rate", strings.Replace(quoteBody, `"professional"`, `"recognised"`, 1), http.StatusUnprocessableEntity, "CONFIG_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, "POST", "/quotes", tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if code := errorCode(t, rec); code != tt.code {
				t.Errorf("code = %s, want %s", code, tt.code)
			}
		})
	}
}

func TestHandleRates(t *testing.T) {
	s, _ := newTestServer(t)

	t.Run("single row", func(t *testing.T) {
		rec := do(t, s, "GET", "/rates?category=professional&scheduling=on_demand&channel=audio&mode=consecutive&qualifier=standard_hours&sequence=additional_block", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var row rates.Row
		if err := json.Unmarshal(rec.Body.Bytes(), &row); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if row.BlockMinutes != 5 || !row.General.ClientWithTax.Equal(decimal.RequireFromString("8.87")) {
			t.Errorf("row = %+v", row)
		}
	})

	t.Run("missing row", func(t *testing.T) {
		rec := do(t, s, "GET", "/rates?category=recognised&scheduling=on_demand&channel=audio&mode=consecutive&qualifier=standard_hours&sequence=first_block", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("filter", func(t *testing.T) {
		rec := do(t, s, "GET", "/rates?channel=face_to_face&qualifier=after_hours", "")
		var body struct {
			Count int `json:"count"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Count != 4 {
			t.Errorf("count = %d, want 4", body.Count)
		}
	})

	t.Run("bad filter value", func(t *testing.T) {
		rec := do(t, s, "GET", "/rates?channel=pigeon", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandleRegenerate(t *testing.T) {
	s, reg := newTestServer(t)

	rec := do(t, s, "POST", "/rates/regenerate", `{"category":"recognised","seed_price":"19.50"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if reg.Current().Version != 2 || reg.Current().Len() != 34+32 {
		t.Errorf("table version %d with %d rows", reg.Current().Version, reg.Current().Len())
	}

	rec = do(t, s, "POST", "/rates/regenerate", `{"category":"recognised","seed_price":"-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative seed status = %d, want 400", rec.Code)
	}
	rec = do(t, s, "POST", "/rates/regenerate", `{"category":"volunteer","seed_price":"10"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown category status = %d, want 400", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := do(t, s, "GET", "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}

	do(t, s, "POST", "/quotes", quoteBody)
	rec := do(t, s, "GET", "/metrics", "")
	if !strings.Contains(rec.Body.String(), `interpreting_pricing_quotes_total{outcome="ok"} 1`) {
		t.Errorf("metrics missing quote counter:\n%s", rec.Body.String())
	}

	empty := NewServer("test", Deps{Registry: rates.NewRegistry()})
	if rec := do(t, empty, "GET", "/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("empty registry health status = %d, want 503", rec.Code)
	}
}
