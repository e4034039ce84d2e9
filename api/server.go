// Package api - Thin HTTP layer over the pricing engine.
// The API is ONLY responsible for: input decoding, engine orchestration, output serialization.
// The API NEVER performs pricing logic.
package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"interpreting-pricing/core/quote"
	"interpreting-pricing/core/rates"
	apperrors "interpreting-pricing/internal/errors"
	"interpreting-pricing/internal/logging"
	"interpreting-pricing/internal/metrics"
)

// Deps are the collaborators the server delegates to
type Deps struct {
	Quotes   *quote.Service
	Registry *rates.Registry

	// Store is optional; without it regeneration only swaps the in-memory table
	Store rates.Store

	// Metrics is optional; without it /metrics is not served
	Metrics *metrics.Metrics
}

// Server is the API server
type Server struct {
	deps    Deps
	mux     *http.ServeMux
	version string
	log     *zap.Logger
}

// NewServer creates a new API server
func NewServer(version string, deps Deps) *Server {
	s := &Server{
		deps:    deps,
		mux:     http.NewServeMux(),
		version: version,
		log:     logging.Component("api"),
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("POST /quotes", s.handleQuote)
	s.mux.HandleFunc("GET /rates", s.handleRates)
	s.mux.HandleFunc("POST /rates/regenerate", s.handleRegenerate)

	// Supporting endpoints
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /version", s.handleVersion)
	if s.deps.Metrics != nil {
		s.mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}
}

// QuoteResponse wraps a quote with request metadata
type QuoteResponse struct {
	*quote.Quote
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata describes how a response was produced
type ResponseMetadata struct {
	InputHash     string `json:"input_hash"`
	EngineVersion string `json:"engine_version"`
	DurationMs    int64  `json:"duration_ms"`
}

// handleQuote handles POST /quotes
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req quote.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.Parsing("decode quote request", err))
		return
	}

	// NO PRICING LOGIC HERE
	q, err := s.deps.Quotes.Quote(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, QuoteResponse{
		Quote: q,
		Metadata: ResponseMetadata{
			InputHash:     computeInputHash(req),
			EngineVersion: s.version,
			DurationMs:    time.Since(start).Milliseconds(),
		},
	}, http.StatusOK)
}

// handleRates handles GET /rates. A fully specified key returns one row or
// 404; a partial filter returns the matching rows.
func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	f, complete, err := parseFilter(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if complete {
		k := rates.KeyFor(rates.Service{Category: f.Category, Scheduling: f.Scheduling, Channel: f.Channel, Mode: f.Mode}, f.Qualifier, f.Sequence)
		row, err := s.deps.Registry.Rate(r.Context(), k)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, row, http.StatusOK)
		return
	}

	table := s.deps.Registry.Current()
	found := table.Find(f)
	if found == nil {
		found = []rates.Row{}
	}
	s.writeJSON(w, map[string]any{
		"version": table.Version,
		"rows":    found,
		"count":   len(found),
	}, http.StatusOK)
}

// RegenerateRequest is the body of POST /rates/regenerate
type RegenerateRequest struct {
	Category  string          `json:"category"`
	SeedPrice decimal.Decimal `json:"seed_price"`
}

// handleRegenerate handles POST /rates/regenerate
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req RegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.Parsing("decode regenerate request", err))
		return
	}
	category, err := rates.ParseCategory(req.Category)
	if err != nil {
		s.writeError(w, apperrors.Input("%v", err))
		return
	}

	table, err := s.deps.Registry.Regenerate(r.Context(), s.deps.Store, category, req.SeedPrice)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]any{
		"id":           table.ID.String(),
		"version":      table.Version,
		"content_hash": table.ContentHash,
		"rows":         table.Len(),
		"persisted":    s.deps.Store != nil,
	}, http.StatusOK)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	table := s.deps.Registry.Current()
	status, code := "healthy", http.StatusOK
	if table.Len() == 0 {
		status, code = "no rates loaded", http.StatusServiceUnavailable
	}
	s.writeJSON(w, map[string]any{
		"status":        status,
		"version":       s.version,
		"table_version": table.Version,
		"time":          time.Now().UTC().Format(time.RFC3339),
	}, code)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"version":     s.version,
		"engine":      "interpreting-pricing",
		"api_version": "v1",
	}, http.StatusOK)
}

func (s *Server) writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	errType := apperrors.TypeOf(err)
	status := statusFor(errType)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, map[string]any{
		"error": map[string]string{
			"code":    string(errType),
			"message": err.Error(),
		},
	}, status)
}

// statusFor maps error types to HTTP status codes
func statusFor(t apperrors.Type) int {
	switch t {
	case apperrors.TypeInput, apperrors.TypeParsing:
		return http.StatusBadRequest
	case apperrors.TypeConfig:
		return http.StatusUnprocessableEntity
	case apperrors.TypeNotFound:
		return http.StatusNotFound
	case apperrors.TypeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Helper functions

func computeInputHash(req quote.Request) string {
	data, _ := json.Marshal(req)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func parseFilter(r *http.Request) (rates.Filter, bool, error) {
	q := r.URL.Query()
	var (
		f   rates.Filter
		err error
	)
	parse := func(name string, fn func(string) error) {
		if err != nil || q.Get(name) == "" {
			return
		}
		if perr := fn(q.Get(name)); perr != nil {
			err = apperrors.Input("%v", perr)
		}
	}

	parse("category", func(v string) (e error) { f.Category, e = rates.ParseCategory(v); return })
	parse("scheduling", func(v string) (e error) { f.Scheduling, e = rates.ParseScheduling(v); return })
	parse("channel", func(v string) (e error) { f.Channel, e = rates.ParseChannel(v); return })
	parse("mode", func(v string) (e error) { f.Mode, e = rates.ParseMode(v); return })
	parse("qualifier", func(v string) (e error) { f.Qualifier, e = rates.ParseQualifier(v); return })
	parse("sequence", func(v string) (e error) { f.Sequence, e = rates.ParseSequence(v); return })
	if err != nil {
		return f, false, err
	}

	complete := f.Category != "" && f.Scheduling != "" && f.Channel != "" &&
		f.Mode != "" && f.Qualifier != "" && f.Sequence != ""
	return f, complete, nil
}
