// Package api serves reconstructed positions and portfolio metrics over
// JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"dlmm-viewer/internal/dlmm"
	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/metrics"
	"dlmm-viewer/internal/observability"
)

// Reconstructor is the engine capability the API serves; implemented by
// engine.Runner.
type Reconstructor interface {
	ReconstructWallet(ctx context.Context, wallet string) ([]*domain.PositionLiquidityData, error)
}

// apiError is the standard JSON error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	errCodeInvalidWallet   = "INVALID_WALLET"
	errCodeInvalidCurrency = "INVALID_CURRENCY"
	errCodeReconstruction  = "RECONSTRUCTION_FAILED"
)

// Server is the HTTP API server.
type Server struct {
	router        *mux.Router
	engine        Reconstructor
	referenceMint string
	logger        zerolog.Logger
}

// NewServer creates an API server over the given reconstruction engine.
// referenceMint is the default settlement currency for portfolio rollups.
func NewServer(engine Reconstructor, referenceMint string, logger zerolog.Logger) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		engine:        engine,
		referenceMint: referenceMint,
		logger:        logger.With().Str("component", "api").Logger(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth()).Methods("GET")
	s.router.HandleFunc("/api/v1/positions", s.handlePositions()).Methods("GET")
	s.router.HandleFunc("/api/v1/portfolio", s.handlePortfolio()).Methods("GET")
	s.router.Handle("/metrics", observability.Handler()).Methods("GET")
	s.router.Use(s.instrument)
}

// Handler returns the server's root handler with CORS applied, ready for
// http.Server.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		observability.RecordHTTPRequest(route, strconv.Itoa(rec.status), time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

func (s *Server) handlePositions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet := r.URL.Query().Get("wallet")
		if _, err := dlmm.DecodeBase58Pubkey(wallet); err != nil {
			writeJSONError(w, http.StatusBadRequest, errCodeInvalidWallet,
				"wallet must be a base58 public key")
			return
		}

		positions, err := s.engine.ReconstructWallet(r.Context(), wallet)
		if err != nil {
			s.logger.Error().Err(err).Str("wallet", wallet).Msg("wallet reconstruction failed")
			writeJSONError(w, http.StatusBadGateway, errCodeReconstruction,
				"position reconstruction failed, try again later")
			return
		}

		views := make([]*PositionView, 0, len(positions))
		for _, p := range positions {
			views = append(views, NewPositionView(p))
		}
		writeJSON(w, http.StatusOK, PositionsResponse{Wallet: wallet, Positions: views})
	}
}

func (s *Server) handlePortfolio() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet := r.URL.Query().Get("wallet")
		if _, err := dlmm.DecodeBase58Pubkey(wallet); err != nil {
			writeJSONError(w, http.StatusBadRequest, errCodeInvalidWallet,
				"wallet must be a base58 public key")
			return
		}

		currency := r.URL.Query().Get("currency")
		if currency == "" {
			currency = s.referenceMint
		}
		if _, err := dlmm.DecodeBase58Pubkey(currency); err != nil {
			writeJSONError(w, http.StatusBadRequest, errCodeInvalidCurrency,
				"currency must be a base58 mint address")
			return
		}

		positions, err := s.engine.ReconstructWallet(r.Context(), wallet)
		if err != nil {
			s.logger.Error().Err(err).Str("wallet", wallet).Msg("wallet reconstruction failed")
			writeJSONError(w, http.StatusBadGateway, errCodeReconstruction,
				"position reconstruction failed, try again later")
			return
		}

		rollup := metrics.RollUp(positions, currency)
		writeJSON(w, http.StatusOK, NewPortfolioView(wallet, currency, len(positions), rollup))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]apiError{"error": {Code: code, Message: message}})
}
