// Package api provides the HTTP REST API server for smevalue.
//
// It exposes endpoints for valuing a business, browsing stored valuations,
// rendering reports, listing the sector catalog and a WebSocket feed of
// new valuations.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/seenimoa/smevalue/internal/analysis/valuation"
	"github.com/seenimoa/smevalue/internal/config"
	"github.com/seenimoa/smevalue/internal/infra"
	"github.com/seenimoa/smevalue/internal/report"
	"github.com/seenimoa/smevalue/internal/store"
	"github.com/seenimoa/smevalue/pkg/models"
	"github.com/seenimoa/smevalue/pkg/utils"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 1 << 20

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	engine  *valuation.Engine
	store   *store.Store // nil when persistence is disabled
	wsHub   *WSHub
	limiter *infra.RateLimiter // nil when rate limiting is disabled
	reports *infra.Cache[string]
	log     zerolog.Logger
	now     func() time.Time
	version string
}

// NewServer creates a configured API server with all routes and middleware.
// st may be nil, in which case valuations are computed but not persisted.
func NewServer(cfg *config.Config, engine *valuation.Engine, st *store.Store, log zerolog.Logger) *Server {
	srv := &Server{
		cfg:     cfg,
		engine:  engine,
		store:   st,
		wsHub:   NewWSHub(),
		reports: infra.NewCache[string](10*time.Minute, 256),
		log:     log.With().Str("component", "api").Logger(),
		now:     time.Now,
		version: "dev",
	}
	if cfg.API.RateLimitPerSec > 0 {
		srv.limiter = infra.NewRateLimiter(cfg.API.RateLimitPerSec, cfg.API.RateLimitBurst)
	}

	srv.router = srv.buildRouter()
	return srv
}

// SetVersion sets the version reported by the health endpoint.
func (s *Server) SetVersion(v string) {
	s.version = v
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server and blocks until SIGINT/SIGTERM,
// then shuts down gracefully.
func (s *Server) ListenAndServe(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx, addr)
}

// Serve runs the HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.wsHub.Run(hubCtx)
	go s.sweepReports(hubCtx, reportSweepInterval)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// reportSweepInterval is how often expired rendered reports are dropped.
const reportSweepInterval = time.Minute

// sweepReports clears expired entries from the report cache every interval
// until ctx is cancelled.
func (s *Server) sweepReports(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reports.Cleanup()
		}
	}
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	timeout := time.Duration(s.cfg.API.RequestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket is long-lived; keep it outside the timeout group.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))

			r.Get("/health", s.handleHealth)

			// Valuations
			r.Get("/valuations", s.handleListValuations)
			r.Get("/valuations/{id}", s.handleGetValuation)
			r.Get("/valuations/{id}/report", s.handleValuationReport)
			r.With(s.requireAuth, s.rateLimit).Post("/valuations", s.handleCreateValuation)
			r.With(s.requireAuth).Delete("/valuations/{id}", s.handleDeleteValuation)

			// Sector catalog
			r.Get("/sectors", s.handleListSectors)
			r.Get("/sectors/{code}", s.handleGetSector)

			// Configuration
			r.Get("/config", s.handleGetConfig)
			r.Get("/config/keys", s.handleGetConfigKeys)
		})
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ValuationResponse is the body for a created valuation.
type ValuationResponse struct {
	ID        string                  `json:"id,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	Persisted bool                    `json:"persisted"`
	Warning   string                  `json:"warning,omitempty"`
	Report    *models.ValuationReport `json:"report"`
}

// ValuationSummary is the list entry for a stored valuation.
type ValuationSummary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	SectorCode string    `json:"sector_code"`
	SectorName string    `json:"sector_name"`
	Typical    float64   `json:"typical"`
	Minimum    float64   `json:"minimum"`
	Maximum    float64   `json:"maximum"`
	Confidence float64   `json:"confidence"`
}

// SectorSummary is the list entry for a catalog sector.
type SectorSummary struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	RevenueMult  float64 `json:"revenue_multiple"`
	EBITDAMult   float64 `json:"ebitda_multiple"`
	MarginBench  float64 `json:"benchmark_margin_pct"`
	GrowthBench  float64 `json:"benchmark_growth_pct"`
	RetentionPct float64 `json:"benchmark_retention_pct"`
}

func summarize(rec store.Record) ValuationSummary {
	return ValuationSummary{
		ID:         rec.ID,
		CreatedAt:  rec.CreatedAt,
		SectorCode: rec.Report.SectorCode,
		SectorName: rec.Report.SectorName,
		Typical:    rec.Report.Range.Typical,
		Minimum:    rec.Report.Range.Minimum,
		Maximum:    rec.Report.Range.Maximum,
		Confidence: rec.Report.Range.Confidence,
	}
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":     "ok",
			"version":    s.version,
			"time_uk":    utils.FormatDateTimeUK(s.now()),
			"sectors":    s.engine.Catalog().Len(),
			"store":      s.store != nil,
			"ws_clients": s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleCreateValuation(w http.ResponseWriter, r *http.Request) {
	var req models.ValuationRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.now()
	in := req.ToInputs(utils.AsOfYear(now))

	rep, err := s.engine.Calculate(in)
	if err != nil {
		if errors.Is(err, valuation.ErrInsufficientData) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.log.Error().Err(err).Msg("valuation failed")
		writeError(w, http.StatusInternalServerError, "valuation failed")
		return
	}

	resp := ValuationResponse{CreatedAt: now.UTC(), Report: rep}
	if s.store != nil {
		rec := store.NewRecord(in, rep)
		rec.CreatedAt = resp.CreatedAt
		if err := s.store.Save(rec); err != nil {
			s.log.Error().Err(err).Msg("persist valuation")
			resp.Warning = "valuation computed but could not be saved"
		} else {
			resp.ID = rec.ID
			resp.Persisted = true
		}
	} else {
		resp.Warning = "persistence disabled; valuation not saved"
	}

	s.wsHub.Broadcast(WSMessage{
		Type: EventValuationCreated,
		Data: ValuationSummary{
			ID:         resp.ID,
			CreatedAt:  resp.CreatedAt,
			SectorCode: rep.SectorCode,
			SectorName: rep.SectorName,
			Typical:    rep.Range.Typical,
			Minimum:    rep.Range.Minimum,
			Maximum:    rep.Range.Maximum,
			Confidence: rep.Range.Confidence,
		},
	})

	writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    resp,
	})
}

func (s *Server) handleListValuations(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	sector := valuation.NormalizeSectorCode(r.URL.Query().Get("sector"))

	recs, err := s.store.List(sector, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("list valuations")
		writeError(w, http.StatusInternalServerError, "failed to list valuations")
		return
	}

	out := make([]ValuationSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, summarize(rec))
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    out,
	})
}

func (s *Server) handleGetValuation(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRecord(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    rec,
	})
}

func (s *Server) handleDeleteValuation(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "valuation not found: "+id)
			return
		}
		s.log.Error().Err(err).Str("id", id).Msg("delete valuation")
		writeError(w, http.StatusInternalServerError, "failed to delete valuation")
		return
	}
	s.reports.InvalidatePrefix(id + ":")

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]string{"status": "deleted", "id": id},
	})
}

var contentTypes = map[report.ReportFormat]string{
	report.FormatHTML:     "text/html; charset=utf-8",
	report.FormatMarkdown: "text/markdown; charset=utf-8",
	report.FormatText:     "text/plain; charset=utf-8",
}

func (s *Server) handleValuationReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, ok := s.loadRecord(w, r)
	if !ok {
		return
	}

	key := rec.ID + ":" + string(format)
	body, cached := s.reports.Get(key)
	if !cached {
		cfg := report.DefaultReportConfig()
		cfg.GeneratedAt = rec.CreatedAt
		body, err = report.Generate(&rec.Report, &rec.Inputs, format, cfg)
		if err != nil {
			s.log.Error().Err(err).Str("id", rec.ID).Msg("render report")
			writeError(w, http.StatusInternalServerError, "failed to render report")
			return
		}
		s.reports.Set(key, body)
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body)) //nolint:errcheck
}

func (s *Server) handleListSectors(w http.ResponseWriter, r *http.Request) {
	profiles := s.engine.Catalog().Sectors()
	out := make([]SectorSummary, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, SectorSummary{
			Code:         p.Code,
			Name:         p.Name,
			Category:     p.Category,
			RevenueMult:  p.BaseMultiple.Revenue,
			EBITDAMult:   p.BaseMultiple.EBITDA,
			MarginBench:  p.Benchmarks.ProfitMarginPct,
			GrowthBench:  p.Benchmarks.GrowthRatePct,
			RetentionPct: p.Benchmarks.CustomerRetentionPct,
		})
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    out,
	})
}

func (s *Server) handleGetSector(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	profile, ok := s.engine.Catalog().Lookup(code)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown sector: "+code)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    profile,
	})
}

// ============================================================
// Helpers
// ============================================================

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return false
	}
	return true
}

func (s *Server) loadRecord(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	if !s.requireStore(w) {
		return nil, false
	}
	id := chi.URLParam(r, "id")
	rec, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "valuation not found: "+id)
			return nil, false
		}
		s.log.Error().Err(err).Str("id", id).Msg("get valuation")
		writeError(w, http.StatusInternalServerError, "failed to load valuation")
		return nil, false
	}
	return rec, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
