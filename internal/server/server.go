// Package server exposes the simulator, the opportunity scores and the
// stored market data over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dubai-invest/dubai-invest/internal/market"
	"github.com/dubai-invest/dubai-invest/internal/simulator"
	"github.com/dubai-invest/dubai-invest/internal/storage"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Store is the persistence the API reads and writes.
type Store interface {
	Districts(ctx context.Context) ([]market.District, error)
	District(ctx context.Context, id int64) (market.District, error)
	DistrictStats(ctx context.Context, districtID int64, year int) ([]market.Snapshot, error)
	AllStats(ctx context.Context, year int) ([]market.Snapshot, error)
	SupplyPipeline(ctx context.Context, districtID int64) ([]market.SupplyRecord, error)
	Opportunities(ctx context.Context, year int) ([]storage.Opportunity, error)

	AddFavorite(ctx context.Context, session storage.SessionID, districtID int64) (storage.Favorite, error)
	RemoveFavorite(ctx context.Context, session storage.SessionID, districtID int64) error
	Favorites(ctx context.Context, session storage.SessionID) ([]storage.Favorite, error)

	SaveSimulation(ctx context.Context, sim storage.Simulation) (storage.Simulation, error)
	Simulations(ctx context.Context, session storage.SessionID) ([]storage.Simulation, error)
	DeleteSimulation(ctx context.Context, id int64) error
}

// Simulator runs simulations, possibly from a cache. hit reports a cached
// result.
type Simulator interface {
	Simulate(ctx context.Context, raw simulator.RawInputs) (result *simulator.Result, hit bool, err error)
}

type handler struct {
	store       Store
	sims        Simulator
	validate    *validator.Validate
	limiter     *RateLimiter
	logger      *zap.Logger
	maxBodySize int64
	defaultYear int
	version     string
	now         func() time.Time
}

// Server is the HTTP API with its listener lifecycle.
type Server struct {
	cfg     *Config
	handler *handler
	mux     http.Handler
	logger  *zap.Logger
}

// New constructs the API server. A nil logger is replaced by a no-op logger.
func New(cfg *Config, store Store, sims Simulator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &handler{
		store:       store,
		sims:        sims,
		validate:    validator.New(),
		limiter:     NewRateLimiter(cfg.RateLimitPerMinute),
		logger:      logger,
		maxBodySize: cfg.BodySizeBytes(),
		defaultYear: cfg.DefaultYear,
		version:     cfg.Version,
		now:         time.Now,
	}

	return &Server{cfg: cfg, handler: h, mux: h.routes(), logger: logger}
}

// Handler returns the API's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Close releases the server's background resources. Callers that serve
// Handler themselves must call it; Run does so on return.
func (s *Server) Close() {
	s.handler.limiter.Stop()
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("API listening",
			zap.String("op", "server.Run"),
			zap.String("address", s.cfg.Address),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server.Run: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down", zap.String("op", "server.Run"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server.Run: shutdown: %w", err)
	}
	return nil
}

func (h *handler) routes() http.Handler {
	mux := http.NewServeMux()

	// Simulator
	mux.HandleFunc("POST /api/simulate", h.handleSimulate)

	// Sessions and their saved simulations and favorites
	mux.HandleFunc("POST /api/sessions", h.handleNewSession)
	mux.HandleFunc("GET /api/simulations/{sessionId}", h.handleListSimulations)
	mux.HandleFunc("POST /api/simulations", h.handleSaveSimulation)
	mux.HandleFunc("DELETE /api/simulations/{id}", h.handleDeleteSimulation)
	mux.HandleFunc("GET /api/favorites/{sessionId}", h.handleListFavorites)
	mux.HandleFunc("POST /api/favorites", h.handleAddFavorite)
	mux.HandleFunc("DELETE /api/favorites", h.handleRemoveFavorite)

	// Market data
	mux.HandleFunc("GET /api/districts", h.handleListDistricts)
	mux.HandleFunc("GET /api/districts/{id}", h.handleDistrict)
	mux.HandleFunc("GET /api/districts/{id}/stats", h.handleDistrictStats)
	mux.HandleFunc("GET /api/market-stats", h.handleMarketStats)
	mux.HandleFunc("GET /api/market/trends", h.handleTrends)
	mux.HandleFunc("GET /api/stats/global", h.handleGlobalStats)
	mux.HandleFunc("GET /api/opportunities", h.handleOpportunities)

	mux.HandleFunc("GET /api/version", h.handleVersion)

	return h.rateLimit(mux)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimulate"

	var raw simulator.RawInputs
	if !h.decodeBody(w, r, &raw, op) {
		return
	}

	result, ok := h.simulate(w, r, raw, op)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// simulate runs raw and writes the error response itself when the inputs
// cannot produce a result.
func (h *handler) simulate(w http.ResponseWriter, r *http.Request, raw simulator.RawInputs, op string) (*simulator.Result, bool) {
	result, hit, err := h.sims.Simulate(r.Context(), raw)
	switch {
	case errors.Is(err, simulator.ErrInvalidFinancing), errors.Is(err, simulator.ErrInvalidHoldingPeriod):
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return nil, false
	case err != nil:
		h.serverError(w, "failed to run simulation", op, err)
		return nil, false
	case result == nil:
		h.respondErrorWithOp(w, http.StatusUnprocessableEntity, "insufficient input", op)
		return nil, false
	}

	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	return result, true
}

func (h *handler) handleNewSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusCreated, map[string]storage.SessionID{
		"sessionId": storage.NewSessionID(),
	})
}

func (h *handler) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListSimulations"

	sims, err := h.store.Simulations(r.Context(), storage.SessionID(r.PathValue("sessionId")))
	if err != nil {
		h.serverError(w, "failed to fetch simulations", op, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sims)
}

type saveSimulationRequest struct {
	SessionID    string              `json:"sessionId" validate:"required"`
	Name         string              `json:"name" validate:"required,max=200"`
	DistrictName string              `json:"districtName"`
	Inputs       simulator.RawInputs `json:"inputs"`
}

func (h *handler) handleSaveSimulation(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSaveSimulation"

	var req saveSimulationRequest
	if !h.decodeBody(w, r, &req, op) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing required fields", op)
		return
	}

	result, ok := h.simulate(w, r, req.Inputs, op)
	if !ok {
		return
	}

	saved, err := h.store.SaveSimulation(r.Context(), storage.Simulation{
		SessionID:    storage.SessionID(req.SessionID),
		Name:         strings.TrimSpace(req.Name),
		DistrictName: req.DistrictName,
		Inputs:       req.Inputs,
		Results:      result,
	})
	if err != nil {
		h.serverError(w, "failed to save simulation", op, err)
		return
	}

	h.logger.Info("simulation saved",
		zap.String("op", op),
		zap.Int64("id", saved.ID),
		zap.String("sessionId", req.SessionID),
	)
	h.writeJSON(w, http.StatusCreated, saved)
}

func (h *handler) handleDeleteSimulation(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDeleteSimulation"

	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}

	err := h.store.DeleteSimulation(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.respondErrorWithOp(w, http.StatusNotFound, "simulation not found", op)
		return
	case err != nil:
		h.serverError(w, "failed to delete simulation", op, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type favoriteRequest struct {
	SessionID  string `json:"sessionId" validate:"required"`
	DistrictID int64  `json:"districtId" validate:"required,gt=0"`
}

func (h *handler) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListFavorites"

	favorites, err := h.store.Favorites(r.Context(), storage.SessionID(r.PathValue("sessionId")))
	if err != nil {
		h.serverError(w, "failed to fetch favorites", op, err)
		return
	}
	h.writeJSON(w, http.StatusOK, favorites)
}

func (h *handler) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAddFavorite"

	req, ok := h.decodeFavorite(w, r, op)
	if !ok {
		return
	}

	district, err := h.store.District(r.Context(), req.DistrictID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.respondErrorWithOp(w, http.StatusNotFound, "district not found", op)
		return
	case err != nil:
		h.serverError(w, "failed to add favorite", op, err)
		return
	}

	fav, err := h.store.AddFavorite(r.Context(), storage.SessionID(req.SessionID), req.DistrictID)
	if err != nil {
		h.serverError(w, "failed to add favorite", op, err)
		return
	}
	fav.District = &district
	h.writeJSON(w, http.StatusOK, fav)
}

func (h *handler) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRemoveFavorite"

	req, ok := h.decodeFavorite(w, r, op)
	if !ok {
		return
	}
	if err := h.store.RemoveFavorite(r.Context(), storage.SessionID(req.SessionID), req.DistrictID); err != nil {
		h.serverError(w, "failed to remove favorite", op, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *handler) decodeFavorite(w http.ResponseWriter, r *http.Request, op string) (favoriteRequest, bool) {
	var req favoriteRequest
	if !h.decodeBody(w, r, &req, op) {
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing sessionId or districtId", op)
		return req, false
	}
	return req, true
}

func (h *handler) handleListDistricts(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListDistricts"

	districts, err := h.store.Districts(r.Context())
	if err != nil {
		h.serverError(w, "failed to fetch districts", op, err)
		return
	}
	h.writeJSON(w, http.StatusOK, districts)
}

type districtResponse struct {
	District market.District       `json:"district"`
	Stats    []market.Snapshot     `json:"stats"`
	Supply   []market.SupplyRecord `json:"supply"`
	Metrics  market.Metrics        `json:"metrics"`
}

func (h *handler) handleDistrict(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDistrict"

	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}

	district, err := h.store.District(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.respondErrorWithOp(w, http.StatusNotFound, "district not found", op)
		return
	case err != nil:
		h.serverError(w, "failed to fetch district", op, err)
		return
	}

	stats, err := h.store.DistrictStats(r.Context(), id, 0)
	if err != nil {
		h.serverError(w, "failed to fetch district", op, err)
		return
	}
	supply, err := h.store.SupplyPipeline(r.Context(), id)
	if err != nil {
		h.serverError(w, "failed to fetch district", op, err)
		return
	}

	h.writeJSON(w, http.StatusOK, districtResponse{
		District: district,
		Stats:    stats,
		Supply:   supply,
		Metrics:  market.ComputeMetrics(stats),
	})
}

func (h *handler) handleDistrictStats(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDistrictStats"

	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}
	year, ok := h.queryYear(w, r, 0, op)
	if !ok {
		return
	}

	stats, err := h.store.DistrictStats(r.Context(), id, year)
	if err != nil {
		h.serverError(w, "failed to fetch district stats", op, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *handler) handleMarketStats(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleMarketStats"

	year, ok := h.queryYear(w, r, 0, op)
	if !ok {
		return
	}
	stats, err := h.store.AllStats(r.Context(), year)
	if err != nil {
		h.serverError(w, "failed to fetch market stats", op, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *handler) handleTrends(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleTrends"

	raw := strings.TrimSpace(r.URL.Query().Get("district_id"))
	if raw == "" {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing district_id", op)
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid district_id %q", raw), op)
		return
	}

	stats, err := h.store.DistrictStats(r.Context(), id, 0)
	if err != nil {
		h.serverError(w, "failed to fetch market trends", op, err)
		return
	}

	trend := market.FilterTrend(stats, market.TrendRange(r.URL.Query().Get("range")), h.now())
	if trend == nil {
		trend = []market.Snapshot{}
	}
	h.writeJSON(w, http.StatusOK, trend)
}

func (h *handler) handleGlobalStats(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGlobalStats"

	year, ok := h.queryYear(w, r, h.defaultYear, op)
	if !ok {
		return
	}
	stats, err := h.store.AllStats(r.Context(), 0)
	if err != nil {
		h.serverError(w, "failed to fetch global stats", op, err)
		return
	}

	summary, ok := market.Aggregate(stats, year)
	if !ok {
		summary = market.Summary{Year: year}
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *handler) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleOpportunities"

	year, ok := h.queryYear(w, r, h.defaultYear, op)
	if !ok {
		return
	}
	opportunities, err := h.store.Opportunities(r.Context(), year)
	if err != nil {
		h.serverError(w, "failed to fetch opportunities", op, err)
		return
	}
	h.writeJSON(w, http.StatusOK, opportunities)
}

func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxBodySize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) pathID(w http.ResponseWriter, r *http.Request, op string) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", raw), op)
		return 0, false
	}
	return id, true
}

// queryYear reads the optional year parameter, returning fallback when it
// is absent.
func (h *handler) queryYear(w http.ResponseWriter, r *http.Request, fallback int, op string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("year"))
	if raw == "" {
		return fallback, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid year %q", raw), op)
		return 0, false
	}
	return year, true
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Debug("request rejected",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) serverError(w http.ResponseWriter, msg string, op string, err error) {
	h.logger.Error(msg, zap.String("op", op), zap.Error(err))
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}
