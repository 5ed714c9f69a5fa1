// Package server exposes rendered map styles, region tables and legends over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/smartmap-fr/smartmap/internal/app"
	"github.com/smartmap-fr/smartmap/internal/dataset"
	"github.com/smartmap-fr/smartmap/internal/metrics"
	"github.com/smartmap-fr/smartmap/internal/region"
)

// CacheStatser reports geometry cache statistics.
type CacheStatser interface {
	Stats() dataset.CacheStats
}

// Deps are the collaborators of the HTTP API. Cache is optional.
type Deps struct {
	Loader         app.Loader
	Years          app.YearLister
	Cache          CacheStatser
	Options        app.Options
	AllowedOrigins []string
}

// Server is the HTTP API.
type Server struct {
	deps   Deps
	router chi.Router
}

// New builds the router.
func New(deps Deps) *Server {
	s := &Server{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())
	r.Route("/api", func(api chi.Router) {
		api.Get("/years", s.years)
		api.Get("/styles/{mode}/{year}", s.style)
		api.Get("/regions/{mode}/{year}", s.regions)
		api.Get("/legend/{mode}/{year}", s.legend)
	})

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

type healthResponse struct {
	Status string              `json:"status"`
	Cache  *dataset.CacheStats `json:"cache,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.deps.Cache != nil {
		stats := s.deps.Cache.Stats()
		resp.Cache = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

type yearsResponse struct {
	Years   []int `json:"years"`
	Default *int  `json:"default"`
}

func (s *Server) years(w http.ResponseWriter, r *http.Request) {
	years, err := s.deps.Years.Years(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	resp := yearsResponse{Years: years}
	if y, ok := dataset.DefaultYear(years); ok {
		resp.Default = &y
	}
	if resp.Years == nil {
		resp.Years = []int{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) style(w http.ResponseWriter, r *http.Request) {
	g, year, ok := selection(w, r)
	if !ok {
		return
	}
	doc, _, err := app.Snapshot(r.Context(), s.deps.Loader, s.deps.Options, g, year)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	p := region.MustLookup(g)
	writeJSON(w, http.StatusOK, doc.Style(p.DisplayName+" "+strconv.Itoa(year)))
}

func (s *Server) regions(w http.ResponseWriter, r *http.Request) {
	g, year, ok := selection(w, r)
	if !ok {
		return
	}
	ds, err := s.deps.Loader.Load(r.Context(), g, year)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ds.Collection); err != nil {
		zap.L().Warn("server: encode regions", zap.Error(err))
	}
}

func (s *Server) legend(w http.ResponseWriter, r *http.Request) {
	g, year, ok := selection(w, r)
	if !ok {
		return
	}
	ds, err := s.deps.Loader.Load(r.Context(), g, year)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, app.BuildLegend(region.MustLookup(g), ds.Collection.Prices()))
}

func selection(w http.ResponseWriter, r *http.Request) (region.Granularity, int, bool) {
	g, err := region.ParseGranularity(chi.URLParam(r, "mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return "", 0, false
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year <= 0 {
		writeError(w, http.StatusBadRequest, eris.Errorf("server: invalid year %q", chi.URLParam(r, "year")))
		return "", 0, false
	}
	return g, year, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		zap.L().Error("server: request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
