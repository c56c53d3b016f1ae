package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/ctmap/internal/fetcher"
	"github.com/sells-group/ctmap/internal/geo"
	"github.com/sells-group/ctmap/internal/model"
	"github.com/sells-group/ctmap/internal/notes"
	"github.com/sells-group/ctmap/internal/recalc"
	"github.com/sells-group/ctmap/internal/session"
	"github.com/sells-group/ctmap/internal/table"
)

const (
	maxNoteBytes  = 64 << 10
	maxTableBytes = 8 << 20
)

type tableRecalculator interface {
	RecalculateAll(ctx context.Context, text string) (string, recalc.Summary, error)
}

// apiHandler serves the map host. recalc may be nil, which disables
// POST /api/recalculate.
type apiHandler struct {
	session *session.Session
	source  fetcher.Source
	recalc  tableRecalculator
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type notesResponse struct {
	Location model.Location `json:"location"`
	Warning  string         `json:"warning,omitempty"`
}

type locationsResponse struct {
	Count     int              `json:"count"`
	Locations []model.Location `json:"locations"`
}

type recalcResponse struct {
	Summary recalc.Summary `json:"summary"`
	Table   string         `json:"table"`
}

// buildRouter mounts the API routes on a chi router.
func buildRouter(h *apiHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/locations", h.listLocations)
		r.Get("/locations.geojson", h.geoJSON)
		r.Put("/locations/{name}/notes", h.updateNotes)
		r.Get("/export.csv", h.exportCSV)
		r.Get("/export.xlsx", h.exportXLSX)
		r.Post("/reload", h.reload)
		r.Post("/recalculate", h.recalculate)
	})
	return r
}

func (h *apiHandler) health(w http.ResponseWriter, _ *http.Request) {
	loaded, at := h.session.Loaded()
	body := map[string]any{"status": "ok", "loaded": loaded}
	if loaded {
		body["loaded_at"] = at.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, body)
}

// snapshot returns the loaded locations, loading the table first when no
// load has succeeded yet. It writes a 503 and returns false on failure.
func (h *apiHandler) snapshot(w http.ResponseWriter, r *http.Request) ([]model.Location, bool) {
	if loaded, _ := h.session.Loaded(); !loaded {
		if err := h.session.Load(r.Context()); err != nil {
			zap.L().Error("api: load table", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "location table could not be loaded; retry with POST /api/reload")
			return nil, false
		}
	}
	return h.session.Snapshot(), true
}

func (h *apiHandler) listLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	levels, err := parseLevels(q["level"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := session.ParseSortOrder(q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	locs, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	out := session.Sort(session.Filter{Levels: levels, Search: q.Get("q")}.Apply(locs), order)
	writeJSON(w, http.StatusOK, locationsResponse{Count: len(out), Locations: out})
}

func (h *apiHandler) geoJSON(w http.ResponseWriter, r *http.Request) {
	locs, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	b, err := geo.FeatureCollection(locs)
	if err != nil {
		zap.L().Error("api: encode geojson", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not build map feed")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(b)
}

func (h *apiHandler) updateNotes(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "invalid location name")
		return
	}

	var req notesRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxNoteBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, ok := h.snapshot(w, r); !ok {
		return
	}

	loc, err := h.session.UpdateNotes(r.Context(), name, req.Notes)
	switch {
	case errors.Is(err, session.ErrUnknownLocation):
		writeError(w, http.StatusNotFound, "unknown location")
	case errors.Is(err, notes.ErrPersistenceUnavailable):
		writeJSON(w, http.StatusOK, notesResponse{
			Location: loc,
			Warning:  "note applied but could not be saved; it will be lost on reload",
		})
	case err != nil:
		zap.L().Error("api: update notes", zap.String("name", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not update notes")
	default:
		writeJSON(w, http.StatusOK, notesResponse{Location: loc})
	}
}

func (h *apiHandler) exportCSV(w http.ResponseWriter, r *http.Request) {
	locs, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="CT_locations_with_notes.csv"`)
	_, _ = io.WriteString(w, table.SerializeTable(locs)+"\n")
}

func (h *apiHandler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	locs, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := table.WriteXLSX(&buf, locs); err != nil {
		zap.L().Error("api: write xlsx", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not build workbook")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="CT_locations_with_notes.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

func (h *apiHandler) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Load(r.Context()); err != nil {
		zap.L().Error("api: reload table", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "location table could not be loaded; the previous table is still served")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reloaded",
		"count":  len(h.session.Snapshot()),
	})
}

// recalculate runs a batch recalculation over the request body, or over the
// configured table when the body is empty, and applies the result.
func (h *apiHandler) recalculate(w http.ResponseWriter, r *http.Request) {
	if h.recalc == nil {
		writeError(w, http.StatusNotImplemented, "recalculation is not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTableBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := string(body)
	if strings.TrimSpace(text) == "" {
		if text, err = h.source.Fetch(r.Context()); err != nil {
			zap.L().Error("api: fetch table for recalc", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "location table could not be loaded")
			return
		}
	}

	updated, summary, err := h.recalc.RecalculateAll(r.Context(), text)
	if err != nil {
		zap.L().Error("api: recalculate", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "recalculation failed")
		return
	}
	if err := h.session.Apply(r.Context(), updated); err != nil {
		zap.L().Warn("api: apply recalculated table", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, recalcResponse{Summary: summary, Table: updated})
}

// parseLevels accepts repeated and comma-separated level values.
func parseLevels(values []string) ([]int, error) {
	var levels []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, errors.New("level must be an integer")
			}
			levels = append(levels, n)
		}
	}
	return levels, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs each request through zap.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
