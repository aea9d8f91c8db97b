package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nyashahama/retriever-digest/internal/dates"
	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/richctx"
)

// ─── POST /api/export ─────────────────────────────────────────────────────────

type ingestExportResponse struct {
	Success bool   `json:"success"`
	Date    string `json:"date"`
}

// handleIngestExport stores the nightly export. Re-posting a day replaces
// that day's record but keeps its cached inspiration.
func (s *Server) handleIngestExport(w http.ResponseWriter, r *http.Request) {
	var p model.ExportPayload
	// Exports carry full invoice lists.
	if !decodeLimit(w, r, &p, 8<<20) {
		return
	}

	rec, err := p.Validate(s.cfg.Location, s.now())
	if err != nil {
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.SaveExport(r.Context(), rec); err != nil {
		if errors.Is(err, model.ErrMissingExportDate) {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondInternalErr(w, r, fmt.Errorf("save export: %w", err))
		return
	}

	day := rec.ExportDate.Format(dates.DayLayout)
	s.logger.Info("export: ingested",
		"date", day,
		"source", rec.ExportSource,
		"invoices", len(rec.Invoices),
		logField(r),
	)
	respond(w, http.StatusOK, ingestExportResponse{Success: true, Date: day})
}

// ─── GET /api/export/recent ───────────────────────────────────────────────────

const (
	defaultRecentDays = 7
	maxRecentDays     = 90
)

type recentExport struct {
	Date         string    `json:"date"`
	ReceivedAt   time.Time `json:"receivedAt"`
	ExportSource string    `json:"exportSource"`
	AccountNames []string  `json:"accountNames"`
}

type recentExportsResponse struct {
	RecentDigests []recentExport `json:"recentDigests"`
}

// handleRecentExports lists the exports of the last ?days=N days, newest
// first, so the export job can check what has landed.
func (s *Server) handleRecentExports(w http.ResponseWriter, r *http.Request) {
	days := defaultRecentDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondErr(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = min(n, maxRecentDays)
	}

	now := s.now().In(s.cfg.Location)
	start := now.AddDate(0, 0, -days).Format(dates.DayLayout)
	end := now.Format(dates.DayLayout)

	recs, err := s.q.ListExportsInRange(r.Context(), start, end)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list exports: %w", err))
		return
	}

	out := make([]recentExport, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		_, top := richctx.ResolveTopOrders(rec)
		names := []string{}
		for _, o := range top {
			if o.AccountName != "" {
				names = append(names, o.AccountName)
			}
		}
		out = append(out, recentExport{
			Date:         rec.ExportDate.Format(dates.DayLayout),
			ReceivedAt:   rec.ReceivedAt,
			ExportSource: rec.ExportSource,
			AccountNames: names,
		})
	}
	respond(w, http.StatusOK, recentExportsResponse{RecentDigests: out})
}
