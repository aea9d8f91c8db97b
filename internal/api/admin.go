package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/store"
)

// ─── GOALS ────────────────────────────────────────────────────────────────────

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.q.ListGoals(r.Context())
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list goals: %w", err))
		return
	}
	respond(w, http.StatusOK, map[string]any{"goals": goals})
}

// handleUpsertGoal replaces the goal for MONTHLY or ANNUAL.
func (s *Server) handleUpsertGoal(w http.ResponseWriter, r *http.Request) {
	period := model.PeriodType(strings.ToUpper(chi.URLParam(r, "period")))

	var form model.GoalForm
	if !decode(w, r, &form) {
		return
	}
	g, err := form.Goal(period)
	if err != nil {
		respondResult(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	saved, err := s.q.UpsertGoal(r.Context(), g)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("upsert goal: %w", err))
		return
	}
	s.logger.Info("admin: goal saved", "period", period, "revenue", saved.SalesRevenue.String(), logField(r))
	respondResult(w, http.StatusOK, "Goal saved", saved)
}

// ─── RECIPIENTS ───────────────────────────────────────────────────────────────

func (s *Server) handleListRecipients(w http.ResponseWriter, r *http.Request) {
	rs, err := s.q.ListRecipients(r.Context())
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list recipients: %w", err))
		return
	}
	respond(w, http.StatusOK, map[string]any{"recipients": rs})
}

func (s *Server) handleCreateRecipient(w http.ResponseWriter, r *http.Request) {
	var form model.RecipientForm
	if !decode(w, r, &form) {
		return
	}
	rec, err := form.Recipient()
	if err != nil {
		respondResult(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	created, err := s.store.CreateRecipient(r.Context(), rec)
	if err != nil {
		s.respondRecipientErr(w, r, err)
		return
	}
	respondResult(w, http.StatusCreated, "Recipient added", created)
}

func (s *Server) handleUpdateRecipient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var form model.RecipientForm
	if !decode(w, r, &form) {
		return
	}
	rec, err := form.Recipient()
	if err != nil {
		respondResult(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	updated, err := s.store.UpdateRecipient(r.Context(), id, rec)
	if err != nil {
		s.respondRecipientErr(w, r, err)
		return
	}
	respondResult(w, http.StatusOK, "Recipient updated", updated)
}

func (s *Server) handleToggleRecipient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := s.store.ToggleRecipient(r.Context(), id)
	if err != nil {
		s.respondRecipientErr(w, r, err)
		return
	}
	msg := "Recipient deactivated"
	if rec.Active {
		msg = "Recipient activated"
	}
	respondResult(w, http.StatusOK, msg, rec)
}

// handleDeleteRecipient removes the recipient and, through the foreign key,
// their pending shoutouts.
func (s *Server) handleDeleteRecipient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteRecipient(r.Context(), id); err != nil {
		s.respondRecipientErr(w, r, err)
		return
	}
	respondResult(w, http.StatusOK, "Recipient deleted", nil)
}

func (s *Server) respondRecipientErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrRecipientNotFound):
		respondResult(w, http.StatusNotFound, "Recipient not found", nil)
	case errors.Is(err, store.ErrDuplicateEmail):
		respondResult(w, http.StatusConflict, "A recipient with this email already exists", nil)
	default:
		s.respondInternalErr(w, r, err)
	}
}
