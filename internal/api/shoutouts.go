package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/store"
)

// ─── POST /api/shoutouts ──────────────────────────────────────────────────────

func (s *Server) handleSubmitShoutout(w http.ResponseWriter, r *http.Request) {
	var form model.ShoutoutForm
	if !decode(w, r, &form) {
		return
	}
	recipientID, message, err := form.Parse()
	if err != nil {
		respondResult(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	sh, err := s.store.SubmitShoutout(r.Context(), recipientID, message)
	if err != nil {
		s.respondShoutoutErr(w, r, err)
		return
	}
	s.logger.Info("shoutout: submitted", "recipient_id", recipientID, logField(r))
	respondResult(w, http.StatusCreated, "Shoutout saved for the next digest", sh)
}

// ─── POST /api/webhooks/inbound-email ─────────────────────────────────────────

// inboundEmail is the JSON an inbound-mail provider posts for each message.
type inboundEmail struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// handleInboundEmail turns an emailed shoutout into a pending one. The
// sender's address picks the recipient. Rejections are acknowledged with
// 200 so the provider does not redeliver them.
func (s *Server) handleInboundEmail(w http.ResponseWriter, r *http.Request) {
	var msg inboundEmail
	if !decode(w, r, &msg) {
		return
	}

	addr, err := mail.ParseAddress(msg.From)
	if err != nil {
		respondResult(w, http.StatusBadRequest, "invalid sender address", nil)
		return
	}

	body := truncateRunes(strings.TrimSpace(msg.Text), model.MaxShoutoutLength)
	if body == "" {
		respond(w, http.StatusOK, result{Message: "empty message ignored"})
		return
	}

	sh, err := s.store.SubmitShoutoutByEmail(r.Context(), strings.ToLower(addr.Address), body)
	if err != nil {
		var limit *store.LimitError
		switch {
		case errors.Is(err, store.ErrRecipientNotFound),
			errors.Is(err, store.ErrRecipientInactive),
			errors.As(err, &limit):
			s.logger.Info("shoutout: inbound email rejected", "from", addr.Address, "reason", err, logField(r))
			respond(w, http.StatusOK, result{Message: err.Error()})
		default:
			s.respondInternalErr(w, r, fmt.Errorf("inbound shoutout: %w", err))
		}
		return
	}
	s.logger.Info("shoutout: submitted by email", "recipient_id", sh.RecipientID, logField(r))
	respondResult(w, http.StatusCreated, "Shoutout saved for the next digest", sh)
}

func (s *Server) respondShoutoutErr(w http.ResponseWriter, r *http.Request, err error) {
	var limit *store.LimitError
	switch {
	case errors.As(err, &limit):
		respondResult(w, http.StatusConflict, limit.Error(), nil)
	case errors.Is(err, store.ErrRecipientNotFound):
		respondResult(w, http.StatusNotFound, "Unknown team member", nil)
	case errors.Is(err, store.ErrRecipientInactive):
		respondResult(w, http.StatusUnprocessableEntity, "This team member is no longer receiving shoutouts", nil)
	default:
		s.respondInternalErr(w, r, fmt.Errorf("submit shoutout: %w", err))
	}
}

// truncateRunes cuts s to at most n characters.
func truncateRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return strings.TrimSpace(string(rs[:n]))
}
