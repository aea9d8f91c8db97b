package api

import (
	"errors"
	"net/http"

	"github.com/nyashahama/retriever-digest/internal/digest"
)

// ─── POST /api/cron/digest/{kind} · POST /api/admin/send/{kind} ───────────────

// handleRunDigest runs the digest synchronously and reports the batch
// result. Shared by the external cron caller and the admin send button.
func (s *Server) handleRunDigest(w http.ResponseWriter, r *http.Request) {
	kind, ok := digestKind(r)
	if !ok {
		respondErr(w, http.StatusBadRequest, "kind must be daily or weekly")
		return
	}

	res, err := s.digests.Run(r.Context(), kind)
	switch {
	case errors.Is(err, digest.ErrRunInProgress):
		respondErr(w, http.StatusConflict, "a "+string(kind)+" digest is already being sent")
		return
	case err != nil:
		s.respondInternalErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, res)
}

// ─── GET /api/admin/preview/{kind} ────────────────────────────────────────────

// handlePreviewDigest builds and renders without sending. Pending shoutouts
// and testimonial history are left untouched.
func (s *Server) handlePreviewDigest(w http.ResponseWriter, r *http.Request) {
	kind, ok := digestKind(r)
	if !ok {
		respondErr(w, http.StatusBadRequest, "kind must be daily or weekly")
		return
	}

	p, err := s.digests.Preview(r.Context(), kind)
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(p.HTML))
		return
	}
	respond(w, http.StatusOK, p)
}
