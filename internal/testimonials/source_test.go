package testimonials_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/retriever-digest/internal/testimonials"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCandidates_Wrapped(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"testimonials":[
		{"id":"r1","author":"Pat","text":"Fast turnaround!","rating":5,"date":"2026-10-01"},
		{"id":42,"author_name":"Lee","text":"Great colour match.","created_at":"2026-09-01T10:00:00Z"},
		{"id":"r3","text":"   "},
		{"id":"r4","author":"Sam","text":"Would order again."}
	]}`)

	src := testimonials.NewHTTPSource(srv.URL, "key", discardLogger())
	got := src.FetchCandidates(context.Background(), 3)

	require.Len(t, got, 3)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), got[0].Date)
	assert.Equal(t, "42", got[1].ID)
	assert.Equal(t, "Lee", got[1].Author)
	assert.Equal(t, "r4", got[2].ID, "blank text is skipped")
	assert.True(t, got[2].Date.IsZero())
}

func TestFetchCandidates_BareArray(t *testing.T) {
	srv := serve(t, http.StatusOK, `[{"id":"a","text":"Nice."}]`)
	got := testimonials.NewHTTPSource(srv.URL, "", discardLogger()).FetchCandidates(context.Background(), 3)
	require.Len(t, got, 1)
}

func TestFetchCandidates_FailuresReturnEmpty(t *testing.T) {
	for name, srv := range map[string]*httptest.Server{
		"server error": serve(t, http.StatusInternalServerError, `oops`),
		"bad json":     serve(t, http.StatusOK, `{"testimonials":`),
	} {
		t.Run(name, func(t *testing.T) {
			got := testimonials.NewHTTPSource(srv.URL, "", discardLogger()).FetchCandidates(context.Background(), 3)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}

	unreachable := testimonials.NewHTTPSource("http://127.0.0.1:1", "", discardLogger())
	assert.Empty(t, unreachable.FetchCandidates(context.Background(), 3))

	unset := testimonials.NewHTTPSource("", "", discardLogger())
	assert.Empty(t, unset.FetchCandidates(context.Background(), 3))
}
