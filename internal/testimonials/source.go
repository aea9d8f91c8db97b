// Package testimonials fetches customer reviews from the external
// testimonial service. The source is best effort: any failure yields an empty
// list and a warning, never an error.
package testimonials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nyashahama/retriever-digest/internal/model"
)

// Source is the contract the digest consumes.
type Source interface {
	FetchCandidates(ctx context.Context, limit int) []model.Testimonial
}

type httpSource struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPSource returns a Source reading GET endpoint?limit=N. An empty
// endpoint yields a Source that always returns nothing.
func NewHTTPSource(endpoint, apiKey string, logger *slog.Logger) Source {
	return &httpSource{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// ─── API SHAPES ───────────────────────────────────────────────────────────────

type reviewJSON struct {
	ID         model.FlexString `json:"id"`
	Author     string           `json:"author"`
	AuthorName string           `json:"author_name"`
	Text       string           `json:"text"`
	Rating     int              `json:"rating"`
	Source     string           `json:"source"`
	Date       string           `json:"date"`
	CreatedAt  string           `json:"created_at"`
}

type listJSON struct {
	Testimonials []reviewJSON `json:"testimonials"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// FetchCandidates returns up to limit testimonials, or an empty list on any
// failure.
func (s *httpSource) FetchCandidates(ctx context.Context, limit int) []model.Testimonial {
	if s.endpoint == "" || limit <= 0 {
		return []model.Testimonial{}
	}
	out, err := s.fetch(ctx, limit)
	if err != nil {
		s.logger.Warn("testimonials: fetch failed", "error", err)
		return []model.Testimonial{}
	}
	return out
}

func (s *httpSource) fetch(ctx context.Context, limit int) ([]model.Testimonial, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// The service has answered both as a bare array and wrapped in an object.
	var reviews []reviewJSON
	if trimmed := strings.TrimSpace(string(body)); strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(body, &reviews)
	} else {
		var wrapped listJSON
		err = json.Unmarshal(body, &wrapped)
		reviews = wrapped.Testimonials
	}
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]model.Testimonial, 0, min(limit, len(reviews)))
	for _, r := range reviews {
		if len(out) == limit {
			break
		}
		t, ok := r.testimonial()
		if !ok {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r reviewJSON) testimonial() (model.Testimonial, bool) {
	id := strings.TrimSpace(string(r.ID))
	text := strings.TrimSpace(r.Text)
	if id == "" || text == "" {
		return model.Testimonial{}, false
	}
	author := r.Author
	if author == "" {
		author = r.AuthorName
	}
	raw := r.Date
	if raw == "" {
		raw = r.CreatedAt
	}
	return model.Testimonial{
		ID:     id,
		Author: strings.TrimSpace(author),
		Text:   text,
		Rating: r.Rating,
		Source: r.Source,
		Date:   parseDate(raw),
	}, true
}

// parseDate accepts RFC 3339 or a bare day. Unknown formats give the zero
// time, which counts as old for freshness.
func parseDate(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
