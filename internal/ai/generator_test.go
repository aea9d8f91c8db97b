package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/nyashahama/retriever-digest/internal/ai"
	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/richctx"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

type stubGenerator struct {
	text    string
	summary model.Summary
	err     error
	calls   int
}

func (s *stubGenerator) GenerateShortContent(context.Context, model.InspirationKind, []string) (string, error) {
	s.calls++
	return s.text, s.err
}

func (s *stubGenerator) GenerateMotivationalSummary(context.Context, richctx.Context) (model.Summary, error) {
	s.calls++
	return s.summary, s.err
}

// discardLogger returns a *slog.Logger that silently drops all log output.
// Use this instead of nil: fallback.go calls f.logger.Warn() which panics on nil.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var sampleContext = richctx.Context{Date: "2026-10-15", TopOrders: []model.Order{}}

// ─── FallbackGenerator ────────────────────────────────────────────────────────

func TestFallbackGenerator_PrimarySucceeds_SecondaryNotCalled(t *testing.T) {
	primary := &stubGenerator{summary: model.Summary{Headline: "Primary", Message: "p"}}
	secondary := &stubGenerator{summary: model.Summary{Headline: "Secondary", Message: "s"}}

	gen := ai.NewFallbackGenerator(primary, secondary, discardLogger())
	got, err := gen.GenerateMotivationalSummary(context.Background(), sampleContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Headline != "Primary" {
		t.Errorf("expected primary result, got %q", got.Headline)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not be called, got %d calls", secondary.calls)
	}
}

func TestFallbackGenerator_PrimaryFails_SecondaryUsed(t *testing.T) {
	primary := &stubGenerator{err: errors.New("anthropic timeout")}
	secondary := &stubGenerator{text: "a joke"}

	gen := ai.NewFallbackGenerator(primary, secondary, discardLogger())
	got, err := gen.GenerateShortContent(context.Background(), model.KindJoke, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a joke" {
		t.Errorf("got %q", got)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("calls primary=%d secondary=%d, want 1 and 1", primary.calls, secondary.calls)
	}
}

func TestFallbackGenerator_BothFail_ReturnsError(t *testing.T) {
	gen := ai.NewFallbackGenerator(
		&stubGenerator{err: errors.New("primary error")},
		&stubGenerator{err: errors.New("secondary error")},
		discardLogger(),
	)
	if _, err := gen.GenerateMotivationalSummary(context.Background(), sampleContext); err == nil {
		t.Fatal("expected error when both generators fail")
	}
}

func TestFallbackGenerator_NilSecondary_PrimaryErrorBubbles(t *testing.T) {
	primaryErr := errors.New("primary blew up")
	gen := ai.NewFallbackGenerator(&stubGenerator{err: primaryErr}, nil, discardLogger())

	_, err := gen.GenerateShortContent(context.Background(), model.KindQuote, nil)
	if !errors.Is(err, primaryErr) {
		t.Errorf("expected to find primaryErr in chain, got: %v", err)
	}
}

func TestFallbackGenerator_NothingConfigured(t *testing.T) {
	gen := ai.NewFallbackGenerator(nil, nil, discardLogger())
	if _, err := gen.GenerateShortContent(context.Background(), model.KindQuote, nil); !errors.Is(err, ai.ErrNoProvider) {
		t.Errorf("got %v, want ErrNoProvider", err)
	}
}

// ─── Anthropic ────────────────────────────────────────────────────────────────

func TestAnthropic_Summary(t *testing.T) {
	var gotReq struct {
		Model    string `json:"model"`
		System   string `json:"system"`
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" {
			t.Errorf("missing api key header")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"`+"```json\\n"+`{\"headline\":\"Big day\",\"message\":\"Acme came through.\"}`+"\\n```"+`"}]}`)
	}))
	defer srv.Close()

	gen := ai.NewAnthropicClient("k", "claude-test", ai.WithEndpoint(srv.URL))
	got, err := gen.GenerateMotivationalSummary(context.Background(), sampleContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Headline != "Big day" || got.Message != "Acme came through." {
		t.Errorf("got %+v", got)
	}
	if gotReq.Model != "claude-test" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || !strings.Contains(gotReq.Messages[0].Content, "2026-10-15") {
		t.Errorf("prompt does not mention the digest date: %+v", gotReq.Messages)
	}
}

func TestAnthropic_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	gen := ai.NewAnthropicClient("k", "m", ai.WithEndpoint(srv.URL))
	_, err := gen.GenerateShortContent(context.Background(), model.KindQuote, nil)
	if err == nil || !strings.Contains(err.Error(), "rate_limit_error") {
		t.Errorf("got %v, want rate limit error", err)
	}
}

func TestAnthropic_UnparsableSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"Great job team!"}]}`)
	}))
	defer srv.Close()

	gen := ai.NewAnthropicClient("k", "m", ai.WithEndpoint(srv.URL))
	if _, err := gen.GenerateMotivationalSummary(context.Background(), sampleContext); err == nil {
		t.Fatal("expected parse error")
	}
}

// ─── DeepSeek ─────────────────────────────────────────────────────────────────

func TestDeepSeek_ShortContentPassesAvoidList(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing bearer token")
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"  \"Keep going.\" - Someone  "}}]}`)
	}))
	defer srv.Close()

	gen := ai.NewDeepSeekClient("k", "deepseek-chat", ai.WithEndpoint(srv.URL))
	got, err := gen.GenerateShortContent(context.Background(), model.KindQuote, []string{"Old quote"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `"Keep going." - Someone` {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(body, "Old quote") {
		t.Errorf("avoid list not sent: %s", body)
	}
}

func TestDeepSeek_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	gen := ai.NewDeepSeekClient("k", "m", ai.WithEndpoint(srv.URL))
	if _, err := gen.GenerateShortContent(context.Background(), model.KindJoke, nil); err == nil {
		t.Fatal("expected error")
	}
}

// ─── Bedrock ──────────────────────────────────────────────────────────────────

type fakeBedrock struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeBedrock) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func TestBedrock_Summary(t *testing.T) {
	fake := &fakeBedrock{body: `{"content":[{"type":"text","text":"{\"headline\":\"Steady\",\"message\":\"On pace.\"}"}]}`}
	gen := ai.NewBedrockClientFromAPI(fake, "")

	got, err := gen.GenerateMotivationalSummary(context.Background(), sampleContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Headline != "Steady" {
		t.Errorf("got %+v", got)
	}
	if *fake.input.ModelId != ai.DefaultBedrockModel {
		t.Errorf("model = %q", *fake.input.ModelId)
	}
	var sent map[string]any
	if err := json.Unmarshal(fake.input.Body, &sent); err != nil {
		t.Fatalf("request body not JSON: %v", err)
	}
	if sent["anthropic_version"] != "bedrock-2023-05-31" {
		t.Errorf("anthropic_version = %v", sent["anthropic_version"])
	}
}

func TestBedrock_InvokeError(t *testing.T) {
	gen := ai.NewBedrockClientFromAPI(&fakeBedrock{err: errors.New("throttled")}, "m")
	if _, err := gen.GenerateShortContent(context.Background(), model.KindJoke, nil); err == nil {
		t.Fatal("expected error")
	}
}
