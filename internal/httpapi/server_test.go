package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"enpole.fr/paddock/internal/db"
	"enpole.fr/paddock/internal/pipeline"
)

type fakeStoryLister struct {
	items []db.StorySummary
	err   error
	limit int
}

func (f *fakeStoryLister) ListRecentStories(_ context.Context, limit int) ([]db.StorySummary, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeRunner struct {
	stats pipeline.RunStats
	err   error
	calls int
}

func (f *fakeRunner) RunNow(_ context.Context) (pipeline.RunStats, error) {
	f.calls++
	if f.err != nil {
		return pipeline.RunStats{}, f.err
	}
	return f.stats, nil
}

type fakeChatter struct {
	reply   string
	err     error
	message string
}

func (f *fakeChatter) Chat(_ context.Context, message string) (string, error) {
	f.message = message
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestServer(stories StoryLister, runner Runner, chatter Chatter, secret string) *Server {
	return NewServer(stories, runner, chatter, zerolog.Nop(), Options{TriggerSecret: secret})
}

func newEchoContext(method, target string, body string, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeJSend(t *testing.T, rec *httptest.ResponseRecorder) jsendResponse {
	t.Helper()
	var resp jsendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeStoryLister{}, nil, nil, "")
	c, rec := newEchoContext(http.MethodGet, "/api/v1/health", "", nil)

	if err := server.handleHealth(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	resp := decodeJSend(t, rec)
	if resp.Status != "success" {
		t.Fatalf("unexpected jsend status %q", resp.Status)
	}
	data := resp.Data.(map[string]any)
	if data["service"] != "paddock" {
		t.Fatalf("unexpected service name %v", data["service"])
	}
}

func TestHandleStories_DefaultLimit(t *testing.T) {
	t.Parallel()

	lister := &fakeStoryLister{items: []db.StorySummary{{
		StoryID:     7,
		Title:       "Verstappen remporte le Grand Prix de Monaco",
		Summary:     "Victoire nette en principauté.",
		PrimaryURL:  "https://autosport.example/monaco",
		Sources:     []string{"Autosport", "RaceFans"},
		PublishedAt: time.Date(2026, 5, 24, 15, 0, 0, 0, time.UTC),
	}}}
	server := newTestServer(lister, nil, nil, "")

	c, rec := newEchoContext(http.MethodGet, "/api/v1/stories", "", nil)
	if err := server.handleStories(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if lister.limit != defaultStoryLimit {
		t.Fatalf("expected default limit %d, got %d", defaultStoryLimit, lister.limit)
	}

	resp := decodeJSend(t, rec)
	data := resp.Data.(map[string]any)
	items := data["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 story, got %d", len(items))
	}
	story := items[0].(map[string]any)
	if story["title"] != "Verstappen remporte le Grand Prix de Monaco" {
		t.Fatalf("unexpected title %v", story["title"])
	}
}

func TestHandleStories_RejectsInvalidLimit(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeStoryLister{}, nil, nil, "")

	for _, limit := range []string{"abc", "0", "9999"} {
		c, rec := newEchoContext(http.MethodGet, "/api/v1/stories?limit="+limit, "", nil)
		if err := server.handleStories(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("limit %q: expected 400, got %d", limit, rec.Code)
		}
	}
}

func TestHandleStories_StoreFailure(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeStoryLister{err: errors.New("db down")}, nil, nil, "")

	c, rec := newEchoContext(http.MethodGet, "/api/v1/stories", "", nil)
	if err := server.handleStories(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHandleRun_RequiresValidToken(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{stats: pipeline.RunStats{StoriesPublished: 2}}
	server := newTestServer(&fakeStoryLister{}, runner, nil, "pit-wall-secret")

	c, rec := newEchoContext(http.MethodPost, "/api/v1/run", "", map[string]string{
		TriggerTokenHeader: "wrong",
	})
	if err := server.handleRun(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if runner.calls != 0 {
		t.Fatalf("runner must not run on bad token, got %d calls", runner.calls)
	}

	c, rec = newEchoContext(http.MethodPost, "/api/v1/run", "", map[string]string{
		TriggerTokenHeader: "pit-wall-secret",
	})
	if err := server.handleRun(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if runner.calls != 1 {
		t.Fatalf("expected 1 run, got %d", runner.calls)
	}

	resp := decodeJSend(t, rec)
	data := resp.Data.(map[string]any)
	if data["stories_published"] != float64(2) {
		t.Fatalf("unexpected stats payload %v", resp.Data)
	}
}

func TestHandleRun_DisabledWithoutSecret(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeStoryLister{}, &fakeRunner{}, nil, "")

	c, rec := newEchoContext(http.MethodPost, "/api/v1/run", "", nil)
	if err := server.handleRun(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHandleRun_RunnerFailure(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeStoryLister{}, &fakeRunner{err: errors.New("feeds down")}, nil, "s3cret")

	c, rec := newEchoContext(http.MethodPost, "/api/v1/run", "", map[string]string{
		TriggerTokenHeader: "s3cret",
	})
	if err := server.handleRun(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHandleChat(t *testing.T) {
	t.Parallel()

	chatter := &fakeChatter{reply: "Leclerc a signé la pole en 2024."}
	server := newTestServer(&fakeStoryLister{}, nil, chatter, "")

	c, rec := newEchoContext(http.MethodPost, "/api/v1/chat", `{"message":"Qui a la pole à Monaco ?"}`, nil)
	if err := server.handleChat(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if chatter.message != "Qui a la pole à Monaco ?" {
		t.Fatalf("unexpected forwarded message %q", chatter.message)
	}

	resp := decodeJSend(t, rec)
	data := resp.Data.(map[string]any)
	if data["reply"] != "Leclerc a signé la pole en 2024." {
		t.Fatalf("unexpected reply %v", data["reply"])
	}
}

func TestHandleChat_Validation(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeStoryLister{}, nil, &fakeChatter{}, "")

	c, rec := newEchoContext(http.MethodPost, "/api/v1/chat", `{"message":"   "}`, nil)
	if err := server.handleChat(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank message, got %d", rec.Code)
	}
}

func TestHandleChat_BackendFailure(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeStoryLister{}, nil, &fakeChatter{err: errors.New("timeout")}, "")

	c, rec := newEchoContext(http.MethodPost, "/api/v1/chat", `{"message":"Salut"}`, nil)
	if err := server.handleChat(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestHandleChat_Unavailable(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeStoryLister{}, nil, nil, "")

	c, rec := newEchoContext(http.MethodPost, "/api/v1/chat", `{"message":"Salut"}`, nil)
	if err := server.handleChat(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
