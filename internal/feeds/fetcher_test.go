package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func rssDocument(entries ...string) string {
	body := ""
	for _, entry := range entries {
		body += entry
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Test Feed</title>` + body + `</channel></rss>`
}

func rssEntry(title, link, pubDate string) string {
	return fmt.Sprintf(
		`<item><title>%s</title><link>%s</link><description>desc</description><pubDate>%s</pubDate></item>`,
		title, link, pubDate,
	)
}

func TestFetchAll_IsolatesFailingSource(t *testing.T) {
	t.Parallel()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rssDocument(rssEntry("Verstappen fastest in practice", "https://example.com/a", "Mon, 02 Jun 2025 10:00:00 GMT")))
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	sources := []Source{
		{Name: "Good A", URL: good.URL},
		{Name: "Broken", URL: bad.URL},
		{Name: "Good B", URL: good.URL},
		{Name: "Unreachable", URL: "http://127.0.0.1:1/rss"},
		{Name: "Good C", URL: good.URL},
	}

	fetcher := NewFetcher(sources, 20, zerolog.Nop())
	items := fetcher.FetchAll(context.Background())

	if len(items) != 3 {
		t.Fatalf("expected 3 items from healthy sources, got %d", len(items))
	}
	for _, item := range items {
		if item.Source == "Broken" || item.Source == "Unreachable" {
			t.Fatalf("unexpected item from failing source %q", item.Source)
		}
	}
}

func TestFetchAll_AppliesPerSourceCap(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		entries := make([]string, 0, 5)
		for i := 0; i < 5; i++ {
			entries = append(entries, rssEntry(
				fmt.Sprintf("Headline number %d from the paddock", i),
				fmt.Sprintf("https://example.com/%d", i),
				"Mon, 02 Jun 2025 10:00:00 GMT",
			))
		}
		fmt.Fprint(w, rssDocument(entries...))
	}))
	defer server.Close()

	fetcher := NewFetcher([]Source{{Name: "Capped", URL: server.URL}}, 2, zerolog.Nop())
	items := fetcher.FetchAll(context.Background())

	if len(items) != 2 {
		t.Fatalf("expected per-source cap of 2, got %d items", len(items))
	}
}

func TestFetchAll_FallsBackToFetchTimeOnBadDate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rssDocument(`<item><title>Undated headline</title><link>https://example.com/u</link><pubDate>not a date</pubDate></item>`))
	}))
	defer server.Close()

	before := time.Now().UTC().Add(-time.Minute)
	fetcher := NewFetcher([]Source{{Name: "Undated", URL: server.URL}}, 20, zerolog.Nop())
	items := fetcher.FetchAll(context.Background())

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].PublishedAt.Before(before) {
		t.Fatalf("expected published_at to fall back to fetch time, got %v", items[0].PublishedAt)
	}
	if !items[0].PublishedAt.Equal(items[0].FetchedAt) {
		t.Fatalf("expected published_at == fetched_at on fallback")
	}
}

func TestFetchAll_SkipsEntriesWithoutTitle(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rssDocument(
			`<item><title>  </title><link>https://example.com/blank</link></item>`,
			rssEntry("Alonso extends contract", "https://example.com/alonso", "Tue, 03 Jun 2025 08:00:00 GMT"),
		))
	}))
	defer server.Close()

	fetcher := NewFetcher([]Source{{Name: "Mixed", URL: server.URL}}, 20, zerolog.Nop())
	items := fetcher.FetchAll(context.Background())

	if len(items) != 1 {
		t.Fatalf("expected blank-title entry to be skipped, got %d items", len(items))
	}
	if items[0].Title != "Alonso extends contract" {
		t.Fatalf("unexpected surviving title: %q", items[0].Title)
	}
}
