package reader_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"enpole.fr/paddock/internal/reader"
)

func TestFetchText_PlainText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); !strings.Contains(got, "paddock-reader") {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Ligne une.\r\n\r\n  Ligne   deux.  \n"))
	}))
	defer server.Close()

	text, err := reader.FetchText(context.Background(), server.URL, "titre")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Ligne une.\n\nLigne deux." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestFetchText_ArticleHTML(t *testing.T) {
	t.Parallel()

	page := `<!DOCTYPE html>
<html lang="fr">
<head><title>Essais libres</title></head>
<body>
<article>
<h1>Essais libres</h1>
<p>Le pilote a signé le meilleur temps de la première séance d'essais libres,
devançant son coéquipier de plus de deux dixièmes sur un tour rapide.</p>
<p>Les écuries ont consacré la fin de séance aux longs relais en prévision
de la course de dimanche, sous une chaleur inhabituelle pour la saison.</p>
</article>
</body>
</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	text, err := reader.FetchText(context.Background(), server.URL, "Essais libres")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "meilleur temps") {
		t.Fatalf("expected article body in extracted text, got %q", text)
	}
}

func TestFetchText_RejectsErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	if _, err := reader.FetchText(context.Background(), server.URL, ""); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestFetchText_RequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := reader.FetchText(context.Background(), "   ", "titre"); err == nil {
		t.Fatal("expected error for blank URL")
	}
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	got := reader.CleanText("  un\tdeux  \r\n\r\n trois \r quatre ")
	want := "un deux\n\ntrois\n\nquatre"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		raw       string
		maxChars  int
		want      string
		truncated bool
	}{
		{name: "short text untouched", raw: "pole position", maxChars: 50, want: "pole position"},
		{name: "clipped with ellipsis", raw: "abcdefghij", maxChars: 5, want: "abcd…", truncated: true},
		{name: "zero max keeps all", raw: "abcdefghij", maxChars: 0, want: "abcdefghij"},
		{name: "blank input", raw: "   ", maxChars: 5, want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, truncated := reader.TruncateText(tc.raw, tc.maxChars)
			if got != tc.want || truncated != tc.truncated {
				t.Fatalf("got (%q, %v), want (%q, %v)", got, truncated, tc.want, tc.truncated)
			}
		})
	}
}
