package db

import (
	"reflect"
	"testing"
)

func TestJoinSources_SortsAndDedupes(t *testing.T) {
	t.Parallel()

	got := JoinSources([]string{"Motorsport", "Autosport", " Motorsport ", ""})
	if got != "Autosport,Motorsport" {
		t.Fatalf("unexpected serialized sources: %q", got)
	}
}

func TestSplitSources_RoundTrip(t *testing.T) {
	t.Parallel()

	got := SplitSources("Autosport,Motorsport")
	want := []string{"Autosport", "Motorsport"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected sources: got %v want %v", got, want)
	}
}

func TestSplitSources_Empty(t *testing.T) {
	t.Parallel()

	if got := SplitSources(""); len(got) != 0 {
		t.Fatalf("expected no sources for empty input, got %v", got)
	}
}
