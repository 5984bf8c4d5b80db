package pipeline

import (
	"strings"
	"time"
	"unicode/utf8"

	"enpole.fr/paddock/internal/db"
)

// similarityThreshold is the minimum Jaccard overlap between an item title
// and a group's representative title for single-linkage assignment.
const similarityThreshold = 0.55

// StoryGroup is the transient, per-run cluster of raw items reporting the
// same event. Groups are rebuilt from scratch every run and never persisted;
// only their published outcome is.
type StoryGroup struct {
	Title string
	Items []db.RawItem

	titleTokens map[string]struct{}
}

func (g *StoryGroup) add(item db.RawItem) {
	g.Items = append(g.Items, item)
	// Longer titles are presumed more informative and replace the
	// representative, which also rebases similarity for later items.
	if utf8.RuneCountInString(item.Title) > utf8.RuneCountInString(g.Title) {
		g.Title = item.Title
		g.titleTokens = tokenSet(item.Title)
	}
}

// Sources returns the distinct source names across the group's items, in
// first-seen order.
func (g *StoryGroup) Sources() []string {
	sources := make([]string, 0, len(g.Items))
	seen := make(map[string]struct{}, len(g.Items))
	for _, item := range g.Items {
		if _, ok := seen[item.Source]; ok {
			continue
		}
		seen[item.Source] = struct{}{}
		sources = append(sources, item.Source)
	}
	return sources
}

// URLs returns every non-empty item URL in arrival order. Duplicates are
// kept.
func (g *StoryGroup) URLs() []string {
	urls := make([]string, 0, len(g.Items))
	for _, item := range g.Items {
		if item.URL == "" {
			continue
		}
		urls = append(urls, item.URL)
	}
	return urls
}

// EarliestPublishedAt returns the oldest published timestamp among the
// group's items: a story's event time, not its ingestion time.
func (g *StoryGroup) EarliestPublishedAt() time.Time {
	var earliest time.Time
	for _, item := range g.Items {
		if earliest.IsZero() || item.PublishedAt.Before(earliest) {
			earliest = item.PublishedAt
		}
	}
	return earliest
}

// Confirmed reports whether enough distinct sources corroborate the group.
func (g *StoryGroup) Confirmed(minSources int) bool {
	return len(g.Sources()) >= minSources
}

// CombinedText joins the group's descriptions, falling back to titles, as
// the raw input for reformulation.
func (g *StoryGroup) CombinedText() string {
	parts := make([]string, 0, len(g.Items))
	for _, item := range g.Items {
		text := strings.TrimSpace(item.Description)
		if text == "" {
			text = strings.TrimSpace(item.Title)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// jaccard computes |a ∩ b| / |a ∪ b| over token sets, 0.0 when either set is
// empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// GroupItems clusters raw items in one greedy pass: each item joins the
// first existing group whose representative title clears the similarity
// threshold, otherwise it opens a new group. First-match-wins keeps grouping
// deterministic for identical input order, and comparing only against group
// representatives keeps the cost linear in the group count.
func GroupItems(items []db.RawItem) []*StoryGroup {
	groups := make([]*StoryGroup, 0, len(items))
	for _, item := range items {
		tokens := tokenSet(item.Title)

		var target *StoryGroup
		for _, group := range groups {
			if jaccard(tokens, group.titleTokens) >= similarityThreshold {
				target = group
				break
			}
		}
		if target == nil {
			target = &StoryGroup{}
			groups = append(groups, target)
		}
		target.add(item)
	}
	return groups
}
