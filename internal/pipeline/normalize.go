package pipeline

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const keyTokenLimit = 8

var urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)

// stopwords mixes French and English function words with racing-news terms
// that carry no grouping signal. One fixed list, no locale detection.
var stopwords = buildStopwordSet(
	// French function words
	"au", "aux", "avec", "ce", "ces", "cette", "dans", "de", "des", "du",
	"elle", "en", "est", "et", "il", "ils", "je", "la", "le", "les", "leur",
	"lui", "mais", "même", "mes", "moi", "mon", "ne", "nos", "notre", "nous",
	"on", "ont", "ou", "où", "par", "pas", "plus", "pour", "près", "qu",
	"que", "qui", "sa", "se", "ses", "son", "sont", "sur", "ta", "te", "tes",
	"toi", "ton", "tu", "un", "une", "vos", "votre", "vous", "y", "à", "été",
	"être",
	// English function words
	"a", "an", "and", "are", "as", "at", "be", "been", "but", "by", "for",
	"from", "has", "have", "he", "her", "his", "in", "is", "it", "its", "of",
	"on", "or", "she", "that", "the", "this", "to", "was", "were", "will",
	"with",
	// Racing-news noise terms
	"after", "announce", "announces", "annonce", "après", "breaking",
	"course", "exclusive", "f1", "formula", "formule", "gagne", "gp",
	"grand", "new", "news", "nouveau", "nouvelle", "official", "officiel",
	"prix", "race", "racing", "remporte", "said", "says", "take", "takes",
	"took", "victoire", "victory", "vainqueur", "win", "winner", "wins",
)

func buildStopwordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}

// normalizeText lowercases the input, strips URLs, keeps letters (accented
// forms included), digits, apostrophes, hyphens and spaces, and collapses
// whitespace runs.
func normalizeText(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))
	if lowered == "" {
		return ""
	}
	lowered = urlPattern.ReplaceAllString(lowered, " ")

	var b strings.Builder
	b.Grow(len(lowered))
	lastSpace := false
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-':
			b.WriteRune(r)
			lastSpace = false
		case r == '’':
			b.WriteRune('\'')
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// tokenize splits free text into normalized, stopword-filtered tokens.
func tokenize(text string) []string {
	fields := strings.Fields(normalizeText(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if _, ok := stopwords[field]; ok {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

func tokenSet(text string) map[string]struct{} {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// DeriveKey produces the dedup key for a story title: stopword-filtered
// tokens longer than two runes, sorted lexicographically, capped at eight,
// joined with "-" and hashed with FNV-64a (hex encoded). FNV-64a is content
// addressed and stable across process restarts and platforms, unlike the
// runtime's seeded map hash; the collision risk is acceptable at a few
// thousand stories per month.
func DeriveKey(title string) string {
	tokens := tokenize(title)
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if utf8.RuneCountInString(token) <= 2 {
			continue
		}
		kept = append(kept, token)
	}
	sort.Strings(kept)
	if len(kept) > keyTokenLimit {
		kept = kept[:keyTokenLimit]
	}

	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(strings.Join(kept, "-")))
	return fmt.Sprintf("%016x", hasher.Sum64())
}
