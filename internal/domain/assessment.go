package domain

import (
	"sort"
	"strings"
)

// KeyPrefix namespaces all keys this service writes to the store.
const KeyPrefix = "assessrec:"

// DurationUnknown marks an assessment whose duration is not published in the catalog.
const DurationUnknown = -1

// MaxRecommendations caps the size of any recommendation set.
const MaxRecommendations = 10

// Assessment is a single catalog entry. Immutable once ingested; re-ingestion
// replaces the whole record, never patches it.
type Assessment struct {
	ID              string
	Title           string
	URL             string
	DurationMinutes int // DurationUnknown if not published
	Tags            []string
	Description     string
}

// EmbeddingText builds the normalized text an assessment is embedded under:
// title, sorted space-joined tags, then description, truncated to maxChars.
func (a *Assessment) EmbeddingText(maxChars int) string {
	tags := make([]string, len(a.Tags))
	copy(tags, a.Tags)
	sort.Strings(tags)

	var b strings.Builder
	b.WriteString(strings.TrimSpace(a.Title))
	if len(tags) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(tags, " "))
	}
	if d := strings.TrimSpace(a.Description); d != "" {
		b.WriteString(" ")
		b.WriteString(d)
	}

	text := b.String()
	if maxChars > 0 && len(text) > maxChars {
		text = text[:maxChars]
	}
	return text
}

// Candidate is a retrieval hit. It lives only for the duration of one request.
type Candidate struct {
	Assessment Assessment
	Score      float64
	Rank       int // 1-based, descending score order
}

// Recommendation is a single entry of the final answer. Every field except
// Rationale is copied verbatim from the candidate it derives from.
type Recommendation struct {
	Title           string
	URL             string
	DurationMinutes int
	Rationale       string
}

// RecommendationSet is the ordered answer, at most MaxRecommendations long.
// Ordering is the generator's relevance order, not necessarily similarity rank.
type RecommendationSet []Recommendation

// Clamp truncates the set to MaxRecommendations, preserving order.
func (s RecommendationSet) Clamp() RecommendationSet {
	if len(s) > MaxRecommendations {
		return s[:MaxRecommendations]
	}
	return s
}
