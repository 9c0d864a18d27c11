package compose

import (
	"fmt"
	"strings"

	"github.com/hiringlab/assessrec/internal/domain"
)

// buildPrompt renders the candidate table the generator chooses from.
// The instruction pins the output format so parseResponse can read it back.
func buildPrompt(query string, candidates []domain.Candidate) string {
	var b strings.Builder

	b.WriteString("You are an assessment recommendation assistant for hiring teams.\n")
	b.WriteString("Given a job requirement and a list of candidate assessments, pick the most relevant ones.\n\n")
	b.WriteString("Job requirement:\n")
	b.WriteString(query)
	b.WriteString("\n\nCandidate assessments:\n\n")

	b.WriteString("| Title | URL | Duration (minutes) | Tags | Description |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, c := range candidates {
		a := c.Assessment
		duration := "unknown"
		if a.DurationMinutes != domain.DurationUnknown {
			duration = fmt.Sprintf("%d", a.DurationMinutes)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			sanitizeCell(a.Title),
			sanitizeCell(a.URL),
			duration,
			sanitizeCell(strings.Join(a.Tags, ", ")),
			sanitizeCell(a.Description),
		)
	}

	b.WriteString("\nRespond with a markdown table only, no prose before or after. Columns:\n")
	b.WriteString("| Title | URL | Rationale |\n")
	b.WriteString("Use only assessments from the candidate table above, copy Title and URL exactly,\n")
	fmt.Fprintf(&b, "order rows from most to least relevant, and return between 1 and %d rows.\n",
		domain.MaxRecommendations)
	b.WriteString("Rationale must be one short sentence tying the assessment to the requirement.\n")

	return b.String()
}

// sanitizeCell keeps table cells on one line and free of pipe characters.
func sanitizeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "/")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
