// Package catalog loads the static assessment catalog from disk.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hiringlab/assessrec/internal/domain"
)

// record mirrors one catalog JSON entry.
type record struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	DurationMinutes *int     `json:"duration_minutes"`
	Tags            []string `json:"tags"`
	Description     string   `json:"description"`
}

// Load reads and validates the catalog file. Records sharing an id collapse to
// the last occurrence with a warning. A record missing id, title or url makes
// the whole catalog malformed.
func Load(path string, logger *zap.Logger) ([]domain.Assessment, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data, logger)
}

// Parse decodes catalog JSON into validated assessments.
func Parse(data []byte, logger *zap.Logger) ([]domain.Assessment, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse catalog: %v: %w", err, domain.ErrMalformedCatalog)
	}

	seen := make(map[string]int, len(records))
	assessments := make([]domain.Assessment, 0, len(records))

	for i, r := range records {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, fmt.Errorf("catalog record %d: missing id: %w", i, domain.ErrMalformedCatalog)
		}
		if strings.TrimSpace(r.Title) == "" {
			return nil, fmt.Errorf("catalog record %q: missing title: %w", id, domain.ErrMalformedCatalog)
		}
		if strings.TrimSpace(r.URL) == "" {
			return nil, fmt.Errorf("catalog record %q: missing url: %w", id, domain.ErrMalformedCatalog)
		}

		duration := domain.DurationUnknown
		if r.DurationMinutes != nil && *r.DurationMinutes >= 0 {
			duration = *r.DurationMinutes
		}

		a := domain.Assessment{
			ID:              id,
			Title:           strings.TrimSpace(r.Title),
			URL:             strings.TrimSpace(r.URL),
			DurationMinutes: duration,
			Tags:            normalizeTags(r.Tags),
			Description:     strings.TrimSpace(r.Description),
		}

		if prev, ok := seen[id]; ok {
			logger.Warn("Duplicate catalog id, keeping last occurrence",
				zap.String("id", id),
				zap.Int("first_index", prev),
				zap.Int("replaced_by", i),
			)
			for j := range assessments {
				if assessments[j].ID == id {
					assessments[j] = a
					break
				}
			}
			seen[id] = i
			continue
		}

		seen[id] = i
		assessments = append(assessments, a)
	}

	return assessments, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
