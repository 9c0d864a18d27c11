package compose

import "strings"

// tableRow is one parsed row of the generator's markdown response.
type tableRow struct {
	Title     string
	URL       string
	Rationale string
}

// parseResponse extracts table rows from the generator output. Header and
// separator rows, fenced code markers and any surrounding prose are skipped.
func parseResponse(text string) []tableRow {
	var rows []tableRow

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}

		cells := splitCells(line)
		if len(cells) < 2 {
			continue
		}
		if isHeaderOrSeparator(cells) {
			continue
		}

		row := tableRow{
			Title: cells[0],
			URL:   cells[1],
		}
		if len(cells) > 2 {
			row.Rationale = cells[2]
		}
		if row.Title == "" || row.URL == "" {
			continue
		}
		rows = append(rows, row)
	}

	return rows
}

func splitCells(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func isHeaderOrSeparator(cells []string) bool {
	sep := true
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			sep = false
			break
		}
	}
	if sep {
		return true
	}
	first := strings.ToLower(cells[0])
	return first == "title"
}
