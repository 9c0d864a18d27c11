package chi

import "github.com/hiringlab/assessrec/internal/domain"

// Error codes returned to clients.
const (
	codeBadRequest          = "bad_request"
	codeValidationFailed    = "validation_failed"
	codeMalformedCatalog    = "malformed_catalog"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeNotFound            = "not_found"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type recordDTO struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Description     string   `json:"description,omitempty"`
}

type pushDocsRequest struct {
	Records []recordDTO `json:"records"`
}

type pushDocsResponse struct {
	UpsertedCount int      `json:"upserted_count"`
	FailedIDs     []string `json:"failed_ids,omitempty"`
}

type contextRequest struct {
	Query string `json:"query"`
	K     *int   `json:"k,omitempty"`
}

type candidateDTO struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	DurationMinutes int      `json:"duration_minutes"`
	Tags            []string `json:"tags,omitempty"`
	Description     string   `json:"description,omitempty"`
	Score           float64  `json:"score"`
	Rank            int      `json:"rank"`
}

type contextResponse struct {
	Candidates []candidateDTO `json:"candidates"`
}

type responseRequest struct {
	Query string `json:"query"`
	K     *int   `json:"k,omitempty"`
}

type recommendationDTO struct {
	Title           string `json:"title"`
	URL             string `json:"url"`
	DurationMinutes int    `json:"duration_minutes"`
	Rationale       string `json:"rationale"`
}

type recommendationsResponse struct {
	Recommendations []recommendationDTO `json:"recommendations"`
}

type healthResponse struct {
	Status             string            `json:"status"`
	Checks             map[string]string `json:"checks"`
	IndexedAssessments int64             `json:"indexed_assessments,omitempty"`
}

func recordToDomain(r recordDTO) domain.Assessment {
	duration := domain.DurationUnknown
	if r.DurationMinutes != nil && *r.DurationMinutes >= 0 {
		duration = *r.DurationMinutes
	}
	return domain.Assessment{
		ID:              r.ID,
		Title:           r.Title,
		URL:             r.URL,
		DurationMinutes: duration,
		Tags:            r.Tags,
		Description:     r.Description,
	}
}

func candidateToDTO(c domain.Candidate) candidateDTO {
	return candidateDTO{
		ID:              c.Assessment.ID,
		Title:           c.Assessment.Title,
		URL:             c.Assessment.URL,
		DurationMinutes: c.Assessment.DurationMinutes,
		Tags:            c.Assessment.Tags,
		Description:     c.Assessment.Description,
		Score:           c.Score,
		Rank:            c.Rank,
	}
}

func recommendationToDTO(r domain.Recommendation) recommendationDTO {
	return recommendationDTO{
		Title:           r.Title,
		URL:             r.URL,
		DurationMinutes: r.DurationMinutes,
		Rationale:       r.Rationale,
	}
}
