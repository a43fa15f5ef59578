package chi

import (
	"encoding/json"

	"github.com/kailas-cloud/resumatch/internal/domain/company"
	domusage "github.com/kailas-cloud/resumatch/internal/domain/usage"
	matchuc "github.com/kailas-cloud/resumatch/internal/usecase/match"
)

// TextMatchRequest is the body of POST /match/text.
type TextMatchRequest struct {
	Text    string          `json:"text"`
	Filters json.RawMessage `json:"filters,omitempty"`
}

// UploadResponse is the body of POST /upload.
type UploadResponse struct {
	Success    bool   `json:"success"`
	Filename   string `json:"filename"`
	Text       string `json:"text"`
	TextLength int    `json:"textLength"`
}

// RewriteRequest is the body of POST /rewrite-resume.
type RewriteRequest struct {
	RawText string `json:"rawText"`
	Style   string `json:"style,omitempty"`
}

// RewriteResponse is the success body of POST /rewrite-resume.
type RewriteResponse struct {
	Success   bool     `json:"success"`
	Rewritten string   `json:"rewritten"`
	Bullets   []string `json:"bullets"`
	Style     string   `json:"style"`
}

// CoverLetterRequest is the body of POST /cover-letter.
type CoverLetterRequest struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}

// CoverLetterResponse is the success body of POST /cover-letter.
type CoverLetterResponse struct {
	Success     bool   `json:"success"`
	CoverLetter string `json:"coverLetter"`
}

// MatchItem is one ranked company.
type MatchItem struct {
	CompanyName   string  `json:"company_name"`
	FoundedYear   *int    `json:"founded_year,omitempty"`
	Location      string  `json:"location,omitempty"`
	Industry      string  `json:"industry,omitempty"`
	LatestFunding string  `json:"latest_funding,omitempty"`
	Website       string  `json:"website,omitempty"`
	LinkedIn      string  `json:"linkedin,omitempty"`
	Description   string  `json:"description,omitempty"`
	Similarity    float64 `json:"similarity"`
}

// MatchResponse is the success body of both match routes.
type MatchResponse struct {
	Success       bool        `json:"success"`
	Matches       []MatchItem `json:"matches"`
	Count         int         `json:"count"`
	Authenticated bool        `json:"authenticated"`
	Limit         int         `json:"limit"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageResponse is the body of GET /usage.
type UsageResponse struct {
	Period      string `json:"period"`
	PeriodStart int64  `json:"period_start_ms"`
	PeriodEnd   int64  `json:"period_end_ms"`
	Provider    string `json:"provider"`
	TokensUsed  int64  `json:"tokens_used"`
	TokensLimit int64  `json:"tokens_limit"`
	Remaining   int64  `json:"tokens_remaining"`
	IsExhausted bool   `json:"is_exhausted"`
}

// NewMatchResponse renders a match outcome.
func NewMatchResponse(out matchuc.Outcome) MatchResponse {
	items := make([]MatchItem, len(out.Matches))
	for i := range out.Matches {
		items[i] = matchItemFromDomain(out.Matches[i])
	}
	return MatchResponse{
		Success:       true,
		Matches:       items,
		Count:         len(items),
		Authenticated: out.Access.Authenticated,
		Limit:         out.Access.ResultLimit,
	}
}

func matchItemFromDomain(m company.Match) MatchItem {
	item := MatchItem{
		CompanyName:   m.Name,
		Location:      m.Location,
		Industry:      m.Industry,
		LatestFunding: m.LatestFunding,
		Website:       m.Website,
		LinkedIn:      m.LinkedIn,
		Description:   m.Description,
		Similarity:    m.Similarity,
	}
	if m.FoundedYear > 0 {
		y := m.FoundedYear
		item.FoundedYear = &y
	}
	return item
}

func usageFromDomain(r domusage.Report) UsageResponse {
	return UsageResponse{
		Period:      string(r.Period),
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
		Provider:    r.Provider,
		TokensUsed:  r.Used,
		TokensLimit: r.Limit,
		Remaining:   r.Remaining,
		IsExhausted: r.Exhausted(),
	}
}
