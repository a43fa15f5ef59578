package ingest

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/resumatch/internal/domain/company"
)

// Entry is one record of the corpus file, a JSONL line or a CSV row.
type Entry struct {
	CompanyName   string `json:"company_name"`
	FoundedYear   Year   `json:"founded_year"`
	Location      string `json:"location"`
	Industry      string `json:"industry"`
	LatestFunding string `json:"latest_funding"`
	Website       string `json:"website"`
	LinkedIn      string `json:"linkedin"`
	Description   string `json:"description"`
	EmbeddingText string `json:"embedding_text"`
}

// Record converts the entry into a corpus record without a vector.
// EmbeddingText falls back to the descriptive fields joined by newlines.
func (e Entry) Record() company.Record {
	r := company.Record{
		Name:          strings.TrimSpace(e.CompanyName),
		FoundedYear:   int(e.FoundedYear),
		Location:      strings.TrimSpace(e.Location),
		Industry:      strings.TrimSpace(e.Industry),
		LatestFunding: strings.TrimSpace(e.LatestFunding),
		Website:       strings.TrimSpace(e.Website),
		LinkedIn:      strings.TrimSpace(e.LinkedIn),
		Description:   strings.TrimSpace(e.Description),
		EmbeddingText: strings.TrimSpace(e.EmbeddingText),
	}
	if r.EmbeddingText == "" {
		r.EmbeddingText = composeText(r)
	}
	return r
}

func composeText(r company.Record) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{r.Name, r.Industry, r.Location, r.Description} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) <= 1 {
		// a bare name carries no signal worth embedding
		return ""
	}
	return strings.Join(parts, "\n")
}

// Year is a founding year read leniently: 2017, 2017.0, "2017" and "2017.0"
// all give 2017. Blank or unparseable values give 0, meaning unknown.
type Year int

// UnmarshalJSON accepts a number, a numeric string or null.
func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*y = ParseYear(s)
		return nil
	}
	*y = ParseYear(string(data))
	return nil
}

// ParseYear truncates a decimal year string. "null" and garbage give 0.
func ParseYear(s string) Year {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return Year(math.Trunc(f))
}
