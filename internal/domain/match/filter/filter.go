// Package filter turns untrusted match filters into a validated Spec and
// compiles it into placeholder predicates for the corpus query.
package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// MaxValuesPerField caps the size of a single set filter.
const MaxValuesPerField = 32

// Wire names of the filter fields.
const (
	FieldIndustry      = "industry"
	FieldLocation      = "location"
	FieldFundingStage  = "fundingStage"
	FieldMinSimilarity = "minSimilarity"
)

// aliases maps the snake_case spellings older clients send to the wire names.
var aliases = map[string]string{
	"funding_stage":  FieldFundingStage,
	"min_similarity": FieldMinSimilarity,
}

// ValidationError describes why a single field was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", domain.ErrInvalidFilterSpec.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return domain.ErrInvalidFilterSpec }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Spec is a validated filter specification. The zero value has no constraints.
type Spec struct {
	industry      []string
	location      []string
	fundingStage  []string
	minSimilarity *float64
}

// NewSpec validates and creates a Spec. Nil or empty sets mean "no constraint".
func NewSpec(industry, location, fundingStage []string, minSimilarity *float64) (Spec, error) {
	var s Spec
	var err error
	if s.industry, err = normalizeSet(FieldIndustry, industry); err != nil {
		return Spec{}, err
	}
	if s.location, err = normalizeSet(FieldLocation, location); err != nil {
		return Spec{}, err
	}
	if s.fundingStage, err = normalizeSet(FieldFundingStage, fundingStage); err != nil {
		return Spec{}, err
	}
	if minSimilarity != nil {
		v := *minSimilarity
		if math.IsNaN(v) || v < 0 || v > 1 {
			return Spec{}, invalid(FieldMinSimilarity, "must be within [0,1], got %v", v)
		}
		s.minSimilarity = &v
	}
	return s, nil
}

// Parse decodes a raw JSON filter object and validates it in one step.
// Empty input and JSON null yield an empty Spec. snake_case aliases are
// accepted; any other unknown key is rejected.
func Parse(raw []byte) (Spec, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Spec{}, nil
	}

	var given map[string]json.RawMessage
	if err := json.Unmarshal(raw, &given); err != nil {
		return Spec{}, invalid("filters", "must be a JSON object")
	}
	fields, err := canonicalize(given)
	if err != nil {
		return Spec{}, err
	}

	industry, err := decodeSet(FieldIndustry, fields[FieldIndustry])
	if err != nil {
		return Spec{}, err
	}
	location, err := decodeSet(FieldLocation, fields[FieldLocation])
	if err != nil {
		return Spec{}, err
	}
	fundingStage, err := decodeSet(FieldFundingStage, fields[FieldFundingStage])
	if err != nil {
		return Spec{}, err
	}
	minSimilarity, err := decodeNumber(FieldMinSimilarity, fields[FieldMinSimilarity])
	if err != nil {
		return Spec{}, err
	}

	return NewSpec(industry, location, fundingStage, minSimilarity)
}

// Industry returns the industry set.
func (s Spec) Industry() []string { return s.industry }

// Location returns the location set.
func (s Spec) Location() []string { return s.location }

// FundingStage returns the funding stage set.
func (s Spec) FundingStage() []string { return s.fundingStage }

// MinSimilarity returns the similarity floor, or nil if unset.
func (s Spec) MinSimilarity() *float64 { return s.minSimilarity }

// IsEmpty reports whether the spec has no constraints.
func (s Spec) IsEmpty() bool {
	return len(s.industry) == 0 && len(s.location) == 0 &&
		len(s.fundingStage) == 0 && s.minSimilarity == nil
}

// canonicalize rewrites aliases to wire names. Keys are visited in sorted
// order so the reported field is stable.
func canonicalize(given map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(given))
	for _, key := range slices.Sorted(maps.Keys(given)) {
		name := key
		if canonical, ok := aliases[key]; ok {
			name = canonical
		}
		switch name {
		case FieldIndustry, FieldLocation, FieldFundingStage, FieldMinSimilarity:
		default:
			return nil, invalid(key, "unknown filter")
		}
		if _, dup := out[name]; dup {
			return nil, invalid(name, "given under more than one name")
		}
		out[name] = given[key]
	}
	return out, nil
}

func decodeSet(field string, raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var values []json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, invalid(field, "must be an array of strings")
	}
	out := make([]string, 0, len(values))
	for i, v := range values {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, invalid(field, "element %d is not a string", i)
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeNumber(field string, raw json.RawMessage) (*float64, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, invalid(field, "must be a number")
	}
	return &f, nil
}

// normalizeSet trims values, drops blanks and duplicates, keeps first-seen order.
func normalizeSet(field string, values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) > MaxValuesPerField {
		return nil, invalid(field, "too many values (max %d)", MaxValuesPerField)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
