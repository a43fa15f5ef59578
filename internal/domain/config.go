package domain

import "fmt"

// KeyPrefix namespaces every key resumatch writes to Redis.
const KeyPrefix = "resumatch:"

// DistanceMetric is the pgvector operator family used to rank the corpus.
type DistanceMetric string

const (
	// DistanceCosine uses the <=> operator: distance in [0,2], similarity 1 - distance.
	DistanceCosine DistanceMetric = "cosine"
	// DistanceInnerProduct uses the <#> operator, which pgvector returns negated.
	// With unit-length embeddings 1 - distance equals 1 + dot product.
	DistanceInnerProduct DistanceMetric = "inner_product"
)

// Operator returns the pgvector SQL operator for the metric.
func (m DistanceMetric) Operator() string {
	if m == DistanceInnerProduct {
		return "<#>"
	}
	return "<=>"
}

// ParseDistanceMetric validates a configured metric name. Empty means cosine.
func ParseDistanceMetric(s string) (DistanceMetric, error) {
	switch DistanceMetric(s) {
	case "", DistanceCosine:
		return DistanceCosine, nil
	case DistanceInnerProduct:
		return DistanceInnerProduct, nil
	default:
		return "", fmt.Errorf("unknown distance metric %q", s)
	}
}
