package domain

// Metric identifies the vector distance metric used for similarity
// ranking. The metric is fixed when the index is created; mixing
// metrics across the store's lifetime is a configuration error.
type Metric string

const (
	// MetricCosine ranks by cosine distance (1 - cosine similarity).
	// This is the default.
	MetricCosine Metric = "cosine"

	// MetricEuclidean ranks by Euclidean (L2) distance.
	MetricEuclidean Metric = "euclidean"
)

// Valid reports whether the metric is a known value.
func (m Metric) Valid() bool {
	return m == MetricCosine || m == MetricEuclidean
}

// SearchOptions configures a similarity query.
type SearchOptions struct {
	// Limit is the maximum number of results (k). Defaults to 5.
	Limit int

	// Filter restricts the candidate set by metadata equality before
	// ranking. All pairs must match.
	Filter map[string]string
}

// Hit represents a single ranked search result.
type Hit struct {
	// Record is the matched embedding record.
	Record Record

	// Distance is the vector distance to the query under the
	// configured metric. Results are ordered by ascending distance,
	// ties broken by record ID.
	Distance float64
}
