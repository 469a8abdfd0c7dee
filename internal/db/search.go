package db

// KNNQuery is the input for vector similarity search. Metadata filtering happens
// after retrieval, so the query carries no pre-filter.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to "vector"
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. Distance is the raw index distance for
// KNN hits and zero for list queries.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
