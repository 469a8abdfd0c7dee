package db

// IndexBuilder assembles an IndexDefinition fluently.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts a hash-backed index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name, StorageType: StorageHash}}
}

// Prefix adds key prefixes covered by the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// HNSW sets the vector field to an approximate HNSW graph.
func (b *IndexBuilder) HNSW(field string, dim int, distance DistanceMetric, p HNSWParams) *IndexBuilder {
	b.def.Vector = VectorField{Name: field, Algorithm: VectorHNSW, Dim: dim, Distance: distance, HNSW: p}
	return b
}

// Flat sets the vector field to exact brute-force search.
func (b *IndexBuilder) Flat(field string, dim int, distance DistanceMetric) *IndexBuilder {
	b.def.Vector = VectorField{Name: field, Algorithm: VectorFlat, Dim: dim, Distance: distance}
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}
