package db

import (
	"errors"
	"fmt"
	"strings"
)

// StorageType defines the document storage backend for FT indexes.
type StorageType string

// StorageHash stores documents as Redis hashes.
const StorageHash StorageType = "HASH"

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

// Distance metrics.
const (
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
	DistanceCosine DistanceMetric = "COSINE"
)

// ParseDistanceMetric accepts a metric name in any case.
func ParseDistanceMetric(s string) (DistanceMetric, error) {
	switch m := DistanceMetric(strings.ToUpper(strings.TrimSpace(s))); m {
	case DistanceL2, DistanceIP, DistanceCosine:
		return m, nil
	default:
		return "", fmt.Errorf("unknown distance metric %q", s)
	}
}

// VectorAlgorithm selects how FT.CREATE indexes the vector field.
type VectorAlgorithm string

// Vector algorithms. FLAT is exact and fine for a few thousand chunks; HNSW scales further.
const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// ParseVectorAlgorithm accepts an algorithm name in any case. Empty selects HNSW.
func ParseVectorAlgorithm(s string) (VectorAlgorithm, error) {
	switch a := VectorAlgorithm(strings.ToUpper(strings.TrimSpace(s))); a {
	case "":
		return VectorHNSW, nil
	case VectorHNSW, VectorFlat:
		return a, nil
	default:
		return "", fmt.Errorf("unknown vector algorithm %q", s)
	}
}

// HNSWParams tunes an HNSW graph. Zero values keep the server defaults.
type HNSWParams struct {
	M              int // max edges per node
	EFConstruction int // candidate list size while building
	EFRuntime      int // candidate list size while querying
}

// VectorField is the FLOAT32 embedding field of a vector index.
type VectorField struct {
	Name      string
	Algorithm VectorAlgorithm
	Dim       int
	Distance  DistanceMetric
	HNSW      HNSWParams
}

// IndexDefinition is a hash-backed FT index with one vector field.
// Payload fields (chunk text, metadata JSON) are stored but not indexed.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Vector      VectorField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("invalid index name %q", idx.Name)
	}
	if len(idx.Prefixes) == 0 {
		return errors.New("at least one key prefix is required")
	}

	v := &idx.Vector
	if v.Name == "" {
		return errors.New("vector field name is required")
	}
	if v.Dim <= 0 {
		return fmt.Errorf("vector field %s requires positive DIM", v.Name)
	}
	if _, err := ParseDistanceMetric(string(v.Distance)); err != nil {
		return err
	}
	if _, err := ParseVectorAlgorithm(string(v.Algorithm)); err != nil {
		return err
	}
	if v.HNSW.M < 0 || v.HNSW.EFConstruction < 0 || v.HNSW.EFRuntime < 0 {
		return errors.New("HNSW parameters must not be negative")
	}
	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' && r != ':' && r != '-' {
			return false
		}
	}
	return true
}
