package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
)

// readChunks loads a chunk export from disk.
func readChunks(path string) ([]catalog.Chunk, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return parseChunks(data)
}

// parseChunks accepts a bare array or {"chunks": [...]}. Numbers in metadata stay float64.
func parseChunks(data []byte) ([]catalog.Chunk, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("export is empty")
	}

	var chunks []catalog.Chunk
	if data[0] == '[' {
		if err := json.Unmarshal(data, &chunks); err != nil {
			return nil, fmt.Errorf("parse export: %w", err)
		}
		return chunks, nil
	}

	var wrapped struct {
		Chunks []catalog.Chunk `json:"chunks"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	if wrapped.Chunks == nil {
		return nil, fmt.Errorf("export has no \"chunks\" array")
	}
	return wrapped.Chunks, nil
}
