// Package batch loads catalog chunks into the vector index.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/tourguide/internal/domain"
	dombatch "github.com/kailas-cloud/tourguide/internal/domain/batch"
	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
)

// Defaults for Options.
const (
	DefaultBatchSize = 64
	DefaultWorkers   = 4
)

// ErrInvalidChunk marks a chunk rejected before embedding.
var ErrInvalidChunk = errors.New("invalid chunk")

// chunkNamespace derives stable ids for chunks exported without one.
var chunkNamespace = uuid.MustParse("6f2c7c1e-4a7b-4d5e-9a51-0b7f3d2e8c41")

// Options tunes the loader.
type Options struct {
	BatchSize int
	Workers   int
	// FailFast stops all remaining batches after the first failure.
	FailFast bool
	// SkipExisting leaves chunks whose id is already stored untouched.
	SkipExisting bool
}

// Report summarizes a load.
type Report struct {
	Results      []dombatch.Result
	IndexCreated bool
	TotalTokens  int
}

// Service embeds chunk texts in batches and writes them to the index.
type Service struct {
	index  Index
	embed  domain.Embedder
	opts   Options
	logger *zap.Logger
}

// New creates a loader.
func New(index Index, embed domain.Embedder, opts Options, logger *zap.Logger) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: index, embed: embed, opts: opts, logger: logger}
}

// Load creates the index when missing and writes every valid chunk. Results follow
// the input order. The returned error is set only when the index cannot be prepared
// or a FailFast load was aborted.
func (s *Service) Load(ctx context.Context, chunks []catalog.Chunk) (Report, error) {
	created, err := s.index.EnsureIndex(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("ensure index: %w", err)
	}
	report := Report{Results: make([]dombatch.Result, len(chunks)), IndexCreated: created}

	valid := s.validate(chunks, report.Results)
	if s.opts.SkipExisting && !created {
		if valid, err = s.dropExisting(ctx, chunks, valid, report.Results); err != nil {
			return report, err
		}
	}
	batches := split(valid, s.opts.BatchSize)

	var (
		mu     sync.Mutex
		tokens int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for n, b := range batches {
		g.Go(func() error {
			used, err := s.loadBatch(gctx, chunks, b)
			mu.Lock()
			tokens += used
			mu.Unlock()

			for _, i := range b {
				if err != nil {
					report.Results[i] = dombatch.NewError(chunks[i].ID, err)
				} else {
					report.Results[i] = dombatch.NewOK(chunks[i].ID)
				}
			}
			if err != nil {
				s.logger.Warn("Batch failed",
					zap.Int("batch", n), zap.Int("size", len(b)), zap.Error(err))
				if s.opts.FailFast {
					return err
				}
				return nil
			}
			s.logger.Debug("Batch loaded", zap.Int("batch", n), zap.Int("size", len(b)))
			return nil
		})
	}

	err = g.Wait()
	report.TotalTokens = tokens
	if err != nil {
		// batches skipped after the abort never ran
		for i := range report.Results {
			if report.Results[i].Status() == "" {
				report.Results[i] = dombatch.NewError(chunks[i].ID, fmt.Errorf("aborted: %w", err))
			}
		}
		return report, fmt.Errorf("load aborted: %w", err)
	}
	return report, nil
}

// validate assigns missing ids and records rejections. It returns the indexes of
// chunks that should be embedded.
func (s *Service) validate(chunks []catalog.Chunk, results []dombatch.Result) []int {
	seen := make(map[string]bool, len(chunks))
	valid := make([]int, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if strings.TrimSpace(c.Text) == "" {
			results[i] = dombatch.NewError(c.ID, fmt.Errorf("empty text: %w", ErrInvalidChunk))
			continue
		}
		if c.ID == "" {
			c.ID = uuid.NewSHA1(chunkNamespace, []byte(c.Text)).String()
		}
		if seen[c.ID] {
			results[i] = dombatch.NewError(c.ID, fmt.Errorf("duplicate id %q: %w", c.ID, ErrInvalidChunk))
			continue
		}
		seen[c.ID] = true
		valid = append(valid, i)
	}
	return valid
}

// dropExisting records already stored chunks as skipped and returns the rest.
// Existence is probed once per configured batch.
func (s *Service) dropExisting(
	ctx context.Context, chunks []catalog.Chunk, idx []int, results []dombatch.Result,
) ([]int, error) {
	rest := idx[:0:0]
	for _, b := range split(idx, s.opts.BatchSize) {
		ids := make([]string, len(b))
		for j, i := range b {
			ids[j] = chunks[i].ID
		}
		found, err := s.index.Stored(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("check existing: %w", err)
		}
		for j, i := range b {
			if found[j] {
				results[i] = dombatch.NewSkipped(chunks[i].ID)
				continue
			}
			rest = append(rest, i)
		}
	}
	return rest, nil
}

func (s *Service) loadBatch(ctx context.Context, chunks []catalog.Chunk, idx []int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	texts := make([]string, len(idx))
	batch := make([]catalog.Chunk, len(idx))
	for j, i := range idx {
		texts[j] = chunks[i].Text
		batch[j] = chunks[i]
	}

	res, err := domain.BatchEmbed(ctx, s.embed, texts)
	if err != nil {
		return 0, fmt.Errorf("vectorize: %w", err)
	}
	if err := s.index.Upsert(ctx, batch, res.Embeddings); err != nil {
		return res.TotalTokens, fmt.Errorf("upsert: %w", err)
	}
	return res.TotalTokens, nil
}

func split(idx []int, size int) [][]int {
	var out [][]int
	for start := 0; start < len(idx); start += size {
		out = append(out, idx[start:min(start+size, len(idx))])
	}
	return out
}
