package worker

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scanner processes one document source (file path, URL or "-")
type Scanner[T any] interface {
	ScanSource(ctx context.Context, source string) (T, error)
}

// SourceResult is the outcome for one source
type SourceResult[T any] struct {
	Source string
	Value  T
	Error  error
}

// GetError returns the error from the scan
func (r *SourceResult[T]) GetError() error {
	return r.Error
}

// BatchProcessor processes multiple document sources concurrently
type BatchProcessor[T any] struct {
	scanner     Scanner[T]
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor[T any](scanner Scanner[T], concurrency int) *BatchProcessor[T] {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchProcessor[T]{
		scanner:     scanner,
		concurrency: concurrency,
	}
}

// ProcessSources scans every source. Results are in input order; a failed
// source does not stop the others.
func (b *BatchProcessor[T]) ProcessSources(ctx context.Context, sources []string) []*SourceResult[T] {
	results := make([]*SourceResult[T], len(sources))
	if len(sources) == 0 {
		return results
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, source := range sources {
		g.Go(func() error {
			res := &SourceResult[T]{Source: source}
			if err := gCtx.Err(); err != nil {
				res.Error = err
			} else {
				res.Value, res.Error = b.scanner.ScanSource(gCtx, source)
			}
			if res.Error != nil {
				zap.L().Warn("batch: source failed", zap.String("source", source), zap.Error(res.Error))
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait() // errors captured in SourceResult

	return results
}

// ProcessFile reads sources from a list file and processes them concurrently
func (b *BatchProcessor[T]) ProcessFile(ctx context.Context, filePath string) ([]*SourceResult[T], error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "read sources")
	}

	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads sources from a file (one per line), skipping
// blanks, comments and duplicates
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "open file")
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "scan file")
	}

	return sources, nil
}
