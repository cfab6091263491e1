// Package corpus reads labeled document directories into a Dataset.
package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/domain/dataset"
	"github.com/kailas-cloud/relevance/internal/domain/document"
	"github.com/kailas-cloud/relevance/internal/metrics"
)

// DefaultExtension is the file extension of stored documents.
const DefaultExtension = ".json"

// Loader parses the relevant and irrelevant partitions of a corpus.
// Unparseable files are logged and skipped.
type Loader struct {
	ext     string
	workers int
	logger  *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithExtension sets the recognized document extension (".json" by default).
func WithExtension(ext string) Option {
	return func(l *Loader) {
		if ext != "" {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			l.ext = ext
		}
	}
}

// WithWorkers bounds concurrent file parsing.
func WithWorkers(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLogger sets the logger used for skip warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		ext:     DefaultExtension,
		workers: runtime.GOMAXPROCS(0),
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load reads both partitions and returns relevant examples first, each
// partition in file name order. A missing partition directory is an error.
func (l *Loader) Load(ctx context.Context, relevantDir, irrelevantDir string) (*dataset.Dataset, error) {
	relevant, err := l.LoadPartition(ctx, relevantDir, domain.Relevant)
	if err != nil {
		return nil, err
	}
	irrelevant, err := l.LoadPartition(ctx, irrelevantDir, domain.Irrelevant)
	if err != nil {
		return nil, err
	}

	examples := make([]dataset.Example, 0, len(relevant)+len(irrelevant))
	examples = append(examples, relevant...)
	examples = append(examples, irrelevant...)
	ds := dataset.New(examples)

	counts := ds.Counts()
	l.logger.Info("Corpus loaded",
		zap.Int("relevant", counts.Relevant),
		zap.Int("irrelevant", counts.Irrelevant),
		zap.Int("total", counts.Total()),
	)
	return ds, nil
}

type parsed struct {
	example dataset.Example
	err     error
}

// LoadPartition parses every document file in dir and labels it.
func (l *Loader) LoadPartition(ctx context.Context, dir string, label domain.Label) ([]dataset.Example, error) {
	files, err := ListFiles(dir, l.ext)
	if err != nil {
		return nil, fmt.Errorf("read %s partition: %w", label, err)
	}
	if len(files) == 0 {
		return []dataset.Example{}, nil
	}

	pool, err := ants.NewPool(min(l.workers, len(files)))
	if err != nil {
		return nil, fmt.Errorf("create parse pool: %w", err)
	}
	defer pool.Release()

	results := make([]parsed, len(files))
	var wg sync.WaitGroup
	for i, path := range files {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			results[i] = parseFile(path, label)
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit %s: %w", path, submitErr)
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load %s partition: %w", label, err)
	}

	examples := make([]dataset.Example, 0, len(files))
	for _, r := range results {
		if r.err != nil {
			l.logger.Warn("Skipping unparseable document",
				zap.String("label", label.String()),
				zap.Error(r.err),
			)
			metrics.DocumentsSkippedTotal.WithLabelValues(label.String()).Inc()
			continue
		}
		examples = append(examples, r.example)
	}
	metrics.DocumentsLoadedTotal.WithLabelValues(label.String()).Add(float64(len(examples)))
	return examples, nil
}

// ListFiles returns the entries of dir whose name ends in ext, sorted by name.
// The match is case-sensitive. Subdirectories are skipped; symlinks are kept
// and fail later as parse errors if they do not resolve to a readable file.
func ListFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func parseFile(path string, label domain.Label) parsed {
	doc, err := ReadDocument(path)
	if err != nil {
		return parsed{err: err}
	}
	return parsed{example: dataset.Example{Text: doc.Text(), Label: label, Source: path}}
}

// ReadDocument parses a single document file. Failures are DocumentParseError.
func ReadDocument(path string) (document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, &domain.DocumentParseError{Path: path, Err: err}
	}
	doc, err := document.Parse(data)
	if err != nil {
		return document.Document{}, &domain.DocumentParseError{Path: path, Err: err}
	}
	return doc, nil
}
