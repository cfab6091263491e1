// Package artifact persists fitted pipelines as self-describing model files:
// a magic header followed by a zstd-compressed CBOR envelope.
package artifact

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/kailas-cloud/relevance/internal/db/file"
	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/domain/model"
	"github.com/kailas-cloud/relevance/internal/ml/forest"
	"github.com/kailas-cloud/relevance/internal/ml/pipeline"
)

const (
	// Format names the artifact envelope.
	Format = "relevance-model"
	// Version is the envelope version this build writes and reads.
	Version = 1
	// Extension is the artifact file extension.
	Extension = ".model"
	// TimestampLayout renders the creation time in artifact names.
	TimestampLayout = "2006-01-02-15-04-05"
)

var magic = []byte("RLVM")

var (
	errBadMagic     = errors.New("not a relevance model file")
	errBadFormat    = errors.New("unexpected artifact format")
	errBadVersion   = errors.New("unsupported artifact version")
	errBadAlgorithm = errors.New("unsupported algorithm")
)

// envelope is the on-disk record.
type envelope struct {
	Format    string         `cbor:"format"`
	Version   int            `cbor:"version"`
	Algorithm string         `cbor:"algorithm"`
	CreatedAt time.Time      `cbor:"created_at"`
	Params    model.Params   `cbor:"params"`
	Pipeline  pipeline.State `cbor:"pipeline"`
}

// Artifact is a loaded model file.
type Artifact struct {
	Path      string
	Algorithm string
	CreatedAt time.Time
	Params    model.Params
	Pipeline  *pipeline.Pipeline
}

// Store writes and reads artifacts in a models directory.
type Store struct {
	dir     string
	enc     cbor.EncMode
	dec     cbor.DecMode
	workers int
}

// Option configures a Store.
type Option func(*Store)

// WithWorkers sets the forest worker bound on loaded pipelines.
func WithWorkers(n int) Option {
	return func(s *Store) { s.workers = n }
}

// New creates a Store rooted at dir.
func New(dir string, opts ...Option) (*Store, error) {
	encOpts := cbor.CoreDetEncOptions()
	encOpts.Time = cbor.TimeRFC3339Nano
	enc, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor enc mode: %w", err)
	}
	dec, err := cbor.DecOptions{
		MaxArrayElements: 1 << 26,
		MaxMapPairs:      1 << 20,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor dec mode: %w", err)
	}

	s := &Store{dir: dir, enc: enc, dec: dec}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Dir returns the models directory.
func (s *Store) Dir() string { return s.dir }

// Save writes p as <algorithm>-<timestamp>.model, adding a numeric suffix
// instead of overwriting an existing file. It returns the written path.
func (s *Store) Save(p *pipeline.Pipeline, params model.Params, createdAt time.Time) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create models dir: %w", err)
	}

	payload, err := s.enc.Marshal(envelope{
		Format:    Format,
		Version:   Version,
		Algorithm: model.Algorithm,
		CreatedAt: createdAt.UTC(),
		Params:    params,
		Pipeline:  p.State(),
	})
	if err != nil {
		return "", fmt.Errorf("encode artifact: %w", err)
	}

	path, err := file.UniquePath(s.dir, Name(createdAt), Extension)
	if err != nil {
		return "", err
	}
	err = file.WriteAtomic(path, 0o644, func(w io.Writer) error {
		if _, err := w.Write(magic); err != nil {
			return err
		}
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return err
		}
		if _, err := zw.Write(payload); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	})
	if err != nil {
		return "", fmt.Errorf("write artifact %s: %w", path, err)
	}
	return path, nil
}

// Load reads the artifact at path. Every failure is an *domain.ArtifactLoadError.
func (s *Store) Load(path string) (*Artifact, error) {
	a, err := s.load(path)
	if err != nil {
		return nil, &domain.ArtifactLoadError{Path: path, Err: err}
	}
	return a, nil
}

func (s *Store) load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil || !bytes.Equal(head, magic) {
		return nil, errBadMagic
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open zstd stream: %w", err)
	}
	defer zr.Close()
	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	var env envelope
	if err := s.dec.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if env.Format != Format {
		return nil, fmt.Errorf("%w: %q", errBadFormat, env.Format)
	}
	if env.Version != Version {
		return nil, fmt.Errorf("%w: %d", errBadVersion, env.Version)
	}
	if env.Algorithm != model.Algorithm {
		return nil, fmt.Errorf("%w: %q", errBadAlgorithm, env.Algorithm)
	}

	p, err := pipeline.FromState(env.Pipeline, forest.WithWorkers(s.workers))
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Path:      path,
		Algorithm: env.Algorithm,
		CreatedAt: env.CreatedAt,
		Params:    env.Params,
		Pipeline:  p,
	}, nil
}

// Name returns the artifact file stem for a creation time.
func Name(createdAt time.Time) string {
	return model.Algorithm + "-" + createdAt.Format(TimestampLayout)
}
