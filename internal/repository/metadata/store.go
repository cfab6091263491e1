// Package metadata stores model metadata records: one JSON record per
// artifact plus the pointer records naming the current and production models.
package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kailas-cloud/relevance/internal/db/file"
	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/domain/model"
	"github.com/kailas-cloud/relevance/internal/jsonx"
)

const (
	// CurrentFile is the pointer record of the most recently trained model.
	CurrentFile = "current-model.json"
	// ProductionFile is the pointer record of the deployed model.
	ProductionFile = "production-model.json"
)

// Store reads and writes metadata in a models directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the models directory.
func (s *Store) Dir() string { return s.dir }

// RecordPath returns the per-artifact metadata path: the artifact path with
// its extension replaced by .json.
func RecordPath(artifactPath string) string {
	return strings.TrimSuffix(artifactPath, filepath.Ext(artifactPath)) + ".json"
}

// Save writes the per-artifact record next to meta.ModelPath.
func (s *Store) Save(meta model.Metadata) (string, error) {
	if meta.ModelPath == "" {
		return "", errors.New("metadata has no model path")
	}
	path := RecordPath(meta.ModelPath)
	if err := Write(path, meta); err != nil {
		return "", err
	}
	return path, nil
}

// SetCurrent atomically replaces the current-model pointer.
func (s *Store) SetCurrent(meta model.Metadata) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}
	return Write(filepath.Join(s.dir, CurrentFile), meta)
}

// Current reads the current-model pointer. It returns domain.ErrNoCurrentModel
// when no model has been trained.
func (s *Store) Current() (model.Metadata, error) {
	meta, err := Read(filepath.Join(s.dir, CurrentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return model.Metadata{}, domain.ErrNoCurrentModel
	}
	return meta, err
}

// SetProduction atomically replaces the production-model pointer.
func (s *Store) SetProduction(meta model.Metadata) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create production dir: %w", err)
	}
	return Write(filepath.Join(s.dir, ProductionFile), meta)
}

// Production reads the production-model pointer, or domain.ErrNoCurrentModel.
func (s *Store) Production() (model.Metadata, error) {
	meta, err := Read(filepath.Join(s.dir, ProductionFile))
	if errors.Is(err, fs.ErrNotExist) {
		return model.Metadata{}, domain.ErrNoCurrentModel
	}
	return meta, err
}

// List returns every per-artifact record in the models directory, newest first.
// Pointer records and unreadable files are left out.
func (s *Store) List() ([]model.Metadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list models: %w", err)
	}

	var out []model.Metadata
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || filepath.Ext(name) != ".json" {
			continue
		}
		if name == CurrentFile || name == ProductionFile {
			continue
		}
		meta, err := Read(filepath.Join(s.dir, name))
		if err != nil || meta.ModelPath == "" {
			continue
		}
		out = append(out, meta)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TrainedOn.After(out[j].TrainedOn) })
	return out, nil
}

// Write atomically writes meta as indented JSON to path.
func Write(path string, meta model.Metadata) error {
	data, err := jsonx.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	data = append(data, '\n')
	if err := file.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata %s: %w", path, err)
	}
	return nil
}

// Read decodes the metadata record at path.
func Read(path string) (model.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	var meta model.Metadata
	if err := jsonx.Unmarshal(data, &meta); err != nil {
		return model.Metadata{}, fmt.Errorf("decode metadata %s: %w", path, err)
	}
	return meta, nil
}
