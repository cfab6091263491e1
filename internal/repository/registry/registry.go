// Package registry mirrors model metadata into Redis so downstream consumers
// can discover the current and production models without reading the models
// directory.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/relevance/internal/db"
	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/domain/model"
	"github.com/kailas-cloud/relevance/internal/domain/score"
	"github.com/kailas-cloud/relevance/internal/jsonx"
)

// Slot names a published model pointer.
type Slot string

// Published pointers.
const (
	SlotCurrent    Slot = "current"
	SlotProduction Slot = "production"
)

// DefaultPrefix namespaces registry keys.
const DefaultPrefix = "relevance"

// store is the consumer interface for registry operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Run is the per-training-run summary kept in a hash.
type Run struct {
	RunID       string
	ModelPath   string
	TrainedOn   time.Time
	Performance score.Scores
	Total       int
}

// Registry publishes model metadata.
//
// Keys:
//
//	{prefix}:model:{slot}  JSON metadata of the model in that slot
//	{prefix}:run:{runId}   hash with the run's scores
type Registry struct {
	store  store
	prefix string
}

// New creates a Registry. An empty prefix means DefaultPrefix.
func New(s store, prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Registry{store: s, prefix: prefix}
}

func (r *Registry) modelKey(slot Slot) string { return r.prefix + ":model:" + string(slot) }
func (r *Registry) runKey(id string) string   { return r.prefix + ":run:" + id }

// Publish stores meta under slot and records its run summary.
func (r *Registry) Publish(ctx context.Context, slot Slot, meta model.Metadata) error {
	data, err := jsonx.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	key := r.modelKey(slot)
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("registry SET %s: %w", key, err)
	}
	if meta.RunID == "" {
		return nil
	}
	runKey := r.runKey(meta.RunID)
	if err := r.store.HSet(ctx, runKey, runFields(meta)); err != nil {
		return fmt.Errorf("registry HSET %s: %w", runKey, err)
	}
	return nil
}

// PublishCurrent publishes meta as the current model.
func (r *Registry) PublishCurrent(ctx context.Context, meta model.Metadata) error {
	return r.Publish(ctx, SlotCurrent, meta)
}

// PublishProduction publishes meta as the production model.
func (r *Registry) PublishProduction(ctx context.Context, meta model.Metadata) error {
	return r.Publish(ctx, SlotProduction, meta)
}

// Get returns the metadata published under slot, or domain.ErrNoCurrentModel.
func (r *Registry) Get(ctx context.Context, slot Slot) (model.Metadata, error) {
	key := r.modelKey(slot)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return model.Metadata{}, domain.ErrNoCurrentModel
		}
		return model.Metadata{}, fmt.Errorf("registry GET %s: %w", key, err)
	}
	var meta model.Metadata
	if err := jsonx.Unmarshal(data, &meta); err != nil {
		return model.Metadata{}, fmt.Errorf("registry GET %s decode: %w", key, err)
	}
	return meta, nil
}

// Runs returns every recorded run summary, newest first.
func (r *Registry) Runs(ctx context.Context) ([]Run, error) {
	keys, err := r.store.Scan(ctx, r.prefix+":run:*")
	if err != nil {
		return nil, fmt.Errorf("registry SCAN runs: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("registry HGETALL runs: %w", err)
	}

	runs := make([]Run, 0, len(hashes))
	for i, h := range hashes {
		if len(h) == 0 {
			continue
		}
		runs = append(runs, parseRun(strings.TrimPrefix(keys[i], r.prefix+":run:"), h))
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].TrainedOn.After(runs[j].TrainedOn) })
	return runs, nil
}

func runFields(meta model.Metadata) map[string]string {
	return map[string]string{
		"modelPath": meta.ModelPath,
		"trainedOn": meta.TrainedOn.UTC().Format(time.RFC3339Nano),
		"accuracy":  formatFloat(meta.Performance.Accuracy),
		"precision": formatFloat(meta.Performance.Precision),
		"recall":    formatFloat(meta.Performance.Recall),
		"f1":        formatFloat(meta.Performance.F1),
		"total":     strconv.Itoa(meta.TrainingSize.Total),
	}
}

// parseRun is lenient: a malformed field is left at its zero value.
func parseRun(id string, h map[string]string) Run {
	run := Run{RunID: id, ModelPath: h["modelPath"]}
	run.TrainedOn, _ = time.Parse(time.RFC3339Nano, h["trainedOn"])
	run.Performance.Accuracy, _ = strconv.ParseFloat(h["accuracy"], 64)
	run.Performance.Precision, _ = strconv.ParseFloat(h["precision"], 64)
	run.Performance.Recall, _ = strconv.ParseFloat(h["recall"], 64)
	run.Performance.F1, _ = strconv.ParseFloat(h["f1"], 64)
	run.Total, _ = strconv.Atoi(h["total"])
	return run
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
