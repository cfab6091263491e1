package training

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/domain/dataset"
	"github.com/kailas-cloud/relevance/internal/domain/model"
	"github.com/kailas-cloud/relevance/internal/logger"
	"github.com/kailas-cloud/relevance/internal/ml/pipeline"
	"github.com/kailas-cloud/relevance/internal/repository/artifact"
	"github.com/kailas-cloud/relevance/internal/repository/metadata"
)

// --- Mocks ---

type mockCorpus struct {
	ds  *dataset.Dataset
	err error
}

func (m *mockCorpus) Load(_ context.Context, _, _ string) (*dataset.Dataset, error) {
	return m.ds, m.err
}

type mockArtifacts struct {
	saved  int
	params model.Params
	err    error
}

func (m *mockArtifacts) Save(_ *pipeline.Pipeline, params model.Params, createdAt time.Time) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.saved++
	m.params = params
	return "/models/" + artifact.Name(createdAt) + artifact.Extension, nil
}

type mockRecords struct {
	saved   []model.Metadata
	current *model.Metadata
	err     error
}

func (m *mockRecords) Save(meta model.Metadata) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.saved = append(m.saved, meta)
	return metadata.RecordPath(meta.ModelPath), nil
}

func (m *mockRecords) SetCurrent(meta model.Metadata) error {
	m.current = &meta
	return nil
}

type mockPublisher struct {
	published []model.Metadata
	err       error
}

func (m *mockPublisher) PublishCurrent(_ context.Context, meta model.Metadata) error {
	m.published = append(m.published, meta)
	return m.err
}

// --- Helpers ---

var (
	relevantWords   = []string{"fund", "deal", "equity", "lease", "capital"}
	irrelevantWords = []string{"rain", "storm", "cloud", "snow", "wind"}
)

// separable builds n examples per label. Every relevant text shares
// "invest stock market", every irrelevant one "weather forecast today".
func separable(n int) *dataset.Dataset {
	var ex []dataset.Example
	for i := range n {
		ex = append(ex, dataset.Example{
			Text:   "invest stock market " + relevantWords[i%len(relevantWords)],
			Label:  domain.Relevant,
			Source: fmt.Sprintf("relevant/%03d.json", i),
		})
	}
	for i := range n {
		ex = append(ex, dataset.Example{
			Text:   "weather forecast today " + irrelevantWords[i%len(irrelevantWords)],
			Label:  domain.Irrelevant,
			Source: fmt.Sprintf("irrelevant/%03d.json", i),
		})
	}
	return dataset.New(ex)
}

func testSettings() Settings {
	s := DefaultSettings()
	s.Pipeline.Forest.Trees = 25
	return s
}

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func clock() time.Time { return fixedNow }

// --- Tests ---

func TestTrain_Success(t *testing.T) {
	arts := &mockArtifacts{}
	recs := &mockRecords{}
	pub := &mockPublisher{}
	svc := New(&mockCorpus{ds: separable(20)}, arts, recs, testSettings(),
		WithPublisher(pub), WithClock(clock), WithWorkers(2))

	res, err := svc.Train(context.Background(), Request{RelevantDir: "r", IrrelevantDir: "i"})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	if res.Test.Total() != 8 || res.Train.Total() != 32 {
		t.Errorf("split = %+v / %+v, want 32 / 8", res.Train, res.Test)
	}
	if res.Metadata.Performance.Accuracy < 0.9 {
		t.Errorf("holdout accuracy = %v", res.Metadata.Performance.Accuracy)
	}
	if res.Metadata.TrainingSize != (model.TrainingSize{Relevant: 20, Irrelevant: 20, Total: 40}) {
		t.Errorf("training size = %+v", res.Metadata.TrainingSize)
	}
	if res.Metadata.Type != model.Type || !res.Metadata.TrainedOn.Equal(fixedNow) {
		t.Errorf("metadata = %+v", res.Metadata)
	}
	if len(res.Metadata.RunID) != 26 {
		t.Errorf("run id %q is not a ULID", res.Metadata.RunID)
	}
	if res.ArtifactPath != "/models/tfidf-rf-2025-03-14-09-26-53.model" {
		t.Errorf("artifact path = %s", res.ArtifactPath)
	}
	if res.RecordPath != "/models/tfidf-rf-2025-03-14-09-26-53.json" {
		t.Errorf("record path = %s", res.RecordPath)
	}

	if arts.saved != 1 || arts.params.Seed != 42 || arts.params.Trees != 25 || arts.params.TestFraction != 0.2 {
		t.Errorf("artifact saves = %d, params = %+v", arts.saved, arts.params)
	}
	if len(recs.saved) != 1 || recs.current == nil || recs.current.ModelPath != res.ArtifactPath {
		t.Errorf("records = %+v, current = %+v", recs.saved, recs.current)
	}
	if len(pub.published) != 1 || pub.published[0].RunID != res.Metadata.RunID {
		t.Errorf("published = %+v", pub.published)
	}

	if len(res.Report.Classes) != 2 || res.Report.Accuracy != res.Metadata.Performance.Accuracy {
		t.Errorf("report = %+v", res.Report)
	}
	if res.Confusion.Total() != 8 {
		t.Errorf("confusion total = %d", res.Confusion.Total())
	}
}

func TestTrain_Reproducible(t *testing.T) {
	run := func(workers int) *Result {
		svc := New(&mockCorpus{ds: separable(15)}, &mockArtifacts{}, &mockRecords{}, testSettings(),
			WithClock(clock), WithWorkers(workers))
		res, err := svc.Train(context.Background(), Request{})
		if err != nil {
			t.Fatalf("Train: %v", err)
		}
		return res
	}
	a, b := run(1), run(4)
	if a.Confusion != b.Confusion || a.Test != b.Test {
		t.Errorf("runs differ: %+v vs %+v", a.Confusion, b.Confusion)
	}
}

func TestTrain_DegenerateDataset(t *testing.T) {
	tests := []struct {
		name string
		ds   *dataset.Dataset
	}{
		{name: "empty", ds: dataset.New(nil)},
		{name: "relevant only", ds: dataset.New([]dataset.Example{
			{Text: "invest", Label: domain.Relevant},
			{Text: "invest more", Label: domain.Relevant},
		})},
		{name: "irrelevant only", ds: dataset.New([]dataset.Example{
			{Text: "weather", Label: domain.Irrelevant},
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arts := &mockArtifacts{}
			recs := &mockRecords{}
			_, err := New(&mockCorpus{ds: tt.ds}, arts, recs, testSettings()).Train(context.Background(), Request{})

			if !errors.Is(err, domain.ErrDegenerateDataset) {
				t.Fatalf("expected ErrDegenerateDataset, got %v", err)
			}
			var dde *domain.DegenerateDatasetError
			if !errors.As(err, &dde) {
				t.Fatalf("expected *DegenerateDatasetError, got %T", err)
			}
			if arts.saved != 0 || len(recs.saved) != 0 || recs.current != nil {
				t.Error("nothing may be written for a degenerate dataset")
			}
		})
	}
}

func TestTrain_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := New(&mockCorpus{err: errors.New("no such dir")}, &mockArtifacts{}, &mockRecords{}, testSettings()).
		Train(ctx, Request{})
	if err == nil {
		t.Error("expected corpus error")
	}

	recs := &mockRecords{}
	_, err = New(&mockCorpus{ds: separable(5)}, &mockArtifacts{err: errors.New("disk full")}, recs, testSettings()).
		Train(ctx, Request{})
	if err == nil {
		t.Error("expected artifact error")
	}
	if recs.current != nil {
		t.Error("pointer must not move when the artifact was not written")
	}

	_, err = New(&mockCorpus{ds: separable(5)}, &mockArtifacts{}, &mockRecords{err: errors.New("disk full")}, testSettings()).
		Train(ctx, Request{})
	if err == nil {
		t.Error("expected metadata error")
	}

	bad := testSettings()
	bad.Pipeline.Forest.Trees = 0
	_, err = New(&mockCorpus{ds: separable(5)}, &mockArtifacts{}, &mockRecords{}, bad).Train(ctx, Request{})
	if err == nil {
		t.Error("expected config error")
	}
}

func TestTrain_PublishFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := logger.ContextWithLogger(context.Background(), zap.New(core))

	pub := &mockPublisher{err: errors.New("connection refused")}
	recs := &mockRecords{}
	_, err := New(&mockCorpus{ds: separable(5)}, &mockArtifacts{}, recs, testSettings(), WithPublisher(pub)).
		Train(ctx, Request{})
	if err != nil {
		t.Fatalf("publish failure must not fail training: %v", err)
	}
	if recs.current == nil {
		t.Error("current pointer not written")
	}
	if logs.FilterMessage("Registry publish failed").Len() != 1 {
		t.Error("expected a registry warning")
	}
}

// Training against the real stores writes the artifact, its record and the
// current pointer; the artifact loads back and agrees with the metadata.
func TestTrain_WritesModelsDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	arts, err := artifact.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	recs := metadata.New(dir)

	res, err := New(&mockCorpus{ds: separable(10)}, arts, recs, testSettings(), WithClock(clock)).
		Train(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	for _, name := range []string{"tfidf-rf-2025-03-14-09-26-53.model", "tfidf-rf-2025-03-14-09-26-53.json", metadata.CurrentFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	current, err := recs.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current.ModelPath != res.ArtifactPath || current.RunID != res.Metadata.RunID {
		t.Errorf("current = %+v", current)
	}

	loaded, err := arts.Load(current.ModelPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Params != current.Params {
		t.Errorf("artifact params %+v != metadata params %+v", loaded.Params, current.Params)
	}

	// A second run in the same second must not overwrite the first artifact.
	res2, err := New(&mockCorpus{ds: separable(10)}, arts, recs, testSettings(), WithClock(clock)).
		Train(context.Background(), Request{})
	if err != nil {
		t.Fatalf("second Train: %v", err)
	}
	if filepath.Base(res2.ArtifactPath) != "tfidf-rf-2025-03-14-09-26-53-1.model" {
		t.Errorf("second artifact = %s", res2.ArtifactPath)
	}
}
