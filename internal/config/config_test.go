package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		Corpus: CorpusConfig{RelevantDir: "data/relevant", IrrelevantDir: "data/irrelevant"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Corpus.Extension != ".json" {
		t.Errorf("expected Extension=.json, got %q", cfg.Corpus.Extension)
	}
	if cfg.Models.Dir != "models" {
		t.Errorf("expected Models.Dir=models, got %q", cfg.Models.Dir)
	}
	if cfg.Models.ProductionDir != filepath.Join("models", "production") {
		t.Errorf("unexpected ProductionDir %q", cfg.Models.ProductionDir)
	}
	if cfg.Training.Seed == nil || *cfg.Training.Seed != 42 {
		t.Errorf("expected Seed=42, got %v", cfg.Training.Seed)
	}
	if cfg.Training.TestFraction != 0.2 {
		t.Errorf("expected TestFraction=0.2, got %v", cfg.Training.TestFraction)
	}
	if cfg.Vectorizer.MaxFeatures != 10000 {
		t.Errorf("expected MaxFeatures=10000, got %d", cfg.Vectorizer.MaxFeatures)
	}
	if cfg.Vectorizer.NGramMin != 1 || cfg.Vectorizer.NGramMax != 2 {
		t.Errorf("expected ngram 1..2, got %d..%d", cfg.Vectorizer.NGramMin, cfg.Vectorizer.NGramMax)
	}
	if cfg.Forest.Trees != 100 {
		t.Errorf("expected Trees=100, got %d", cfg.Forest.Trees)
	}
	if cfg.Forest.MinSamplesSplit != 2 {
		t.Errorf("expected MinSamplesSplit=2, got %d", cfg.Forest.MinSamplesSplit)
	}
	if cfg.Evaluation.Folds != 5 {
		t.Errorf("expected Folds=5, got %d", cfg.Evaluation.Folds)
	}
	if cfg.Registry.KeyPrefix != "relevance" {
		t.Errorf("expected KeyPrefix=relevance, got %q", cfg.Registry.KeyPrefix)
	}
	if cfg.Registry.Enabled() {
		t.Error("registry should be disabled without addrs")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	seed := uint64(0)
	cfg := Config{
		Models:     ModelsConfig{Dir: "/srv/models", ProductionDir: "/srv/prod"},
		Training:   TrainingConfig{Seed: &seed, TestFraction: 0.3},
		Vectorizer: VectorizerConfig{MaxFeatures: 500, NGramMin: 1, NGramMax: 1},
		Forest:     ForestConfig{Trees: 10, MinSamplesSplit: 4},
		Evaluation: EvaluationConfig{Folds: 3},
	}
	cfg.ApplyDefaults()

	if *cfg.Training.Seed != 0 {
		t.Errorf("explicit zero seed overridden: %d", *cfg.Training.Seed)
	}
	if cfg.Training.TestFraction != 0.3 {
		t.Errorf("expected TestFraction=0.3, got %v", cfg.Training.TestFraction)
	}
	if cfg.Models.ProductionDir != "/srv/prod" {
		t.Errorf("expected ProductionDir=/srv/prod, got %q", cfg.Models.ProductionDir)
	}
	if cfg.Vectorizer.MaxFeatures != 500 || cfg.Vectorizer.NGramMax != 1 {
		t.Errorf("vectorizer overridden: %+v", cfg.Vectorizer)
	}
	if cfg.Forest.Trees != 10 || cfg.Forest.MinSamplesSplit != 4 {
		t.Errorf("forest overridden: %+v", cfg.Forest)
	}
	if cfg.Evaluation.Folds != 3 {
		t.Errorf("expected Folds=3, got %d", cfg.Evaluation.Folds)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no corpus", mutate: func(c *Config) { c.Corpus = CorpusConfig{} }},
		{name: "test fraction one", mutate: func(c *Config) { c.Training.TestFraction = 1 }, wantErr: "test_fraction"},
		{name: "negative test fraction", mutate: func(c *Config) { c.Training.TestFraction = -0.1 }, wantErr: "test_fraction"},
		{name: "ngram order", mutate: func(c *Config) { c.Vectorizer.NGramMin = 3 }, wantErr: "ngram_max"},
		{name: "min samples split", mutate: func(c *Config) { c.Forest.MinSamplesSplit = 1 }, wantErr: "min_samples_split"},
		{name: "negative depth", mutate: func(c *Config) { c.Forest.MaxDepth = -1 }, wantErr: "max_depth"},
		{name: "one fold", mutate: func(c *Config) { c.Evaluation.Folds = 1 }, wantErr: "folds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateCorpus(t *testing.T) {
	tests := []struct {
		name    string
		corpus  CorpusConfig
		wantErr string
	}{
		{name: "both set", corpus: CorpusConfig{RelevantDir: "r", IrrelevantDir: "i"}},
		{name: "missing relevant dir", corpus: CorpusConfig{IrrelevantDir: "i"}, wantErr: "relevant_dir"},
		{name: "missing irrelevant dir", corpus: CorpusConfig{RelevantDir: "r"}, wantErr: "irrelevant_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Corpus = tt.corpus
			err := cfg.ValidateCorpus()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

// A config without corpus directories still loads: inference never reads them.
func TestLoadFile_WithoutCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "infer.yaml")
	yaml := `
corpus:
  relevant_dir: ${RELEVANCE_TEST_UNSET_DIR}
models:
  dir: /srv/models
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Models.Dir != "/srv/models" {
		t.Errorf("Models.Dir = %q", cfg.Models.Dir)
	}
	if err := cfg.ValidateCorpus(); err == nil {
		t.Error("ValidateCorpus should reject the empty corpus")
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("RELEVANCE_TEST_MODELS", "/tmp/relevance-models")

	path := filepath.Join(t.TempDir(), "test.yaml")
	yaml := `
corpus:
  relevant_dir: ./data/relevant
  irrelevant_dir: ${RELEVANCE_TEST_IRRELEVANT:-./data/irrelevant}
models:
  dir: ${RELEVANCE_TEST_MODELS}
training:
  seed: 7
forest:
  trees: 25
registry:
  addrs: ["localhost:6379"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Corpus.IrrelevantDir != "./data/irrelevant" {
		t.Errorf("default not expanded: %q", cfg.Corpus.IrrelevantDir)
	}
	if cfg.Models.Dir != "/tmp/relevance-models" {
		t.Errorf("env not expanded: %q", cfg.Models.Dir)
	}
	if *cfg.Training.Seed != 7 || cfg.Forest.Trees != 25 {
		t.Errorf("values not parsed: seed=%d trees=%d", *cfg.Training.Seed, cfg.Forest.Trees)
	}
	if cfg.Vectorizer.MaxFeatures != 10000 {
		t.Errorf("defaults not applied: %+v", cfg.Vectorizer)
	}
	if !cfg.Registry.Enabled() {
		t.Error("registry should be enabled")
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	broken := filepath.Join(dir, "broken.yaml")
	_ = os.WriteFile(broken, []byte("corpus: [unterminated"), 0o600)
	if _, err := LoadFile(broken); err == nil {
		t.Error("expected parse error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	_ = os.WriteFile(invalid, []byte("training:\n  test_fraction: 1.5\n"), 0o600)
	if _, err := LoadFile(invalid); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLoad_Local(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.Corpus.RelevantDir == "" {
		t.Error("local config should set corpus.relevant_dir")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("GetEnv() = %q, want local", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("GetEnv() = %q, want prod", got)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RELEVANCE_SET", "value")
	t.Setenv("RELEVANCE_EMPTY", "")

	got := string(expandEnvVars([]byte("a=${RELEVANCE_SET} b=${RELEVANCE_EMPTY:-fallback} c=${RELEVANCE_EMPTY}")))
	want := "a=value b=fallback c="
	if got != want {
		t.Errorf("expandEnvVars = %q, want %q", got, want)
	}
}
