package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the relevance classifier configuration.
type Config struct {
	Corpus     CorpusConfig     `yaml:"corpus"`
	Models     ModelsConfig     `yaml:"models"`
	Training   TrainingConfig   `yaml:"training"`
	Vectorizer VectorizerConfig `yaml:"vectorizer"`
	Forest     ForestConfig     `yaml:"forest"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Registry   RegistryConfig   `yaml:"registry"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// CorpusConfig locates the labeled training documents.
type CorpusConfig struct {
	RelevantDir   string `yaml:"relevant_dir"`
	IrrelevantDir string `yaml:"irrelevant_dir"`
	Extension     string `yaml:"extension"`
	Workers       int    `yaml:"workers"` // parse pool size (default: GOMAXPROCS)
}

// ModelsConfig locates artifacts and metadata.
type ModelsConfig struct {
	Dir           string `yaml:"dir"`
	ProductionDir string `yaml:"production_dir"`
	ModelPath     string `yaml:"model_path"` // artifact to evaluate; empty = current model
}

// TrainingConfig holds split and reproducibility settings.
type TrainingConfig struct {
	Seed         *uint64 `yaml:"seed"`
	TestFraction float64 `yaml:"test_fraction"`
	Workers      int     `yaml:"workers"` // tree fan-out (default: GOMAXPROCS)
}

// VectorizerConfig holds TF-IDF settings.
type VectorizerConfig struct {
	MaxFeatures int `yaml:"max_features"`
	NGramMin    int `yaml:"ngram_min"`
	NGramMax    int `yaml:"ngram_max"`
}

// ForestConfig holds random forest settings.
type ForestConfig struct {
	Trees           int `yaml:"trees"`
	SplitFeatures   int `yaml:"split_features"` // 0 = sqrt(vocabulary size)
	MaxDepth        int `yaml:"max_depth"`      // 0 = unlimited
	MinSamplesSplit int `yaml:"min_samples_split"`
}

// EvaluationConfig holds cross-validation settings.
type EvaluationConfig struct {
	Folds int `yaml:"folds"`
}

// RegistryConfig holds the optional Redis model registry. Empty Addrs disables it.
type RegistryConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a registry is configured.
func (r RegistryConfig) Enabled() bool { return len(r.Addrs) > 0 }

// MetricsConfig holds the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // empty = disabled
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Corpus.Extension == "" {
		c.Corpus.Extension = ".json"
	}
	if c.Models.Dir == "" {
		c.Models.Dir = "models"
	}
	if c.Models.ProductionDir == "" {
		c.Models.ProductionDir = filepath.Join(c.Models.Dir, "production")
	}
	if c.Training.Seed == nil {
		seed := uint64(42)
		c.Training.Seed = &seed
	}
	if c.Training.TestFraction == 0 {
		c.Training.TestFraction = 0.2
	}
	if c.Vectorizer.MaxFeatures <= 0 {
		c.Vectorizer.MaxFeatures = 10000
	}
	if c.Vectorizer.NGramMin <= 0 {
		c.Vectorizer.NGramMin = 1
	}
	if c.Vectorizer.NGramMax <= 0 {
		c.Vectorizer.NGramMax = 2
	}
	if c.Forest.Trees <= 0 {
		c.Forest.Trees = 100
	}
	if c.Forest.MinSamplesSplit <= 0 {
		c.Forest.MinSamplesSplit = 2
	}
	if c.Evaluation.Folds <= 0 {
		c.Evaluation.Folds = 5
	}
	if c.Registry.KeyPrefix == "" {
		c.Registry.KeyPrefix = "relevance"
	}
	if c.Registry.ReadinessTimeout <= 0 {
		c.Registry.ReadinessTimeout = 5
	}
}

// Validate checks the configuration for correctness.
// Corpus locations are checked separately by ValidateCorpus, since only the
// commands that read the corpus need them.
func (c *Config) Validate() error {
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		return fmt.Errorf("training.test_fraction must be in (0, 1), got %v", c.Training.TestFraction)
	}
	if c.Vectorizer.NGramMax < c.Vectorizer.NGramMin {
		return fmt.Errorf("vectorizer.ngram_max (%d) must be >= ngram_min (%d)",
			c.Vectorizer.NGramMax, c.Vectorizer.NGramMin)
	}
	if c.Forest.MinSamplesSplit < 2 {
		return fmt.Errorf("forest.min_samples_split must be >= 2, got %d", c.Forest.MinSamplesSplit)
	}
	if c.Forest.SplitFeatures < 0 || c.Forest.MaxDepth < 0 {
		return fmt.Errorf("forest.split_features and forest.max_depth must be >= 0")
	}
	if c.Evaluation.Folds < 2 {
		return fmt.Errorf("evaluation.folds must be >= 2, got %d", c.Evaluation.Folds)
	}
	return nil
}

// ValidateCorpus checks that both labeled directories are set.
func (c *Config) ValidateCorpus() error {
	if c.Corpus.RelevantDir == "" {
		return fmt.Errorf("corpus.relevant_dir is required")
	}
	if c.Corpus.IrrelevantDir == "" {
		return fmt.Errorf("corpus.irrelevant_dir is required")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
