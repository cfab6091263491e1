package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/relevance/internal/config"
	dbRedis "github.com/kailas-cloud/relevance/internal/db/redis"
	logpkg "github.com/kailas-cloud/relevance/internal/logger"
	"github.com/kailas-cloud/relevance/internal/metrics"
	"github.com/kailas-cloud/relevance/internal/ml/forest"
	"github.com/kailas-cloud/relevance/internal/ml/pipeline"
	"github.com/kailas-cloud/relevance/internal/ml/tfidf"
	"github.com/kailas-cloud/relevance/internal/repository/artifact"
	"github.com/kailas-cloud/relevance/internal/repository/corpus"
	"github.com/kailas-cloud/relevance/internal/repository/registry"
	"github.com/kailas-cloud/relevance/internal/version"
)

// Command annotation controlling how much setup a command needs.
const (
	annotationConfig = "config"
	configOptional   = "optional" // defaults when no config file exists
	configNone       = "none"     // no config, no logger setup
)

// app is the composition root shared by all commands.
type app struct {
	configPath string
	logLevel   string

	env   string
	cfg   config.Config
	log   *zap.Logger
	store *dbRedis.Store
}

// init loads configuration and builds the logger for cmd.
func (a *app) init(cmd *cobra.Command) error {
	mode := cmd.Annotations[annotationConfig]
	if mode == configNone {
		return nil
	}

	a.env = config.GetEnv()
	cfg, err := a.loadConfig(mode == configOptional)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := a.logLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	log, err := logpkg.NewLogger(a.env, level)
	if err != nil {
		return err
	}
	a.log = log.With(zap.String("command", cmd.Name()))
	cmd.SetContext(logpkg.ContextWithLogger(cmd.Context(), a.log))

	// Register metrics explicitly (no init())
	metrics.Register()

	a.log.Debug("Starting relevance",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
	)
	return nil
}

func (a *app) loadConfig(optional bool) (config.Config, error) {
	if a.configPath != "" {
		return config.LoadFile(a.configPath)
	}
	cfg, err := config.Load(a.env)
	if err == nil {
		return cfg, nil
	}
	if optional && errors.Is(err, fs.ErrNotExist) {
		cfg = config.Config{}
		cfg.ApplyDefaults()
		return cfg, nil
	}
	return config.Config{}, err
}

// close releases resources and exports metrics.
func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.log == nil {
		return
	}
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			a.log.Warn("Metrics export failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

func (a *app) reportError(err error) {
	if a.log != nil {
		a.log.Error("Command failed", zap.Error(err))
		return
	}
	fmt.Fprintln(os.Stderr, "relevance:", err)
}

func (a *app) pipelineConfig() pipeline.Config {
	return pipeline.Config{
		Vectorizer: tfidf.Config{
			MaxFeatures: a.cfg.Vectorizer.MaxFeatures,
			NGramMin:    a.cfg.Vectorizer.NGramMin,
			NGramMax:    a.cfg.Vectorizer.NGramMax,
		},
		Forest: forest.Config{
			Trees:           a.cfg.Forest.Trees,
			SplitFeatures:   a.cfg.Forest.SplitFeatures,
			MaxDepth:        a.cfg.Forest.MaxDepth,
			MinSamplesSplit: a.cfg.Forest.MinSamplesSplit,
		},
	}
}

func (a *app) corpusLoader() *corpus.Loader {
	return corpus.New(
		corpus.WithExtension(a.cfg.Corpus.Extension),
		corpus.WithWorkers(a.cfg.Corpus.Workers),
		corpus.WithLogger(a.log),
	)
}

func (a *app) artifactStore() (*artifact.Store, error) {
	return artifact.New(a.cfg.Models.Dir, artifact.WithWorkers(a.cfg.Training.Workers))
}

// registry connects to the configured registry, or returns nil when none is configured.
func (a *app) registry(ctx context.Context) (*registry.Registry, error) {
	rc := a.cfg.Registry
	if !rc.Enabled() {
		return nil, nil
	}
	if a.store == nil {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    rc.Addrs,
			Username: rc.Username,
			Password: rc.Password,
			DB:       rc.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create registry store: %w", err)
		}
		a.store = store
	}
	if err := a.store.WaitForReady(ctx, time.Duration(rc.ReadinessTimeout)*time.Second); err != nil {
		return nil, fmt.Errorf("registry not ready: %w", err)
	}
	a.log.Info("Connected to registry", zap.Strings("addrs", rc.Addrs))
	return registry.New(a.store, rc.KeyPrefix), nil
}

// publisher is registry for commands that only mirror results: an
// unreachable registry is logged and the command goes on without it.
func (a *app) publisher(ctx context.Context) *registry.Registry {
	reg, err := a.registry(ctx)
	if err != nil {
		a.log.Warn("Registry unavailable, skipping publish",
			zap.Strings("addrs", a.cfg.Registry.Addrs), zap.Error(err))
		return nil
	}
	return reg
}
