package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pitchradar/radar-cli/internal/analysis"
	"github.com/pitchradar/radar-cli/internal/ingest"
	"github.com/pitchradar/radar-cli/internal/merge"
	"github.com/pitchradar/radar-cli/internal/normalize"
	"github.com/pitchradar/radar-cli/internal/pipeline"
	"github.com/pitchradar/radar-cli/internal/store"
	anthropicpkg "github.com/pitchradar/radar-cli/pkg/anthropic"
)

// radarEnv holds the initialized store, ingestor, and pipeline shared by the
// ingest/serve commands.
type radarEnv struct {
	Store    store.Store
	Ingestor *ingest.Ingestor
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *radarEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "radar.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initNormalizer builds the normalizer, applying mapping overrides from the
// configured YAML file when present.
func initNormalizer() (*normalize.Normalizer, error) {
	if cfg.Sources.MappingsPath == "" {
		return normalize.New(), nil
	}

	raw, err := os.ReadFile(cfg.Sources.MappingsPath)
	if err != nil {
		return nil, eris.Wrap(err, "read mappings file")
	}
	mappings, err := normalize.MappingsFromYAML(raw)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded mapping overrides",
		zap.String("path", cfg.Sources.MappingsPath),
		zap.Int("sources", len(mappings)),
	)
	return normalize.New(normalize.WithMappings(mappings)), nil
}

// initEnv sets up the store, ingestor, and pipeline. AI scoring is attached
// only when an Anthropic key is configured. Callers should defer env.Close().
func initEnv(ctx context.Context) (*radarEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	normalizer, err := initNormalizer()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithNormalizer(normalizer),
		pipeline.WithMergers(
			merge.New(merge.WithMaxSize(cfg.Merge.PerSourceCap)),
			merge.New(merge.WithMaxSize(cfg.Merge.AggregateCap)),
		),
	}

	if cfg.Anthropic.Key != "" {
		cache := analysis.NewCache(
			analysis.WithMaxSize(cfg.Cache.MaxSize),
			analysis.WithSimilarityThreshold(cfg.Cache.SimilarityThreshold),
		)
		analyzer := analysis.NewAnalyzer(anthropicpkg.NewClient(cfg.Anthropic.Key), cache, cfg.Anthropic.Model)
		opts = append(opts, pipeline.WithAnalyzer(analyzer))
		zap.L().Info("ai scoring enabled", zap.String("model", cfg.Anthropic.Model))
	} else {
		zap.L().Debug("RADAR_ANTHROPIC_KEY not set, ai scoring disabled")
	}

	ingestor := ingest.NewIngestor(
		ingest.NewHTTPFetcher(ingest.HTTPOptions{
			Timeout:    time.Duration(cfg.Ingest.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Ingest.MaxRetries,
		}),
		nil,
	)

	return &radarEnv{
		Store:    st,
		Ingestor: ingestor,
		Pipeline: pipeline.New(st, opts...),
	}, nil
}

// feedByName finds the configured feed for a source name.
func feedByName(name string) (ingest.Source, bool) {
	for _, feed := range cfg.Sources.Feeds {
		if feed.Name == name {
			return feed, true
		}
	}
	return ingest.Source{}, false
}
