// Package pipeline carries raw batches from listing sources through
// normalization, validation, scoring, and merge into stored collections.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pitchradar/radar-cli/internal/analysis"
	"github.com/pitchradar/radar-cli/internal/merge"
	"github.com/pitchradar/radar-cli/internal/model"
	"github.com/pitchradar/radar-cli/internal/normalize"
	"github.com/pitchradar/radar-cli/internal/store"
	"github.com/pitchradar/radar-cli/internal/validate"
)

// Pipeline carries one batch of raw records from a listing source through to
// the persisted collections.
type Pipeline struct {
	normalizer *normalize.Normalizer
	analyzer   *analysis.Analyzer
	sourceMrg  *merge.Merger
	allMrg     *merge.Merger
	store      store.Store

	// keyMu serializes merges per storage key so concurrent batches for the
	// same collection cannot interleave read-modify-write cycles.
	mu    sync.Mutex
	keyMu map[string]*sync.Mutex
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNormalizer overrides the default normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(p *Pipeline) { p.normalizer = n }
}

// WithAnalyzer enables AI scoring of incoming batches. Without it the
// pipeline stores opportunities unscored.
func WithAnalyzer(a *analysis.Analyzer) Option {
	return func(p *Pipeline) { p.analyzer = a }
}

// WithMergers overrides the per-source and aggregate mergers.
func WithMergers(source, all *merge.Merger) Option {
	return func(p *Pipeline) {
		p.sourceMrg = source
		p.allMrg = all
	}
}

// New creates a Pipeline persisting to the given store.
func New(st store.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		normalizer: normalize.New(),
		sourceMrg:  merge.New(merge.WithMaxSize(merge.PerSourceCap)),
		allMrg:     merge.New(merge.WithMaxSize(merge.AggregateCap)),
		store:      st,
		keyMu:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes one raw batch from the named source. Invalid records are
// dropped and logged, never fatal. The returned outcome is also persisted to
// the store's run history.
func (p *Pipeline) Run(ctx context.Context, source string, records []model.RawRecord) (*model.BatchOutcome, error) {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID), zap.String("source", source))
	start := time.Now()
	log.Info("pipeline: starting batch", zap.Int("records", len(records)))

	outcome := model.BatchOutcome{
		RunID:      runID,
		Source:     source,
		StorageKey: store.SourceKey(source),
		StartedAt:  start.UTC(),
	}

	// Normalize and validate. A panic on one record drops that record only.
	fresh := make([]model.Opportunity, 0, len(records))
	for i, rec := range records {
		opp := p.normalizeRecord(rec, source, i, log)
		if opp == nil {
			outcome.Dropped++
			continue
		}
		if !validate.IsValid(opp) {
			outcome.Dropped++
			log.Warn("pipeline: dropping invalid record",
				zap.String("title", opp.Title),
				zap.String("url", opp.URL),
				zap.Strings("reasons", validate.ExplainDefects(opp)),
			)
			continue
		}
		fresh = append(fresh, *opp)
	}

	if p.analyzer != nil {
		outcome.Failed = p.analyzer.AnalyzeBatch(ctx, fresh)
	}

	result, err := p.mergeInto(ctx, store.SourceKey(source), fresh, p.sourceMrg)
	if err != nil {
		return nil, err
	}
	outcome.Added = result.AddedCount
	outcome.Total = result.TotalCount

	// The aggregate collection gets the same batch under its own cap. Its
	// counts do not feed the outcome; the per-source collection is the one
	// callers reason about.
	if _, err := p.mergeInto(ctx, store.AggregateKey, fresh, p.allMrg); err != nil {
		return nil, err
	}

	outcome.Duration = time.Since(start).Milliseconds()
	if err := p.store.SaveOutcome(ctx, outcome); err != nil {
		log.Warn("pipeline: failed to record run outcome", zap.Error(err))
	}

	log.Info("pipeline: batch complete",
		zap.Int("added", outcome.Added),
		zap.Int("total", outcome.Total),
		zap.Int("dropped", outcome.Dropped),
		zap.Int("failed", outcome.Failed),
		zap.Int64("duration_ms", outcome.Duration),
	)
	return &outcome, nil
}

// normalizeRecord maps one raw record, recovering from panics in mapping code
// with best-effort identity logging.
func (p *Pipeline) normalizeRecord(rec model.RawRecord, source string, idx int, log *zap.Logger) (opp *model.Opportunity) {
	defer func() {
		if r := recover(); r != nil {
			title, _ := rec["title"].(string)
			url, _ := rec["url"].(string)
			log.Error("pipeline: panic normalizing record",
				zap.Int("index", idx),
				zap.String("title", title),
				zap.String("url", url),
				zap.Any("panic", r),
			)
			opp = nil
		}
	}()
	return p.normalizer.Normalize(rec, source)
}

// mergeInto loads the collection at key, merges the fresh batch, and writes it
// back under the key's lock.
func (p *Pipeline) mergeInto(ctx context.Context, key string, fresh []model.Opportunity, mrg *merge.Merger) (*merge.Result, error) {
	lock := p.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	existing, err := p.store.GetCollection(ctx, key)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load collection %s", key)
	}

	result := mrg.Merge(fresh, existing)

	if err := p.store.SetCollection(ctx, key, result.Merged); err != nil {
		return nil, eris.Wrapf(err, "pipeline: save collection %s", key)
	}
	return &result, nil
}

func (p *Pipeline) lockFor(key string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.keyMu[key]
	if !ok {
		lock = &sync.Mutex{}
		p.keyMu[key] = lock
	}
	return lock
}
