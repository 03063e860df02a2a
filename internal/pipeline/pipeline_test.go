package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchradar/radar-cli/internal/model"
	"github.com/pitchradar/radar-cli/internal/normalize"
	"github.com/pitchradar/radar-cli/internal/store"
)

// memStore is an in-memory Store for pipeline tests.
type memStore struct {
	collections map[string][]model.Opportunity
	outcomes    []model.BatchOutcome
}

func newMemStore() *memStore {
	return &memStore{collections: make(map[string][]model.Opportunity)}
}

func (m *memStore) GetCollection(_ context.Context, key string) ([]model.Opportunity, error) {
	return m.collections[key], nil
}

func (m *memStore) SetCollection(_ context.Context, key string, items []model.Opportunity) error {
	m.collections[key] = items
	return nil
}

func (m *memStore) LastUpdated(_ context.Context, _ string) (time.Time, error) {
	return time.Time{}, nil
}

func (m *memStore) ListKeys(_ context.Context) ([]string, error) {
	keys := make([]string, 0, len(m.collections))
	for k := range m.collections {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *memStore) SaveOutcome(_ context.Context, outcome model.BatchOutcome) error {
	m.outcomes = append(m.outcomes, outcome)
	return nil
}

func (m *memStore) ListOutcomes(_ context.Context, _ int) ([]model.BatchOutcome, error) {
	return m.outcomes, nil
}

func (m *memStore) Migrate(_ context.Context) error { return nil }
func (m *memStore) Close() error                    { return nil }

func rawBatch() []model.RawRecord {
	return []model.RawRecord{
		{
			"title":       "Looking for cybersecurity experts",
			"description": "Need a quote on ransomware trends for a feature.",
			"url":         "https://www.sourcebottle.com/query/101",
			"externalId":  "sb-101",
			"category":    "Technology",
		},
		{
			"title":       "Parenting story sources wanted",
			"description": "Seeking parents of teens for a lifestyle piece.",
			"url":         "https://www.sourcebottle.com/query/102",
			"externalId":  "sb-102",
		},
		{
			// No url, dropped by validation.
			"title":       "Broken record",
			"description": "This one has no link.",
		},
	}
}

func TestRunMergesAndRecordsOutcome(t *testing.T) {
	st := newMemStore()
	p := New(st)

	outcome, err := p.Run(context.Background(), "sourcebottle", rawBatch())
	require.NoError(t, err)

	assert.Equal(t, "sourcebottle", outcome.Source)
	assert.NotEmpty(t, outcome.RunID)
	assert.Equal(t, 2, outcome.Added)
	assert.Equal(t, 2, outcome.Total)
	assert.Equal(t, 1, outcome.Dropped)
	assert.Equal(t, 0, outcome.Failed)

	perSource := st.collections[store.SourceKey("sourcebottle")]
	require.Len(t, perSource, 2)
	assert.Equal(t, "Looking for cybersecurity experts", perSource[0].Title)

	aggregate := st.collections[store.AggregateKey]
	assert.Len(t, aggregate, 2)

	require.Len(t, st.outcomes, 1)
	assert.Equal(t, outcome.RunID, st.outcomes[0].RunID)
}

func TestRunIsIdempotent(t *testing.T) {
	st := newMemStore()
	p := New(st)
	ctx := context.Background()

	first, err := p.Run(ctx, "sourcebottle", rawBatch())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Added)

	second, err := p.Run(ctx, "sourcebottle", rawBatch())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 2, second.Total)

	assert.Len(t, st.collections[store.SourceKey("sourcebottle")], 2)
	assert.Len(t, st.outcomes, 2)
}

func TestRunRecoversFromNormalizePanic(t *testing.T) {
	// A clock that panics on its first call makes the first record blow up
	// mid-normalize; the rest of the batch must still land.
	calls := 0
	n := normalize.New(normalize.WithClock(func() time.Time {
		calls++
		if calls == 1 {
			panic("clock exploded")
		}
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}))

	st := newMemStore()
	p := New(st, WithNormalizer(n))

	outcome, err := p.Run(context.Background(), "sourcebottle", rawBatch())
	require.NoError(t, err)

	// One panicked, one invalid, one survived.
	assert.Equal(t, 2, outcome.Dropped)
	assert.Equal(t, 1, outcome.Added)
	assert.Len(t, st.collections[store.SourceKey("sourcebottle")], 1)
}

func TestRunEmptyBatch(t *testing.T) {
	st := newMemStore()
	p := New(st)

	outcome, err := p.Run(context.Background(), "qwoted", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.Added)
	assert.Equal(t, 0, outcome.Total)
	assert.Equal(t, 0, outcome.Dropped)
}
