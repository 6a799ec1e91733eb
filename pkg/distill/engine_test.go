package distill

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/goldmine/pkg/config"
	"github.com/theapemachine/goldmine/pkg/memory"
)

type mockStore struct {
	records  map[string][]memory.Record
	fetchErr error

	upserts   [][]memory.ScoredRecord
	ensured   []string
	snapshots int
}

func (m *mockStore) FetchAll(ctx context.Context, collection, agent, namespace string) ([]memory.Record, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.records[agent], nil
}

func (m *mockStore) CollectionGeometry(ctx context.Context, collection string) (memory.VectorGeometry, bool, error) {
	return memory.VectorGeometry{Size: 4, Distance: "Cosine"}, true, nil
}

func (m *mockStore) EnsureCollection(ctx context.Context, collection string, geom memory.VectorGeometry) error {
	m.ensured = append(m.ensured, collection)
	return nil
}

func (m *mockStore) Upsert(ctx context.Context, collection string, records []memory.ScoredRecord) error {
	m.upserts = append(m.upserts, records)
	return nil
}

func (m *mockStore) Snapshot(ctx context.Context, collection string) (string, error) {
	m.snapshots++
	return "golden-test.snapshot", nil
}

func (m *mockStore) ListSnapshots(ctx context.Context, collection string) ([]string, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		QdrantHost:       "localhost",
		QdrantPort:       6333,
		SourceCollection: "agent_memories",
		GoldenCollection: "golden_memories",
		SnapshotDir:      "/var/snapshots",
		LLMBatchSize:     10,
	}
}

// strongText scores 70 with the rule table: 50 + 15 (win) + 5 (length).
var strongText = "win" + strings.Repeat("x", 247)

// weakText scores 65: 50 + 15 (win), too short for the length bonus.
var weakText = "win " + strings.Repeat("x", 42)

func traderRecords(strong, weak int) []memory.Record {
	records := make([]memory.Record, 0, strong+weak)

	for i := 0; i < strong; i++ {
		records = append(records, memory.Record{
			ID: fmt.Sprintf("strong-%d", i), Agent: "trader", Text: strongText,
		})
	}
	for i := 0; i < weak; i++ {
		records = append(records, memory.Record{
			ID: fmt.Sprintf("weak-%d", i), Agent: "trader", Text: weakText,
		})
	}

	return records
}

func TestDistillCapsPerAgent(t *testing.T) {
	store := &mockStore{records: map[string][]memory.Record{
		"trader": traderRecords(100, 50),
	}}

	engine := New(testConfig(), store)

	report, err := engine.Distill(context.Background(), RunConfiguration{
		Agents:      []string{"trader"},
		MinScore:    60,
		MaxPerAgent: 100,
	})

	require.NoError(t, err)
	assert.Equal(t, 150, report.Processed)
	assert.Equal(t, 100, report.Kept)
	assert.Equal(t, 50, report.Discarded)

	require.Len(t, report.Agents, 1)
	assert.Equal(t, 100, report.Agents[0].Kept)
	require.Len(t, report.Agents[0].Preview, 5)

	// The 50 lowest-scoring eligible records are the ones dropped.
	require.Len(t, store.upserts, 1)
	for _, rec := range store.upserts[0] {
		assert.Equal(t, 70, rec.Score)
	}
}

func TestDistillRetentionIsMonotonic(t *testing.T) {
	store := &mockStore{records: map[string][]memory.Record{
		"trader": traderRecords(20, 20),
	}}

	engine := New(testConfig(), store)

	var previous = int(^uint(0) >> 1)

	for _, minScore := range []int{0, 60, 66, 71, 100} {
		report, err := engine.Distill(context.Background(), RunConfiguration{
			Agents:      []string{"trader"},
			MinScore:    minScore,
			MaxPerAgent: 1000,
			DryRun:      true,
		})

		require.NoError(t, err)
		assert.LessOrEqual(t, report.Kept, previous, "raising the threshold must never add records")
		previous = report.Kept
	}
}

func TestDistillExcludesNoiseEvenAtZeroThreshold(t *testing.T) {
	store := &mockStore{records: map[string][]memory.Record{
		"trader": {
			{ID: "noisy", Agent: "trader", Text: "error 500 again here"},
		},
	}}

	engine := New(testConfig(), store)

	report, err := engine.Distill(context.Background(), RunConfiguration{
		Agents:      []string{"trader"},
		MinScore:    0,
		MaxPerAgent: 10,
		DryRun:      true,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Kept)
}

func TestDistillTieBreakIsFetchOrder(t *testing.T) {
	store := &mockStore{records: map[string][]memory.Record{
		"trader": {
			{ID: "first", Agent: "trader", Text: strongText},
			{ID: "second", Agent: "trader", Text: strongText},
			{ID: "third", Agent: "trader", Text: strongText},
		},
	}}

	engine := New(testConfig(), store)

	_, err := engine.Distill(context.Background(), RunConfiguration{
		Agents:      []string{"trader"},
		MinScore:    0,
		MaxPerAgent: 10,
	})

	require.NoError(t, err)
	require.Len(t, store.upserts, 1)

	ids := []string{}
	for _, rec := range store.upserts[0] {
		ids = append(ids, rec.ID)
	}

	assert.Equal(t, []string{"first", "second", "third"}, ids)
}

func TestDistillDryRunNeverWrites(t *testing.T) {
	store := &mockStore{records: map[string][]memory.Record{
		"trader": traderRecords(5, 0),
	}}

	engine := New(testConfig(), store)

	report, err := engine.Distill(context.Background(), RunConfiguration{
		Agents:      []string{"trader"},
		MinScore:    0,
		MaxPerAgent: 10,
		DryRun:      true,
		Snapshot:    true, // ignored on dry runs
	})

	require.NoError(t, err)
	assert.Equal(t, 5, report.Kept)
	assert.Empty(t, store.ensured)
	assert.Empty(t, store.upserts)
	assert.Zero(t, store.snapshots)
	assert.Empty(t, report.SnapshotPath)
}

func TestDistillSnapshotAfterPersist(t *testing.T) {
	cfg := testConfig()
	store := &mockStore{records: map[string][]memory.Record{
		"trader": traderRecords(3, 0),
	}}

	engine := New(cfg, store)

	report, err := engine.Distill(context.Background(), RunConfiguration{
		Agents:      []string{"trader"},
		MinScore:    0,
		MaxPerAgent: 10,
		Snapshot:    true,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"golden_memories"}, store.ensured)
	assert.Equal(t, 1, store.snapshots)
	assert.Equal(t, filepath.Join(cfg.SnapshotDir, "golden-test.snapshot"), report.SnapshotPath)
}

func TestDistillFailsFastOnStoreError(t *testing.T) {
	store := &mockStore{fetchErr: errors.New("connection refused")}
	engine := New(testConfig(), store)

	report, err := engine.Distill(context.Background(), RunConfiguration{
		Agents:      []string{"trader"},
		MinScore:    0,
		MaxPerAgent: 10,
	})

	assert.Error(t, err)
	assert.Nil(t, report, "no partial report on failure")
}

func TestDistillValidatesBeforeProcessing(t *testing.T) {
	store := &mockStore{}
	engine := New(testConfig(), store)

	_, err := engine.Distill(context.Background(), RunConfiguration{
		Agents:      []string{"trader"},
		MinScore:    150,
		MaxPerAgent: 10,
	})
	assert.Error(t, err)

	_, err = engine.Distill(context.Background(), RunConfiguration{
		Agents:      []string{"trader"},
		MinScore:    50,
		MaxPerAgent: 10,
		Categories:  []memory.Category{"made_up"},
	})
	assert.Error(t, err)

	_, err = engine.Distill(context.Background(), RunConfiguration{
		MinScore:    50,
		MaxPerAgent: 10,
	})
	assert.Error(t, err, "at least one agent is required")
}

func TestDistillEligibleCategoryFilter(t *testing.T) {
	store := &mockStore{records: map[string][]memory.Record{
		"trader": traderRecords(3, 0),
	}}

	engine := New(testConfig(), store)

	// strongText lands in trading_win_pattern; restricting eligibility
	// to system_rule must drop everything.
	report, err := engine.Distill(context.Background(), RunConfiguration{
		Agents:      []string{"trader"},
		MinScore:    0,
		MaxPerAgent: 10,
		Categories:  []memory.Category{memory.CategorySystemRule},
		DryRun:      true,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, report.Kept)
}

func TestDistillReportOrderFollowsConfiguration(t *testing.T) {
	store := &mockStore{records: map[string][]memory.Record{
		"trader":     traderRecords(2, 0),
		"researcher": {{ID: "r", Agent: "researcher", Text: strings.Repeat("steady design notes ", 12)}},
	}}

	engine := New(testConfig(), store)

	report, err := engine.Distill(context.Background(), RunConfiguration{
		Agents:      []string{"researcher", "trader", "researcher"},
		MinScore:    0,
		MaxPerAgent: 10,
		DryRun:      true,
	})

	require.NoError(t, err)
	require.Len(t, report.Agents, 3)
	assert.Equal(t, "researcher", report.Agents[0].Agent)
	assert.Equal(t, "trader", report.Agents[1].Agent)
	assert.Equal(t, "researcher", report.Agents[2].Agent)
}

func TestBuildSummaryReportIsDryRuleOnly(t *testing.T) {
	store := &mockStore{records: map[string][]memory.Record{
		"trader": traderRecords(30, 0),
	}}

	engine := New(testConfig(), store)

	report, err := engine.BuildSummaryReport(context.Background(), []string{"trader"})

	require.NoError(t, err)
	assert.Equal(t, 10, report.Kept, "summary runs keep at most 10 per agent")
	assert.Empty(t, store.upserts, "summary runs never persist")
}

func TestTruncatePreviewText(t *testing.T) {
	long := strings.Repeat("a", 200)

	assert.Equal(t, strings.Repeat("a", 160)+"…", truncate(long, 160))
	assert.Equal(t, "short", truncate("short", 160))
}
