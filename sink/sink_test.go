package sink

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *SQLSink {
	t.Helper()
	s, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLSink_SaveAndResults(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	run := uuid.New()
	other := uuid.New()

	records := []Record{
		{RunID: run, TestcaseID: "1", Algorithm: "drf", TrainDatasetID: "1", MetricName: MetricMSE, MetricValue: 0.25, TunedOrDefaults: "tuned"},
		{RunID: run, TestcaseID: "1", Algorithm: "drf", TrainDatasetID: "1", MetricName: MetricAUC, MetricValue: 0.9, TunedOrDefaults: "tuned"},
		{RunID: other, TestcaseID: "2", Algorithm: "glm", TrainDatasetID: "2", ValidateDatasetID: "3", MetricName: MetricMSE, MetricValue: 1.5, TunedOrDefaults: "defaults"},
	}
	for _, r := range records {
		require.NoError(t, s.Save(ctx, r))
	}

	got, err := s.Results(ctx, run)
	require.NoError(t, err)
	want := records[:2]
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Record{}, "CreatedAt")); diff != "" {
		t.Errorf("Results mismatch (-want +got):\n%s", diff)
	}
	for _, r := range got {
		assert.False(t, r.CreatedAt.IsZero())
	}

	got, err = s.Results(ctx, other)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "defaults", got[0].TunedOrDefaults)
	assert.Equal(t, "3", got[0].ValidateDatasetID)
}

func TestSQLSink_MigrateIsIdempotent(t *testing.T) {
	s := openSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open("mysql", "dsn")
	assert.Error(t, err)

	_, err = Open(DriverSQLite, "")
	assert.Error(t, err)
}

func TestMemorySink(t *testing.T) {
	m := NewMemorySink()
	ctx := context.Background()
	require.NoError(t, m.Save(ctx, Record{TestcaseID: "1", MetricName: MetricMSE, MetricValue: 2}))

	stamp := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, m.Save(ctx, Record{TestcaseID: "2", MetricName: MetricMSE, CreatedAt: stamp}))

	got := m.Records()
	require.Len(t, got, 2)
	assert.False(t, got[0].CreatedAt.IsZero())
	assert.Equal(t, stamp, got[1].CreatedAt)

	got[0].TestcaseID = "changed"
	assert.Equal(t, "1", m.Records()[0].TestcaseID)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, m.Save(cancelled, Record{}), context.Canceled)
	assert.NoError(t, m.Close())
}
