package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/backtest"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/rundir"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/storage"
)

func testReport(dates []time.Time) *Report {
	res := &backtest.Result{
		Returns: []float64{0, 0, 0.01, -0.02, 0.03},
		Rebalances: []backtest.RebalanceEvent{
			{Period: 2, Long: []int{2}, Short: []int{0}, Weights: []float64{-1, 0, 1}, Turnover: 2, Cost: 0.001},
			{Period: 4, Long: []int{1}, Short: []int{1}, Weights: []float64{0, 0, 0}, Turnover: 2, Overlap: 1},
		},
	}
	return &Report{
		Run: &rundir.Run{
			ID:       "3f1c9a4e-0000-4000-8000-000000000000",
			Project:  "demo",
			Path:     "/tmp/demo",
			Revision: "abc1234",
			Started:  time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		Source:   "synthetic",
		Columns:  []string{"A", "B", "C"},
		Dates:    dates,
		Lookback: 2,
		Result:   res,
		Stats:    backtest.Summarize(res, 2, 252),
		Config:   map[string]any{"project": "demo"},
	}
}

func newStore(t *testing.T) (*storage.LocalFS, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalFS(dir)
	require.NoError(t, err)
	return store, dir
}

func TestWriter_WritesAllArtifacts(t *testing.T) {
	store, dir := newStore(t)
	w := NewWriter(store, true)

	written, err := w.Write(context.Background(), testReport(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{EquityCSV, EquityParquet, RebalancesCSV, ConfigYAML, SummaryYAML}, written)

	for _, name := range written {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestWriter_WithoutParquet(t *testing.T) {
	store, dir := newStore(t)
	w := NewWriter(store, false)

	written, err := w.Write(context.Background(), testReport(nil))
	require.NoError(t, err)
	assert.NotContains(t, written, EquityParquet)
	assert.NoFileExists(t, filepath.Join(dir, EquityParquet))
}

func TestWriter_EquityCSV(t *testing.T) {
	store, dir := newStore(t)
	dates := []time.Time{
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	_, err := NewWriter(store, false).Write(context.Background(), testReport(dates))
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, EquityCSV))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, []string{"period", "date", "return", "equity"}, records[0])
	assert.Equal(t, []string{"0", "2024-01-02", "0", "1"}, records[1])
	assert.Equal(t, []string{"2", "2024-01-04", "0.01", "1.01"}, records[3])
	assert.Equal(t, "2024-01-08", records[5][1])
}

func TestWriter_EquityParquetRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	r := testReport(nil)
	_, err := NewWriter(store, true).Write(context.Background(), r)
	require.NoError(t, err)

	data, err := store.Read(context.Background(), EquityParquet)
	require.NoError(t, err)

	rows, err := parquet.Read[EquityRow](bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, EquityRows(nil, r.Result.Returns), rows)
}

func TestWriter_RebalancesCSV(t *testing.T) {
	store, _ := newStore(t)
	_, err := NewWriter(store, false).Write(context.Background(), testReport(nil))
	require.NoError(t, err)

	data, err := store.Read(context.Background(), RebalancesCSV)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"2", "", "C", "A", "2", "2", "0.001", "0"}, records[1])
	assert.Equal(t, []string{"4", "", "B", "B", "0", "2", "0", "1"}, records[2])
}

func TestWriter_Summary(t *testing.T) {
	store, _ := newStore(t)
	r := testReport(nil)
	written, err := NewWriter(store, true).Write(context.Background(), r)
	require.NoError(t, err)

	data, err := store.Read(context.Background(), SummaryYAML)
	require.NoError(t, err)

	var s Summary
	require.NoError(t, yaml.Unmarshal(data, &s))
	assert.Equal(t, "demo", s.Project)
	assert.Equal(t, "abc1234", s.Revision)
	assert.Equal(t, "2025-03-14T09:30:00Z", s.Started)
	assert.Equal(t, 3, s.Assets)
	assert.Equal(t, 5, s.Periods)
	assert.Equal(t, 3, s.Metrics.ActivePeriods)
	assert.Equal(t, 2, s.Metrics.Rebalances)
	assert.Equal(t, 1, s.Metrics.Overlaps)
	assert.InDelta(t, 0.001, s.Metrics.TotalCost, 1e-12)
	assert.InDelta(t, r.Stats.SharpeRatio, s.Metrics.SharpeRatio, 1e-12)
	assert.Equal(t, written[:len(written)-1], s.Artifacts)
}

func TestWriter_SummaryNaNSharpe(t *testing.T) {
	store, _ := newStore(t)
	r := testReport(nil)
	r.Stats.SharpeRatio = math.NaN()
	_, err := NewWriter(store, false).Write(context.Background(), r)
	require.NoError(t, err)

	data, err := store.Read(context.Background(), SummaryYAML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sharpe: .nan")
}

func TestWriter_DateMismatch(t *testing.T) {
	store, _ := newStore(t)
	r := testReport([]time.Time{time.Now()})

	_, err := NewWriter(store, false).Write(context.Background(), r)
	assert.ErrorIs(t, err, core.ErrArtifactFailed)
}

type failingStore struct {
	storage.Storage
}

func (failingStore) Write(ctx context.Context, path string, data []byte) error {
	return os.ErrPermission
}

func TestWriter_StorageFailure(t *testing.T) {
	written, err := NewWriter(failingStore{}, false).Write(context.Background(), testReport(nil))
	assert.ErrorIs(t, err, core.ErrArtifactFailed)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Empty(t, written)
}

func TestEquityRows(t *testing.T) {
	rows := EquityRows(nil, []float64{0.1, -0.5})
	require.Len(t, rows, 2)
	assert.InDelta(t, 1.1, rows[0].Equity, 1e-12)
	assert.InDelta(t, 0.55, rows[1].Equity, 1e-12)
	assert.Equal(t, int64(1), rows[1].Period)
	assert.Empty(t, rows[1].Date)
}
