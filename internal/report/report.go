package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/backtest"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/rundir"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/storage"
)

// Artifact names, relative to the run directory
const (
	EquityCSV     = "equity_curve.csv"
	EquityParquet = "equity_curve.parquet"
	RebalancesCSV = "rebalances.csv"
	SummaryYAML   = "summary.yaml"
	ConfigYAML    = "config.yaml"
)

// Report is everything a finished experiment persists. Dates labels each
// return period and is nil for synthetic panels.
type Report struct {
	Run      *rundir.Run
	Source   string
	Columns  []string
	Dates    []time.Time
	Lookback int
	Result   *backtest.Result
	Stats    backtest.Stats
	Config   any
}

// EquityRow is the on-disk schema of the equity curve
type EquityRow struct {
	Period int64   `parquet:"period"`
	Date   string  `parquet:"date"`
	Return float64 `parquet:"return"`
	Equity float64 `parquet:"equity"`
}

// Summary is the YAML document describing a run
type Summary struct {
	RunID     string       `yaml:"run_id"`
	Project   string       `yaml:"project"`
	Revision  string       `yaml:"revision"`
	Started   string       `yaml:"started"`
	Source    string       `yaml:"source"`
	Assets    int          `yaml:"assets"`
	Periods   int          `yaml:"periods"`
	Lookback  int          `yaml:"lookback"`
	FirstDate string       `yaml:"first_date,omitempty"`
	LastDate  string       `yaml:"last_date,omitempty"`
	Metrics   MetricsBlock `yaml:"metrics"`
	Artifacts []string     `yaml:"artifacts"`
}

// MetricsBlock holds the performance statistics of the active segment.
// Undefined ratios are written as .nan.
type MetricsBlock struct {
	ActivePeriods    int     `yaml:"active_periods"`
	TotalReturn      float64 `yaml:"total_return"`
	AnnualizedReturn float64 `yaml:"annualized_return"`
	SharpeRatio      float64 `yaml:"sharpe"`
	MaxDrawdown      float64 `yaml:"max_drawdown"`
	Rebalances       int     `yaml:"rebalances"`
	TotalTurnover    float64 `yaml:"total_turnover"`
	TotalCost        float64 `yaml:"total_cost"`
	Overlaps         int     `yaml:"overlapping_rebalances"`
}

// Writer persists reports to a storage backend rooted at the run directory
type Writer struct {
	store   storage.Storage
	parquet bool
}

// NewWriter creates a writer. When withParquet is set the equity curve is
// also written as Parquet.
func NewWriter(store storage.Storage, withParquet bool) *Writer {
	return &Writer{store: store, parquet: withParquet}
}

// Write stores every artifact and returns their names in write order. The
// summary is written last and lists the artifacts before it.
func (w *Writer) Write(ctx context.Context, r *Report) ([]string, error) {
	if r.Run == nil || r.Result == nil {
		return nil, core.WrapError(core.ErrArtifactFailed, fmt.Errorf("report needs a run and a result"))
	}
	if r.Dates != nil && len(r.Dates) != len(r.Result.Returns) {
		return nil, core.WrapError(core.ErrArtifactFailed,
			fmt.Errorf("%d dates for %d returns", len(r.Dates), len(r.Result.Returns)))
	}

	rows := EquityRows(r.Dates, r.Result.Returns)

	type artifact struct {
		name   string
		encode func() ([]byte, error)
	}
	artifacts := []artifact{
		{EquityCSV, func() ([]byte, error) { return equityCSV(rows) }},
	}
	if w.parquet {
		artifacts = append(artifacts, artifact{EquityParquet, func() ([]byte, error) { return equityParquet(rows) }})
	}
	artifacts = append(artifacts, artifact{RebalancesCSV, func() ([]byte, error) { return rebalancesCSV(r) }})
	if r.Config != nil {
		artifacts = append(artifacts, artifact{ConfigYAML, func() ([]byte, error) { return yaml.Marshal(r.Config) }})
	}

	written := make([]string, 0, len(artifacts)+1)
	for _, a := range artifacts {
		if err := w.put(ctx, a.name, a.encode); err != nil {
			return written, err
		}
		written = append(written, a.name)
	}

	summary := NewSummary(r, written)
	if err := w.put(ctx, SummaryYAML, func() ([]byte, error) { return yaml.Marshal(summary) }); err != nil {
		return written, err
	}
	return append(written, SummaryYAML), nil
}

func (w *Writer) put(ctx context.Context, name string, encode func() ([]byte, error)) error {
	data, err := encode()
	if err != nil {
		return core.WrapError(core.ErrArtifactFailed, fmt.Errorf("encoding %s: %w", name, err))
	}
	if err := w.store.Write(ctx, name, data); err != nil {
		return core.WrapError(core.ErrArtifactFailed, fmt.Errorf("writing %s: %w", name, err))
	}
	return nil
}

// NewSummary builds the summary document of a report
func NewSummary(r *Report, artifacts []string) Summary {
	s := Summary{
		RunID:     r.Run.ID,
		Project:   r.Run.Project,
		Revision:  r.Run.Revision,
		Started:   r.Run.Started.Format(time.RFC3339),
		Source:    r.Source,
		Assets:    len(r.Columns),
		Periods:   len(r.Result.Returns),
		Lookback:  r.Lookback,
		Artifacts: artifacts,
		Metrics: MetricsBlock{
			ActivePeriods:    r.Stats.Periods,
			TotalReturn:      r.Stats.TotalReturn,
			AnnualizedReturn: r.Stats.AnnualizedReturn,
			SharpeRatio:      r.Stats.SharpeRatio,
			MaxDrawdown:      r.Stats.MaxDrawdown,
			Rebalances:       r.Stats.Rebalances,
			TotalTurnover:    r.Stats.TotalTurnover,
			TotalCost:        r.Stats.TotalCost,
			Overlaps:         r.Stats.Overlaps,
		},
	}
	if len(r.Dates) > 0 {
		s.FirstDate = r.Dates[0].Format(core.DateLayout)
		s.LastDate = r.Dates[len(r.Dates)-1].Format(core.DateLayout)
	}
	return s
}

// EquityRows pairs each period's return with the compounded equity. Dates
// may be nil.
func EquityRows(dates []time.Time, returns []float64) []EquityRow {
	equity := backtest.EquityCurve(returns)
	rows := make([]EquityRow, len(returns))
	for t, r := range returns {
		rows[t] = EquityRow{
			Period: int64(t),
			Date:   dateAt(dates, t),
			Return: r,
			Equity: equity[t],
		}
	}
	return rows
}

func equityCSV(rows []EquityRow) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write([]string{"period", "date", "return", "equity"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		rec := []string{
			strconv.FormatInt(row.Period, 10),
			row.Date,
			formatFloat(row.Return),
			formatFloat(row.Equity),
		}
		if err := cw.Write(rec); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

func equityParquet(rows []EquityRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func rebalancesCSV(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	header := []string{"period", "date", "long", "short", "gross_exposure", "turnover", "cost", "overlap"}
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	for _, e := range r.Result.Rebalances {
		rec := []string{
			strconv.Itoa(e.Period),
			dateAt(r.Dates, e.Period),
			names(r.Columns, e.Long),
			names(r.Columns, e.Short),
			formatFloat(e.GrossExposure()),
			formatFloat(e.Turnover),
			formatFloat(e.Cost),
			strconv.Itoa(e.Overlap),
		}
		if err := cw.Write(rec); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

func names(columns []string, idx []int) string {
	out := make([]string, len(idx))
	for i, j := range idx {
		if j < len(columns) {
			out[i] = columns[j]
		} else {
			out[i] = strconv.Itoa(j)
		}
	}
	return strings.Join(out, " ")
}

func dateAt(dates []time.Time, t int) string {
	if t < len(dates) {
		return dates[t].Format(core.DateLayout)
	}
	return ""
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
