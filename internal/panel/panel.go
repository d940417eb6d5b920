package panel

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
)

// Panel is a dense time x asset table. Rows are chronological, columns keep
// a fixed asset order. Dates may be nil for synthetic data.
type Panel struct {
	Dates   []time.Time
	Columns []string
	Values  [][]float64
}

// New validates the shape of values against dates and columns
func New(dates []time.Time, columns []string, values [][]float64) (*Panel, error) {
	if dates != nil && len(dates) != len(values) {
		return nil, core.WrapError(core.ErrPrecondition,
			fmt.Errorf("%d dates for %d rows", len(dates), len(values)))
	}
	for i, row := range values {
		if len(row) != len(columns) {
			return nil, core.WrapError(core.ErrPrecondition,
				fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns)))
		}
	}
	return &Panel{Dates: dates, Columns: columns, Values: values}, nil
}

// Rows returns the number of time steps
func (p *Panel) Rows() int {
	return len(p.Values)
}

// Cols returns the number of assets
func (p *Panel) Cols() int {
	return len(p.Columns)
}

// Returns derives the simple-returns panel. The first date is dropped.
func (p *Panel) Returns() *Panel {
	var dates []time.Time
	if len(p.Dates) > 1 {
		dates = append([]time.Time(nil), p.Dates[1:]...)
	}
	return &Panel{
		Dates:   dates,
		Columns: append([]string(nil), p.Columns...),
		Values:  PricesToReturns(p.Values),
	}
}

// PricesToReturns computes price[t]/price[t-1] - 1 for every asset.
// Prices must be strictly positive; zero or negative prices yield non-finite
// or meaningless output.
func PricesToReturns(prices [][]float64) [][]float64 {
	if len(prices) < 2 {
		return [][]float64{}
	}
	out := make([][]float64, len(prices)-1)
	for t := 1; t < len(prices); t++ {
		row := make([]float64, len(prices[t]))
		for j := range row {
			row[j] = prices[t][j]/prices[t-1][j] - 1.0
		}
		out[t-1] = row
	}
	return out
}

// FromBars aligns per-ticker bar series on the union of their dates.
// Dates a ticker has no bar for are NaN. Column order follows tickers.
func FromBars(tickers []string, bars map[string][]core.Bar) *Panel {
	index := make(map[int64]struct{})
	byTicker := make(map[string]map[int64]float64, len(tickers))
	for _, ticker := range tickers {
		series := make(map[int64]float64, len(bars[ticker]))
		for _, b := range bars[ticker] {
			day := truncateDay(b.Time).Unix()
			series[day] = b.Close
			index[day] = struct{}{}
		}
		byTicker[ticker] = series
	}

	days := make([]int64, 0, len(index))
	for d := range index {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	p := &Panel{
		Dates:   make([]time.Time, len(days)),
		Columns: append([]string(nil), tickers...),
		Values:  make([][]float64, len(days)),
	}
	for i, d := range days {
		p.Dates[i] = time.Unix(d, 0).UTC()
		row := make([]float64, len(tickers))
		for j, ticker := range tickers {
			v, ok := byTicker[ticker][d]
			if !ok {
				v = math.NaN()
			}
			row[j] = v
		}
		p.Values[i] = row
	}
	return p
}

// Clean drops rows where every value is missing, forward-fills gaps of at
// most maxFill rows per column, then drops rows that are still incomplete.
// It returns the number of rows dropped in the last step.
func (p *Panel) Clean(maxFill int) int {
	var dates []time.Time
	var values [][]float64
	for i, row := range p.Values {
		if allNaN(row) {
			continue
		}
		values = append(values, append([]float64(nil), row...))
		if p.Dates != nil {
			dates = append(dates, p.Dates[i])
		}
	}

	for j := range p.Columns {
		run := 0
		last := math.NaN()
		for _, row := range values {
			if !math.IsNaN(row[j]) {
				last = row[j]
				run = 0
				continue
			}
			run++
			if run <= maxFill && !math.IsNaN(last) {
				row[j] = last
			}
		}
	}

	dropped := 0
	keptDates := dates[:0:0]
	kept := values[:0:0]
	for i, row := range values {
		if anyNaN(row) {
			dropped++
			continue
		}
		kept = append(kept, row)
		if dates != nil {
			keptDates = append(keptDates, dates[i])
		}
	}

	if p.Dates != nil {
		p.Dates = keptDates
	}
	p.Values = kept
	return dropped
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func allNaN(row []float64) bool {
	for _, v := range row {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

func anyNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
