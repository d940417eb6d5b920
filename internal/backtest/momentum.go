package backtest

import (
	"fmt"
	"math"
	"sort"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
)

// MomentumConfig parameterizes the cross-sectional long/short momentum strategy
type MomentumConfig struct {
	Lookback  int       // periods in the signal window
	LongFrac  float64   // fraction of assets held long, in (0, 1]
	ShortFrac float64   // fraction of assets held short, in (0, 1]
	Rebalance Rebalance // basket recomputation cadence
	CostBps   float64   // cost in basis points of traded notional
}

// DefaultMomentumConfig returns a one-year lookback, quintile long/short,
// monthly rebalanced strategy paying 5 bps on turnover.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		Lookback:  252,
		LongFrac:  0.2,
		ShortFrac: 0.2,
		Rebalance: Monthly,
		CostBps:   5,
	}
}

// Validate checks the configuration for errors.
func (c MomentumConfig) Validate() error {
	if c.Lookback < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lookback must be positive, got %d", c.Lookback))
	}
	if !(c.LongFrac > 0 && c.LongFrac <= 1) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("long_frac must be in (0, 1], got %v", c.LongFrac))
	}
	if !(c.ShortFrac > 0 && c.ShortFrac <= 1) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("short_frac must be in (0, 1], got %v", c.ShortFrac))
	}
	if !c.Rebalance.Valid() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown rebalance cadence %v", c.Rebalance))
	}
	if !(c.CostBps >= 0) || math.IsInf(c.CostBps, 1) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cost_bps must be a non-negative number, got %v", c.CostBps))
	}
	return nil
}

// BasketSizes returns the number of long and short positions for n assets.
// Sizes are round(frac*n) with halves rounded to even, floored at one.
func (c MomentumConfig) BasketSizes(n int) (nLong, nShort int) {
	return basketSize(c.LongFrac, n), basketSize(c.ShortFrac, n)
}

func basketSize(frac float64, n int) int {
	return max(1, int(math.RoundToEven(frac*float64(n))))
}

// Momentum runs the long/short momentum backtest. It holds only its
// configuration and is safe for concurrent use.
type Momentum struct {
	cfg MomentumConfig
}

// NewMomentum validates cfg and returns an engine for it
func NewMomentum(cfg MomentumConfig) (*Momentum, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Momentum{cfg: cfg}, nil
}

// Config returns the engine configuration
func (m *Momentum) Config() MomentumConfig {
	return m.cfg
}

// Run walks the returns panel (rows = periods, columns = assets) and returns
// the portfolio return of every period.
//
// At period t >= lookback with (t-lookback) a multiple of the cadence step,
// assets are ranked by compounded return over [t-lookback, t) and the
// baskets are rebuilt. The new weights earn period t's return and the
// turnover cost is charged in the same period. Between rebalances the last
// weights are held and no cost is charged.
//
// The panel must be dense; NaN or Inf values are propagated, not rejected.
func (m *Momentum) Run(returns [][]float64) (*Result, error) {
	n, err := panelWidth(returns)
	if err != nil {
		return nil, err
	}

	periods := len(returns)
	res := &Result{Returns: make([]float64, periods)}

	lookback := m.cfg.Lookback
	if lookback >= periods {
		return res, nil
	}

	nLong, nShort := m.cfg.BasketSizes(n)
	step := m.cfg.Rebalance.Step()
	costRate := m.cfg.CostBps / 1e4

	weights := make([]float64, n)
	for t := lookback; t < periods; t++ {
		var cost float64
		if (t-lookback)%step == 0 {
			ev := rebalance(returns[t-lookback:t], weights, nLong, nShort)
			ev.Period = t
			ev.Cost = costRate * ev.Turnover
			res.Rebalances = append(res.Rebalances, ev)

			weights = ev.Weights
			cost = ev.Cost
		}
		res.Returns[t] = dot(weights, returns[t]) - cost
	}

	return res, nil
}

// LongShortMomentum validates cfg and returns only the portfolio returns
func LongShortMomentum(returns [][]float64, cfg MomentumConfig) ([]float64, error) {
	m, err := NewMomentum(cfg)
	if err != nil {
		return nil, err
	}
	res, err := m.Run(returns)
	if err != nil {
		return nil, err
	}
	return res.Returns, nil
}

// rebalance ranks the window's compounded returns and builds the new
// equal-weight baskets. prev is not modified.
func rebalance(window [][]float64, prev []float64, nLong, nShort int) RebalanceEvent {
	n := len(prev)
	order := rankAscending(compounded(window, n))

	short := append([]int(nil), order[:nShort]...)
	long := append([]int(nil), order[n-nLong:]...)

	// Baskets are filled independently. An asset in both nets its weights.
	w := make([]float64, n)
	inLong := make([]bool, n)
	for _, i := range long {
		w[i] += 1.0 / float64(nLong)
		inLong[i] = true
	}
	overlap := 0
	for _, i := range short {
		w[i] -= 1.0 / float64(nShort)
		if inLong[i] {
			overlap++
		}
	}

	var turnover float64
	for i := range w {
		turnover += math.Abs(w[i] - prev[i])
	}

	return RebalanceEvent{
		Long:     long,
		Short:    short,
		Weights:  w,
		Turnover: turnover,
		Overlap:  overlap,
	}
}

// compounded returns prod(1+r)-1 per asset over the window
func compounded(window [][]float64, n int) []float64 {
	growth := make([]float64, n)
	for i := range growth {
		growth[i] = 1
	}
	for _, row := range window {
		for i, r := range row {
			growth[i] *= 1 + r
		}
	}
	for i := range growth {
		growth[i] -= 1
	}
	return growth
}

// rankAscending returns asset indices ordered by signal. Ties keep column
// order, so among equal signals the lower index ranks weaker.
func rankAscending(sig []float64) []int {
	idx := make([]int, len(sig))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return sig[idx[a]] < sig[idx[b]]
	})
	return idx
}

func dot(w, r []float64) float64 {
	var s float64
	for i := range w {
		s += w[i] * r[i]
	}
	return s
}

func panelWidth(returns [][]float64) (int, error) {
	if len(returns) == 0 {
		return 0, core.WrapError(core.ErrPrecondition, fmt.Errorf("returns panel has no periods"))
	}
	n := len(returns[0])
	if n == 0 {
		return 0, core.WrapError(core.ErrPrecondition, fmt.Errorf("returns panel has no assets"))
	}
	for t, row := range returns {
		if len(row) != n {
			return 0, core.WrapError(core.ErrPrecondition,
				fmt.Errorf("period %d has %d assets, want %d", t, len(row), n))
		}
	}
	return n, nil
}
