package backtest

import (
	"math"
)

// TradingDaysPerYear is the default annualization factor for daily data
const TradingDaysPerYear = 252

// Stats holds performance statistics of a return sequence
type Stats struct {
	Periods          int
	TotalReturn      float64 // equity[end] - 1
	AnnualizedReturn float64 // geometric, NaN when Periods is zero
	SharpeRatio      float64 // annualized, NaN when undefined
	MaxDrawdown      float64 // most negative equity/peak - 1, zero or below
	Rebalances       int
	TotalTurnover    float64
	TotalCost        float64
	Overlaps         int
}

// Summarize computes statistics over the active part of a backtest, the
// periods from the lookback onward. Periods before it hold no position.
func Summarize(res *Result, lookback, periodsPerYear int) Stats {
	active := res.Returns[min(lookback, len(res.Returns)):]

	equity := EquityCurve(active)
	total := 0.0
	if len(equity) > 0 {
		total = equity[len(equity)-1] - 1
	}

	return Stats{
		Periods:          len(active),
		TotalReturn:      total,
		AnnualizedReturn: annualizedReturn(total, len(active), periodsPerYear),
		SharpeRatio:      AnnualizedSharpe(active, periodsPerYear),
		MaxDrawdown:      MaxDrawdown(active),
		Rebalances:       len(res.Rebalances),
		TotalTurnover:    res.TotalTurnover(),
		TotalCost:        res.TotalCost(),
		Overlaps:         res.Overlaps(),
	}
}

// EquityCurve returns the cumulative product of (1 + r)
func EquityCurve(returns []float64) []float64 {
	equity := make([]float64, len(returns))
	cumulative := 1.0
	for i, r := range returns {
		cumulative *= 1 + r
		equity[i] = cumulative
	}
	return equity
}

// AnnualizedSharpe computes mean/stdev scaled by sqrt(periodsPerYear), with
// a zero risk-free rate and the sample standard deviation. It returns NaN for
// fewer than two observations or zero variance; callers must check.
func AnnualizedSharpe(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return math.NaN()
	}

	return mean / stdDev * math.Sqrt(float64(periodsPerYear))
}

// MaxDrawdown returns the minimum of equity/running_max(equity) - 1.
// The result is zero or negative; an empty sequence has no drawdown.
func MaxDrawdown(returns []float64) float64 {
	var maxDD float64
	peak := math.Inf(-1)

	for _, e := range EquityCurve(returns) {
		if e > peak {
			peak = e
		}
		if dd := e/peak - 1; dd < maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

func annualizedReturn(total float64, periods, periodsPerYear int) float64 {
	if periods == 0 {
		return math.NaN()
	}
	return math.Pow(1+total, float64(periodsPerYear)/float64(periods)) - 1
}
