package backtest

// Result holds the output of a momentum backtest
type Result struct {
	// Returns has one entry per input period. Entries before the lookback
	// are zero.
	Returns    []float64
	Rebalances []RebalanceEvent
}

// RebalanceEvent records the decision taken at one rebalance date
type RebalanceEvent struct {
	Period   int
	Long     []int // asset indices, strongest signal last
	Short    []int // asset indices, weakest signal first
	Weights  []float64
	Turnover float64 // L1 distance to the previous weights
	Cost     float64 // charged to Returns[Period]
	Overlap  int     // assets selected for both baskets
}

// GrossExposure returns the sum of absolute weights
func (e RebalanceEvent) GrossExposure() float64 {
	var gross float64
	for _, w := range e.Weights {
		if w < 0 {
			gross -= w
		} else {
			gross += w
		}
	}
	return gross
}

// TotalTurnover sums turnover over all rebalances
func (r *Result) TotalTurnover() float64 {
	var total float64
	for _, e := range r.Rebalances {
		total += e.Turnover
	}
	return total
}

// TotalCost sums transaction costs over all rebalances
func (r *Result) TotalCost() float64 {
	var total float64
	for _, e := range r.Rebalances {
		total += e.Cost
	}
	return total
}

// Overlaps counts rebalances where the long and short baskets shared assets
func (r *Result) Overlaps() int {
	var n int
	for _, e := range r.Rebalances {
		if e.Overlap > 0 {
			n++
		}
	}
	return n
}
