package backtest

import (
	"fmt"
	"strings"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
)

// Rebalance is the cadence at which baskets are recomputed
type Rebalance int

const (
	Daily Rebalance = iota + 1
	Weekly
	Monthly
)

// ParseRebalance maps a cadence name to its Rebalance value.
// Matching is exact; anything other than daily, weekly or monthly is a
// configuration error.
func ParseRebalance(s string) (Rebalance, error) {
	switch s {
	case "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	case "monthly":
		return Monthly, nil
	}
	return 0, core.WrapError(core.ErrConfigInvalid,
		fmt.Errorf("unknown rebalance %q, use one of: %s", s, strings.Join(RebalanceNames(), ", ")))
}

// RebalanceNames lists the accepted cadence names
func RebalanceNames() []string {
	return []string{"daily", "weekly", "monthly"}
}

// Step returns the number of trading periods between rebalances
func (r Rebalance) Step() int {
	switch r {
	case Daily:
		return 1
	case Weekly:
		return 5
	case Monthly:
		return 21
	}
	return 0
}

func (r Rebalance) String() string {
	switch r {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	}
	return fmt.Sprintf("Rebalance(%d)", int(r))
}

// Valid reports whether r is one of the defined cadences
func (r Rebalance) Valid() bool {
	return r.Step() > 0
}
