package notifier

import (
	"context"
	"fmt"
	"time"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type" yaml:"type"`
	Params map[string]any `mapstructure:"params" yaml:"params"`
}

// RunSummary describes a finished experiment. Err is set for failed runs,
// in which case the metrics are zero.
type RunSummary struct {
	RunID       string
	Project     string
	RunDir      string
	Revision    string
	Source      string
	Assets      int
	Periods     int
	Rebalances  int
	Overlaps    int
	TotalReturn float64
	Sharpe      float64 // NaN when undefined
	MaxDrawdown float64
	TotalCost   float64
	Finished    time.Time
	Err         string
}

// Failed reports whether the run ended in an error
func (s RunSummary) Failed() bool {
	return s.Err != ""
}

// Headline is a one-line description of the run
func (s RunSummary) Headline() string {
	if s.Failed() {
		return fmt.Sprintf("%s run failed: %s", s.Project, s.Err)
	}
	return fmt.Sprintf("%s run finished: total return %.2f%%, sharpe %s, max drawdown %.2f%%",
		s.Project, s.TotalReturn*100, FormatRatio(s.Sharpe), s.MaxDrawdown*100)
}

// FormatRatio prints a ratio with two decimals, or n/a when undefined
func FormatRatio(v float64) string {
	if v != v {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

// Notifier defines the interface for run notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Notify announces a finished run
	Notify(ctx context.Context, summary RunSummary) error
}
