package panel

import (
	"math"
	"math/rand/v2"
	"strconv"
)

// SimConfig parameterizes the synthetic price generator
type SimConfig struct {
	Assets int
	Days   int
	Seed   uint64
	Mu     float64 // mean daily log return
	Sigma  float64 // daily log return volatility
}

// DefaultSimConfig returns the generator defaults: 50 assets, five years of
// trading days, seed 7.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Assets: 50,
		Days:   252 * 5,
		Seed:   7,
		Mu:     0.0002,
		Sigma:  0.01,
	}
}

// Simulate generates a geometric random walk starting at 100 for every asset.
// The same config always produces the same panel.
func Simulate(cfg SimConfig) *Panel {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))

	columns := make([]string, cfg.Assets)
	for j := range columns {
		columns[j] = "SIM" + strconv.Itoa(j)
	}

	cum := make([]float64, cfg.Assets)
	values := make([][]float64, cfg.Days)
	for t := range values {
		row := make([]float64, cfg.Assets)
		for j := range row {
			cum[j] += cfg.Mu + cfg.Sigma*rng.NormFloat64()
			row[j] = 100.0 * math.Exp(cum[j])
		}
		values[t] = row
	}

	return &Panel{Columns: columns, Values: values}
}
