package collector

import (
	"context"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/panel"
)

// Synthetic serves random-walk prices. The request is ignored; the panel is
// fully determined by the generator config.
type Synthetic struct {
	cfg panel.SimConfig
}

// NewSynthetic creates a synthetic provider
func NewSynthetic(cfg panel.SimConfig) *Synthetic {
	return &Synthetic{cfg: cfg}
}

func (s *Synthetic) Name() string {
	return "synthetic"
}

func (s *Synthetic) FetchPrices(ctx context.Context, _ core.PriceRequest) (*panel.Panel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return panel.Simulate(s.cfg), nil
}
