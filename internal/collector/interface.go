package collector

import (
	"context"
	"time"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/panel"
)

// PriceProvider returns a dense price panel for a request. Columns follow
// the request's ticker order and rows are chronological.
type PriceProvider interface {
	Name() string
	FetchPrices(ctx context.Context, req core.PriceRequest) (*panel.Panel, error)
}

// HistoryFetcher fetches the daily adjusted close series of one symbol
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error)
}
