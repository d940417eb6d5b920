package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/panel"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/storage"
)

// Cached serves price panels from storage, falling back to the wrapped
// provider on a miss or when refresh is set. Fetched panels are written
// back as CSV under the request's cache name.
type Cached struct {
	next    PriceProvider
	store   storage.Storage
	refresh bool
	logger  *zap.Logger
}

// NewCached wraps next with a storage-backed cache
func NewCached(next PriceProvider, store storage.Storage, refresh bool, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, store: store, refresh: refresh, logger: logger}
}

func (c *Cached) Name() string {
	return c.next.Name()
}

func (c *Cached) FetchPrices(ctx context.Context, req core.PriceRequest) (*panel.Panel, error) {
	name := req.CacheName()

	if !c.refresh {
		p, err := c.load(ctx, name)
		switch {
		case err == nil:
			c.logger.Debug("price cache hit", zap.String("file", name), zap.Int("rows", p.Rows()))
			return p, nil
		case !errors.Is(err, core.ErrNotFound):
			return nil, core.WrapError(core.ErrCacheFailed, fmt.Errorf("reading %s: %w", name, err))
		}
	}

	c.logger.Info("fetching prices",
		zap.String("provider", c.next.Name()),
		zap.Strings("tickers", req.Tickers),
		zap.String("start", req.Start),
		zap.String("end", req.End),
		zap.Bool("refresh", c.refresh),
	)

	p, err := c.next.FetchPrices(ctx, req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := p.WriteCSV(&buf); err != nil {
		return nil, core.WrapError(core.ErrCacheFailed, fmt.Errorf("encoding %s: %w", name, err))
	}
	if err := c.store.Write(ctx, name, buf.Bytes()); err != nil {
		return nil, core.WrapError(core.ErrCacheFailed, fmt.Errorf("writing %s: %w", name, err))
	}
	return p, nil
}

func (c *Cached) load(ctx context.Context, name string) (*panel.Panel, error) {
	data, err := c.store.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	p, err := panel.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	sortByDate(p)
	return p, nil
}

// sortByDate orders rows chronologically; cache files may be edited by hand
func sortByDate(p *panel.Panel) {
	if p.Dates == nil || sort.SliceIsSorted(p.Dates, func(i, j int) bool { return p.Dates[i].Before(p.Dates[j]) }) {
		return
	}
	idx := make([]int, len(p.Dates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return p.Dates[idx[a]].Before(p.Dates[idx[b]]) })

	dates := make([]time.Time, len(idx))
	values := make([][]float64, len(idx))
	for i, k := range idx {
		dates[i] = p.Dates[k]
		values[i] = p.Values[k]
	}
	p.Dates, p.Values = dates, values
}
