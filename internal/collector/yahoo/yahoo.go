package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/panel"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	userAgent = "Mozilla/5.0 (compatible; quantlab/1.0)"
)

// validSymbol matches symbols like AAPL, BRK-B, ^GSPC, 0700.HK
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9-]{1,10}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Config holds Yahoo client settings
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxFill           int               // forward-fill limit applied to fetched panels
	Transport         http.RoundTripper // nil uses http.DefaultTransport
}

// Yahoo fetches daily adjusted closes from the Yahoo Finance chart API
type Yahoo struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	maxFill int
	logger  *zap.Logger
}

// New creates a new Yahoo collector
func New(cfg Config, logger *zap.Logger) *Yahoo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Yahoo{
		client:  &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		baseURL: cfg.BaseURL,
		limiter: rate.NewLimiter(limit, 1),
		maxFill: cfg.MaxFill,
		logger:  logger,
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// FetchPrices fetches every ticker, aligns them on the union of trading
// dates and cleans the result into a dense panel.
func (y *Yahoo) FetchPrices(ctx context.Context, req core.PriceRequest) (*panel.Panel, error) {
	start, end, err := req.Range()
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("price request dates: %w", err))
	}

	bars := make(map[string][]core.Bar, len(req.Tickers))
	for _, ticker := range req.Tickers {
		series, err := y.FetchHistory(ctx, ticker, start, end)
		if err != nil {
			return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("%s: %w", ticker, err))
		}
		if len(series) == 0 {
			return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no prices for %s", ticker))
		}
		bars[ticker] = series
	}

	p := panel.FromBars(req.Tickers, bars)
	rows := p.Rows()
	dropped := p.Clean(y.maxFill)
	if dropped > 0 {
		y.logger.Warn("dropped incomplete price rows",
			zap.Int("dropped", dropped),
			zap.Int("rows", rows),
		)
	}
	if p.Rows() == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no complete price rows for %v", req.Tickers))
	}

	return p, nil
}

// FetchHistory fetches daily adjusted closes in [start, end)
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d&events=div%%2Csplit",
		y.baseURL, symbol, start.Unix(), end.Unix())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := y.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}

	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data for symbol: %s", symbol)
	}

	closes := result.Chart.Result[0].closes()
	timestamps := result.Chart.Result[0].Timestamp

	data := make([]core.Bar, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(closes) || closes[i] == nil || !(*closes[i] > 0) || math.IsInf(*closes[i], 0) {
			continue // Skip missing data
		}
		data = append(data, core.Bar{
			Symbol: symbol,
			Time:   time.Unix(ts, 0).UTC(),
			Close:  *closes[i],
		})
	}

	return data, nil
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type indicators struct {
	Quote    []quoteIndicator    `json:"quote"`
	AdjClose []adjCloseIndicator `json:"adjclose"`
}

type quoteIndicator struct {
	Close []*float64 `json:"close"`
}

type adjCloseIndicator struct {
	AdjClose []*float64 `json:"adjclose"`
}

// closes prefers split and dividend adjusted closes
func (r chartResult) closes() []*float64 {
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) > 0 {
		return r.Indicators.AdjClose[0].AdjClose
	}
	if len(r.Indicators.Quote) > 0 {
		return r.Indicators.Quote[0].Close
	}
	return nil
}
