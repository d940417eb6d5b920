package core

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in config, caches and artifacts
const DateLayout = "2006-01-02"

// Bar is a single adjusted close observation for one ticker
type Bar struct {
	Symbol string
	Time   time.Time
	Close  float64
}

// PriceRequest identifies a price panel by its tickers and date range
type PriceRequest struct {
	Tickers []string
	Start   string // YYYY-MM-DD
	End     string // YYYY-MM-DD
}

// Key returns the canonical "T1|T2|start|end" form of the request.
// Ticker order is significant since it fixes the panel column order.
func (r PriceRequest) Key() string {
	return strings.Join(r.Tickers, "|") + "|" + r.Start + "|" + r.End
}

// CacheName returns the file name under which the request's prices are cached
func (r PriceRequest) CacheName() string {
	sum := md5.Sum([]byte(r.Key()))
	return "prices_" + hex.EncodeToString(sum[:])[:10] + ".csv"
}

// Range parses the start and end dates.
func (r PriceRequest) Range() (start, end time.Time, err error) {
	start, err = time.Parse(DateLayout, r.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = time.Parse(DateLayout, r.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
