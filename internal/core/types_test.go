package core

import (
	"strings"
	"testing"
)

func TestPriceRequest_Key(t *testing.T) {
	req := PriceRequest{Tickers: []string{"SPY", "QQQ"}, Start: "2020-01-01", End: "2021-01-01"}
	if got := req.Key(); got != "SPY|QQQ|2020-01-01|2021-01-01" {
		t.Errorf("Key() = %q", got)
	}
}

func TestPriceRequest_CacheName(t *testing.T) {
	req := PriceRequest{Tickers: []string{"SPY", "QQQ"}, Start: "2020-01-01", End: "2021-01-01"}
	name := req.CacheName()

	if !strings.HasPrefix(name, "prices_") || !strings.HasSuffix(name, ".csv") {
		t.Fatalf("unexpected cache name %q", name)
	}
	if len(name) != len("prices_")+10+len(".csv") {
		t.Errorf("expected 10 hex chars in %q", name)
	}
	if name != req.CacheName() {
		t.Error("cache name should be stable")
	}

	swapped := PriceRequest{Tickers: []string{"QQQ", "SPY"}, Start: "2020-01-01", End: "2021-01-01"}
	if swapped.CacheName() == name {
		t.Error("ticker order should change the cache name")
	}
}

func TestPriceRequest_Range(t *testing.T) {
	req := PriceRequest{Start: "2020-01-02", End: "2020-03-04"}
	start, end, err := req.Range()
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if start.Format(DateLayout) != "2020-01-02" || end.Format(DateLayout) != "2020-03-04" {
		t.Errorf("Range() = %v, %v", start, end)
	}

	if _, _, err := (PriceRequest{Start: "bad", End: "2020-01-01"}).Range(); err == nil {
		t.Error("expected error for bad start date")
	}
}
