package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestGetCandlesDecodesPayload(t *testing.T) {
	openMs := time.Date(2026, 3, 4, 14, 30, 0, 0, time.UTC).UnixMilli()
	closeMs := time.Date(2026, 3, 4, 21, 0, 0, 0, time.UTC).UnixMilli()

	var gotAuth, gotSymbol string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSymbol = r.URL.Query().Get("symbol")
		w.Write([]byte(`[{"openTime":` + formatMs(openMs) +
			`,"open":100,"high":105,"low":99,"close":104,"volume":25000,"closeTime":` +
			formatMs(closeMs) + `}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	candles, err := c.GetCandles(context.Background(), "AAPL", 250)
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotSymbol != "AAPL" {
		t.Errorf("symbol param = %q", gotSymbol)
	}
	if len(candles) != 1 {
		t.Fatalf("got %d candles, want 1", len(candles))
	}

	candle := candles[0]
	if !candle.OpenTime.Equal(time.UnixMilli(openMs)) {
		t.Errorf("open time = %v, want %v", candle.OpenTime, time.UnixMilli(openMs))
	}
	if !candle.CloseTime.Equal(time.UnixMilli(closeMs)) {
		t.Errorf("close time = %v, want %v", candle.CloseTime, time.UnixMilli(closeMs))
	}
	if candle.Close != 104 || candle.Volume != 25000 {
		t.Errorf("candle = %+v", candle)
	}
}

func TestGetPriceMissingQuoteIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"ZZZZ","last":null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	price, err := c.GetPrice(context.Background(), "ZZZZ")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if price != nil {
		t.Errorf("price = %v, want nil for an unquoted symbol", *price)
	}
}

func TestGetOptionMidFallsBackToBidAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bid":1.10,"ask":1.30}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	mid, err := c.GetOptionMid(context.Background(), "AAPL", "2026-04-17", 190, "CALL")
	if err != nil {
		t.Fatalf("GetOptionMid: %v", err)
	}
	if mid == nil || *mid != 1.20 {
		t.Errorf("mid = %v, want 1.20", mid)
	}
}

func TestErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.GetCandles(context.Background(), "AAPL", 250); err == nil {
		t.Error("5xx response should surface as an error")
	}
}

func formatMs(ms int64) string {
	return strconv.FormatInt(ms, 10)
}
