package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trading-autopilot/internal/indicators"
)

// Client fetches candles and quotes from the market-data service. It
// implements both CandleFeed and QuoteFeed.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a market-data client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type candleResponse struct {
	OpenTime  int64   `json:"openTime"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"closeTime"`
}

// GetCandles fetches up to window daily candles for a symbol, oldest
// first
func (c *Client) GetCandles(ctx context.Context, symbol string, window int) ([]indicators.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(window))

	endpoint := fmt.Sprintf("%s/v1/candles?%s", c.baseURL, params.Encode())

	var raw []candleResponse
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch candles for %s: %w", symbol, err)
	}

	candles := make([]indicators.Candle, len(raw))
	for i, r := range raw {
		candles[i] = indicators.Candle{
			OpenTime:  time.UnixMilli(r.OpenTime),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
			CloseTime: time.UnixMilli(r.CloseTime),
		}
	}
	return candles, nil
}

type quoteResponse struct {
	Symbol string   `json:"symbol"`
	Last   *float64 `json:"last"`
}

// GetPrice fetches the last trade price for a symbol. A nil price with
// a nil error means the service has no quote for the symbol.
func (c *Client) GetPrice(ctx context.Context, symbol string) (*float64, error) {
	endpoint := fmt.Sprintf("%s/v1/quote?symbol=%s", c.baseURL, url.QueryEscape(symbol))

	var resp quoteResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}
	return resp.Last, nil
}

type optionQuoteResponse struct {
	Bid *float64 `json:"bid"`
	Ask *float64 `json:"ask"`
	Mid *float64 `json:"mid"`
}

// GetOptionMid fetches the mid price for one option contract. A nil
// price with a nil error means the contract is not quoted.
func (c *Client) GetOptionMid(ctx context.Context, symbol, expiration string, strike float64, optionType string) (*float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("expiration", expiration)
	params.Set("strike", strconv.FormatFloat(strike, 'f', 2, 64))
	params.Set("type", optionType)

	endpoint := fmt.Sprintf("%s/v1/option/quote?%s", c.baseURL, params.Encode())

	var resp optionQuoteResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch option quote for %s: %w", symbol, err)
	}
	if resp.Mid != nil {
		return resp.Mid, nil
	}
	if resp.Bid != nil && resp.Ask != nil {
		mid := (*resp.Bid + *resp.Ask) / 2
		return &mid, nil
	}
	return nil, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return json.Unmarshal(body, out)
}
