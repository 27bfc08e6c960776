// Package binance is the REST and WebSocket gateway to the venue's spot API.
// It implements the domain.Exchange contract consumed by the trading loop.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/crypto"
	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// DefaultBaseURL is the venue's production REST API root.
const DefaultBaseURL = "https://api.binance.com"

// Client is the REST client for the venue's spot API. Public market-data
// endpoints are unauthenticated; account and order endpoints are signed with
// the HMAC credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       *crypto.HMACAuth

	// now is the clock used for request timestamps.
	now func() time.Time
}

var _ domain.Exchange = (*Client)(nil)

// NewClient creates a REST client. baseURL defaults to DefaultBaseURL when
// empty; timeout bounds each request so a stalled venue cannot hang a cycle.
func NewClient(baseURL string, auth *crypto.HMACAuth, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		auth: auth,
		now:  time.Now,
	}
}

// FetchOrderBook returns the top levels of the book for the symbol. Bids are
// descending and asks ascending, as delivered by the venue.
func (c *Client) FetchOrderBook(ctx context.Context, symbol string, depth int) (domain.OrderBookSnapshot, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", strconv.Itoa(depth))

	body, err := c.doPublic(ctx, "/api/v3/depth", q)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("binance: fetch order book: %w", err)
	}

	var api apiDepth
	if err := json.Unmarshal(body, &api); err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("binance: decode depth: %w", err)
	}

	snap, err := api.toSnapshot(symbol, c.now())
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("binance: decode depth: %w", err)
	}
	return snap, nil
}

// FetchCandles returns up to limit OHLCV bars for the symbol, oldest first.
func (c *Client) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.doPublic(ctx, "/api/v3/klines", q)
	if err != nil {
		return nil, fmt.Errorf("binance: fetch candles: %w", err)
	}

	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("binance: decode klines: %w", err)
	}

	candles := make([]domain.Candle, 0, len(raw))
	for _, row := range raw {
		candle, err := klineToCandle(row)
		if err != nil {
			return nil, fmt.Errorf("binance: decode klines: %w", err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// FetchBalances returns the free balance per asset for the account.
func (c *Client) FetchBalances(ctx context.Context) (map[string]float64, error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return nil, fmt.Errorf("binance: fetch balances: %w", err)
	}

	var api apiAccount
	if err := json.Unmarshal(body, &api); err != nil {
		return nil, fmt.Errorf("binance: decode account: %w", err)
	}
	return api.toBalances()
}

// PlaceMarketBuy submits a market buy for the given base quantity.
func (c *Client) PlaceMarketBuy(ctx context.Context, symbol string, quantity float64) (domain.OrderResult, error) {
	return c.placeMarketOrder(ctx, symbol, "BUY", quantity)
}

// PlaceMarketSell submits a market sell for the given base quantity.
func (c *Client) PlaceMarketSell(ctx context.Context, symbol string, quantity float64) (domain.OrderResult, error) {
	return c.placeMarketOrder(ctx, symbol, "SELL", quantity)
}

func (c *Client) placeMarketOrder(ctx context.Context, symbol, side string, quantity float64) (domain.OrderResult, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("side", side)
	q.Set("type", "MARKET")
	q.Set("quantity", strconv.FormatFloat(quantity, 'f', -1, 64))

	body, err := c.doSigned(ctx, http.MethodPost, "/api/v3/order", q)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: place market %s: %w", side, err)
	}

	var api apiOrderResponse
	if err := json.Unmarshal(body, &api); err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: decode order response: %w", err)
	}
	return api.toOrderResult()
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doPublic sends an unauthenticated GET request and returns the raw body.
func (c *Client) doPublic(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.send(req)
}

// doSigned appends a timestamp, signs the query string and sends the request
// with the API-key header.
func (c *Client) doSigned(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	if c.auth == nil {
		return nil, domain.ErrUnauthorized
	}

	query.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	encoded := query.Encode()
	encoded += "&signature=" + c.auth.Sign(encoded)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+encoded, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.auth.Key)

	return c.send(req)
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, mapAPIError(resp.StatusCode, body)
	}
	return body, nil
}

// mapAPIError converts a non-200 response into a domain error, wrapping the
// venue's error code and message for logging.
func mapAPIError(status int, body []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	var base error
	switch {
	case status == http.StatusTooManyRequests || status == 418:
		base = domain.ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		base = domain.ErrUnauthorized
	case apiErr.Code == codeInsufficientBalance:
		base = domain.ErrInsufficientBalance
	case apiErr.Code == codeFilterFailure:
		base = domain.ErrInvalidOrder
	default:
		return fmt.Errorf("http %d: code=%d msg=%q", status, apiErr.Code, apiErr.Msg)
	}
	return fmt.Errorf("http %d: code=%d msg=%q: %w", status, apiErr.Code, apiErr.Msg, base)
}
