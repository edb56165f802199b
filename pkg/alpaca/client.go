package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go-brokerage-backend/internal/domain"
	"go-brokerage-backend/pkg/apperror"
)

// Config holds credentials and endpoints for the Alpaca paper-trading API.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string // trading API, e.g. https://paper-api.alpaca.markets
	DataURL   string // market data API, e.g. https://data.alpaca.markets
}

// Client relays requests to Alpaca. When credentials are absent it runs in
// demo mode and serves clearly-marked canned payloads instead of calling out.
// Every live call carries a bounded timeout so a stuck upstream surfaces as a
// failure rather than hanging the caller.
type Client struct {
	cfg  Config
	http *http.Client
	demo bool
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
		demo: cfg.APIKey == "" || cfg.APISecret == "",
	}
}

// Demo reports whether the client serves canned data.
func (c *Client) Demo() bool {
	return c.demo
}

func (c *Client) GetAccount(ctx context.Context) (*domain.BrokerageAccount, error) {
	var raw json.RawMessage
	if c.demo {
		raw = DemoAccount()
	} else {
		var err error
		raw, err = c.do(ctx, http.MethodGet, c.cfg.BaseURL+"/v2/account", nil)
		if err != nil {
			return nil, err
		}
	}

	var snapshot map[string]any
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, apperror.Upstream("Brokerage returned an unreadable account payload", err)
	}
	id, _ := snapshot["id"].(string)
	if id == "" {
		return nil, apperror.Upstream("Brokerage account payload is missing an id", nil)
	}
	return &domain.BrokerageAccount{ID: id, Snapshot: snapshot}, nil
}

func (c *Client) GetPositions(ctx context.Context) (json.RawMessage, error) {
	if c.demo {
		return DemoPositions(), nil
	}
	return c.do(ctx, http.MethodGet, c.cfg.BaseURL+"/v2/positions", nil)
}

func (c *Client) GetPortfolioHistory(ctx context.Context, period, timeframe string) (json.RawMessage, error) {
	if c.demo {
		return DemoPortfolioHistory(), nil
	}
	q := url.Values{}
	q.Set("period", period)
	q.Set("timeframe", timeframe)
	return c.do(ctx, http.MethodGet, c.cfg.BaseURL+"/v2/account/portfolio/history?"+q.Encode(), nil)
}

func (c *Client) GetWatchlists(ctx context.Context) (json.RawMessage, error) {
	if c.demo {
		return json.RawMessage(`[]`), nil
	}
	return c.do(ctx, http.MethodGet, c.cfg.BaseURL+"/v2/watchlists", nil)
}

func (c *Client) GetSnapshot(ctx context.Context, symbol string) (json.RawMessage, error) {
	if c.demo {
		return DemoSnapshot(symbol), nil
	}
	return c.do(ctx, http.MethodGet, c.cfg.DataURL+"/v2/stocks/"+url.PathEscape(symbol)+"/snapshot", nil)
}

func (c *Client) GetBars(ctx context.Context, symbol string, bq domain.BarsQuery) (json.RawMessage, error) {
	if c.demo {
		return json.RawMessage(`{"bars":[],"symbol":"` + symbol + `"}`), nil
	}
	q := url.Values{}
	timeframe := bq.Timeframe
	if timeframe == "" {
		timeframe = "1Day"
	}
	q.Set("timeframe", timeframe)
	if bq.Start != "" {
		q.Set("start", bq.Start)
	}
	if bq.End != "" {
		q.Set("end", bq.End)
	}
	return c.do(ctx, http.MethodGet, c.cfg.DataURL+"/v2/stocks/"+url.PathEscape(symbol)+"/bars?"+q.Encode(), nil)
}

func (c *Client) SearchAssets(ctx context.Context, search string) (json.RawMessage, error) {
	if c.demo {
		return json.RawMessage(`[]`), nil
	}
	endpoint := c.cfg.BaseURL + "/v2/assets"
	if search != "" {
		endpoint += "?search=" + url.QueryEscape(search)
	}
	return c.do(ctx, http.MethodGet, endpoint, nil)
}

func (c *Client) PlaceOrder(ctx context.Context, order json.RawMessage) (json.RawMessage, error) {
	if c.demo {
		return DemoOrderAck(order), nil
	}
	return c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/orders", bytes.NewReader(order))
}

func (c *Client) ListOrders(ctx context.Context, status string) (json.RawMessage, error) {
	if c.demo {
		return DemoOrders(), nil
	}
	if status == "" {
		status = "all"
	}
	return c.do(ctx, http.MethodGet, c.cfg.BaseURL+"/v2/orders?status="+url.QueryEscape(status), nil)
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	if c.demo {
		return DemoOrders(), nil
	}
	return c.do(ctx, http.MethodGet, c.cfg.BaseURL+"/v2/orders/"+url.PathEscape(orderID), nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.cfg.APIKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.cfg.APISecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Upstream("Brokerage request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Upstream("Brokerage response could not be read", err)
	}

	if resp.StatusCode >= 400 {
		// Short diagnostic only; the raw upstream body stays server-side.
		return nil, apperror.Upstream(
			fmt.Sprintf("Brokerage request failed with status %d", resp.StatusCode),
			fmt.Errorf("alpaca %s %s: status %d: %s", method, endpoint, resp.StatusCode, payload),
		)
	}

	return json.RawMessage(payload), nil
}
