package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-brokerage-backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveClient(upstream *httptest.Server) *Client {
	return NewClient(Config{
		APIKey:    "test-key",
		APISecret: "test-secret",
		BaseURL:   upstream.URL,
		DataURL:   upstream.URL,
	})
}

func TestClientAuthHeaders(t *testing.T) {
	var gotKey, gotSecret string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("APCA-API-KEY-ID")
		gotSecret = r.Header.Get("APCA-API-SECRET-KEY")
		w.Write([]byte(`{"id":"acct-live-1","status":"ACTIVE"}`))
	}))
	defer upstream.Close()

	c := liveClient(upstream)
	assert.False(t, c.Demo())

	account, err := c.GetAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acct-live-1", account.ID)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "test-secret", gotSecret)
}

func TestClientUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"forbidden: account deactivated"}`))
	}))
	defer upstream.Close()

	c := liveClient(upstream)
	_, err := c.GetPositions(context.Background())
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.Code)
	// The client-facing message carries the status only; the raw upstream
	// body stays in the wrapped error for server logs.
	assert.NotContains(t, appErr.Message, "account deactivated")
	require.NotNil(t, appErr.Err)
	assert.Contains(t, appErr.Err.Error(), "account deactivated")
}

func TestClientAccountPayloadValidation(t *testing.T) {
	t.Run("missing id is rejected", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"ACTIVE"}`))
		}))
		defer upstream.Close()

		_, err := liveClient(upstream).GetAccount(context.Background())
		require.Error(t, err)
	})

	t.Run("non-JSON body is rejected", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>gateway error</html>`))
		}))
		defer upstream.Close()

		_, err := liveClient(upstream).GetAccount(context.Background())
		require.Error(t, err)
	})
}

func TestClientQueryForwarding(t *testing.T) {
	var gotPath, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	c := liveClient(upstream)

	_, err := c.GetPortfolioHistory(context.Background(), "3M", "1H")
	require.NoError(t, err)
	assert.Equal(t, "/v2/account/portfolio/history", gotPath)
	assert.Contains(t, gotQuery, "period=3M")
	assert.Contains(t, gotQuery, "timeframe=1H")

	_, err = c.ListOrders(context.Background(), "open")
	require.NoError(t, err)
	assert.Equal(t, "/v2/orders", gotPath)
	assert.Equal(t, "status=open", gotQuery)
}

func TestDemoMode(t *testing.T) {
	c := NewClient(Config{})
	require.True(t, c.Demo())
	ctx := context.Background()

	t.Run("account is canned and marked", func(t *testing.T) {
		account, err := c.GetAccount(ctx)
		require.NoError(t, err)
		assert.Equal(t, "demo-account-123", account.ID)
		assert.Equal(t, true, account.Snapshot["demo"])
	})

	t.Run("positions and orders are valid JSON", func(t *testing.T) {
		positions, err := c.GetPositions(ctx)
		require.NoError(t, err)
		assert.True(t, json.Valid(positions))

		orders, err := c.ListOrders(ctx, "all")
		require.NoError(t, err)
		assert.True(t, json.Valid(orders))
	})

	t.Run("order placement echoes back as accepted", func(t *testing.T) {
		ack, err := c.PlaceOrder(ctx, json.RawMessage(`{"symbol":"AAPL","qty":"1","side":"buy"}`))
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(ack, &fields))
		assert.Equal(t, "accepted", fields["status"])
		assert.Equal(t, "AAPL", fields["symbol"])
	})
}
