package alpaca

import (
	"encoding/json"
	"time"
)

// Canned payloads served in demo mode and used as best-effort fallbacks by
// the trading relay. Shapes mirror the Alpaca paper API responses.

func DemoAccount() json.RawMessage {
	return json.RawMessage(`{
		"id": "demo-account-123",
		"account_number": "123456789",
		"status": "ACTIVE",
		"currency": "USD",
		"buying_power": "100000.00",
		"cash": "50000.00",
		"portfolio_value": "125000.00",
		"equity": "125000.00",
		"long_market_value": "75000.00",
		"short_market_value": "0.00",
		"demo": true
	}`)
}

func DemoPositions() json.RawMessage {
	return json.RawMessage(`[
		{
			"symbol": "AAPL",
			"qty": "10",
			"side": "long",
			"market_value": "1600.00",
			"unrealized_pl": "100.00",
			"unrealized_plpc": "0.067"
		}
	]`)
}

func DemoOrders() json.RawMessage {
	payload := []map[string]any{
		{
			"id":               "demo-order-1",
			"symbol":           "AAPL",
			"qty":              "1",
			"side":             "buy",
			"type":             "market",
			"status":           "filled",
			"filled_qty":       "1",
			"filled_avg_price": "150.00",
			"created_at":       time.Now().UTC().Format(time.RFC3339),
		},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func DemoPortfolioHistory() json.RawMessage {
	return json.RawMessage(`{
		"timestamp": [],
		"equity": [],
		"profit_loss": [],
		"profit_loss_pct": [],
		"base_value": "125000.00",
		"timeframe": "1D"
	}`)
}

func DemoSnapshot(symbol string) json.RawMessage {
	snapshot := map[string]any{
		"symbol": symbol,
		"latestTrade": map[string]any{
			"p": 150.00,
			"t": time.Now().UTC().Format(time.RFC3339),
		},
		"latestQuote": map[string]any{
			"ap": 150.05,
			"bp": 149.95,
		},
		"demo": true,
	}
	raw, _ := json.Marshal(snapshot)
	return raw
}

// DemoOrderAck echoes the submitted order back as accepted, the way the
// paper API acknowledges a new order.
func DemoOrderAck(order json.RawMessage) json.RawMessage {
	var fields map[string]any
	if err := json.Unmarshal(order, &fields); err != nil {
		fields = map[string]any{}
	}
	fields["id"] = "demo-order-ack"
	fields["status"] = "accepted"
	fields["created_at"] = time.Now().UTC().Format(time.RFC3339)
	raw, _ := json.Marshal(fields)
	return raw
}
