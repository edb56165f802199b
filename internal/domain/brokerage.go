package domain

import (
	"context"
	"encoding/json"
)

// BrokerageAccount is the provisioned paper-trading account. Snapshot carries
// the upstream payload verbatim; it is merged into the profile as-is.
type BrokerageAccount struct {
	ID       string
	Snapshot map[string]any
}

// BarsQuery narrows a historical-bars request.
type BarsQuery struct {
	Timeframe string
	Start     string
	End       string
}

// BrokerageClient is the request/response contract with the external broker.
// Responses are opaque payloads relayed to the caller unmodified; only the
// account ID is interpreted (for linking).
type BrokerageClient interface {
	GetAccount(ctx context.Context) (*BrokerageAccount, error)
	GetPositions(ctx context.Context) (json.RawMessage, error)
	GetPortfolioHistory(ctx context.Context, period, timeframe string) (json.RawMessage, error)
	GetWatchlists(ctx context.Context) (json.RawMessage, error)
	GetSnapshot(ctx context.Context, symbol string) (json.RawMessage, error)
	GetBars(ctx context.Context, symbol string, q BarsQuery) (json.RawMessage, error)
	SearchAssets(ctx context.Context, search string) (json.RawMessage, error)
	PlaceOrder(ctx context.Context, order json.RawMessage) (json.RawMessage, error)
	ListOrders(ctx context.Context, status string) (json.RawMessage, error)
	GetOrder(ctx context.Context, orderID string) (json.RawMessage, error)
}

// LinkState tracks the account-linking workflow for one session.
type LinkState string

const (
	LinkStateUnlinked        LinkState = "unlinked"
	LinkStateProvisioning    LinkState = "provisioning"
	LinkStateLinked          LinkState = "linked"
	LinkStateProvisionFailed LinkState = "provision_failed"
)

// LinkResult is the outcome of one provisioning attempt. Profile is always
// re-read from the store after the attempt, so it reflects the freshest
// persisted state whichever way provisioning went.
type LinkResult struct {
	State         LinkState `json:"state"`
	AccountID     string    `json:"alpaca_account_id,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Profile       *Profile  `json:"profile"`
}

type LinkingUsecase interface {
	// Link provisions a brokerage account for an existing profile and merges
	// the result back. Provisioning failure is not an error: the result
	// carries ProvisionFailed and the caller proceeds without account data.
	Link(ctx context.Context, email string) (*LinkResult, error)
}

// TradingUsecase relays dashboard calls to the broker. Endpoints whose
// contract permits a best-effort response fall back to demo data on upstream
// failure; the rest surface the failure.
type TradingUsecase interface {
	Account(ctx context.Context) (json.RawMessage, error)
	Positions(ctx context.Context) (json.RawMessage, error)
	PortfolioHistory(ctx context.Context, period, timeframe string) (json.RawMessage, error)
	Watchlists(ctx context.Context) (json.RawMessage, error)
	Quote(ctx context.Context, symbol string) (json.RawMessage, error)
	Bars(ctx context.Context, symbol string, q BarsQuery) (json.RawMessage, error)
	Assets(ctx context.Context, search string) (json.RawMessage, error)
	PlaceOrder(ctx context.Context, order json.RawMessage) (json.RawMessage, error)
	Orders(ctx context.Context, status string) (json.RawMessage, error)
	Order(ctx context.Context, orderID string) (json.RawMessage, error)
}
