package v1

import (
	"encoding/json"
	"io"
	"net/http"

	"go-brokerage-backend/internal/delivery/http/response"
	"go-brokerage-backend/internal/domain"
	"go-brokerage-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type BrokerageHandler struct {
	linkingUC domain.LinkingUsecase
	tradingUC domain.TradingUsecase
}

func NewBrokerageHandler(protected *gin.RouterGroup, linkingUC domain.LinkingUsecase, tradingUC domain.TradingUsecase) {
	handler := &BrokerageHandler{linkingUC: linkingUC, tradingUC: tradingUC}

	brokerage := protected.Group("/brokerage")
	{
		brokerage.POST("/provision", handler.Provision)
		brokerage.GET("/account", handler.Account)
		brokerage.GET("/positions", handler.Positions)
		brokerage.GET("/portfolio/history", handler.PortfolioHistory)
		brokerage.GET("/watchlists", handler.Watchlists)
		brokerage.GET("/quotes/:symbol", handler.Quote)
		brokerage.GET("/bars/:symbol", handler.Bars)
		brokerage.GET("/assets", handler.Assets)
		brokerage.POST("/orders", handler.PlaceOrder)
		brokerage.GET("/orders", handler.Orders)
		brokerage.GET("/orders/:orderId", handler.Order)
	}
}

// Provision godoc
// @Summary      Provision a brokerage account
// @Description  Creates/links the paper-trading account for the session profile and merges the result back. Provisioning failure is non-fatal: the response carries the failure state and the dashboard-ready profile.
// @Tags         brokerage
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.LinkResult}
// @Failure      404  {object}  response.Response
// @Router       /brokerage/provision [post]
// @Security     BearerAuth
func (h *BrokerageHandler) Provision(c *gin.Context) {
	email := c.GetString(string(domain.KeyUserEmail))

	result, err := h.linkingUC.Link(c.Request.Context(), email)
	if err != nil {
		c.Error(err)
		return
	}

	msg := "Brokerage account linked"
	if result.State == domain.LinkStateProvisionFailed {
		msg = "Brokerage account provisioning failed; continuing without account data"
	}
	response.Success(c, http.StatusOK, msg, result)
}

// Account godoc
// @Summary      Account summary (pass-through)
// @Tags         brokerage
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /brokerage/account [get]
// @Security     BearerAuth
func (h *BrokerageHandler) Account(c *gin.Context) {
	h.relay(c, func() (json.RawMessage, error) {
		return h.tradingUC.Account(c.Request.Context())
	})
}

func (h *BrokerageHandler) Positions(c *gin.Context) {
	h.relay(c, func() (json.RawMessage, error) {
		return h.tradingUC.Positions(c.Request.Context())
	})
}

func (h *BrokerageHandler) PortfolioHistory(c *gin.Context) {
	period := c.DefaultQuery("period", "1M")
	timeframe := c.DefaultQuery("timeframe", "1D")
	h.relay(c, func() (json.RawMessage, error) {
		return h.tradingUC.PortfolioHistory(c.Request.Context(), period, timeframe)
	})
}

func (h *BrokerageHandler) Watchlists(c *gin.Context) {
	h.relay(c, func() (json.RawMessage, error) {
		return h.tradingUC.Watchlists(c.Request.Context())
	})
}

func (h *BrokerageHandler) Quote(c *gin.Context) {
	symbol := c.Param("symbol")
	h.relay(c, func() (json.RawMessage, error) {
		return h.tradingUC.Quote(c.Request.Context(), symbol)
	})
}

func (h *BrokerageHandler) Bars(c *gin.Context) {
	symbol := c.Param("symbol")
	q := domain.BarsQuery{
		Timeframe: c.DefaultQuery("timeframe", "1Day"),
		Start:     c.Query("start"),
		End:       c.Query("end"),
	}
	h.relay(c, func() (json.RawMessage, error) {
		return h.tradingUC.Bars(c.Request.Context(), symbol, q)
	})
}

func (h *BrokerageHandler) Assets(c *gin.Context) {
	search := c.Query("search")
	h.relay(c, func() (json.RawMessage, error) {
		return h.tradingUC.Assets(c.Request.Context(), search)
	})
}

// PlaceOrder godoc
// @Summary      Place an order (pass-through)
// @Description  Forwards the order payload to the broker unmodified. No fallback: upstream failure is surfaced.
// @Tags         brokerage
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      400  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /brokerage/orders [post]
// @Security     BearerAuth
func (h *BrokerageHandler) PlaceOrder(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(apperror.BadRequest("Invalid order payload"))
		return
	}
	h.relay(c, func() (json.RawMessage, error) {
		return h.tradingUC.PlaceOrder(c.Request.Context(), json.RawMessage(body))
	})
}

func (h *BrokerageHandler) Orders(c *gin.Context) {
	status := c.DefaultQuery("status", "all")
	h.relay(c, func() (json.RawMessage, error) {
		return h.tradingUC.Orders(c.Request.Context(), status)
	})
}

func (h *BrokerageHandler) Order(c *gin.Context) {
	orderID := c.Param("orderId")
	h.relay(c, func() (json.RawMessage, error) {
		return h.tradingUC.Order(c.Request.Context(), orderID)
	})
}

// relay renders an upstream payload verbatim or pushes the error to the
// error middleware.
func (h *BrokerageHandler) relay(c *gin.Context, fn func() (json.RawMessage, error)) {
	payload, err := fn()
	if err != nil {
		c.Error(err)
		return
	}
	response.Raw(c, http.StatusOK, payload)
}
