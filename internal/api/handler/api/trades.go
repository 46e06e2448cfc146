package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/newthinker/signalbook/internal/api/response"
	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/paper"
)

// TradeCommander performs the trade mutations that also fan out
// notifications.
type TradeCommander interface {
	CloseTrade(ctx context.Context, id string) (*core.PaperTrade, error)
	RefreshPrices(ctx context.Context) []core.PaperTrade
}

// TradesHandler serves the trade list and the close/refresh commands.
type TradesHandler struct {
	engine *paper.Engine
	cmd    TradeCommander
}

// NewTradesHandler creates a new trades handler.
func NewTradesHandler(engine *paper.Engine, cmd TradeCommander) *TradesHandler {
	return &TradesHandler{engine: engine, cmd: cmd}
}

// List returns trades, optionally filtered by ?status=open|closed.
func (h *TradesHandler) List(w http.ResponseWriter, r *http.Request) {
	var trades []core.PaperTrade
	switch status := r.URL.Query().Get("status"); status {
	case "":
		trades = h.engine.Trades()
	case string(core.TradeOpen):
		trades = h.engine.OpenTrades()
	case string(core.TradeClosed):
		trades = h.engine.ClosedTrades()
	default:
		response.Fail(w, core.WrapError(core.ErrBadRequest, fmt.Errorf("unknown trade status %q", status)))
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"trades": trades,
		"total":  len(trades),
	})
}

// Get returns a single trade.
func (h *TradesHandler) Get(w http.ResponseWriter, r *http.Request) {
	trade, err := h.engine.Trade(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, trade)
}

// Close settles an open trade at its current price.
func (h *TradesHandler) Close(w http.ResponseWriter, r *http.Request) {
	trade, err := h.cmd.CloseTrade(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, trade)
}

// Refresh advances quotes once and reports trades the risk rules closed.
func (h *TradesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	closed := h.cmd.RefreshPrices(r.Context())
	if closed == nil {
		closed = []core.PaperTrade{}
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"closed": closed,
		"quotes": h.engine.Quotes(),
	})
}
