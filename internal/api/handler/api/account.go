package api

import (
	"net/http"

	"github.com/newthinker/signalbook/internal/api/response"
	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/paper"
)

// AccountHandler serves read-only views of the paper account.
type AccountHandler struct {
	engine *paper.Engine
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(engine *paper.Engine) *AccountHandler {
	return &AccountHandler{engine: engine}
}

// Account returns the balance together with headline performance figures.
func (h *AccountHandler) Account(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"account":         h.engine.Account(),
		"initial_balance": h.engine.InitialBalance(),
		"total_pnl":       h.engine.TotalPnL(),
		"win_rate":        h.engine.WinRate(),
		"open_positions":  len(h.engine.OpenTrades()),
	})
}

// Quotes returns the current quote table.
func (h *AccountHandler) Quotes(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.engine.Quotes())
}

// Quote returns the quote for one symbol.
func (h *AccountHandler) Quote(w http.ResponseWriter, r *http.Request) {
	sym, ok := core.ParseSymbol(r.PathValue("symbol"))
	if !ok {
		response.Error(w, http.StatusNotFound, core.ErrUnknownSymbol)
		return
	}
	q, ok := h.engine.Quote(sym)
	if !ok {
		response.Error(w, http.StatusNotFound, core.ErrUnknownSymbol)
		return
	}
	response.JSON(w, http.StatusOK, q)
}

// Snapshot returns a consistent view of account, trades and quotes.
func (h *AccountHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.engine.Snapshot())
}
