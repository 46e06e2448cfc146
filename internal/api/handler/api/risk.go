package api

import (
	"encoding/json"
	"net/http"

	"github.com/newthinker/signalbook/internal/api/response"
	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/paper"
	"github.com/newthinker/signalbook/internal/risk"
)

// RiskHandler exposes the risk policy and current exposure.
type RiskHandler struct {
	manager *risk.Manager
	engine  *paper.Engine
}

// NewRiskHandler creates a new risk handler.
func NewRiskHandler(manager *risk.Manager, engine *paper.Engine) *RiskHandler {
	return &RiskHandler{manager: manager, engine: engine}
}

// Settings returns the active risk settings.
func (h *RiskHandler) Settings(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.manager.Settings())
}

// UpdateSettings applies a partial update. Invalid results leave the
// current settings in place.
func (h *RiskHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var u risk.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		response.Fail(w, core.WrapError(core.ErrBadRequest, err))
		return
	}

	s, err := h.manager.UpdateSettings(u)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, s)
}

// Heat returns open notional as a share of balance. Every figure comes from
// one engine snapshot and one settings read.
func (h *RiskHandler) Heat(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	s := h.manager.Settings()
	acct := snap.Account

	open := make([]core.PaperTrade, 0, len(snap.Trades))
	for _, t := range snap.Trades {
		if t.IsOpen() {
			open = append(open, t)
		}
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"heat_pct":           risk.PortfolioHeat(s, open, acct.Balance),
		"open_positions":     len(open),
		"max_open_positions": s.MaxOpenPositions,
		"daily_loss_used":    acct.DailyLossUsed,
		"max_daily_loss":     s.MaxDailyLoss,
		"position_cap":       risk.PositionCap(s, acct.Balance),
	})
}
