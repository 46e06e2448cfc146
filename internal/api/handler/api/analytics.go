package api

import (
	"net/http"

	"github.com/newthinker/signalbook/internal/analytics"
	"github.com/newthinker/signalbook/internal/api/response"
	"github.com/newthinker/signalbook/internal/paper"
)

// AnalyticsHandler computes performance views over the trade history.
type AnalyticsHandler struct {
	engine *paper.Engine
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(engine *paper.Engine) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine}
}

func (h *AnalyticsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, analytics.Calculate(h.engine.Trades(), h.engine.InitialBalance()))
}

func (h *AnalyticsHandler) Equity(w http.ResponseWriter, r *http.Request) {
	curve := analytics.CalculateEquityCurve(h.engine.Trades(), h.engine.InitialBalance())
	if curve == nil {
		curve = []analytics.EquityPoint{}
	}
	response.JSON(w, http.StatusOK, curve)
}

func (h *AnalyticsHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, analytics.CalculateDistribution(h.engine.Trades()))
}

func (h *AnalyticsHandler) Extended(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, analytics.CalculateExtended(h.engine.Trades(), h.engine.InitialBalance()))
}

// Report bundles every analytics view in one response.
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, analytics.Summarize(h.engine.Trades(), h.engine.InitialBalance()))
}
