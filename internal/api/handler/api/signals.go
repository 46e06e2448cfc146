// Package api holds the JSON handlers behind /api.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/signalbook/internal/api/response"
	"github.com/newthinker/signalbook/internal/app"
	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/storage/signal"
)

// Ingester turns raw alert text into an executed or failed signal.
type Ingester interface {
	Ingest(ctx context.Context, text, channel string) (*app.Result, error)
}

// SignalsHandler handles signal-related API requests.
type SignalsHandler struct {
	store  signal.Store
	ingest Ingester
}

// NewSignalsHandler creates a new signals handler.
func NewSignalsHandler(store signal.Store, ingest Ingester) *SignalsHandler {
	return &SignalsHandler{store: store, ingest: ingest}
}

// List returns signals matching query parameters.
func (h *SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := signal.ListFilter{
		Channel: q.Get("channel"),
		Status:  core.SignalStatus(strings.ToLower(q.Get("status"))),
	}

	if s := q.Get("symbol"); s != "" {
		sym, ok := core.ParseSymbol(s)
		if !ok {
			response.Fail(w, core.WrapError(core.ErrUnknownSymbol, errors.New(s)))
			return
		}
		filter.Symbol = sym
	}

	if d := q.Get("direction"); d != "" {
		dir, ok := core.ParseDirection(d)
		if !ok {
			response.Fail(w, core.WrapError(core.ErrBadRequest, errors.New("direction must be BUY or SELL")))
			return
		}
		filter.Direction = dir
	}

	if from := q.Get("from"); from != "" {
		if t, ok := parseTime(from); ok {
			filter.From = t
		}
	}

	if to := q.Get("to"); to != "" {
		if t, ok := parseTime(to); ok {
			filter.To = t
		}
	}

	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			filter.Limit = n
		}
	} else {
		filter.Limit = 50 // Default limit
	}

	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			filter.Offset = n
		}
	}

	signals, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	count, _ := h.store.Count(r.Context(), filter)

	response.JSON(w, http.StatusOK, map[string]any{
		"signals": signals,
		"total":   count,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

// GetByID returns a single signal by ID.
func (h *SignalsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	sig, err := h.store.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	response.JSON(w, http.StatusOK, sig)
}

type ingestRequest struct {
	Text    string `json:"text"`
	Channel string `json:"channel"`
}

// Create parses the posted alert text and executes the signal it carries.
// Text without a signal answers 200 with parsed=false.
func (h *SignalsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		response.Fail(w, core.WrapError(core.ErrBadRequest, errors.New("text is required")))
		return
	}
	if req.Channel == "" {
		req.Channel = "api"
	}

	res, err := h.ingest.Ingest(r.Context(), req.Text, req.Channel)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if res == nil {
		response.JSON(w, http.StatusOK, map[string]any{"parsed": false})
		return
	}

	response.JSON(w, http.StatusCreated, map[string]any{
		"parsed": true,
		"signal": res.Signal,
		"trade":  res.Trade,
	})
}

func parseTime(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
