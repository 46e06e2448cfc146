// Package app wires the intake pipeline to the paper trading engine and runs
// the periodic jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/signalbook/internal/analytics"
	"github.com/newthinker/signalbook/internal/config"
	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/logger"
	"github.com/newthinker/signalbook/internal/notifier"
	"github.com/newthinker/signalbook/internal/notifier/telegram"
	"github.com/newthinker/signalbook/internal/notifier/webhook"
	"github.com/newthinker/signalbook/internal/paper"
	"github.com/newthinker/signalbook/internal/parser"
	"github.com/newthinker/signalbook/internal/risk"
	"github.com/newthinker/signalbook/internal/scorer"
	"github.com/newthinker/signalbook/internal/storage/signal"
	"github.com/robfig/cron/v3"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Message outcomes reported to the Recorder.
const (
	MessageParsed  = "parsed"
	MessageIgnored = "ignored"
)

// MessageSource yields raw alert messages that arrived since the last call.
type MessageSource interface {
	FetchMessages(ctx context.Context) ([]core.Message, error)
}

// Recorder receives pipeline observations. *metrics.Registry satisfies it.
type Recorder interface {
	paper.Recorder
	RecordMessage(result string)
	RecordNotification(notifier, status string)
	SetPortfolioHeat(pct float64)
}

type nopRecorder struct{}

func (nopRecorder) RecordExecution(string, string)      {}
func (nopRecorder) RecordClose(string, string, float64) {}
func (nopRecorder) RecordRefresh(float64)               {}
func (nopRecorder) SetAccountState(float64, int)        {}
func (nopRecorder) RecordMessage(string)                {}
func (nopRecorder) RecordNotification(string, string)   {}
func (nopRecorder) SetPortfolioHeat(float64)            {}

// Result is the outcome of feeding one parsed signal through the engine.
// Trade is nil when execution failed.
type Result struct {
	Signal core.TradingSignal `json:"signal"`
	Trade  *core.PaperTrade   `json:"trade,omitempty"`
}

// App is the main application orchestrator
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	risk      *risk.Manager
	engine    *paper.Engine
	parser    *parser.Parser
	signals   signal.Store
	notifiers *notifier.Registry
	scorer    scorer.Scorer
	sources   []MessageSource
	recorder  Recorder
	now       func() time.Time

	// execMu serializes ingestion so signals reach the engine in arrival order.
	execMu sync.Mutex

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
}

// New creates an App from a validated configuration. Notifiers and the
// Telegram source enabled in cfg are registered.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	pc, err := cfg.PaperConfig()
	if err != nil {
		return nil, err
	}
	parserCfg, err := cfg.ParserConfig()
	if err != nil {
		return nil, err
	}

	rm := risk.NewManager(cfg.Risk, log.Named("risk"))
	a := &App{
		cfg:       cfg,
		logger:    log,
		risk:      rm,
		engine:    paper.NewEngine(pc, rm, log.Named("paper")),
		parser:    parser.New(parserCfg),
		signals:   signal.NewMemoryStore(cfg.Storage.MaxSignals),
		notifiers: notifier.NewRegistry(),
		recorder:  nopRecorder{},
		now:       time.Now,
	}

	if err := a.configureNotifiers(); err != nil {
		return nil, err
	}
	if tg := cfg.Sources.Telegram; tg.Enabled {
		src := telegram.NewSource(tg.BotToken, tg.ChatIDs)
		if tg.BaseURL != "" {
			src = src.WithBaseURL(tg.BaseURL)
		}
		a.AddSource(src)
	}

	return a, nil
}

func (a *App) configureNotifiers() error {
	for name, nc := range a.cfg.Notifiers {
		if !nc.Enabled {
			continue
		}

		var n notifier.Notifier
		params := map[string]any{}
		switch name {
		case "telegram":
			n = telegram.New(nc.BotToken, nc.ChatID)
			params["base_url"] = nc.BaseURL
		case "webhook":
			n = webhook.New(nc.URL, nc.Headers)
		default:
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier %q", name))
		}

		if err := n.Init(notifier.Config{Type: name, Params: params}); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
		if err := a.notifiers.Register(n); err != nil {
			return err
		}
	}
	return nil
}

// SetRecorder routes pipeline and engine observations to r.
func (a *App) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	a.recorder = r
	a.engine.SetRecorder(r)
}

// SetScorer attaches an optional scorer to the intake pipeline.
func (a *App) SetScorer(s scorer.Scorer) {
	a.scorer = s
}

// AddSource registers a message source polled by PollOnce.
func (a *App) AddSource(s MessageSource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sources = append(a.sources, s)
}

// RegisterNotifier adds a notifier to the app
func (a *App) RegisterNotifier(n notifier.Notifier) error {
	return a.notifiers.Register(n)
}

func (a *App) Engine() *paper.Engine         { return a.engine }
func (a *App) Risk() *risk.Manager           { return a.risk }
func (a *App) Signals() signal.Store         { return a.signals }
func (a *App) Notifiers() *notifier.Registry { return a.notifiers }

// Ingest parses text and executes the resulting signal. Text that carries no
// signal yields (nil, nil). When execution fails the returned Result still
// holds the failed signal alongside the error.
func (a *App) Ingest(ctx context.Context, text, channel string) (*Result, error) {
	sig, ok := a.parser.Parse(text, channel)
	if !ok {
		a.recorder.RecordMessage(MessageIgnored)
		return nil, nil
	}
	a.recorder.RecordMessage(MessageParsed)

	saved, err := a.signals.Save(ctx, *sig)
	if err != nil {
		return nil, fmt.Errorf("saving signal: %w", err)
	}
	a.score(ctx, &saved)

	a.execMu.Lock()
	defer a.execMu.Unlock()
	return a.execute(ctx, saved)
}

// PollOnce drains every source, scores the parsed signals concurrently and
// executes them one by one in arrival order. It returns the results of the
// signals that were executed or rejected; source failures are joined into the
// returned error and do not stop the other sources.
func (a *App) PollOnce(ctx context.Context) ([]Result, error) {
	a.mu.RLock()
	sources := append([]MessageSource(nil), a.sources...)
	a.mu.RUnlock()

	var errs []error
	var batch []core.TradingSignal
	for _, src := range sources {
		msgs, err := src.FetchMessages(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, msg := range msgs {
			sig, ok := a.parser.Parse(msg.Text, msg.Channel)
			if !ok {
				a.recorder.RecordMessage(MessageIgnored)
				continue
			}
			a.recorder.RecordMessage(MessageParsed)
			saved, err := a.signals.Save(ctx, *sig)
			if err != nil {
				errs = append(errs, fmt.Errorf("saving signal: %w", err))
				continue
			}
			batch = append(batch, saved)
		}
	}

	if a.scorer != nil && len(batch) > 0 {
		p := pool.New().WithMaxGoroutines(max(1, a.cfg.Scoring.MaxConcurrency))
		for i := range batch {
			p.Go(func() { a.score(ctx, &batch[i]) })
		}
		p.Wait()
	}

	a.execMu.Lock()
	defer a.execMu.Unlock()

	results := make([]Result, 0, len(batch))
	for _, sig := range batch {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res, err := a.execute(ctx, sig)
		if err != nil {
			a.logger.Info("polled signal not executed",
				zap.String("signal_id", sig.ID),
				zap.String("channel", sig.Channel),
				zap.Error(err),
			)
		}
		results = append(results, *res)
	}

	if len(batch) > 0 {
		a.logger.Debug("poll cycle complete",
			zap.Int("signals", len(batch)),
			zap.Int("sources", len(sources)),
		)
	}
	return results, errors.Join(errs...)
}

// score attaches the scorer's opinion to sig. Scoring failures are logged and
// never block execution.
func (a *App) score(ctx context.Context, sig *core.TradingSignal) {
	if a.scorer == nil {
		return
	}
	v, err := a.scorer.Score(ctx, *sig, a.engine.Quotes())
	if err != nil {
		a.logger.Warn("scoring failed",
			zap.String("scorer", a.scorer.Name()),
			zap.String("signal_id", sig.ID),
			zap.Error(err),
		)
		return
	}
	if v.Confidence == nil && v.RiskLevel == "" {
		return
	}
	if err := a.signals.Annotate(ctx, sig.ID, v.Confidence, v.RiskLevel); err != nil {
		a.logger.Warn("annotating signal", zap.String("signal_id", sig.ID), zap.Error(err))
		return
	}
	sig.Confidence = v.Confidence
	sig.RiskLevel = v.RiskLevel
}

// execute runs a saved signal through the engine. Callers hold execMu.
func (a *App) execute(ctx context.Context, sig core.TradingSignal) (*Result, error) {
	trade, err := a.engine.ExecuteSignal(sig)

	status := core.SignalExecuted
	if err != nil {
		status = core.SignalFailed
	}
	if uerr := a.signals.UpdateStatus(ctx, sig.ID, status); uerr != nil {
		a.logger.Warn("updating signal status",
			zap.String("signal_id", sig.ID),
			zap.String("status", string(status)),
			zap.Error(uerr),
		)
	}
	sig.Status = status

	if err != nil {
		a.notify(ctx, notifier.Event{
			Kind:   notifier.EventRejected,
			Signal: &sig,
			Reason: err.Error(),
			Time:   a.now(),
		})
		return &Result{Signal: sig}, err
	}

	sig.StopLoss = trade.StopLoss
	sig.TakeProfit = trade.TakeProfit
	a.notify(ctx, notifier.Event{
		Kind:   notifier.EventOpened,
		Signal: &sig,
		Trade:  trade,
		Time:   a.now(),
	})
	return &Result{Signal: sig, Trade: trade}, nil
}

// CloseTrade closes an open trade at its current price and announces it.
func (a *App) CloseTrade(ctx context.Context, id string) (*core.PaperTrade, error) {
	trade, err := a.engine.CloseTrade(id)
	if err != nil {
		return nil, err
	}
	a.afterClose(ctx, []core.PaperTrade{*trade})
	return trade, nil
}

// RefreshPrices advances the price feed and announces any trades the risk
// rules closed.
func (a *App) RefreshPrices(ctx context.Context) []core.PaperTrade {
	closed := a.engine.RefreshPrices()
	a.afterClose(ctx, closed)
	return closed
}

func (a *App) afterClose(ctx context.Context, closed []core.PaperTrade) {
	a.recorder.SetPortfolioHeat(a.engine.PortfolioHeat())
	if len(closed) == 0 {
		return
	}
	balance := a.engine.Account().Balance
	events := make([]notifier.Event, len(closed))
	for i := range closed {
		events[i] = notifier.Event{
			Kind:    notifier.EventClosed,
			Trade:   &closed[i],
			Reason:  closed[i].CloseReason,
			Balance: balance,
			Time:    a.now(),
		}
	}
	a.notify(ctx, events...)
}

// SendDailyReport computes performance over the full trade history and sends
// it to every notifier.
func (a *App) SendDailyReport(ctx context.Context) analytics.Metrics {
	m := analytics.Calculate(a.engine.Trades(), a.engine.InitialBalance())
	a.notify(ctx, notifier.Event{
		Kind:    notifier.EventReport,
		Metrics: &m,
		Balance: a.engine.Account().Balance,
		Time:    a.now(),
	})
	return m
}

// notify fans events out to all notifiers. Delivery failures are logged only.
func (a *App) notify(ctx context.Context, events ...notifier.Event) {
	for _, d := range a.notifiers.Notify(ctx, events...) {
		status := "success"
		if d.Err != nil {
			status = "error"
			a.logger.Warn("notification failed",
				zap.String("notifier", d.Notifier),
				zap.String("kind", string(events[0].Kind)),
				zap.Int("events", len(events)),
				zap.Error(d.Err),
			)
		}
		a.recorder.RecordNotification(d.Notifier, status)
	}
}

// Start runs the scheduler until ctx is cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.cancel = cancel
	sources := len(a.sources)
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	cl := logger.Cron(a.logger.Named("cron"))
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	refresh := a.cfg.Market.RefreshInterval
	if _, err := c.AddFunc("@every "+refresh.String(), func() { a.RefreshPrices(ctx) }); err != nil {
		return fmt.Errorf("scheduling price refresh: %w", err)
	}
	if sources > 0 {
		poll := a.cfg.Sources.Telegram.PollInterval
		if poll <= 0 {
			poll = refresh
		}
		if _, err := c.AddFunc("@every "+poll.String(), func() {
			if _, err := a.PollOnce(ctx); err != nil {
				a.logger.Warn("poll failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("scheduling message poll: %w", err)
		}
	}
	if spec := a.cfg.Scheduler.DailyReport; spec != "" {
		if _, err := c.AddFunc(spec, func() { a.SendDailyReport(ctx) }); err != nil {
			return fmt.Errorf("scheduling daily report: %w", err)
		}
	}

	a.logger.Info("signalbook starting",
		zap.Duration("refresh_interval", refresh),
		zap.Int("sources", sources),
		zap.Int("notifiers", a.notifiers.Len()),
		zap.String("daily_report", a.cfg.Scheduler.DailyReport),
	)

	c.Start()
	<-ctx.Done()
	a.logger.Info("signalbook shutting down")
	<-c.Stop().Done()
	return ctx.Err()
}

// Stop stops the scheduler
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// Running reports whether Start is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// GetStats returns application statistics
func (a *App) GetStats(ctx context.Context) map[string]any {
	a.mu.RLock()
	running, sources := a.running, len(a.sources)
	a.mu.RUnlock()

	signals, _ := a.signals.Count(ctx, signal.ListFilter{})
	return map[string]any{
		"running":     running,
		"sources":     sources,
		"notifiers":   a.notifiers.Len(),
		"signals":     signals,
		"open_trades": len(a.engine.OpenTrades()),
	}
}
