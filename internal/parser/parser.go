// Package parser turns free-text trading alerts into structured signals.
package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/signalbook/internal/core"
)

// pricePattern captures a plain or comma-grouped number. It must end the
// text, or be followed by whitespace (optionally after trailing punctuation)
// or an emoji, so "44.5.3", "44,5,00" and "44500k" do not partially match.
const pricePattern = `\$?((?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?)(?:[.,!?;:)\]]*(?:\s|$)|\p{So})`

// grammar is one accepted message shape. Submatch indexes are 1-based.
type grammar struct {
	re     *regexp.Regexp
	symbol int
	price  int
}

var grammars = []grammar{
	{
		// BUY BTC @ 44500, SELL GOLD $2000
		re:     regexp.MustCompile(`(?i)\b(buy|sell|long|short)\s+([a-z]{2,10})\s*(?:@|\$)\s*` + pricePattern),
		symbol: 2,
		price:  3,
	},
	{
		// 🚀 BTC Long 🚀 Entry: 44500
		re:     regexp.MustCompile(`(?i)\b` + symbolAlternation() + `\b[^\n]*?\b(long|short|buy|sell)\b[^\n]*?\bentry\s*:?\s*` + pricePattern),
		symbol: 1,
		price:  3,
	},
	{
		// 🟢 GOLD Entry: 2000 (direction carried only by vocabulary)
		re:     regexp.MustCompile(`(?i)\b` + symbolAlternation() + `\b[^\n]*?\bentry\s*:?\s*` + pricePattern),
		symbol: 1,
		price:  2,
	},
	{
		// Signal: BUY BTC 44500
		re:     regexp.MustCompile(`(?i)\bsignal\s*:\s*(buy|sell|long|short)\s+([a-z]{2,10})\s+` + pricePattern),
		symbol: 2,
		price:  3,
	},
}

var (
	bullishWords = regexp.MustCompile(`(?i)\b(buy|long|bull|bullish|moon|pump|calls)\b`)
	bearishWords = regexp.MustCompile(`(?i)\b(sell|short|bear|bearish|dump|puts)\b`)

	bullishEmoji = []string{"🚀", "📈", "🟢", "⬆️", "🔼", "💚"}
	bearishEmoji = []string{"📉", "🔴", "⬇️", "🔽", "🩸"}
)

// symbolAlternation matches any supported symbol. The decorated grammar has no
// positional anchor for the ticker, so it searches for a known one.
func symbolAlternation() string {
	names := make([]string, 0, len(core.SupportedSymbols()))
	for _, s := range core.SupportedSymbols() {
		names = append(names, regexp.QuoteMeta(string(s)))
	}
	return "(" + strings.Join(names, "|") + ")"
}

// Config holds parser policy
type Config struct {
	// DefaultQuantities assigns the quantity for each symbol; text never carries it.
	DefaultQuantities map[core.Symbol]float64 `mapstructure:"default_quantities"`
}

// DefaultConfig returns the default per-symbol quantities
func DefaultConfig() Config {
	return Config{
		DefaultQuantities: map[core.Symbol]float64{
			core.SymbolBTC:    0.1,
			core.SymbolETH:    1,
			core.SymbolGold:   1,
			core.SymbolSilver: 50,
		},
	}
}

// Parser converts raw alert text into trading signals. It holds no mutable
// state and is safe for concurrent use.
type Parser struct {
	quantities map[core.Symbol]float64
	now        func() time.Time
	newID      func() string
}

// New creates a parser. Symbols missing from cfg fall back to DefaultConfig.
func New(cfg Config) *Parser {
	quantities := DefaultConfig().DefaultQuantities
	for sym, qty := range cfg.DefaultQuantities {
		if qty > 0 {
			quantities[sym] = qty
		}
	}
	return &Parser{
		quantities: quantities,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Parse returns the signal described by text, or false when the text matches
// no grammar, lacks a direction, symbol or price, or names an unsupported
// instrument. Malformed text is expected traffic and never produces an error.
func (p *Parser) Parse(text, channel string) (*core.TradingSignal, bool) {
	for _, g := range grammars {
		m := g.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		// First matching grammar wins.
		return p.build(g, m, text, channel)
	}
	return nil, false
}

func (p *Parser) build(g grammar, m []string, text, channel string) (*core.TradingSignal, bool) {
	symbol, ok := core.ParseSymbol(m[g.symbol])
	if !ok {
		return nil, false
	}

	price, ok := parsePrice(m[g.price])
	if !ok {
		return nil, false
	}

	// Action words are part of the vocabulary, so a captured BUY next to a
	// bearish emoji leaves the direction unresolved.
	direction, ok := ScanDirection(text)
	if !ok {
		return nil, false
	}

	qty, ok := p.quantities[symbol]
	if !ok || qty <= 0 {
		return nil, false
	}

	return &core.TradingSignal{
		ID:        p.newID(),
		Channel:   channel,
		Symbol:    symbol,
		Direction: direction,
		Price:     price,
		Quantity:  qty,
		RawText:   text,
		ParsedAt:  p.now(),
		Status:    core.SignalPending,
	}, true
}

// ScanDirection resolves a direction from the bullish/bearish vocabulary.
// Text carrying both or neither is unresolved.
func ScanDirection(text string) (core.Direction, bool) {
	bull := len(bullishWords.FindAllString(text, -1))
	bear := len(bearishWords.FindAllString(text, -1))
	for _, e := range bullishEmoji {
		bull += strings.Count(text, e)
	}
	for _, e := range bearishEmoji {
		bear += strings.Count(text, e)
	}

	switch {
	case bull > 0 && bear == 0:
		return core.DirectionBuy, true
	case bear > 0 && bull == 0:
		return core.DirectionSell, true
	default:
		return "", false
	}
}

func parsePrice(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
