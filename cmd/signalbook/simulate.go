package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/newthinker/signalbook/internal/analytics"
	"github.com/newthinker/signalbook/internal/app"
	"github.com/newthinker/signalbook/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	simulateFile  string
	simulateTicks int
	simulateSeed  int64
	simulateJSON  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay alerts through the paper engine",
	Long:  "Feed one alert per line through the pipeline, advance prices for a number of ticks and print performance statistics",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&simulateFile, "file", "f", "", "Alerts file, one message per line; - reads stdin (required)")
	simulateCmd.Flags().IntVar(&simulateTicks, "ticks", 10, "Price refreshes to run after the alerts")
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", 1, "Seed for the synthetic price feed")
	simulateCmd.Flags().BoolVar(&simulateJSON, "json", false, "Print the full report as JSON")

	simulateCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simulateTicks < 0 {
		return fmt.Errorf("ticks must not be negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Must(cfg.Log)
	defer log.Sync()

	var in io.Reader = os.Stdin
	if simulateFile != "-" {
		f, err := os.Open(simulateFile)
		if err != nil {
			return fmt.Errorf("opening alerts: %w", err)
		}
		defer f.Close()
		in = f
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}
	a.Engine().SetRandSource(rand.New(rand.NewSource(simulateSeed)))

	ctx := context.Background()
	var lines, parsed, executed int
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		lines++
		res, err := a.Ingest(ctx, text, "simulate")
		if res != nil {
			parsed++
		}
		if err != nil {
			log.Info("alert not executed", zap.Int("line", lines), zap.Error(err))
			continue
		}
		if res != nil {
			executed++
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading alerts: %w", err)
	}

	var autoClosed int
	for range simulateTicks {
		autoClosed += len(a.RefreshPrices(ctx))
	}

	e := a.Engine()
	report := analytics.Summarize(e.Trades(), e.InitialBalance())
	out := cmd.OutOrStdout()
	if simulateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	m := report.Metrics
	fmt.Fprintln(out, "=== signalbook simulation ===")
	fmt.Fprintf(out, "Alerts:       %d (%d parsed, %d executed)\n", lines, parsed, executed)
	fmt.Fprintf(out, "Ticks:        %d (%d auto-closed)\n", simulateTicks, autoClosed)
	fmt.Fprintf(out, "Trades:       %d open, %d closed\n", m.OpenTrades, m.ClosedTrades)
	fmt.Fprintf(out, "Balance:      %.2f (start %.2f)\n", e.Account().Balance, e.InitialBalance())
	fmt.Fprintf(out, "Realized P&L: %.2f (%.2f%%)\n", m.TotalPnL, m.TotalReturnPct)
	fmt.Fprintf(out, "Win rate:     %.1f%%\n", m.WinRate)
	fmt.Fprintf(out, "Profit factor %.2f, Sharpe %.2f, max drawdown %.2f%%\n", m.ProfitFactor, m.SharpeRatio, m.MaxDrawdownPct)
	return nil
}
