package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newthinker/signalbook/internal/parser"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	parseChannel string
	parseFormat  string
)

var parseCmd = &cobra.Command{
	Use:   "parse [text]",
	Short: "Parse alert text and print the signal it carries",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseChannel, "channel", "cli", "Channel recorded on the signal")
	parseCmd.Flags().StringVar(&parseFormat, "format", "json", "Output format (json, yaml)")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	if parseFormat != "json" && parseFormat != "yaml" {
		return fmt.Errorf("unknown format %q", parseFormat)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pc, err := cfg.ParserConfig()
	if err != nil {
		return err
	}

	sig, ok := parser.New(pc).Parse(strings.Join(args, " "), parseChannel)
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "no signal")
		return nil
	}

	out, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding signal: %w", err)
	}
	if parseFormat == "yaml" {
		if out, err = toYAML(out); err != nil {
			return fmt.Errorf("encoding signal: %w", err)
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(out), "\n"))
	return nil
}

// toYAML re-encodes JSON so YAML output keeps the JSON field names.
func toYAML(data []byte) ([]byte, error) {
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return yaml.Marshal(v)
}
