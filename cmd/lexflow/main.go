// Package main is the entry point for the lexflow runner: it parses a
// workflow document, runs its main workflow with JSON-decoded inputs, and
// prints the result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	metricsserver "github.com/lemonberrylabs/lexflow/cmd/lexflow-metrics"
	"github.com/lemonberrylabs/lexflow/pkg/parser"
	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/stdlib"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "lexflow",
	Short: "Run a LexFlow workflow document",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("lexflow version {{.Version}}\n")

	rootCmd.Flags().String("inputs", "", "path to a JSON file of main's input bindings (env LEXFLOW_INPUTS)")
	rootCmd.Flags().String("log-level", "", "debug|info|warn|error (default info, env LOG_LEVEL)")
	rootCmd.Flags().String("log-format", "", "text|json (default text, env LOG_FORMAT)")
	rootCmd.Flags().Bool("metrics-report", false, "print a metrics summary after the run")
	rootCmd.Flags().String("metrics-addr", "", "if set, serve /healthz and /metrics on this address while the run is in flight")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	path := args[0]

	level := envOrDefault("LOG_LEVEL", "info")
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		level = v
	}
	format := envOrDefault("LOG_FORMAT", "text")
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		format = v
	}
	logger := newLogger(level, format)

	inputsPath := os.Getenv("LEXFLOW_INPUTS")
	if v, _ := cmd.Flags().GetString("inputs"); v != "" {
		inputsPath = v
	}
	inputs, err := loadInputs(inputsPath)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	program, err := parser.Parse(source)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	metrics := runtime.NewExecutionMetrics(time.Now)
	engine := runtime.NewEngine(program,
		runtime.WithOpcodes(stdlib.NewRegistry()),
		runtime.WithMetrics(metrics),
		runtime.WithLogger(logger),
	)

	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	if metricsAddr != "" {
		srv := metricsserver.New(metrics)
		go func() {
			if err := srv.Listen(metricsAddr); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer srv.Shutdown()
	}

	result, runErr := engine.Run(context.Background(), inputs)

	report, _ := cmd.Flags().GetBool("metrics-report")
	if report {
		fmt.Fprintln(os.Stderr, metrics.Report(10))
	}

	if runErr != nil {
		return runErr
	}

	out, err := result.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func loadInputs(path string) (map[string]types.Value, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inputs file %s: %w", path, err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decoding inputs file %s: %w", path, err)
	}
	inputs := make(map[string]types.Value, len(decoded))
	for k, v := range decoded {
		inputs[k] = types.ValueFromJSON(v)
	}
	return inputs, nil
}

func newLogger(level, format string) *slog.Logger {
	lvl := parseLevel(level)
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      lvl,
			TimeFormat: time.TimeOnly,
		})
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
