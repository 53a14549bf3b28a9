// Package main provides the migr8-smoke binary entry point.
// migr8-smoke drives one full project lifecycle against a running MIGR8
// migration analysis server and reports whether the server held up.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/migr8-smoke/config"
	"github.com/c360studio/migr8-smoke/console"
	"github.com/c360studio/migr8-smoke/workflow"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "migr8-smoke"
)

// errRunFailed marks a run that completed but did not pass. The summary has
// already said everything there is to say.
var errRunFailed = errors.New("smoke run failed")

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	apiURL      string
	wsURL       string
	project     string
	logLevel    string
	logLevelSet bool
	jsonOutput  bool
	timeout     time.Duration
}

func rootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Smoke test for a MIGR8 migration analysis server",
		Long: `migr8-smoke exercises a running MIGR8 migration analysis server end to
end: it creates a project, confirms it shows up in the listing, triggers
analysis, waits for completion, and lists the server's migration rules,
while streaming progress over the WebSocket push channel.

The run prints a stage-by-stage narrative and exits 0 only if every stage
passed.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.logLevelSet = cmd.Flags().Changed("log-level")
			return run(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&opts.apiURL, "api-url", "", "API base URL (default http://localhost:3000/api)")
	cmd.Flags().StringVar(&opts.wsURL, "ws-url", "", "WebSocket URL (default ws://localhost:3000)")
	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "Path to the frontend project to analyze")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the run result as JSON")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Overall timeout for the run")

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func run(opts options) error {
	logger := newLogger(opts.logLevel)
	slog.SetDefault(logger)

	loader := config.NewLoader(logger)
	cfg, err := loader.Load(opts.configPath)
	if err != nil {
		return err
	}

	// Flags beat environment and file values.
	if opts.apiURL != "" {
		cfg.APIBaseURL = opts.apiURL
	}
	if opts.wsURL != "" {
		cfg.WSURL = opts.wsURL
	}
	if opts.project != "" {
		cfg.ProjectPath = opts.project
	}
	if opts.logLevelSet {
		cfg.LogLevel = opts.logLevel
	}

	if cfg.LogLevel != opts.logLevel {
		logger = newLogger(cfg.LogLevel)
		slog.SetDefault(logger)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(baseCtx, opts.timeout)
	defer cancel()

	wf := workflow.New(cfg, workflow.WithLogger(logger))
	result := wf.Run(ctx)
	// Teardown gets a fresh context: the run context may already be done.
	if err := wf.Teardown(context.Background()); err != nil {
		logger.Warn("Teardown incomplete", "error", err)
	}

	if opts.jsonOutput {
		if err := outputJSON(result); err != nil {
			return err
		}
	} else {
		outputSummary(result)
	}

	if !result.Success {
		return errRunFailed
	}
	return nil
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// outputSummary prints the closing stage table and verdict.
func outputSummary(result *workflow.Result) {
	p := console.New(os.Stdout)
	p.Blank()
	p.Banner("SUMMARY")

	passed := 0
	for _, stage := range result.Stages {
		if stage.Success {
			passed++
		}
		p.Stage(stage.Success, stage.Name, stage.Duration, truncate(stage.Error, 80))
	}
	p.Rule()
	fmt.Printf("Total: %d | Passed: %d | Failed: %d\n", len(result.Stages), passed, len(result.Stages)-passed)

	if len(result.Messages) > 0 {
		p.Blank()
		p.Counts("Push messages", result.Messages)
	}

	if len(result.Warnings) > 0 {
		p.Blank()
		for _, warning := range result.Warnings {
			p.Warning("%s", warning)
		}
	}

	p.Blank()
	if result.Success {
		p.Success("PASSED (%dms)", result.Duration.Milliseconds())
	} else {
		p.Error("FAILED: %s", result.Error)
	}
}

func outputJSON(result *workflow.Result) error {
	output := struct {
		Timestamp time.Time        `json:"timestamp"`
		Result    *workflow.Result `json:"result"`
	}{
		Timestamp: time.Now(),
		Result:    result,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
