package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/a4way/report-agent-workflow/internal/app"
	"github.com/a4way/report-agent-workflow/internal/config"
	"github.com/a4way/report-agent-workflow/internal/logging"
)

var (
	configFile string
	verbose    bool
)

// demoRequests are the canned requests run by the demo command.
var demoRequests = []string{
	"Analyse total revenue and AOV for our e-commerce business",
	"How does each acquisition channel perform in terms of revenue and number of orders?",
	"Calculate the gross margin of our product portfolio",
}

var exitWords = map[string]bool{"exit": true, "quit": true, "bye": true}

const rule = "============================================================"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "bizflow",
		Short: "Multi-agent business intelligence over e-commerce CSV data",
		Long: `Routes a business question through a four-stage pipeline: classify the request,
analyse the data with canned SQL queries, write a report and assemble the final output.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Ask command
	var askCmd = &cobra.Command{
		Use:   "ask [request...]",
		Short: "Analyse a business request",
		Long:  `Run the pipeline for one request. Without arguments requests are read from stdin until exit, quit or bye.`,
		RunE:  runAsk,
	}
	askCmd.Flags().Bool("summary", false, "also print an executive summary of the report")

	// Demo command
	var demoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Run the three demo requests",
		Args:  cobra.NoArgs,
		RunE:  runDemo,
	}

	// Query command
	var queryCmd = &cobra.Command{
		Use:   "query [sql...]",
		Short: "Run SQL against the configured CSV tables",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuery,
	}

	// Serve command
	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().String("address", "", "listen address, overrides server.address")
	serveCmd.Flags().Bool("simulate", false, "simulate workflows instead of calling the completion service")

	// Config command
	var configCmd = &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	var configInitCmd = &cobra.Command{
		Use:   "init [filename]",
		Short: "Create a default configuration file",
		Long:  `Generate a default configuration file with all available options. Use a .yaml extension for YAML.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInit,
	}

	var configValidateCmd = &cobra.Command{
		Use:   "validate [filename]",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigValidate,
	}

	configCmd.AddCommand(configInitCmd, configValidateCmd)
	rootCmd.AddCommand(askCmd, demoCmd, queryCmd, serveCmd, configCmd)
	return rootCmd
}

// setup loads the configuration, applies overrides and wires the application.
func setup(overrides ...func(*config.Config)) (*app.App, func(), error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	for _, override := range overrides {
		override(cfg)
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return nil, nil, err
	}
	zerolog.DefaultContextLogger = &logger

	a, err := app.New(cfg, logger)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Configuration: %s\n", cfg.String())
	}
	return a, func() { _ = closeLog() }, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func requireOrchestrator(a *app.App) error {
	if !a.Ready() {
		return errors.New("no completion service configured: set OPENAI_API_KEY or use the ollama provider")
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := requireOrchestrator(a); err != nil {
		return err
	}

	summary, _ := cmd.Flags().GetBool("summary")
	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		return process(ctx, out, a, strings.Join(args, " "), summary)
	}
	return interactive(ctx, cmd.InOrStdin(), out, a, summary)
}

func interactive(ctx context.Context, in io.Reader, out io.Writer, a *app.App, summary bool) error {
	fmt.Fprintln(out, "Multi-agent e-commerce analysis")
	fmt.Fprintln(out, "Example requests:")
	for _, r := range demoRequests {
		fmt.Fprintf(out, "  - %s\n", r)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYour request (or 'exit' to quit): ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		request := strings.TrimSpace(scanner.Text())

		if exitWords[strings.ToLower(request)] {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if request == "" {
			fmt.Fprintln(out, "Please enter a request")
			continue
		}
		if err := process(ctx, out, a, request, summary); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func process(ctx context.Context, out io.Writer, a *app.App, request string, summary bool) error {
	fmt.Fprintf(out, "\nProcessing request: %s\n\n", request)

	start := time.Now()
	state := a.Orchestrator.Run(ctx, request)

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, state.FinalOutput)
	fmt.Fprintln(out, rule)

	if summary && state.Report.OK() {
		res := a.Reporter.Summarize(ctx, state.Report.Payload)
		if res.OK() {
			fmt.Fprintf(out, "\nExecutive summary:\n%s\n", res.Payload)
		} else {
			fmt.Fprintf(out, "\nExecutive summary unavailable: %s\n", res.Error)
		}
	}

	if verbose {
		fmt.Fprintf(out, "Duration: %v\n", time.Since(start).Round(time.Millisecond))
	}
	return nil
}

func runDemo(cmd *cobra.Command, args []string) error {
	a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := requireOrchestrator(a); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	for i, request := range demoRequests {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintf(out, "\nDemo %d/%d: %s\n", i+1, len(demoRequests), request)
		if err := process(ctx, out, a, request, false); err != nil {
			return err
		}
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintln(cmd.OutOrStdout(), a.QueryTool.Run(ctx, strings.Join(args, " ")))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	filename := "bizflow-config.yaml"
	if len(args) > 0 {
		filename = args[0]
	}

	cfg := config.DefaultConfig()
	if err := cfg.SaveToFile(filename); err != nil {
		return fmt.Errorf("failed to save config file: %v", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Default configuration saved to: %s\n", filename)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	filename := args[0]

	cfg, err := config.LoadConfigFromFile(filename)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file '%s' is valid!\n", filename)

	if verbose {
		masked := cfg.Masked()
		configJSON, _ := json.MarshalIndent(masked, "", "  ")
		fmt.Fprintf(out, "\nConfiguration details:\n%s\n", configJSON)
	}
	return nil
}
