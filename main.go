package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"perfview/config"
	"perfview/logging"
	"perfview/network"
	"perfview/output"
)

func main() {
	// Check if URL is provided
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if os.Args[1] == "-v" || os.Args[1] == "--version" {
		output.NewPrinter(os.Stdout, true).PrintVersion(appVersion)
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Could not load config: ", err)
	}

	// Get URL from the first argument
	urlArg := os.Args[1]

	// Create a new flag set to parse the remaining arguments
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	verArg := flags.Bool("v", false, "Print version information")
	statsArg := flags.Bool("stats", false, "Print statistics only")
	jsonArg := flags.Bool("json", cfg.Output == config.OutputJSON, "Print the report as JSON")
	noColorArg := flags.Bool("no-color", false, "Disable coloured output")
	providerArg := flags.String("provider", cfg.Provider, "Timing provider: http or browser")
	concurrencyArg := flags.Int("concurrency", cfg.Concurrency, "Number of sub-resources fetched in parallel")
	timeoutArg := flags.Duration("timeout", cfg.RequestTimeout, "Timeout of the page load")

	// Parse the remaining command line arguments
	if err := flags.Parse(os.Args[2:]); err != nil {
		log.Fatal(err)
	}

	if *verArg {
		output.NewPrinter(os.Stdout, !*noColorArg).PrintVersion(appVersion)
		return
	}

	cfg.Provider = *providerArg
	cfg.Concurrency = *concurrencyArg
	cfg.RequestTimeout = *timeoutArg
	if *jsonArg {
		cfg.Output = config.OutputJSON
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logLevel, err := logging.ZapLogLevelFromString(cfg.LogLevel)
	if err != nil {
		log.Fatal("Could not parse log level: ", err)
	}

	logger := logging.New(!cfg.JSONLog, cfg.LogLevel == "debug", logLevel).
		With(zap.String("component", "perfview"), zap.String("version", appVersion))
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM, // default for kill
		syscall.SIGQUIT, // ctrl + \
	)
	defer stop()

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Collector: newCollector(cfg, logger),
		Printer:   output.NewPrinter(os.Stdout, !*noColorArg),
		Stdout:    os.Stdout,
		StatsOnly: *statsArg,
	}

	ok, err := app.Run(ctx, network.AddDefaultProtocol(urlArg))
	if err != nil {
		logger.Error("Could not analyze page", logging.WithURL(urlArg), zap.Error(err))
		stop()
		os.Exit(1)
	}
	if !ok {
		stop()
		os.Exit(1)
	}
}
