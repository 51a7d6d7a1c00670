package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clementcyberknight/db-stress-test/internal/api"
	"github.com/clementcyberknight/db-stress-test/internal/config"
	"github.com/clementcyberknight/db-stress-test/internal/engine"
	"github.com/clementcyberknight/db-stress-test/internal/logging"
	"github.com/clementcyberknight/db-stress-test/internal/payload"
	"github.com/clementcyberknight/db-stress-test/internal/report"
	"github.com/clementcyberknight/db-stress-test/internal/store"
)

var (
	configPath  = flag.String("config", "", "Path to YAML config file")
	backend     = flag.String("backend", "", "Store backend override (postgres|redis|badger)")
	concurrency = flag.Int("concurrency", 0, "Fixed concurrency for the run command")
	initial     = flag.Int("initial", 0, "Initial concurrency for the ramp command")
	step        = flag.Int("step", 0, "Concurrency step for the ramp command")
	ceiling     = flag.Int("ceiling", 0, "Concurrency ceiling for the ramp command")
	requests    = flag.Int("requests", 0, "Requests per stage")
	jsonOutput  = flag.Bool("json", false, "Output the report in JSON format")
	statusAddr  = flag.String("status", "", "Serve live run status on this address")
	environment = flag.String("env", "", "Logging preset (development|production|test)")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	if *environment != "" {
		logging.SetupEnvironmentLogging(cfg, *environment)
	}
	logger := logging.NewLogger(&cfg.Logging)

	builder, err := store.NewBuilder(&cfg.Store, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create store builder")
		os.Exit(1)
	}
	defer builder.Close()

	gen := payload.NewGenerator(cfg.Load.PayloadSize)
	runner := engine.NewStageRunner(builder, gen, cfg.Store.OperationTimeout, cfg.Load.MaxErrorRate, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("Interrupt received, aborting run")
		cancel()
	}()

	var status *api.StatusServer
	if cfg.Status.Enabled {
		status = api.NewStatusServer(cfg.Status.Addr, logger)
		status.Start()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			status.Shutdown(shutdownCtx)
		}()
	}

	var rep *engine.RunReport
	command := args[0]
	switch command {
	case "run":
		ctrl := engine.NewSingleStageController(runner, builder, engine.StageConfig{
			Concurrency:  fixedConcurrency(cfg),
			RequestCount: cfg.Load.RequestsPerStage,
		}, logger)
		if status != nil {
			ctrl.SetObserver(status)
		}
		rep, err = ctrl.Run(ctx)
	case "ramp":
		ctrl := engine.NewProgressiveController(runner, builder, engine.RampConfig{
			InitialConcurrency: cfg.Load.InitialConcurrency,
			ConcurrencyStep:    cfg.Load.ConcurrencyStep,
			ConcurrencyCeiling: cfg.Load.ConcurrencyCeiling,
			RequestsPerStage:   cfg.Load.RequestsPerStage,
			Cooldown:           cfg.Load.Cooldown,
		}, logger)
		if status != nil {
			ctrl.SetObserver(status)
		}
		rep, err = ctrl.Run(ctx)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		logger.WithError(err).Error("Run failed")
		os.Exit(1)
	}

	if *jsonOutput {
		if err := report.WriteJSON(os.Stdout, rep); err != nil {
			logger.WithError(err).Error("Failed to encode report")
			os.Exit(1)
		}
	} else {
		report.Render(os.Stdout, rep)
	}
}

// fixedConcurrency picks the level for the run command: the -concurrency
// flag if given, otherwise the configured initial concurrency.
func fixedConcurrency(cfg *config.Config) int {
	if *concurrency > 0 {
		return *concurrency
	}
	return cfg.Load.InitialConcurrency
}

func applyFlagOverrides(cfg *config.Config) {
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if *initial > 0 {
		cfg.Load.InitialConcurrency = *initial
	}
	if *step > 0 {
		cfg.Load.ConcurrencyStep = *step
	}
	if *ceiling > 0 {
		cfg.Load.ConcurrencyCeiling = *ceiling
	}
	if *requests > 0 {
		cfg.Load.RequestsPerStage = *requests
	}
	if *statusAddr != "" {
		cfg.Status.Enabled = true
		cfg.Status.Addr = *statusAddr
	}
}

func printUsage() {
	fmt.Println("db-stress-test - concurrent load generator for data stores")
	fmt.Println()
	fmt.Println("Usage: dbstress [flags] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run   Run a single stage at a fixed concurrency")
	fmt.Println("  ramp  Ramp concurrency in steps until failure or the ceiling")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Configuration can also come from a YAML file (-config) or DBSTRESS_* env vars.")
}
