// Package testutil provides shared helpers for tests.
package testutil

import (
	"time"

	"github.com/clementcyberknight/db-stress-test/internal/config"
	"github.com/clementcyberknight/db-stress-test/internal/logging"
)

// TestConfig returns a configuration suitable for tests: embedded in-memory
// storage and small stage sizes so suites finish quickly.
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Store.Backend = "badger"
	cfg.Store.BadgerInMemory = true
	cfg.Store.AcquireTimeout = 500 * time.Millisecond
	cfg.Store.OperationTimeout = 500 * time.Millisecond
	cfg.Load.InitialConcurrency = 2
	cfg.Load.ConcurrencyStep = 2
	cfg.Load.ConcurrencyCeiling = 4
	cfg.Load.RequestsPerStage = 50
	cfg.Load.Cooldown = 0
	cfg.Logging = logging.TestLoggingConfig()
	return cfg
}

// TestLogger returns a logger that only emits errors.
func TestLogger() *logging.Logger {
	cfg := logging.TestLoggingConfig()
	return logging.NewLogger(&cfg)
}
