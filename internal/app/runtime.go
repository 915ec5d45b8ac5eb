package app

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/odyssey-erp/stockroom/internal/storage"
)

const testModeEnv = "STOCKROOM_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

// detectTestMode reads the STOCKROOM_TEST_MODE flag once.
func detectTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}

// EffectiveStorage is the backend the process should open. Test mode pins
// the in-memory store so nothing touches disk, Redis or Postgres.
func EffectiveStorage(cfg *Config) storage.Config {
	if InTestMode() || cfg == nil {
		return storage.Config{Driver: storage.DriverMemory}
	}
	return cfg.Storage()
}
