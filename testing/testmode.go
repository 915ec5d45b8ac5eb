// Package testing switches the binaries into test mode when blank-imported
// from a test, so main() returns before opening stores or listeners.
package testing

import (
	"os"
	"sync"
)

const testModeEnv = "STOCKROOM_TEST_MODE"

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv(testModeEnv, "1")
		// keep config loading hermetic when a developer .env is present
		if os.Getenv("STORE_DRIVER") == "" {
			_ = os.Setenv("STORE_DRIVER", "memory")
		}
	})
}

func init() {
	ensureTestMode()
}
