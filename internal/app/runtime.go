package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// testModeEnv is set by the shared test harness; both binaries exit early
// when it is "1" so `go test ./...` never dials postgres or redis.
const testModeEnv = "ODYSSEY_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeInit sync.Once
)

func loadTestMode() {
	testMode.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether the binaries should skip connecting to storage.
func InTestMode() bool {
	testModeInit.Do(loadTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads the flag after the environment changed.
func RefreshTestMode() {
	testModeInit.Do(func() {})
	loadTestMode()
}
