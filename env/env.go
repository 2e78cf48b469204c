// Package env loads optional .env-sourced defaults for the command-line
// control surface, so flags can be left off in favor of a
// checked-in .env during local runs.
package env

import (
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Defaults are environment-sourced fallbacks for the cpnmonitor CLI's
// flags. Flags always take precedence when set explicitly.
type Defaults struct {
	ConfigPath   string
	LogPath      string
	FailFast     bool
	PrintMarking bool
}

// LoadDefaults loads a .env file if present (its absence is not an
// error — most runs have no .env at all) and reads CPNMONITOR_* values
// out of the process environment.
func LoadDefaults(logger *zap.Logger) Defaults {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env", zap.Error(err))
	}

	failFast := true
	if v := os.Getenv("CPNMONITOR_NO_FAIL_FAST"); v != "" {
		failFast = false
	}

	return Defaults{
		ConfigPath:   os.Getenv("CPNMONITOR_ENABLE"),
		LogPath:      os.Getenv("CPNMONITOR_LOG"),
		FailFast:     failFast,
		PrintMarking: os.Getenv("CPNMONITOR_PRINT_MARKING") != "",
	}
}

// NewLogger builds the process-wide structured logger. cpnmonitor runs
// as a short-lived CLI process, so a console-friendly development
// logger is used rather than the JSON production encoder.
func NewLogger() *zap.Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}
