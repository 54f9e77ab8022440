// Package logging provides categorized logging for the chatNERD core.
// Each subsystem logs through its own named zap logger so operators can
// grep one concern at a time. The package defaults to a no-op logger;
// binaries call Init once at startup, libraries stay silent.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryBoot     Category = "boot"     // startup and wiring
	CategoryTools    Category = "tools"    // tool registry and dispatch
	CategoryQuota    Category = "quota"    // usage counters and rate limits
	CategorySandbox  Category = "sandbox"  // sandbox session lifecycle
	CategoryReader   Category = "reader"   // web page fetching
	CategoryWorkflow Category = "workflow" // workflow control loop
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	byName  = make(map[Category]*zap.SugaredLogger)
	flushFn = func() {}
)

// Init builds and installs the process-wide root logger. level is one of
// debug/info/warn/error; development switches to the console encoder.
func Init(level string, development bool) error {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	SetLogger(logger)
	return nil
}

// SetLogger installs a root logger directly. Tests use this with
// zaptest or an observer core.
func SetLogger(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = logger
	byName = make(map[Category]*zap.SugaredLogger)
	flushFn = func() { _ = logger.Sync() }
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	mu.RLock()
	fn := flushFn
	mu.RUnlock()
	fn()
}

// Get returns the sugared logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := byName[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := byName[cat]; ok {
		return l
	}
	l := root.Named(string(cat)).Sugar()
	byName[cat] = l
	return l
}
