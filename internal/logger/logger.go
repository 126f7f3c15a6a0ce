// Package logger narrates the indexing and retrieval pipeline on
// stderr when the --verbose flag is set. Primary command output goes
// through the cobra writers; this channel carries diagnostics only.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects verbose logs, mainly for tests. Defaults to
// os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// emit is the single sink for every level.
func emit(tag, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, tag+" "+format+"\n", args...)
	}
}

// Debug records fine-grained pipeline steps.
func Debug(format string, args ...any) { emit("debug:", format, args...) }

// Info records notable events that are not problems.
func Info(format string, args ...any) { emit("info:", format, args...) }

// Warn records recoverable problems.
func Warn(format string, args ...any) { emit("warn:", format, args...) }

// Phase marks the start of a pipeline stage, such as indexing or
// retrieval, so the Debug lines that follow read grouped.
func Phase(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n── %s\n", name)
	}
}
