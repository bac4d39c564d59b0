// Package debug provides lightweight, toggleable structured logging used
// across the engine. Output is suppressed entirely unless explicitly enabled,
// since the core must never write to stdout/stderr on its own (CLI and MCP
// front-ends own that).
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug is a build flag: go build -ldflags "-X .../internal/debug.EnableDebug=true"
var EnableDebug = "false"

// MCPMode suppresses all debug output when Magellan is driven over the MCP
// protocol, where stray writes to stdio would corrupt the wire framing.
var MCPMode = false

var (
	debugOutput io.Writer
	debugFile   *os.File
	debugMutex  sync.Mutex
)

// SetMCPMode toggles MCP-safe output suppression.
func SetMCPMode(enabled bool) {
	MCPMode = enabled
}

// SetOutput sets a custom writer for debug output. Pass nil to disable.
func SetOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitLogFile initializes debug logging to a timestamped file under the OS
// temp directory and returns its path.
func InitLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "magellan-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseLogFile closes the debug log file if one is open.
func CloseLogFile() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile == nil {
		return nil
	}
	err := debugFile.Close()
	debugFile = nil
	debugOutput = nil
	return err
}

// Enabled reports whether debug output is currently active.
func Enabled() bool {
	if MCPMode {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("MAGELLAN_DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Log writes a component-tagged debug line, e.g. Log("ingest", "parsed %s", path).
func Log(component, format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format+"\n", append([]interface{}{component}, args...)...)
}

// LogIngest logs an ingest-pipeline event.
func LogIngest(format string, args ...interface{}) { Log("ingest", format, args...) }

// LogWatch logs a filesystem-watcher event.
func LogWatch(format string, args ...interface{}) { Log("watch", format, args...) }

// LogReconcile logs a reconciliation-driver event.
func LogReconcile(format string, args ...interface{}) { Log("reconcile", format, args...) }

// LogQuery logs a query-layer event.
func LogQuery(format string, args ...interface{}) { Log("query", format, args...) }

// LogBackend logs a storage-backend event.
func LogBackend(format string, args ...interface{}) { Log("backend", format, args...) }

// Fatal records a fatal condition to the debug log and returns it as an error
// rather than terminating the process; callers decide how to react.
func Fatal(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if !MCPMode {
		if w := writer(); w != nil {
			fmt.Fprintf(w, "[FATAL] %s\n", msg)
		}
	}
	return fmt.Errorf("fatal: %s", msg)
}
