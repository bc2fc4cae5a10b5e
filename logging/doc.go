// Package logging provides a minimal logging interface and adapters for agentstudio.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that registries, executors and workflow runners use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: logging.FormatTint, Output: os.Stderr})
//	registry := tool.NewRegistry(func(o *tool.RegistryOptions) { o.Logger = logger })
//
// Event names are dotted and stable ("execution.completed", "tool.failed");
// attributes are key/value pairs.
package logging
