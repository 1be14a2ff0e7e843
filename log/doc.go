// Package log provides a simple, leveled logging interface for agentflow.
//
// The package implements a lightweight logging system with support for
// different log levels and customizable output destinations, used by the
// engine's node executor for operational logging (node dispatch, resolve
// and run failures, human-input stops). The stores do not log.
//
// # Log Levels
//
// The package supports five log levels, in order of increasing severity:
//
//   - LogLevelDebug: Detailed debugging information for development
//   - LogLevelInfo: General informational messages about normal operation
//   - LogLevelWarn: Warning messages for potentially problematic situations
//   - LogLevelError: Error messages for failures that need attention
//   - LogLevelNone: Disables all logging output
//
// # Logger Interface
//
// The Logger interface provides four main logging methods:
//
//   - Debug: For detailed troubleshooting information
//   - Info: For general application flow information
//   - Warn: For issues that don't stop execution but need attention
//   - Error: For failures and exceptions
//
// # Example Usage
//
//	logger := log.NewDefaultLogger(log.LogLevelInfo)
//	logger.Info("executing node %s", nodeID)
//	logger.Debug("resolved input: %v", input)
//	logger.Warn("loop count approaching max: %d", count)
//	logger.Error("node failed: %v", err)
//
// ## Custom Output
//
//	file, err := os.OpenFile("app.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer file.Close()
//
//	logger := log.NewCustomLogger(file, log.LogLevelDebug)
//
// ## golog Integration
//
// For callers who prefer `github.com/kataras/golog`, a minimal wrapper is
// provided:
//
//	glogger := golog.New()
//	glogger.SetPrefix("[agentflow] ")
//	logger := log.NewGologLogger(glogger)
//
// # Thread Safety
//
// The DefaultLogger implementation is thread-safe and can be used
// concurrently from multiple goroutines.
package log
