// Package logging provides structured logging for the attune engine.
//
// This package wraps Go's log/slog to produce JSON-formatted logs with
// component attribution, so a host embedding the engine can trace which
// part of it (cache, scheduler, window, optimizer) wrote an entry.
//
// # Basic Usage
//
// Create a logger for a log directory:
//
//	logger, err := logging.NewLogger("/var/log/myapp", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Debug("detailed info", "key", "value")
//	logger.Info("operation completed", "duration_ms", 150)
//	logger.Warn("potential issue", "threshold", 100)
//	logger.Error("operation failed", "error", err.Error())
//
// # Context Propagation
//
// Child loggers carry persistent attributes:
//
//	cacheLog := logger.WithComponent("cache")
//	taskLog := logger.WithComponent("scheduler").WithTask("task-42")
//	ruleLog := logger.WithComponent("optimizer").WithRule("memory-reclaim")
//
//	taskLog.Info("task completed", "elapsed_ms", 12)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"task completed","component":"scheduler","task_id":"task-42","elapsed_ms":12}
//
// # Log Rotation
//
// Long-running hosts can cap log growth with size-based rotation:
//
//	logger, err := logging.NewLoggerWithRotation("/var/log/myapp", "INFO", logging.Rotation{
//	    MaxSizeMB:  10,
//	    MaxBackups: 3,
//	    Compress:   true,
//	})
//
// Rotated files are named engine.log.1, engine.log.2, and so on, where .1
// is the most recent generation. With compression enabled they become
// engine.log.1.gz.
//
// # Aggregation
//
// After a run, logs can be read back, filtered, and exported:
//
//	entries, err := logging.AggregateLogs("/var/log/myapp")
//	filtered := logging.FilterLogs(entries, logging.LogFilter{
//	    Level:     "WARN",
//	    Component: "scheduler",
//	})
//	logging.ExportLogEntries(filtered, "errors.json", "json")
//
// Supported export formats are json, text, and csv.
//
// # Testing
//
// Use [NopLogger] to discard all output:
//
//	logger := logging.NopLogger()
//
// All types in this package are safe for concurrent use.
package logging
