// Package logger provides a structured logging interface for the harvester.
//
// It wraps zerolog and offers:
//   - levels (debug, info, warn, error, disabled)
//   - child loggers carrying fields (WithField, WithFields, WithError)
//   - colored console output on stderr, or console plus file output
//   - a global logger for command setup code
//   - NewNopLogger and NewTestLogger for tests
//
// Basic usage:
//
//	log, err := logger.New(&config.LoggingConfig{Level: "info"})
//	log = log.WithField("run_id", runID)
//	log.InfoWithFields("Search completed", map[string]interface{}{
//	    "keyword": "multimeter",
//	    "found":   20,
//	})
package logger
