package logger

import (
	"github.com/rs/zerolog"
)

// LogSearch logs the outcome of one query stage call
func LogSearch(log Logger, provider, keyword, source string, found int, err error) {
	fields := map[string]interface{}{
		"provider": provider,
		"keyword":  keyword,
		"source":   source,
		"found":    found,
	}

	if err != nil {
		log.WithError(err).WarnWithFields("Search degraded", fields)
		return
	}
	log.InfoWithFields("Search completed", fields)
}

// LogDownload logs the outcome of one fetch stage call
func LogDownload(log Logger, keyword, url string, attempts int, success bool, reason string) {
	fields := map[string]interface{}{
		"keyword":  keyword,
		"url":      url,
		"attempts": attempts,
		"success":  success,
	}

	if success {
		log.DebugWithFields("Download completed", fields)
		return
	}
	fields["reason"] = reason
	log.WarnWithFields("Download failed", fields)
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
