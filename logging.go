package statesync

import "github.com/rs/zerolog"

// zlog is an optional structured logger. If unset, nothing is logged.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the package.
func SetLogger(l zerolog.Logger) { zlog = &l }

// logDebug returns a debug event, or nil when no logger is installed.
// zerolog events are nil-safe, so callers can chain without checking.
func logDebug() *zerolog.Event {
	if zlog == nil {
		return nil
	}
	return zlog.Debug()
}

func logWarn() *zerolog.Event {
	if zlog == nil {
		return nil
	}
	return zlog.Warn()
}
