package sas7bdat

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// filteredLogger applies the configured minimum log_level to c.logger,
// matching the severities spec.md's error taxonomy calls for:
// UnknownSubheaderSignature at debug, ColCountMismatch at warning.
func filteredLogger(c *config) log.Logger {
	var opt level.Option
	switch c.logLevel {
	case "debug":
		opt = level.AllowDebug()
	case "info":
		opt = level.AllowInfo()
	case "error":
		opt = level.AllowError()
	default:
		opt = level.AllowWarn()
	}
	return level.NewFilter(c.logger, opt)
}
