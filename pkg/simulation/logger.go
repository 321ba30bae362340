package simulation

import (
	"fmt"
	"io"
	"strings"

	"github.com/tochemey/goakt/v3/log"
)

// ParseLogLevel maps a config string to a goakt log level. Empty means info.
func ParseLogLevel(s string) (log.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return log.InfoLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarningLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// NewLogger returns the logger shared by the actor system, the runner and the flock.
func NewLogger(level string, w io.Writer) (log.Logger, error) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return log.New(lvl, w), nil
}
