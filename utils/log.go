package utils

import (
	"fmt"
	"log"
	"os"
)

// DebugEnv enables diagnostic output on stderr when set to any value.
const DebugEnv = "PQCORE_DEBUG"

var debugEnabled = os.Getenv(DebugEnv) != ""

// Debugf writes a diagnostic line tagged with component when PQCORE_DEBUG is set.
// Never pass secret material.
func Debugf(component, format string, args ...interface{}) {
	if debugEnabled {
		fmt.Fprintf(os.Stderr, "["+component+"] "+format+"\n", args...)
	}
}

// DebugEnabled reports whether diagnostic logging is on.
func DebugEnabled() bool {
	return debugEnabled
}

// SetDebug overrides the PQCORE_DEBUG setting.
func SetDebug(enabled bool) {
	debugEnabled = enabled
}

// NewLogger returns a standard logger with a consistent prefix.
func NewLogger(prefix string) *log.Logger {
	return log.New(os.Stderr, prefix, log.LstdFlags|log.LUTC)
}
