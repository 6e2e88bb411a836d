package logging

import (
	"fmt"
	"strings"
)

// LeveledLogger adapts the subsystem logger to the key/value logging interface
// expected by HTTP client libraries such as go-retryablehttp.
type LeveledLogger struct {
	subsystem string
}

// NewLeveledLogger returns a LeveledLogger that tags every entry with subsystem.
func NewLeveledLogger(subsystem string) *LeveledLogger {
	return &LeveledLogger{subsystem: subsystem}
}

func (l *LeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	logInternal(LevelError, l.subsystem, nil, "%s", withPairs(msg, keysAndValues))
}

func (l *LeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	logInternal(LevelWarn, l.subsystem, nil, "%s", withPairs(msg, keysAndValues))
}

func (l *LeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	logInternal(LevelInfo, l.subsystem, nil, "%s", withPairs(msg, keysAndValues))
}

// Debug entries from libraries are noisy; they are kept at debug level.
func (l *LeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	logInternal(LevelDebug, l.subsystem, nil, "%s", withPairs(msg, keysAndValues))
}

func withPairs(msg string, keysAndValues []interface{}) string {
	if len(keysAndValues) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(keysAndValues); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&b, "%v=%v", keysAndValues[i], keysAndValues[i+1])
		} else {
			fmt.Fprintf(&b, "%v", keysAndValues[i])
		}
	}
	return b.String()
}
