package mpv

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel is the minimum mpv log level requested with RequestLogMessages.
type LogLevel int32

// Log levels from client.h.
const (
	LogLevelNone  LogLevel = 0
	LogLevelFatal LogLevel = 10
	LogLevelError LogLevel = 20
	LogLevelWarn  LogLevel = 30
	LogLevelInfo  LogLevel = 40
	LogLevelV     LogLevel = 50
	LogLevelDebug LogLevel = 60
	LogLevelTrace LogLevel = 70
)

var logLevelNames = map[string]LogLevel{
	"no":    LogLevelNone,
	"fatal": LogLevelFatal,
	"error": LogLevelError,
	"warn":  LogLevelWarn,
	"info":  LogLevelInfo,
	"v":     LogLevelV,
	"debug": LogLevelDebug,
	"trace": LogLevelTrace,
}

// String returns the name libmpv uses for the level.
func (l LogLevel) String() string {
	for name, lvl := range logLevelNames {
		if lvl == l {
			return name
		}
	}
	return "unknown"
}

// ParseLogLevel maps an mpv level name ("no", "warn", "trace", ...) to a LogLevel.
func ParseLogLevel(s string) (LogLevel, bool) {
	l, ok := logLevelNames[s]
	return l, ok
}

// zapLevel maps mpv severities onto zap levels. "v", debug and trace all
// land on Debug. Fatal is mapped to Error so a player message can never
// terminate the host process.
func (l LogLevel) zapLevel() zapcore.Level {
	switch {
	case l <= LogLevelError:
		return zapcore.ErrorLevel
	case l == LogLevelWarn:
		return zapcore.WarnLevel
	case l == LogLevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
