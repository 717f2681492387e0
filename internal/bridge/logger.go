package bridge

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.Logger]

// Logger returns the bridge logger. It is a no-op logger until SetLogger.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// SetLogger replaces the bridge logger. Nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}

// Native log levels (rtcLogLevel).
const (
	LogNone int32 = iota
	LogFatal
	LogError
	LogWarning
	LogInfo
	LogDebug
	LogVerbose
)

// NativeLevel maps an rtcLogLevel to a zap level. ok is false for
// LogNone and unknown values.
func NativeLevel(level int32) (zapcore.Level, bool) {
	switch level {
	case LogFatal, LogError:
		return zapcore.ErrorLevel, true
	case LogWarning:
		return zapcore.WarnLevel, true
	case LogInfo:
		return zapcore.InfoLevel, true
	case LogDebug, LogVerbose:
		return zapcore.DebugLevel, true
	default:
		return 0, false
	}
}

// HandleLog receives a line from the native logger.
func HandleLog(level int32, message string) {
	lvl, ok := NativeLevel(level)
	if !ok || message == "" {
		return
	}
	if ce := Logger().Check(lvl, message); ce != nil {
		ce.Write(zap.String("source", "libdatachannel"))
	}
}
