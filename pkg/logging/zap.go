package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts a zap sugared logger to the Logger interface, hiding
// zap types from callers
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger creates a console-encoded zap logger at the given level.
// Unknown level strings fall back to info.
func NewZapLogger(level string) Logger {
	zapLevel, err := levelFromString(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		zapLevel,
	)

	return &zapLogger{
		sugar: zap.New(core).Sugar(),
	}
}

// zapcore.ParseLevel exists only from zap v1.27.0 onwards
func levelFromString(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zap.DebugLevel, nil
	case "info", "":
		return zap.InfoLevel, nil
	case "warn":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	}
	return zap.InfoLevel, os.ErrInvalid
}

func (z *zapLogger) Debugf(msg string, args ...interface{}) {
	z.sugar.Debugf(msg, args...)
}

func (z *zapLogger) Infof(msg string, args ...interface{}) {
	z.sugar.Infof(msg, args...)
}

func (z *zapLogger) Warnf(msg string, args ...interface{}) {
	z.sugar.Warnf(msg, args...)
}

func (z *zapLogger) Errorf(msg string, args ...interface{}) {
	z.sugar.Errorf(msg, args...)
}
