package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a new zap logger writing to stderr and to any extra paths,
// such as a run directory's log file.
func New(development bool, extraPaths ...string) (*zap.Logger, error) {
	var cfg zap.Config

	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.OutputPaths = append(cfg.OutputPaths, extraPaths...)

	return cfg.Build()
}

// Must creates a logger or panics
func Must(development bool, extraPaths ...string) *zap.Logger {
	log, err := New(development, extraPaths...)
	if err != nil {
		panic(err)
	}
	return log
}

// WithFile returns a logger that also writes JSON entries at every level to
// path. The returned function flushes and closes the file.
func WithFile(base *zap.Logger, path string) (*zap.Logger, func(), error) {
	sink, closeSink, err := zap.Open(path)
	if err != nil {
		return nil, nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, zapcore.DebugLevel)

	log := base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	}))
	return log, func() {
		_ = log.Sync()
		closeSink()
	}, nil
}
