package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config del logger. Env "prod" emite JSON a stderr; cualquier otro valor
// usa consola con colores. Level acepta debug|info|warn|error (default info).
type Config struct {
	Env         string
	Level       string
	ServiceName string
	Version     string
}

func build(cfg Config) *zap.Logger {
	lvl := zapcore.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zapcore.ParseLevel(strings.TrimSpace(strings.ToLower(cfg.Level))); err == nil {
			lvl = parsed
		}
	}

	prod := strings.EqualFold(cfg.Env, "prod")

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeCaller = zapcore.ShortCallerEncoder
	var core zapcore.Core
	if prod {
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		core = zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(os.Stderr), lvl)
	} else {
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), lvl)
	}

	opts := []zap.Option{zap.AddCaller()}
	if prod {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	l := zap.New(core, opts...)
	if cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}
	if cfg.Version != "" {
		l = l.With(zap.String("version", cfg.Version))
	}
	return l
}
