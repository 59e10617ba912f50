// Package logging builds the service's zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/parisxmas/OxiDB/OxiForms/internal/config"
	"github.com/parisxmas/OxiDB/OxiForms/internal/gelf"
)

const service = "oxiforms"

// Logger is a zap logger whose level can be changed while running.
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel

	gelf *gelf.Writer
}

// New builds a logger from cfg. With cfg.GelfAddr set, every entry is also
// sent to Graylog.
func New(cfg config.LogConfig) (*Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level

	l := &Logger{Level: level}
	var opts []zap.Option
	if cfg.GelfAddr != "" {
		w, err := gelf.New(cfg.GelfAddr, service)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		l.gelf = w
		gelfCore := zapcore.NewCore(zapcore.NewJSONEncoder(gelfEncoderConfig()), w, level)
		opts = append(opts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, gelfCore)
		}))
	}

	base, err := zc.Build(opts...)
	if err != nil {
		if l.gelf != nil {
			l.gelf.Close()
		}
		return nil, fmt.Errorf("logging: build: %w", err)
	}
	l.Logger = base
	return l, nil
}

// SetLevel changes the level of a running logger.
func (l *Logger) SetLevel(level string) error {
	return l.Level.UnmarshalText([]byte(level))
}

// Close flushes the logger and releases the GELF socket.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.gelf != nil {
		return l.gelf.Close()
	}
	return nil
}

func gelfEncoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.LevelKey = gelf.KeyLevel
	ec.TimeKey = gelf.KeyTime
	ec.MessageKey = gelf.KeyMessage
	ec.EncodeTime = zapcore.EpochTimeEncoder
	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	ec.StacktraceKey = "stacktrace"
	return ec
}
