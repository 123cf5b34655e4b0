package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var (
	rootMu sync.Mutex
	root   *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

type logger struct {
	prefix string
	sugar  *zap.SugaredLogger
}

// GetLogger returns a logger whose messages carry the given prefix, e.g. "[MQTT Client]".
func GetLogger(prefix string) Logger {
	return &logger{
		prefix: prefix,
		sugar:  Root().Named(strings.Trim(prefix, "[] ")).Sugar(),
	}
}

// SetLevel changes the level of every logger handed out so far.
func SetLevel(name string) error {
	if name == "" {
		name = LogLevelInfo
	}

	l, err := zapcore.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("unknown log level %q: %w", name, err)
	}

	level.SetLevel(l)

	return nil
}

// Root is the process wide zap logger, built on first use.
func Root() *zap.Logger {
	rootMu.Lock()
	defer rootMu.Unlock()

	if root == nil {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		// journald adds its own timestamps
		if os.Getenv("JOURNAL_STREAM") != "" {
			encoderConfig.TimeKey = ""
		}
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level)
		root = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	return root
}

func Sync() {
	_ = Root().Sync()
}

func (l *logger) Info(message string, v ...interface{}) {
	l.sugar.Infof(strings.TrimRight(message, "\n"), v...)
}

func (l *logger) Warn(message string, v ...interface{}) {
	l.sugar.Warnf(strings.TrimRight(message, "\n"), v...)
}

func (l *logger) Error(message string, v ...interface{}) {
	l.sugar.Errorf(strings.TrimRight(message, "\n"), v...)
}

func (l *logger) Debug(message string, v ...interface{}) {
	l.sugar.Debugf(strings.TrimRight(message, "\n"), v...)
}

func (l *logger) Named(prefix string) Logger {
	return &logger{
		prefix: l.prefix + prefix,
		sugar:  l.sugar.Named(strings.Trim(prefix, "[] ")),
	}
}

// StdLogger adapts the logger for libraries that expect a *log.Logger.
func (l *logger) StdLogger() *log.Logger {
	return zap.NewStdLog(l.sugar.Desugar().WithOptions(zap.AddCallerSkip(-1)))
}
