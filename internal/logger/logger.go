// Package logger provides per-subsystem structured loggers: a tag registry
// handed out via Get(tag), backed by go.uber.org/zap's SugaredLogger and
// optionally rotated with github.com/jrick/logrotate.
package logger

import (
	"os"
	"sync"

	"github.com/jrick/logrotate/rotator"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu        sync.Mutex
	base      *zap.Logger
	subsystem = make(map[string]*zap.SugaredLogger)
	rotLog    *rotator.Rotator
)

func init() {
	base = newDevelopmentLogger()
}

func newDevelopmentLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	l, err := cfg.Build()
	if err != nil {
		// zap's own default config cannot fail to build; a failure here is a
		// programmer error in this init, not a runtime condition to recover
		// from.
		panic(err)
	}
	return l
}

// InitFileRotation redirects all subsystem loggers to a rotated log file at
// dir/logFilename, in addition to stderr. maxFiles follows rotator's
// retention semantics.
func InitFileRotation(dir, logFilename string, maxFiles int) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	r, err := rotator.New(dir+string(os.PathSeparator)+logFilename, 10*1024, false, maxFiles)
	if err != nil {
		return err
	}
	rotLog = r

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(os.Stderr), zapcore.InfoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(rotLog), zapcore.DebugLevel),
	)
	base = zap.New(core)

	for tag, l := range subsystem {
		*l = *base.Named(tag).Sugar() // replaced in place
	}
	return nil
}

// Get returns the logger for a subsystem tag (e.g. "MINR", "DAG ", "GOSS"),
// creating it on first use. Subsystem tags are conventionally four
// characters, though this is cosmetic only.
func Get(tag string) *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := subsystem[tag]; ok {
		return l
	}
	l := base.Named(tag).Sugar()
	subsystem[tag] = l
	return l
}

// Sync flushes every subsystem logger's buffered entries. Call on shutdown.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range subsystem {
		_ = l.Sync()
	}
	if rotLog != nil {
		rotLog.Close()
	}
}
