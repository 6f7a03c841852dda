package utils

import (
	"io"
	"os"
	"sync"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
)

var (
	logMtx sync.RWMutex
	logger = zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
)

func init() {
	gnarklogger.Set(logger.Level(zerolog.WarnLevel))
}

// Logger returns the shared logger.
func Logger() *zerolog.Logger {
	logMtx.RLock()
	defer logMtx.RUnlock()
	l := logger
	return &l
}

// SetLogger replaces the shared logger. The proving backend logs through
// the same sink one level quieter than l.
func SetLogger(l zerolog.Logger) {
	logMtx.Lock()
	defer logMtx.Unlock()
	logger = l
	lvl := l.GetLevel()
	if lvl < zerolog.WarnLevel {
		lvl = zerolog.WarnLevel
	}
	gnarklogger.Set(l.Level(lvl))
}

// NewLogger builds a logger writing to w at the named level.
func NewLogger(w io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
