package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/natefinch/lumberjack"
)

// FileConfig describes a rotating log file.
type FileConfig struct {
	Filename string

	// MaxSize is the size in megabytes that triggers rotation.
	MaxSize int

	// MaxAge is the number of days rotated files are kept.
	MaxAge int

	Level string
}

// ParseLevel converts a level name such as "debug" or "warn" to a level.
// The empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// NewFileLogger returns a text logger writing to a rotating file. The
// returned closer releases the file.
func NewFileLogger(cfg FileConfig) (*slog.Logger, io.Closer, error) {
	if cfg.Filename == "" {
		return nil, nil, fmt.Errorf("no log file name given")
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	w := &lumberjack.Logger{
		Filename: cfg.Filename,
		MaxSize:  cfg.MaxSize,
		MaxAge:   cfg.MaxAge,
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h), w, nil
}
