package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Builder-Lawyers/store-builder/pkg/env"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level  string
	Format string
	// File, when set, receives a copy of stdout rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func NewConfig() Config {
	return Config{
		Level:      env.GetEnv("LOG_LEVEL", "info"),
		Format:     env.GetEnv("LOG_FORMAT", "text"),
		File:       env.GetEnv("LOG_FILE", ""),
		MaxSizeMB:  env.GetInt("LOG_MAX_SIZE_MB", 100),
		MaxBackups: env.GetInt("LOG_MAX_BACKUPS", 5),
		MaxAgeDays: env.GetInt("LOG_MAX_AGE_DAYS", 30),
	}
}

// Setup installs the default slog logger. The returned closer flushes the log file.
func Setup(cfg Config) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	log := slog.New(NewHandler(out, cfg))
	slog.SetDefault(log)
	return log, closer
}

func NewHandler(out io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
