package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

type Options struct {
	Level string
	JSON  bool
	// Out defaults to os.Stderr.
	Out io.Writer
}

var def atomic.Value

func init() {
	def.Store(New(Options{}))
}

// New builds a logger without touching the process default.
func New(opts Options) *slog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	cfg := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(out, cfg)
	} else {
		h = slog.NewTextHandler(out, cfg)
	}
	return slog.New(h)
}

func Configure(opts Options) {
	def.Store(New(opts))
}

func parseLevel(s string) slog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func L() *slog.Logger {
	l, _ := def.Load().(*slog.Logger)
	return l
}

func InitFromEnv() {
	lvl := os.Getenv("TRUCKPOS_LOG_LEVEL")
	jsonStr := os.Getenv("TRUCKPOS_LOG_JSON")
	json := false
	if b, err := strconv.ParseBool(strings.TrimSpace(jsonStr)); err == nil {
		json = b
	}
	Configure(Options{Level: lvl, JSON: json})
}
