package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// InitSlog installs the default logger. format is "json" or "text".
func InitSlog(level, format string) {
	slog.SetDefault(NewLogger(os.Stderr, level, format))
}

func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var programLevel slog.Level
	if err := (&programLevel).UnmarshalText([]byte(level)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v, using info\n", level, err)
		programLevel = slog.LevelInfo
	}

	leveler := &slog.LevelVar{}
	leveler.Set(programLevel)

	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     leveler,
	}

	var h slog.Handler
	switch format {
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		h = slog.NewJSONHandler(w, opts)
	}

	return slog.New(h)
}
