package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/edp1096/toy-eis/internal/ctxlog"
)

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// commandContext carries the command's logger.
func commandContext(verbose bool) context.Context {
	return ctxlog.WithLogger(context.Background(), newLogger(os.Stderr, verbose))
}

// useColor reports whether output to w should be colored: always when
// forced, otherwise only for terminals.
func useColor(w io.Writer, force bool) bool {
	if force {
		return true
	}
	if color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
