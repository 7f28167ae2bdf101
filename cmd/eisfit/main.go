package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/scott-cotton/cli"
)

func main() {
	slog.SetDefault(newLogger(os.Stderr, false))
	cli.MainContext(context.Background(), Root())
}
