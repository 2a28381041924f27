package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Serve       ServeCommand       `cmd:"serve" help:"Start the form fill server."`
	Fill        FillCommand        `cmd:"fill" help:"Fill a PDF form in a single pass."`
	Interactive InteractiveCommand `cmd:"interactive" help:"Fill a PDF form conversationally."`
	Context     ContextCommand     `cmd:"context" help:"Inspect a form filling context."`
	Version     VersionCommand     `cmd:"version" help:"Print the version of the form fill CLI."`
}

func main() {
	var cli CLI
	ctx := context.Background()
	kctx := kong.Parse(&cli, kong.UsageOnError(), kong.BindTo(ctx, (*context.Context)(nil)))
	if err := kctx.Run(); err != nil {
		log := getLogger("error")
		log.Error("error", slog.Any("error", err))
		os.Exit(1)
	}
}

func getLogger(level string) *slog.Logger {
	ll := slog.LevelInfo
	switch level {
	case "debug":
		ll = slog.LevelDebug
	case "info":
		ll = slog.LevelInfo
	case "warn":
		ll = slog.LevelWarn
	case "error":
		ll = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ll,
	}))
}
