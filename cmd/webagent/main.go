package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"webagent/internal/logging"
)

func main() {
	_ = godotenv.Load()
	args := logging.InitLogging(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	parser, err := newParser(ctx, &cli)
	if err != nil {
		slog.Error("init cli", "err", err)
		os.Exit(1)
	}
	kctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	if err := kctx.Run(&cli.Globals); err != nil {
		slog.Error("command failed", "cmd", kctx.Command(), "err", err)
		stop()
		os.Exit(1)
	}
}

func newParser(ctx context.Context, cli *CLI) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("webagent"),
		kong.Description("Web research agent backed by Bright Data tools."),
		kong.UsageOnError(),
		kongVars(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
}
