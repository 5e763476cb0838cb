package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Skotchmaster/evocart/internal/cli"
	"github.com/Skotchmaster/evocart/internal/config"
	pkgdb "github.com/Skotchmaster/evocart/pkg/db"
	"github.com/Skotchmaster/evocart/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(open).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func open(ctx context.Context) (*cli.Env, func(), error) {
	cfg := config.Load()
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	env := &cli.Env{
		DB:     db,
		Log:    logging.New(cfg.LogLevel).With("service", cfg.ServiceName+"ctl"),
		Config: cfg,
	}
	return env, func() { _ = pkgdb.Close(db) }, nil
}
