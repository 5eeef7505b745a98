// Package main is the entry point for the syncdo CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"syncdo/internal/backend/syncdoapi"
	"syncdo/internal/cli"
	"syncdo/internal/commands"
	"syncdo/internal/config"
	"syncdo/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := func(ctx context.Context, cfg *config.Config, tokens oauth2.TokenSource, logger log.FieldLogger) (service.Service, error) {
		return syncdoapi.New(cfg, tokens, logger), nil
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
