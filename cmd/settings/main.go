package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nulzo/chat-registry/internal/cli"
	"github.com/nulzo/chat-registry/internal/config"
	"github.com/nulzo/chat-registry/internal/credentials"
	"github.com/nulzo/chat-registry/internal/platform/logger"
	"github.com/nulzo/chat-registry/internal/settings"
	"github.com/nulzo/chat-registry/internal/store/driver"
	"github.com/nulzo/chat-registry/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", cli.CrossMark(), err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// stdout belongs to the form
	logCfg := logger.FromConfig(cfg.Log)
	logCfg.Output = "stderr"
	logger.Initialize(logCfg)
	defer logger.Sync()
	logger.SetLevel("warn")
	log := logger.Get()

	hc, err := credentials.ParseHostContext(cfg.Settings.Context)
	if err != nil {
		return err
	}
	if hc == credentials.EnvContext {
		return fmt.Errorf("%w: set %s instead", settings.ErrReadOnly, credentials.HostEnv)
	}

	st, err := driver.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open settings store: %w", err)
	}
	defer func() { _ = st.Close() }()

	env := credentials.NewEnvSource()
	storeSrc := credentials.NewStoreSource(st, log)
	svc := settings.NewService(st,
		credentials.NewHostResolver(hc, env, storeSrc),
		credentials.ForContext(hc, env, storeSrc),
		log,
	)

	saved, err := tui.Run(ctx, tui.Config{Editor: svc, Changes: st.Watch(ctx)})
	if err != nil {
		return err
	}
	if saved {
		fmt.Printf("%s %s\n", cli.CheckMark(), svc.Host(ctx))
	}
	return nil
}
