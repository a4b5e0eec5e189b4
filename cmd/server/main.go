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
	"github.com/nulzo/chat-registry/internal/gateway"
	"github.com/nulzo/chat-registry/internal/platform/logger"
	"github.com/nulzo/chat-registry/internal/platform/otel"
	"github.com/nulzo/chat-registry/internal/registry"
	"github.com/nulzo/chat-registry/internal/server"
	"github.com/nulzo/chat-registry/internal/settings"
	"github.com/nulzo/chat-registry/internal/store/driver"
	"go.uber.org/zap"

	// provider factories register themselves in init()
	_ "github.com/nulzo/chat-registry/internal/llm/anthropic"
	_ "github.com/nulzo/chat-registry/internal/llm/ollama"
	_ "github.com/nulzo/chat-registry/internal/llm/openai"
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

	logger.Initialize(logger.FromConfig(cfg.Log))
	defer logger.Sync()
	log := logger.Get()

	fmt.Println(cli.Banner("chat-registry"))

	shutdownTracer, err := otel.InitTracer(cfg.Tracing, log, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	hc, err := credentials.ParseHostContext(cfg.Settings.Context)
	if err != nil {
		return err
	}

	st, err := driver.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open settings store: %w", err)
	}
	defer func() { _ = st.Close() }()

	env := credentials.NewEnvSource()
	storeSrc := credentials.NewStoreSource(st, log)
	secrets := credentials.ForContext(hc, env, storeSrc)
	host := credentials.NewHostResolver(hc, env, storeSrc)

	build := func(ctx context.Context) (*registry.Registry, error) {
		return registry.Build(ctx, registry.Options{
			Secrets: secrets,
			Host:    host,
			Vendors: cfg,
			Logger:  log,
		})
	}

	manager, err := registry.NewManager(ctx, build, registry.ManagerOptions{
		DrainTimeout: cfg.Reload.DrainTimeout,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("failed to build model registry: %w", err)
	}
	log.Info(fmt.Sprintf("%s %s", cli.CheckMark(), cli.Style("Model registry ready", cli.Bold)),
		zap.String("context", string(hc)),
		zap.String("default_model", manager.Current().Default()),
		zap.Int("models", len(manager.Current().IDs())),
	)

	// in the env context the store never feeds the registry
	if hc == credentials.StoreContext {
		registry.NewWatcher(st, manager.Rebuild, log).Start(ctx)
	}

	svc := gateway.NewService(log, manager)
	settingsSvc := settings.NewService(st, host, secrets, log)

	srv := server.New(cfg, log, svc, settingsSvc, manager)
	return srv.Run(ctx)
}
