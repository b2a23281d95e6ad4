package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexanderramin/hourglass/internal/auth"
	"github.com/alexanderramin/hourglass/internal/cli"
	"github.com/alexanderramin/hourglass/internal/config"
	"github.com/alexanderramin/hourglass/internal/db"
	"github.com/alexanderramin/hourglass/internal/httpapi"
	"github.com/alexanderramin/hourglass/internal/i18n"
	"github.com/alexanderramin/hourglass/internal/notify"
	"github.com/alexanderramin/hourglass/internal/repository"
	"github.com/alexanderramin/hourglass/internal/service"
	"github.com/alexanderramin/hourglass/internal/telemetry"
	"github.com/alexanderramin/hourglass/internal/workflow"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newLogger(w io.Writer, tty bool) *slog.Logger {
	if tty {
		return slog.New(slog.NewTextHandler(w, nil))
	}
	return slog.New(slog.NewJSONHandler(w, nil))
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(os.Stderr, isTerminal(os.Stderr.Fd()))
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		return fmt.Errorf("loading translations: %w", err)
	}
	labels := bundle.Localizer(cfg.Locale)

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	uow := db.NewSQLiteUnitOfWork(database)
	users := repository.NewSQLiteUserRepo(database)

	notifier := notify.New(
		notify.WebhookConfig{
			URL:      cfg.Slack.URL,
			Username: cfg.Slack.Username,
			Channel:  cfg.Slack.Channel,
			IconURL:  cfg.Slack.IconURL,
			Timeout:  cfg.Slack.Timeout,
		},
		notify.Linker{HostName: cfg.HostName, Protocol: cfg.Protocol},
		repository.NewSQLiteIssueRepo(database),
		labels,
		workflow.NewPolicy(uow, labels),
		notify.WithLogger(logger),
	)
	// Deliveries started by the last command finish before the DB closes.
	defer notifier.Wait()

	trackers := service.NewTrackerService(database, uow,
		service.WithRounding(cfg.DomainRounding()),
		service.WithNotifier(notifier),
		service.WithObserver(service.NewLogUseCaseObserver(logger)),
	)

	api := httpapi.NewServer(trackers, auth.NewResolver(cfg.JWTSecret, users), logger)

	app := &cli.App{
		Trackers:    trackers,
		Users:       users,
		Labels:      labels,
		Handler:     api.Router(),
		ListenAddr:  cfg.ListenAddr,
		OnShutdown:  notifier.Wait,
		TokenSecret: cfg.JWTSecret,
		IsInteractive: func() bool {
			return isTerminal(os.Stdin.Fd())
		},
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
