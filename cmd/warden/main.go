// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/warden/lib/abuse"
	"github.com/bureau-foundation/warden/lib/audit"
	"github.com/bureau-foundation/warden/lib/clock"
	"github.com/bureau-foundation/warden/lib/command"
	"github.com/bureau-foundation/warden/lib/config"
	"github.com/bureau-foundation/warden/lib/keepalive"
	"github.com/bureau-foundation/warden/lib/moderation"
	"github.com/bureau-foundation/warden/lib/notify"
	"github.com/bureau-foundation/warden/lib/punish"
	"github.com/bureau-foundation/warden/lib/reactor"
	"github.com/bureau-foundation/warden/lib/ticket"
	"github.com/bureau-foundation/warden/lib/version"
	"github.com/bureau-foundation/warden/platform"
	"github.com/bureau-foundation/warden/platform/discord"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	envFile     string
	logLevel    string
	showVersion bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("warden", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to warden.yaml (default: $WARDEN_CONFIG, then built-in defaults)")
	flagSet.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with DISCORD_TOKEN and PORT; missing is fine")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if flagSet.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}
	return opts, nil
}

// loadConfig prefers --config, then WARDEN_CONFIG, then the defaults.
func loadConfig(opts options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case opts.configPath != "":
		cfg, err = config.LoadFile(opts.configPath)
	case os.Getenv("WARDEN_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run() error {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Printf("warden %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, level)
	slog.SetDefault(logger)

	secrets, err := config.LoadSecrets(opts.envFile)
	if err != nil {
		return err
	}

	token, err := secrets.Token()
	if err != nil {
		return err
	}
	adapter, err := discord.New(token.String(), logger)
	token.Close()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tasks outlive the signal so that shutdown can drain them in order.
	taskCtx, cancelTasks := context.WithCancel(context.Background())
	defer cancelTasks()

	agent := build(adapter, cfg, clock.Real(), reactor.New(taskCtx, logger), logger)
	adapter.OnEvent(func(event platform.Event) {
		if !agent.service.Dispatch(event) {
			logger.Debug("event dropped during shutdown", "event", fmt.Sprintf("%T", event))
		}
	})

	var server *keepalive.Server
	if cfg.KeepAlive.Enabled {
		server = keepalive.NewServer(keepalive.Config{
			Address: cfg.KeepAliveAddress(secrets.Port),
			Handler: keepalive.NewHandler(clock.Real()),
			Logger:  logger,
		})
	}

	return serve(ctx, adapter, agent, server, cancelTasks, string(cfg.Environment), logger)
}

// gateway is the connection serve opens and closes.
type gateway interface {
	Open() error
	Close() error
}

// serve runs the notification sink and the optional keep-alive server,
// opens the gateway, and blocks until ctx is cancelled or the keep-alive
// server fails. It then shuts down in order: gateway, queued tasks,
// notification drain, keep-alive. A nil server runs without keep-alive.
func serve(ctx context.Context, conn gateway, agent wiring, server *keepalive.Server, cancelTasks context.CancelFunc, environment string, logger *slog.Logger) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	// Notifications outlive ctx so that shutdown can drain them.
	sinkCtx, cancelSink := context.WithCancel(context.Background())
	defer cancelSink()
	sinkDone := make(chan struct{})
	go func() {
		agent.sink.Run(sinkCtx)
		close(sinkDone)
	}()

	// serverDone stays nil without keep-alive so the select below never
	// picks it.
	var serverDone chan error
	if server != nil {
		serverDone = make(chan error, 1)
		go func() {
			serverDone <- server.Serve(ctx)
		}()
	}

	if err := conn.Open(); err != nil {
		stop()
		agent.reactor.Close()
		cancelTasks()
		cancelSink()
		<-sinkDone
		if serverDone != nil {
			<-serverDone
		}
		return err
	}
	logger.Info("warden started",
		"version", version.Info(),
		"environment", environment,
	)

	select {
	case <-ctx.Done():
	case err := <-serverDone:
		serverDone = nil
		if err != nil {
			logger.Error("keep-alive server failed", "error", err)
		} else {
			logger.Error("keep-alive server stopped unexpectedly")
		}
		stop()
	}
	logger.Info("shutting down")

	if err := conn.Close(); err != nil {
		logger.Warn("closing gateway session failed", "error", err)
	}
	agent.reactor.Close()
	cancelTasks()
	cancelSink()
	<-sinkDone
	if serverDone != nil {
		if err := <-serverDone; err != nil {
			logger.Error("keep-alive server failed", "error", err)
		}
	}

	logger.Info("warden stopped",
		"delivered", agent.sink.Delivered(),
		"dropped", agent.sink.Dropped(),
		"task_panics", agent.reactor.Panics(),
	)
	return nil
}

type wiring struct {
	sink    *notify.Sink
	reactor *reactor.Reactor
	service *moderation.Service
}

// build wires the components of the agent against target.
func build(target platform.Platform, cfg *config.Config, clk clock.Clock, react *reactor.Reactor, logger *slog.Logger) wiring {
	sink := notify.NewSink(target, notify.Config{
		ChannelID:    cfg.Guild.LogChannelID,
		QueueSize:    cfg.Notify.QueueSize,
		Rate:         rate.Limit(cfg.Notify.Rate),
		Burst:        cfg.Notify.Burst,
		DrainTimeout: cfg.Notify.DrainTimeout,
		Clock:        clk,
		Logger:       logger,
	})

	components := moderation.Components{
		Resolver: audit.NewResolver(target, audit.Config{
			Freshness: cfg.Abuse.AuditFreshness,
			Clock:     clk,
			Logger:    logger,
		}),
		Counter: abuse.NewCounter(abuse.Config{
			Window:    cfg.Abuse.Window,
			Threshold: cfg.Abuse.Threshold,
			Clock:     clk,
		}),
		Executor: punish.NewExecutor(target, sink, logger),
		Tickets: ticket.NewRegistry(target, ticket.Config{
			Containers:    cfg.TicketContainers(),
			SupportRoleID: cfg.Tickets.SupportRoleID,
			CloseDelay:    cfg.Tickets.CloseDelay,
			MenuFooter:    cfg.Tickets.MenuFooter,
			Clock:         clk,
			Notifier:      sink,
			Logger:        logger,
		}),
		Commands: command.NewDispatcher(target, command.Config{
			Prefix:            cfg.Commands.Prefix,
			AuthorizedRoleIDs: cfg.Commands.AuthorizedRoleIDs,
			AdminRoleID:       cfg.Commands.AdminRoleID,
			AdminGrantRoleID:  cfg.Commands.AdminGrantRoleID,
			ReplyLifetime:     cfg.Commands.ReplyLifetime,
			Clock:             clk,
			Notifier:          sink,
			Logger:            logger,
		}),
		Notifier: sink,
		Reactor:  react,
	}

	return wiring{
		sink:    sink,
		reactor: react,
		service: moderation.New(target, components, moderation.Config{
			AutoRoleID:          cfg.Guild.AutoRoleID,
			AuthorizedBotIDs:    cfg.Guild.AuthorizedBotIDs,
			TicketMenuChannelID: cfg.Tickets.MenuChannelID,
			Logger:              logger,
		}),
	}
}
