package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/dicebot/internal/bot"
	"github.com/playperu/dicebot/internal/config"
	"github.com/playperu/dicebot/internal/database"
	"github.com/playperu/dicebot/internal/game"
	"github.com/playperu/dicebot/internal/handler/health"
	"github.com/playperu/dicebot/internal/server"
	"github.com/playperu/dicebot/internal/store"
	"github.com/playperu/dicebot/internal/sysinfo"
	"github.com/playperu/dicebot/internal/telegram"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(stdout, cfg)
	logger.Info("starting dicebot",
		"transport", cfg.Transport,
		"workers", cfg.Workers,
		"single_use_challenges", cfg.ChallengeSingleUse,
		"run_as_root", cfg.RunAsRoot,
		"run_uid", cfg.RunUID,
	)

	// --- Redis ---
	rdb, err := database.Open(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer rdb.Close()
	st := store.New(rdb)
	logger.Info("connected to redis", "addr", rdb.Options().Addr)

	// --- Telegram ---
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("connecting to telegram: %w", err)
	}
	logger.Info("authorized on telegram", "bot", api.Self.UserName)

	broker := server.NewBroker()
	b := bot.New(logger, st, bot.Options{
		Resolver:     game.NewResolver(nil),
		Sampler:      sysinfo.NewSampler(),
		Publisher:    broker,
		SingleUse:    cfg.ChallengeSingleUse,
		ChallengeTTL: cfg.ChallengeTTL,
	})
	adapter := telegram.NewAdapter(api, b, logger, cfg.Workers)

	// --- HTTP Server ---
	telegramCheck := func(context.Context) error {
		_, err := api.GetMe()
		return err
	}
	deps := server.Deps{
		Store:  st,
		Broker: broker,
		Checks: map[string]health.Checker{
			"redis":    health.CheckerFunc(st.Ping),
			"telegram": health.CheckerFunc(telegramCheck),
		},
	}
	if cfg.Transport == config.TransportWebhook {
		deps.Webhook = adapter
		deps.WebhookSecret = cfg.WebhookSecret
	}
	srv := server.New(cfg.HTTPAddr, logger, deps)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		if cfg.Transport == config.TransportWebhook {
			url := strings.TrimSuffix(cfg.WebhookURL, "/") + "/telegram/" + cfg.WebhookSecret
			if err := adapter.RegisterWebhook(url); err != nil {
				return err
			}
			logger.Info("webhook registered", "base_url", cfg.WebhookURL)
			return nil
		}
		return adapter.Poll(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		err := srv.Shutdown(context.Background())
		if cfg.Transport == config.TransportWebhook {
			// No webhook can submit once the server is down; Poll drains
			// its own updates.
			adapter.Wait()
		}
		return err
	})

	return g.Wait()
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogFormat == "text" {
		return slog.New(tint.NewHandler(w, &tint.Options{Level: cfg.LogLevel}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}
