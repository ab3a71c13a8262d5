package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/casinobot/internal/api"
	"github.com/fastprodman/casinobot/internal/chat"
	"github.com/fastprodman/casinobot/internal/gateway/cryptopay"
	"github.com/fastprodman/casinobot/internal/identity"
	"github.com/fastprodman/casinobot/internal/infra/logging"
	"github.com/fastprodman/casinobot/internal/infra/pgutils"
	"github.com/fastprodman/casinobot/internal/infra/redisutil"
	"github.com/fastprodman/casinobot/internal/ledger/pgledger"
	"github.com/fastprodman/casinobot/internal/metrics"
	"github.com/fastprodman/casinobot/internal/notify"
	"github.com/fastprodman/casinobot/internal/services/settlement"
	"github.com/fastprodman/casinobot/pkg/envconf"
	"github.com/fastprodman/casinobot/pkg/shutdownqueue"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const notifyQueueSize = 64

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running casino: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	_ = godotenv.Load() // .env is optional

	cfg := new(casinoConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	err = cfg.Limits.Validate()
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel, "casino")

	drain := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		return shutdownqueue.Shutdown(shutdownCtx)
	}

	defer func() {
		serr := drain()
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add("postgres", func(context.Context) error { return db.Close() })

	sessions, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := metrics.New(reg)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("telegram login: %w", err)
	}

	slog.Info("telegram bot authorized", "username", botAPI.Self.UserName)

	// --- Settlement ---
	notifier := notify.NewAsync(
		chat.NewAdminNotifier(botAPI, cfg.Telegram.AdminIDs),
		notifyQueueSize,
		notify.WithDropHook(func(ev notify.Event) {
			m.NotificationsDropped.Inc()
			slog.Warn("admin notification dropped", "kind", ev.Kind, "user_id", ev.UserID)
		}),
	)
	shutdownqueue.Add("admin notifier", notifier.Close)

	gw := cryptopay.New(cfg.CryptoPay.Token,
		cryptopay.WithBaseURL(cfg.CryptoPay.BaseURL),
		cryptopay.WithTimeout(cfg.CryptoPay.Timeout),
	)

	engine := settlement.New(pgledger.New(db), gw, notifier, cfg.Limits,
		settlement.WithAsset(cfg.CryptoPay.Asset),
		settlement.WithMetrics(m),
	)

	// --- HTTP server ---
	handler := api.NewHandler(engine,
		identity.NewVerifier(cfg.Telegram.BotToken, identity.WithMaxAge(cfg.Telegram.InitDataMaxAge)),
		cryptopay.NewWebhookVerifier(cfg.CryptoPay.Token),
	)

	srv := api.NewServer(cfg.HTTP.Port, api.NewRouter(handler, api.RouterConfig{
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}))

	shutdownqueue.Add("http server", func(c context.Context) error {
		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// --- Chat bot ---
	bot := chat.NewBot(botAPI, engine, sessions, chat.Options{
		AdminIDs:  cfg.Telegram.AdminIDs,
		WebAppURL: cfg.Telegram.WebAppURL,
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botAPI.GetUpdatesChan(u)

	botDone := make(chan struct{})

	shutdownqueue.Add("chat bot", func(c context.Context) error {
		botAPI.StopReceivingUpdates()

		select {
		case <-botDone:
			return nil
		case <-c.Done():
			return fmt.Errorf("wait for chat handlers: %w", c.Err())
		}
	})

	// --- Run until a signal or the first failure ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("API started", "port", cfg.HTTP.Port)

		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	})

	g.Go(func() error {
		defer close(botDone)

		slog.Info("chat bot started")

		return bot.Run(gctx, updates)
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		return drain()
	})

	return g.Wait()
}

func openSessions(ctx context.Context, cfg *casinoConfig) (chat.SessionStore, error) {
	if cfg.Redis.URL == "" {
		slog.Warn("REDIS_URL not set, chat sessions are kept in memory")
		return chat.NewMemorySessions(cfg.Telegram.SessionTTL), nil
	}

	rdb, err := redisutil.Open(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("open redis: %w", err)
	}

	shutdownqueue.Add("redis", func(context.Context) error { return rdb.Close() })

	return chat.NewRedisSessions(rdb, cfg.Telegram.SessionTTL), nil
}
