package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"telegram-sender-admin/internal/application"
	"telegram-sender-admin/internal/config"
	"telegram-sender-admin/internal/domain/ports/adapter"
	"telegram-sender-admin/internal/domain/ports/repository"
	"telegram-sender-admin/internal/infra/adapters/site"
	tele "telegram-sender-admin/internal/infra/adapters/telegram"
	pg "telegram-sender-admin/internal/infra/db/postgres"
	"telegram-sender-admin/internal/infra/i18n"
	"telegram-sender-admin/internal/infra/logging"
	"telegram-sender-admin/internal/infra/metrics"
	red "telegram-sender-admin/internal/infra/redis"
	"telegram-sender-admin/internal/infra/sched"
	"telegram-sender-admin/internal/infra/security"
	"telegram-sender-admin/internal/infra/web"
	"telegram-sender-admin/internal/infra/worker"
	"telegram-sender-admin/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

const (
	trackerQueueSize = 256
	shutdownTimeout  = 10 * time.Second

	devEncryptionKey = "0123456789abcdef0123456789abcdef"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "log to console and print notifications instead of sending them")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("DEV MODE enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Redis (optional) ----
	var (
		cache       repository.AccountCache
		locker      repository.Locker
		rateLimiter tele.RateLimiter
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()

		encKey := cfg.Security.EncryptionKey
		if encKey == "" && cfg.Runtime.Dev {
			logger.Warn().Msg("security.encryption_key not set; falling back to dev key (INSECURE)")
			encKey = devEncryptionKey
		}
		sealer, err := security.NewSnapshotCipher(encKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("security.encryption_key is required to cache account snapshots")
		}
		cache = red.NewAccountCache(redisClient, sealer, cfg.Redis.TTL)
		locker = red.NewLocker(redisClient)
		rateLimiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Info().Msg("redis.url not set; snapshot cache, edit lock and rate limiting disabled")
	}

	// ---- Postgres (optional) ----
	var audit repository.EditAuditRepository
	if cfg.Database.URL != "" {
		pool, err := pg.Connect(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		audit = pg.NewEditAuditRepo(pool)
	} else {
		logger.Info().Msg("database.url not set; edit audit trail disabled")
	}

	translator, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}

	siteClient, err := site.NewClient(cfg.Site, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("sender site client")
	}

	// ---- Telegram ----
	var (
		sender  adapter.TelegramBotAdapter
		realBot *tele.RealTelegramBotAdapter
	)
	if cfg.Runtime.Dev {
		sender = tele.NewNoopBotAdapter(logger)
	} else {
		realBot, err = tele.NewRealTelegramBotAdapter(&cfg.Bot, nil, rateLimiter, translator, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		sender = realBot
	}

	// ---- Error notifications ----
	n := cfg.ErrorNotifications
	tracker := usecase.NewErrorTracker(usecase.ErrorTrackerSettings{
		Enabled:            n.Enabled,
		ResendInterval:     n.Resend(),
		MaxFastRetries:     n.MaxFastRetries,
		SlowResendInterval: n.SlowResend(),
		AutoResolveTimeout: n.AutoResolve(),
		ChatID:             n.GroupID,
	}, sender, translator, logger)

	trackerQueue := worker.NewPool(1, trackerQueueSize, logger)
	trackerQueue.Start(ctx)
	defer trackerQueue.Stop()
	guard := usecase.NewErrorGuard(tracker, trackerQueue, logger)

	sweeper := sched.NewErrorSweepWorker(n.Poll(), n.Backoff(), tracker, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// ---- Use cases ----
	accountUC := usecase.NewAccountUseCase(siteClient, cache, audit, locker, guard, translator, usecase.AccountEditOptions{
		ConcurrentLimit: cfg.Edit.ConcurrentLimit,
		Attempts:        cfg.Edit.Attempts,
		LockTTL:         cfg.Edit.LockTTL,
	}, logger)
	facade := application.NewBotFacade(accountUC, tracker, translator)

	g, gctx := errgroup.WithContext(ctx)

	if realBot != nil {
		realBot.AttachFacade(facade)
		if strings.ToLower(cfg.Bot.Mode) != "polling" && cfg.Bot.Mode != "" {
			logger.Warn().Str("mode", cfg.Bot.Mode).Msg("bot.mode not implemented; falling back to polling")
		}
		g.Go(func() error { return realBot.StartPolling(gctx) })
	}

	// ---- Admin HTTP ----
	if cfg.Admin.Port > 0 {
		var auth *web.AuthManager
		if cfg.Admin.JWTSecret != "" {
			auth = web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, cfg.Admin.JWTTTL)
		}
		srv := web.NewServer(tracker, auth, cfg.Admin.APIKey, cfg.Admin.Port, logger)
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shCtx)
		})
	}

	logger.Info().Str("version", version).Msg("sender admin started")
	<-gctx.Done()
	logger.Info().Msg("shutdown requested")
	if realBot != nil {
		realBot.StopPolling()
	}
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("service stopped with error")
	}
}
