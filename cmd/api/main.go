package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"smmart/internal/accounts"
	"smmart/internal/auth"
	"smmart/internal/config"
	"smmart/internal/db"
	httpserver "smmart/internal/http"
	"smmart/internal/logger"
	"smmart/internal/payment"
	"smmart/internal/seed"
	"smmart/internal/subscription"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	l := logger.Setup(cfg)
	if !cfg.EnvFileLoaded {
		log.Debug().Msg("no .env file, using process environment")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := db.AutoMigrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	subs := subscription.NewService(gdb, cfg.SubscriptionPeriod)
	mgr := accounts.NewManager(gdb, subs, cfg.DefaultPackage)

	if err := seed.FirstSetup(ctx, gdb, subs, mgr, seed.Options{
		DefaultPackage: cfg.DefaultPackage,
		AdminEmail:     cfg.AdminEmail,
		AdminPassword:  cfg.AdminPassword,
	}); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}

	var denylist auth.Denylist = auth.NopDenylist{}
	if cfg.RedisAddr != "" {
		client, err := auth.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer client.Close()
		denylist = auth.NewRedisDenylist(client)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, logout will not revoke tokens")
	}

	if cfg.StripeSecretKey == "" {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, payments will fail")
	}
	processor := payment.NewStripeProcessor(cfg.StripeSecretKey, cfg.StripeReturnURL)

	r := httpserver.NewRouter(httpserver.Deps{
		DB:            gdb,
		Log:           l,
		Tokens:        auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		Denylist:      denylist,
		Accounts:      mgr,
		Subscriptions: subs,
		Payments:      payment.NewService(gdb, processor, subs, cfg.Currency),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
