package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/clinicore/identity-service/internal/auth"
	"github.com/clinicore/identity-service/internal/config"
	"github.com/clinicore/identity-service/internal/notify"
	"github.com/clinicore/identity-service/internal/otp"
	"github.com/clinicore/identity-service/internal/server"
	"github.com/clinicore/identity-service/internal/service"
	"github.com/clinicore/identity-service/internal/storage/postgres"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found; relying on existing environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("init database")
	}
	defer store.Close()

	notifier := notify.NewService(cfg.SMTP, logger)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	otpEngine := otp.NewEngine(store, notifier, logger, cfg.OTPTTL)

	svc := service.NewOnboardingService(
		store,
		auth.NewHasher(),
		tokens,
		otpEngine,
		notifier,
		logger,
		service.Config{
			VerificationTokenTTL:  cfg.VerificationTokenTTL,
			PasswordResetTokenTTL: cfg.PasswordResetTokenTTL,
			FrontendBaseURL:       cfg.FrontendBaseURL,
		},
	)

	srv := server.New(cfg, logger, svc, tokens)

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("identity service listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}
