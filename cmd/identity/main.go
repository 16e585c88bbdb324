package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"identity/internal/config"
	"identity/internal/notify"
	"identity/internal/observability/logging"
	"identity/internal/observability/metrics"
	impl "identity/internal/service/impl"
	"identity/internal/store"
	httpx "identity/internal/transport/http"
	"identity/pkg/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "identity",
		Environment: env,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	slog.SetDefault(logger)
	logger.Info("starting service")

	cfg := config.Load()
	metrics.MustRegister("identity")

	gdb, err := db.OpenGorm(db.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}
	if err := store.AutoMigrate(gdb); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}
	st := store.New(gdb)

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTPAddr != "" {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
	}
	worker := notify.NewWorker(mailer, notify.WorkerConfig{})
	worker.Start(context.Background())
	defer worker.Stop()

	pw := impl.NewPasswordServiceBcrypt()
	ts := impl.NewTokenServiceHS256(impl.TokenConfig{
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		AccessTTL:  cfg.AccessTTL,
		SigningKey: []byte(cfg.SigningKey),
	})
	checker := impl.NewUniquenessChecker(st)
	reset := impl.NewResetTokenManager(st, cfg.ResetTokenTTL)
	auth := impl.NewAuthServiceImpl(st, pw, ts, checker, reset, worker, cfg.ResetLinkBase)

	handler := httpx.NewRouter(auth, ts, httpx.RouterConfig{
		CORSOrigins:   cfg.CORSOrigins,
		AuthRateLimit: cfg.AuthRateLimit,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("identity service listening", "addr", srv.Addr, "issuer", cfg.Issuer)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
