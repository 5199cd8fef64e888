package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coinage-io/coinage/internal/config"
	"github.com/coinage-io/coinage/internal/events"
	"github.com/coinage-io/coinage/internal/handler"
	"github.com/coinage-io/coinage/internal/logging"
	"github.com/coinage-io/coinage/internal/middleware"
	"github.com/coinage-io/coinage/internal/repository"
	"github.com/coinage-io/coinage/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("coinage-api", cfg.LogLevel, cfg.AppEnv)

	currencies, err := config.LoadCurrencies(cfg.CurrencyDir, cfg.DefaultCurrency)
	if err != nil {
		slog.Error("failed to load currencies", "dir", cfg.CurrencyDir, "error", err)
		os.Exit(1)
	}
	slog.Info("currencies loaded", "count", len(currencies.All()), "default", currencies.Default().ID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.DBPingAttempts+5)*time.Second)
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		PingAttempts:     cfg.DBPingAttempts,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	accountRepo := repository.NewAccountRepository(db)
	balanceRepo := repository.NewBalanceRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			n, err := idempotencyRepo.CleanExpired(context.Background())
			if err != nil {
				slog.Warn("idempotency cache cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("idempotency cache cleaned", "removed", n)
			}
		}
	}()

	bus := events.NewBus()
	if cfg.EnableTxLog {
		bus.Subscribe(events.TransactionLogger(logger))
	}

	accountSvc := service.NewAccountService(accountRepo)
	bankSvc := service.NewBankService(accountRepo)
	ledgerSvc := service.NewLedger(balanceRepo, bus)
	querySvc := service.NewQueryService(balanceRepo)

	jwtExpiry := time.Duration(cfg.JWTExpiryMins) * time.Minute
	authHandler := handler.NewAuthHandler(cfg.AdminTokenHash, cfg.JWTSecret, jwtExpiry)
	accountHandler := handler.NewAccountHandler(accountSvc, ledgerSvc, bankSvc, currencies)
	bankHandler := handler.NewBankHandler(bankSvc)
	topHandler := handler.NewTopHandler(querySvc, currencies)
	currencyHandler := handler.NewCurrencyHandler(currencies)
	healthHandler := handler.NewHealthHandler(db, currencies)

	authRequired := middleware.Auth(cfg.JWTSecret)
	idempotent := middleware.Idempotency(idempotencyRepo)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /ready", healthHandler.Readiness)
	mux.HandleFunc("POST /v1/auth/token", authHandler.Token)
	mux.HandleFunc("GET /v1/currencies", currencyHandler.List)

	protected := func(h http.HandlerFunc) http.Handler { return authRequired(h) }
	mux.Handle("POST /v1/accounts", protected(accountHandler.Create))
	mux.Handle("GET /v1/accounts/{id}/balances", protected(accountHandler.Balances))
	mux.Handle("POST /v1/accounts/{id}/deposit", protected(accountHandler.Deposit))
	mux.Handle("POST /v1/accounts/{id}/withdraw", protected(accountHandler.Withdraw))
	mux.Handle("POST /v1/accounts/{id}/set", protected(accountHandler.Set))
	mux.Handle("POST /v1/accounts/{id}/reset", protected(accountHandler.Reset))
	mux.Handle("POST /v1/accounts/{id}/transfer", authRequired(idempotent(http.HandlerFunc(accountHandler.Transfer))))
	mux.Handle("DELETE /v1/accounts/{id}", protected(accountHandler.Delete))

	mux.Handle("POST /v1/banks", protected(bankHandler.Create))
	mux.Handle("GET /v1/banks", protected(bankHandler.List))
	mux.Handle("GET /v1/banks/{name}", protected(bankHandler.Get))
	mux.Handle("DELETE /v1/banks/{name}", protected(bankHandler.Delete))
	mux.Handle("POST /v1/banks/{name}/rename", protected(bankHandler.Rename))
	mux.Handle("POST /v1/banks/{name}/invite", protected(bankHandler.Invite))
	mux.Handle("POST /v1/banks/{name}/uninvite", protected(bankHandler.Uninvite))
	mux.Handle("POST /v1/banks/{name}/join", protected(bankHandler.Join))
	mux.Handle("POST /v1/banks/{name}/promote", protected(bankHandler.PromoteOwner))
	mux.Handle("POST /v1/banks/{name}/kick", protected(bankHandler.Kick))
	mux.Handle("PATCH /v1/banks/{name}/flags", protected(bankHandler.UpdateFlags))
	mux.Handle("GET /v1/banks/{name}/members", protected(bankHandler.Members))

	mux.Handle("GET /v1/top", protected(topHandler.TopBalances))

	root := middleware.RequestID(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
