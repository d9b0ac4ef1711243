package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"lendingapi/internal/book"
	"lendingapi/internal/httpx"
	"lendingapi/internal/latescan"
	"lendingapi/internal/loan"
	"lendingapi/internal/memstore"
	"lendingapi/internal/notify"
	"lendingapi/internal/platform/clock"
	"lendingapi/internal/platform/postgres"
)

func main() {
	loadEnvFiles()

	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var (
		bookRepo book.Repository
		loanRepo interface {
			loan.Repository
			book.OpenLoanChecker
		}
		sweepRuns latescan.RunRepository
		ping      func(context.Context) error
	)
	if cfg.useMemory() {
		store := memstore.New()
		bookRepo, loanRepo, sweepRuns, ping = store.Books(), store.Loans(), store.Sweeps(), store.Ping
		log.Println("using in-memory store")
	} else {
		pool, err := postgres.Open(ctx, cfg.DSN, 2*time.Second)
		if err != nil {
			log.Fatalf("cannot open database: %v", err)
		}
		defer pool.Close()
		log.Println("database connection OK")
		bookRepo = book.NewPostgresRepo(pool, cfg.DBTimeout)
		loanRepo = loan.NewPostgresRepo(pool, cfg.DBTimeout)
		sweepRuns = latescan.NewPostgresRepo(pool)
		ping = pool.Ping
	}

	bookService := book.NewService(bookRepo, loanRepo)
	loanService := loan.NewService(loanRepo, bookService, clock.Real(), cfg.GraceDays)

	dispatcher := notify.NewDispatcher(newTransport(cfg, logger), cfg.MailFrom, logger)
	scanner := latescan.New(loanService, dispatcher, sweepRuns, latescan.Config{
		At:          cfg.SweepAt,
		Subject:     cfg.LateSubject,
		Message:     cfg.LateMessage,
		NotifyEmpty: cfg.NotifyEmpty,
	}, clock.Real(), logger)

	router := newRouter(handlers{
		books: book.NewHTTPHandler(bookService),
		loans: loan.NewHTTPHandler(loanService),
		sweep: latescan.NewHTTPHandler(scanner),
		ping:  ping,
	})

	limiter := httpx.NewClientLimiter(cfg.RateRPS, cfg.RateBurst)
	go limiter.Run(ctx)
	handler := httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLog(logger),
		httpx.Recover(logger),
		httpx.SecurityHeaders(cfg.EnableHSTS),
		httpx.CORS(cfg.CORSOrigins),
		limiter.Middleware,
		httpx.LimitBody(cfg.MaxBodyBytes),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner.Start(ctx)
	}()

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown error: %v", err)
		}
	}()

	log.Printf("Starting server on %s", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}

	stop()
	wg.Wait()
	log.Println("server stopped")
}

func newTransport(cfg config, logger *slog.Logger) notify.Transport {
	if cfg.SMTP.Host == "" {
		log.Println("MAIL_SMTP_HOST not set, late-loan mail goes to the log")
		return notify.NewLogTransport(logger)
	}
	return notify.NewSMTPTransport(cfg.SMTP)
}
