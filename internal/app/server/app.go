// Package server wires the kiosk ledger, the sync worker and the HTTP surface into one process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"libkiosk/internal/app/server/api"
	"libkiosk/internal/config"
	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/identity"
	"libkiosk/internal/domain/kiosk"
	syncdomain "libkiosk/internal/domain/sync"
	"libkiosk/internal/domain/user"
	"libkiosk/internal/infrastructure/device"
	"libkiosk/internal/infrastructure/facerec"
	"libkiosk/internal/infrastructure/migration"
	"libkiosk/internal/infrastructure/notify"
	"libkiosk/internal/infrastructure/remote"
	"libkiosk/internal/infrastructure/storage/sqldb"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	log    *slog.Logger

	storage    *sqldb.Storage
	books      *book.Service
	users      *user.Service
	borrowings *borrowing.Service
	engine     *syncdomain.Engine
	worker     *syncdomain.Worker
	gateway    *device.Gateway
	hub        *notify.Hub
	matcher    *identity.Matcher
	kiosk      *kiosk.Service

	wg gosync.WaitGroup
}

// New opens the ledger, applies pending migrations and builds every service. Nothing runs until Run.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	storage, err := sqldb.Open(ctx, cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := migration.NewMigration(cfg.DB, migration.DefaultEngine).Up(); err != nil {
		storage.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	userRepo := sqldb.NewUserRepository(storage, log)
	bookRepo := sqldb.NewBookRepository(storage, log)
	borrowingRepo := sqldb.NewBorrowingRepository(storage, log)
	outboxRepo := sqldb.NewOutboxRepository(storage, log)

	hub := notify.NewHub(log)
	books := book.NewService(bookRepo, log)

	// a typed nil would hide the missing catalog from the engine
	var catalog syncdomain.Remote
	if cfg.Remote.BaseURL != "" {
		catalog = remote.New(cfg.Remote, log)
	} else {
		log.Warn("remote catalog not configured, outbox will only accumulate")
	}

	engine := syncdomain.NewEngine(outboxRepo, userRepo, borrowingRepo, books, catalog, syncdomain.Config{
		MaxRetries:  cfg.Remote.MaxRetries,
		BaseBackoff: syncdomain.DefaultConfig().BaseBackoff,
		BulkDelay:   cfg.Remote.BulkDelay,
		BatchSize:   cfg.Sync.BatchSize,
	}, log, syncdomain.WithPublisher(hub))

	users := user.NewService(userRepo, user.NewProfileValidator(), engine, log)
	borrowings := borrowing.NewService(borrowingRepo, users, books, log,
		borrowing.WithLoanPeriod(cfg.Kiosk.LoanPeriod),
		borrowing.WithSyncTrigger(engine),
	)

	if cfg.Identity.DetectorURL == "" {
		log.Warn("face detector not configured, recognition will report errors")
	}
	cache := identity.NewCache(cfg.Identity.EncodingsDir, cfg.Identity.FacesDir, log)
	if _, err := cache.Reload(); err != nil {
		storage.Close()
		return nil, fmt.Errorf("load face encodings: %w", err)
	}
	matcher := identity.NewMatcher(
		facerec.New(cfg.Identity.DetectorURL, cfg.Kiosk.RecognitionTimeout, log),
		cache, cfg.Identity.Tolerance, log,
	)

	gateway := device.NewGateway(cfg.Device, log)
	kioskService := kiosk.NewService(gateway, matcher, users, borrowings, kiosk.Config{
		RecognitionTimeout: cfg.Kiosk.RecognitionTimeout,
		ScanTimeout:        cfg.Kiosk.ScanTimeout,
	}, log, kiosk.WithPublisher(hub))

	return &App{
		config:     cfg,
		log:        log,
		storage:    storage,
		books:      books,
		users:      users,
		borrowings: borrowings,
		engine:     engine,
		worker:     syncdomain.NewWorker(engine, cfg.Sync.Interval, log),
		gateway:    gateway,
		hub:        hub,
		matcher:    matcher,
		kiosk:      kioskService,
	}, nil
}

func (a *App) Books() *book.Service {
	return a.books
}

func (a *App) Users() *user.Service {
	return a.users
}

func (a *App) Engine() *syncdomain.Engine {
	return a.engine
}

// Handler builds the HTTP router.
func (a *App) Handler() http.Handler {
	deps := api.Deps{
		Config:     a.config,
		DB:         a.storage,
		Outbox:     sqldb.NewOutboxRepository(a.storage, a.log),
		Faces:      a.matcher,
		Frames:     a.gateway,
		Stream:     a.gateway.ServeMJPEG,
		Events:     a.hub.ServeWS,
		Users:      a.users,
		Books:      a.books,
		Borrowings: a.borrowings,
		Kiosk:      a.kiosk,
		Sync:       a.engine,
	}
	if a.config.Device.IP != "" {
		deps.Camera = a.gateway
	}
	return api.New(deps, a.log)
}

// Run starts the background loops and serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.spawn(func() { a.hub.Run(ctx) })
	a.spawn(func() { a.gateway.Run(ctx) })
	if a.config.Sync.Enabled {
		a.spawn(func() { a.worker.Run(ctx) })
	} else {
		a.log.Info("background sync disabled")
	}

	srv := &http.Server{
		Addr:         a.config.HTTP.Address,
		Handler:      a.Handler(),
		ReadTimeout:  a.config.HTTP.ReadTimeout,
		WriteTimeout: a.config.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server started", "address", srv.Addr, "env", a.config.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("http shutdown", "error", err)
	}

	cancel()
	a.wg.Wait()
	a.kiosk.Wait()

	a.log.Info("kiosk stopped")
	return runErr
}

func (a *App) spawn(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *App) Close() error {
	return a.storage.Close()
}
