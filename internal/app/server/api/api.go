// Package api assembles the kiosk HTTP surface.
//
//	GET  /api/health                     # liveness and ledger summary
//	POST /api/users                      # members
//	POST /api/borrowings                 # lend, return and history
//	POST /api/recognition/start          # face recognition flow
//	POST /api/scan/start                 # RFID scan flow (polled by the reader)
//	POST /api/webhook/books              # catalog events (X-API-Key)
//	POST /api/sync/drain                 # outbox control
//	GET  /camera/stream                  # MJPEG relay
//	GET  /ws/events                      # kiosk screen events
package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	borrowingAPI "libkiosk/internal/app/server/api/http/borrowing"
	healthAPI "libkiosk/internal/app/server/api/http/health"
	kioskAPI "libkiosk/internal/app/server/api/http/kiosk"
	"libkiosk/internal/app/server/api/http/middleware"
	"libkiosk/internal/app/server/api/http/middleware/apikey"
	"libkiosk/internal/app/server/api/http/middleware/logger"
	"libkiosk/internal/app/server/api/http/middleware/requestid"
	syncAPI "libkiosk/internal/app/server/api/http/sync"
	userAPI "libkiosk/internal/app/server/api/http/user"
	webhookAPI "libkiosk/internal/app/server/api/http/webhook"
	"libkiosk/internal/config"
	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/kiosk"
	syncdomain "libkiosk/internal/domain/sync"
	"libkiosk/internal/domain/user"
)

// Deps is everything the handlers are built from. Camera may be nil when no device is configured.
type Deps struct {
	Config     *config.Config
	DB         healthAPI.Pinger
	Outbox     healthAPI.Outbox
	Faces      healthAPI.Faces
	Camera     healthAPI.Camera
	Frames     kioskAPI.Frames
	Stream     http.HandlerFunc
	Events     http.HandlerFunc
	Users      user.Servicer
	Books      book.Servicer
	Borrowings borrowing.Servicer
	Kiosk      *kiosk.Service
	Sync       syncdomain.Servicer
}

type Handlers struct {
	Health    *healthAPI.Handler
	User      *userAPI.Handler
	Borrowing *borrowingAPI.Handler
	Kiosk     *kioskAPI.Handler
	Webhook   *webhookAPI.Handler
	Sync      *syncAPI.Handler
}

// New creates the router with every operation registered through huma.
func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	cfg := huma.DefaultConfig("Kiosk API", "1.0.0")
	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"apiKey": {Type: "apiKey", In: "header", Name: apikey.Header},
	}

	API := humachi.New(mux, cfg)

	h := handlers(deps, log)
	h.Health.SetupRoutes(API)
	h.User.SetupRoutes(API)
	h.Borrowing.SetupRoutes(API)
	h.Kiosk.SetupRoutes(API)
	h.Webhook.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	if deps.Stream != nil {
		mux.Get("/camera/stream", deps.Stream)
	}
	if deps.Events != nil {
		mux.Get("/ws/events", deps.Events)
	}

	return mux
}

func handlers(deps Deps, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	keyMW := apikey.New(deps.Config.Webhook, deps.Config.IsProd(), log)
	middlewares := middleware.NewContainer()

	common := func() huma.Middlewares {
		middlewares.Add(requestid.Middleware())
		middlewares.Add(loggerMW.Middleware())
		return middlewares.GetAllAndClear()
	}

	healthHandler := healthAPI.NewHandler(deps.DB, deps.Camera, deps.Outbox, deps.Faces, log, common())
	userHandler := userAPI.NewHandler(deps.Users, log, common())
	borrowingHandler := borrowingAPI.NewHandler(deps.Kiosk, deps.Borrowings, log, common())
	kioskHandler := kioskAPI.NewHandler(deps.Kiosk, deps.Frames, deps.Users, log, common())
	syncHandler := syncAPI.NewHandler(deps.Sync, log, common())

	middlewares.Add(requestid.Middleware())
	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(keyMW.Middleware())
	webhookHandler := webhookAPI.NewHandler(deps.Books, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:    healthHandler,
		User:      userHandler,
		Borrowing: borrowingHandler,
		Kiosk:     kioskHandler,
		Webhook:   webhookHandler,
		Sync:      syncHandler,
	}
}
