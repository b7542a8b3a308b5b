// Package server is the composition root: it builds the services and
// handlers on top of an open database, mounts the routes and runs the HTTP
// server with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/travelboard/internal/auth"
	"github.com/sakif/travelboard/internal/catalog"
	"github.com/sakif/travelboard/internal/config"
	"github.com/sakif/travelboard/internal/events"
	"github.com/sakif/travelboard/internal/handler"
	"github.com/sakif/travelboard/internal/middleware"
	"github.com/sakif/travelboard/internal/model"
	"github.com/sakif/travelboard/internal/repository/sqlstore"
	"github.com/sakif/travelboard/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router. The database and publisher are owned by the
// caller, which closes them after Run returns.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
}

// New wires every layer:
//
//	sqlstore.DB → repositories → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services.
func New(cfg config.Config, db *sqlstore.DB, publisher events.Publisher, logger *slog.Logger) (*Server, error) {
	sealer, err := auth.NewSessionSealer(cfg.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	destinations, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}

	users := db.Users()
	activity := service.NewActivityService(db.Activity(), publisher, logger)
	sessions := service.NewSessionService(db.Sessions(), users, sealer, service.SessionConfig{
		TTL:         cfg.SessionTTL,
		RememberTTL: cfg.RememberTTL,
	}, logger)
	authService := service.NewAuthService(users, auth.NewPasswordService(cfg.BcryptCost), sessions, activity, logger)

	trips := service.NewTripService(db.Trips(), activity, logger)
	wishlist := service.NewWishlistService(db.Wishlist(), activity, logger)
	hotels := service.NewHotelService(db.Hotels(), activity, logger)
	saved := service.NewSavedDestinationService(db.SavedDestinations(), activity, logger)
	bookings := service.NewBookingService(db.Bookings(), activity, logger)
	export := service.NewExportService(trips, wishlist, hotels, saved, bookings)

	var github *auth.GitHubProvider
	if cfg.GitHub.Enabled() {
		github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	} else {
		logger.Info("GitHub sign-in disabled: GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set")
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.routes(routeDeps{
		sessions: sessions,
		auth:     handler.NewAuthHandler(authService, github, auth.CookieOptions{Secure: cfg.CookieSecure}, logger),
		collections: []interface{ Mount(chi.Router) }{
			handler.NewCollectionHandler[model.Trip](trips, logger),
			handler.NewCollectionHandler[model.WishlistItem](wishlist, logger),
			handler.NewCollectionHandler[model.Hotel](hotels, logger),
			handler.NewCollectionHandler[model.SavedDestination](saved, logger),
			handler.NewCollectionHandler[model.Booking](bookings, logger),
		},
		activity: handler.NewActivityHandler(activity, logger),
		export:   handler.NewExportHandler(export, logger),
		catalog:  handler.NewCatalogHandler(destinations, logger),
		health:   handler.NewHealthHandler(db, logger),
	})
	return s, nil
}

type routeDeps struct {
	sessions    *service.SessionService
	auth        *handler.AuthHandler
	collections []interface{ Mount(chi.Router) }
	activity    *handler.ActivityHandler
	export      *handler.ExportHandler
	catalog     *handler.CatalogHandler
	health      *handler.HealthHandler
}

// routes configures middleware and routes.
//
//	GET    /health
//	POST   /api/auth/register | /login | /logout
//	GET    /api/auth/me
//	GET    /api/auth/github/login | /callback   (when configured)
//	GET    /api/destinations[/tags]
//	GET    /api/activity                         (session)
//	GET    /api/export                           (session)
//	GET    /api/{collection}                     (session)
//	POST   /api/{collection}                     (session)
//	DELETE /api/{collection}/{id}                (session)
//
// Middleware runs in the order it is added: request id first so every log
// line carries it, recoverer before the handlers it protects.
func (s *Server) routes(d routeDeps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.config.CORSOrigins))
	s.router.Use(middleware.MaxBodySize(s.config.MaxBodyBytes))

	s.router.Get("/health", d.health.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.auth.HandleRegister)
			r.Post("/login", d.auth.HandleLogin)
			r.Post("/logout", d.auth.HandleLogout)
			r.With(auth.OptionalSession(d.sessions, s.logger)).Get("/me", d.auth.HandleMe)
			if d.auth.GitHubEnabled() {
				r.Get("/github/login", d.auth.HandleGitHubLogin)
				r.Get("/github/callback", d.auth.HandleGitHubCallback)
			}
		})

		r.Get("/destinations", d.catalog.HandleList)
		r.Get("/destinations/tags", d.catalog.HandleTags)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(d.sessions, s.logger))
			r.Get("/activity", d.activity.HandleList)
			r.Get("/export", d.export.HandleExport)
			for _, c := range d.collections {
				c.Mount(r)
			}
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not_found","message":"no such route"}`))
	})
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then stops accepting connections and
// gives in-flight requests shutdownTimeout to finish.
//
// GRACEFUL SHUTDOWN:
// ListenAndServe runs in its own goroutine and reports on serverErrors.
// When ctx is cancelled (SIGINT/SIGTERM in `travelboard serve`), Shutdown
// closes the listener, waits for active requests and returns. Its context
// is fresh, since ctx is already done by then. ErrServerClosed is the
// normal result of Shutdown, not a failure.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("port", s.config.Port),
			slog.String("url", "http://localhost:"+s.config.Port),
			slog.String("db_driver", s.config.DBDriver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}
