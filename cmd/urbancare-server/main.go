// urbancare-server is the UrbanCare hospital backend: accounts and auth,
// appointment scheduling, versioned medical records, billing, reporting, the
// patient assistant, and realtime notifications.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/urbancare/urbancare/internal/config"
	"github.com/urbancare/urbancare/internal/domain/appointment"
	"github.com/urbancare/urbancare/internal/domain/audit"
	"github.com/urbancare/urbancare/internal/domain/chatbot"
	"github.com/urbancare/urbancare/internal/domain/identity"
	"github.com/urbancare/urbancare/internal/domain/medrecord"
	"github.com/urbancare/urbancare/internal/domain/payment"
	"github.com/urbancare/urbancare/internal/domain/report"
	"github.com/urbancare/urbancare/internal/platform/auth"
	"github.com/urbancare/urbancare/internal/platform/db"
	"github.com/urbancare/urbancare/internal/platform/middleware"
	"github.com/urbancare/urbancare/internal/platform/notification"
	"github.com/urbancare/urbancare/internal/platform/respond"
	"github.com/urbancare/urbancare/internal/platform/websocket"
)

func main() {
	root := &cobra.Command{
		Use:   "urbancare-server",
		Short: "UrbanCare hospital management backend",
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg)
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := db.NewMigrator(pool, cfg.MigrationsDir).Up(ctx)
			if err != nil {
				return err
			}
			logger.Info().Int("applied", applied).Msg("migrations complete")
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if applied, err := db.NewMigrator(pool, cfg.MigrationsDir).Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	} else if applied > 0 {
		logger.Info().Int("applied", applied).Msg("migrations applied")
	}

	// Platform services.
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, "urbancare", time.Duration(cfg.AccessTokenTTL)*time.Minute)

	var sender notification.Sender
	if cfg.SMTPHost != "" {
		sender = &notification.SMTPSender{Host: cfg.SMTPHost, Port: cfg.SMTPPort, From: cfg.SMTPFrom}
	} else {
		sender = &notification.LogSender{Logger: logger}
	}
	mailer := notification.NewService(sender, logger)

	hub := websocket.NewHub(logger)
	recorder := audit.NewRecorder(audit.NewRepoPG(pool), logger)

	// Domain services.
	identitySvc := identity.NewService(identity.NewRepoPG(pool), issuer,
		time.Duration(cfg.RefreshTokenTTL)*time.Hour, mailer, recorder, cfg.BaseURL, logger)
	appointmentSvc := appointment.NewService(appointment.NewRepoPG(pool), identitySvc,
		mailer, hub, recorder, logger)
	medrecordSvc := medrecord.NewService(medrecord.NewRepoPG(pool), recorder, logger)
	paymentSvc := payment.NewService(payment.NewRepoPG(pool), recorder, logger)
	reportSvc := report.NewService(report.NewSourcePG(pool), logger)
	chatbotSvc := chatbot.NewService(chatbot.NewCountersPG(pool), logger)

	if err := identitySvc.BootstrapAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = respond.ErrorHandler(logger, cfg.IsDev())

	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(1 << 20))
	e.Use(middleware.Timeout(30 * time.Second))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(clientMeta())

	e.GET("/health", func(c echo.Context) error {
		return respond.OK(c, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	identityH := identity.NewHandler(identitySvc)
	appointmentH := appointment.NewHandler(appointmentSvc)

	public := e.Group("/api")
	identityH.RegisterPublicRoutes(public)
	appointmentH.RegisterPublicRoutes(public)

	api := e.Group("/api", auth.Middleware(issuer))
	identityH.RegisterRoutes(api)
	appointmentH.RegisterRoutes(api)
	medrecord.NewHandler(medrecordSvc).RegisterRoutes(api)
	payment.NewHandler(paymentSvc).RegisterRoutes(api)
	report.NewHandler(reportSvc).RegisterRoutes(api)
	chatbot.NewHandler(chatbotSvc).RegisterRoutes(api)
	audit.NewHandler(recorder).RegisterRoutes(api)
	websocket.NewHandler(hub).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// clientMeta stamps request network metadata onto the context for the audit
// trail.
func clientMeta() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := audit.WithClientMeta(c.Request().Context(), audit.ClientMeta{
				IPAddress: c.RealIP(),
				UserAgent: c.Request().UserAgent(),
			})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
