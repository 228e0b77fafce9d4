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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/edconde/clinica3s/internal/config"
	appointmenthandler "github.com/edconde/clinica3s/internal/handler/appointment"
	authhandler "github.com/edconde/clinica3s/internal/handler/auth"
	cataloghandler "github.com/edconde/clinica3s/internal/handler/catalog"
	dentisthandler "github.com/edconde/clinica3s/internal/handler/dentist"
	"github.com/edconde/clinica3s/internal/handler/health"
	patienthandler "github.com/edconde/clinica3s/internal/handler/patient"
	prometheushandler "github.com/edconde/clinica3s/internal/handler/prometheus"
	reporthandler "github.com/edconde/clinica3s/internal/handler/report"
	userhandler "github.com/edconde/clinica3s/internal/handler/user"
	"github.com/edconde/clinica3s/internal/middleware"
	"github.com/edconde/clinica3s/internal/repository/postgres"
	"github.com/edconde/clinica3s/internal/router"
	"github.com/edconde/clinica3s/internal/service/appointment"
	authservice "github.com/edconde/clinica3s/internal/service/auth"
	"github.com/edconde/clinica3s/internal/service/catalog"
	"github.com/edconde/clinica3s/internal/service/dentist"
	"github.com/edconde/clinica3s/internal/service/event"
	"github.com/edconde/clinica3s/internal/service/patient"
	"github.com/edconde/clinica3s/internal/service/report"
	"github.com/edconde/clinica3s/internal/service/user"
	"github.com/edconde/clinica3s/pkg/auth"
	"github.com/edconde/clinica3s/pkg/logger"
	"github.com/edconde/clinica3s/pkg/metrics"
	"github.com/edconde/clinica3s/pkg/security"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinica3s-api",
		Short:         "Dental clinic management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default: ./config.yaml)")
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			db, err := postgres.NewDB(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := postgres.Migrate(ctx, db)
			if err != nil {
				return err
			}
			log.Info().Int("count", len(applied)).Strs("migrations", applied).Msg("migrations complete")
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	load := config.LoadConfig
	if configPath != "" {
		load = func() (*config.Config, error) { return config.LoadFile(configPath) }
	}

	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log.Logger = logger.New(logger.Config{Level: cfg.Log.Level, Console: cfg.Log.Console}).ZL
	return cfg, nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewMetrics(registry, "clinica3s", "")

	// Repositories
	tx := postgres.NewTransactor(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	dentistRepo := postgres.NewDentistRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	serviceRepo := postgres.NewServiceRepository(db)
	specialtyRepo := postgres.NewSpecialtyRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// Services
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiry(),
	})
	hasher := security.NewBcryptHasher(0)

	clinicLoc, err := cfg.Report.Location()
	if err != nil {
		return err
	}
	reportSvc := report.NewService(appointmentRepo, patientRepo, report.Config{
		CacheTTL: cfg.Report.CacheTTL,
		Location: clinicLoc,
	}, appMetrics)
	appointmentSvc := appointment.NewService(appointment.Deps{
		Tx:           tx,
		Appointments: appointmentRepo,
		Patients:     patientRepo,
		Dentists:     dentistRepo,
		Services:     serviceRepo,
		Events:       event.NewService(outboxRepo),
		Stats:        reportSvc,
		Metrics:      appMetrics,
	})
	authSvc := authservice.NewService(userRepo, dentistRepo, jwtSvc, hasher)
	catalogSvc := catalog.NewService(serviceRepo, specialtyRepo, reportSvc)
	dentistSvc := dentist.NewService(tx, dentistRepo, userRepo, specialtyRepo, reportSvc)
	patientSvc := patient.NewService(patientRepo, reportSvc)
	userSvc := user.NewService(tx, userRepo, dentistRepo, specialtyRepo, hasher, reportSvc)

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}

	mode := "release"
	if cfg.Env == "development" {
		mode = "debug"
	}

	r, err := router.NewRouter(
		middleware.NewAuthMiddleware(jwtSvc),
		router.Handlers{
			Auth:    authhandler.NewHandler(authSvc),
			Health:  health.NewHandler(db),
			Metrics: prometheushandler.New(registry),
			Resources: []router.Handler{
				appointmenthandler.NewHandler(appointmentSvc),
				cataloghandler.NewHandler(catalogSvc),
				dentisthandler.NewHandler(dentistSvc),
				patienthandler.NewHandler(patientSvc),
				reporthandler.NewHandler(reportSvc),
				userhandler.NewHandler(userSvc),
			},
		},
		router.RouterConfig{
			Mode:             mode,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit: middleware.RateLimiterConfig{
				Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
				Burst: cfg.RateLimit.Burst,
			},
			CORSConfig:     corsConfig,
			RequestTimeout: cfg.Server.RequestTimeout,
		},
	)
	if err != nil {
		return err
	}
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited properly")
	return nil
}
