package main

import (
	"booking-service/internal/calendar"
	"booking-service/internal/config"
	availCreate "booking-service/internal/http-server/handlers/availability_templates/create"
	availDelete "booking-service/internal/http-server/handlers/availability_templates/delete"
	availGet "booking-service/internal/http-server/handlers/availability_templates/get"
	availUpdate "booking-service/internal/http-server/handlers/availability_templates/update"
	bookingCancel "booking-service/internal/http-server/handlers/bookings/cancel"
	bookingComplete "booking-service/internal/http-server/handlers/bookings/complete"
	bookingConfirm "booking-service/internal/http-server/handlers/bookings/confirm"
	bookingCreate "booking-service/internal/http-server/handlers/bookings/create"
	bookingDelete "booking-service/internal/http-server/handlers/bookings/delete"
	bookingGet "booking-service/internal/http-server/handlers/bookings/get"
	bookingLinks "booking-service/internal/http-server/handlers/bookings/links"
	bookingMagic "booking-service/internal/http-server/handlers/bookings/magic"
	bookingReschedule "booking-service/internal/http-server/handlers/bookings/reschedule"
	calApple "booking-service/internal/http-server/handlers/calendars/apple"
	calAuthorize "booking-service/internal/http-server/handlers/calendars/authorize"
	calAvailable "booking-service/internal/http-server/handlers/calendars/available"
	calCallback "booking-service/internal/http-server/handlers/calendars/callback"
	calDisconnect "booking-service/internal/http-server/handlers/calendars/disconnect"
	calGet "booking-service/internal/http-server/handlers/calendars/get"
	calSetDefault "booking-service/internal/http-server/handlers/calendars/setdefault"
	locationCreate "booking-service/internal/http-server/handlers/locations/create"
	locationDelete "booking-service/internal/http-server/handlers/locations/delete"
	locationGet "booking-service/internal/http-server/handlers/locations/get"
	locationUpdate "booking-service/internal/http-server/handlers/locations/update"
	providerGet "booking-service/internal/http-server/handlers/providers/get"
	scheduleCreate "booking-service/internal/http-server/handlers/schedules/create"
	scheduleDelete "booking-service/internal/http-server/handlers/schedules/delete"
	scheduleGet "booking-service/internal/http-server/handlers/schedules/get"
	scheduleUpdate "booking-service/internal/http-server/handlers/schedules/update"
	slotGet "booking-service/internal/http-server/handlers/slots/get"
	slotPreview "booking-service/internal/http-server/handlers/slots/preview"
	"booking-service/internal/lock"
	"booking-service/internal/magiclink"
	"booking-service/internal/notify"
	svc "booking-service/internal/service"
	"booking-service/internal/storage/kv"
	"booking-service/internal/storage/postgres"
	slogpretty "booking-service/pkg/handlers/slogPretty"
	"booking-service/pkg/middleware/antiforgery"
	"booking-service/pkg/middleware/mwLogger"
	"booking-service/pkg/sl"
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-By")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting API", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	locker, err := lock.NewRedisLock(cfg.RedisAddr)
	if err != nil {
		log.Error("Failed to init redis lock", sl.Err(err))
		os.Exit(1)
	}

	var counters kv.Store
	redisKV, err := kv.NewRedis(cfg.RedisAddr)
	if err != nil {
		log.Warn("Redis counter store unavailable, using in-memory store", sl.Err(err))
		counters = kv.NewMemory()
	} else {
		counters = redisKV
	}

	defaultTZ, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		log.Warn("Unknown default timezone, falling back to UTC",
			slog.String("timezone", cfg.DefaultTimezone), sl.Err(err))
		defaultTZ = time.UTC
	}

	magic := magiclink.New(cfg.MagicLink.Secret, cfg.MagicLink.TTL, counters)
	notifier := notify.NewLogNotifier(log)
	calendars := calendar.NewRegistry(cfg.Calendar)

	service := svc.NewService(
		log,
		storage,
		locker,
		calendars,
		notifier,
		magic,
		counters,
		defaultTZ,
		cfg.MagicLink.Secret,
		cfg.MagicLink.IssuesPerHour,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(CORS)
	router.Use(antiforgery.New(log, "/calendars/callback", "/bookings/magic"))

	// Availability Templates
	router.Post("/availability_templates", availCreate.New(log, service))
	router.Get("/availability_templates/{id}", availGet.New(log, service))
	router.Put("/availability_templates/{id}", availUpdate.New(log, service))
	router.Delete("/availability_templates/{id}", availDelete.New(log, service))

	// Locations
	router.Post("/locations", locationCreate.New(log, service))
	router.Get("/locations", locationGet.New(log, service))
	router.Get("/locations/{id}", locationGet.New(log, service))
	router.Put("/locations/{id}", locationUpdate.New(log, service))
	router.Delete("/locations/{id}", locationDelete.New(log, service))

	// Advanced Schedules
	router.Post("/schedules", scheduleCreate.New(log, service))
	router.Get("/schedules", scheduleGet.New(log, service))
	router.Get("/schedules/{id}", scheduleGet.New(log, service))
	router.Put("/schedules/{id}", scheduleUpdate.New(log, service))
	router.Delete("/schedules/{id}", scheduleDelete.New(log, service))

	// Providers and slots
	router.Get("/providers/{id}", providerGet.New(log, service))
	router.Get("/providers/{id}/slots/preview", slotPreview.New(log, service))
	router.Get("/providers/{id}/slots", slotGet.New(log, service))

	// Bookings
	router.Post("/bookings", bookingCreate.New(log, service))
	router.Get("/bookings/magic", bookingMagic.New(log, service))
	router.Get("/bookings/{id}", bookingGet.New(log, service))
	router.Post("/bookings/{id}/confirm", bookingConfirm.New(log, service))
	router.Put("/bookings/{id}/cancel", bookingCancel.New(log, service))
	router.Post("/bookings/reschedule", bookingReschedule.New(log, service))
	router.Post("/bookings/{id}/reschedule", bookingReschedule.New(log, service))
	router.Post("/bookings/{id}/complete", bookingComplete.New(log, service))
	router.Delete("/bookings/{id}", bookingDelete.New(log, service))
	router.Post("/bookings/links", bookingLinks.New(log, service))

	// Calendar connections
	router.Get("/calendars/authorize", calAuthorize.New(log, service))
	router.Get("/calendars/callback", calCallback.New(log, service))
	router.Post("/calendars/apple", calApple.New(log, service))
	router.Get("/calendars", calGet.New(log, service))
	router.Get("/calendars/{id}/available", calAvailable.New(log, service))
	router.Post("/calendars/{id}/default", calSetDefault.New(log, service))
	router.Delete("/calendars/{id}", calDisconnect.New(log, service))

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if storage != nil {
		if err := storage.Close(); err != nil {
			log.Error("Failed to close storage", sl.Err(err))
		} else {
			log.Info("Storage closed")
		}
	} else {
		log.Debug("Storage is nil, nothing to close")
	}

	if locker != nil {
		if err := locker.Close(); err != nil {
			log.Error("Failed to close locker", sl.Err(err))
		} else {
			log.Info("Locker closed")
		}
	}

	if redisKV != nil {
		if err := redisKV.Close(); err != nil {
			log.Error("Failed to close counter store", sl.Err(err))
		}
	}

	log.Info("Shutdown finished, server stopped")

}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
