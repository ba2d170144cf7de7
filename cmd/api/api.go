package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Johnhpure/product-audit/internal/queue"
	"github.com/Johnhpure/product-audit/internal/ratelimiter"
	"github.com/Johnhpure/product-audit/internal/repo"
	"github.com/Johnhpure/product-audit/internal/service"
	"github.com/Johnhpure/product-audit/internal/store/mongo"
	"github.com/Johnhpure/product-audit/internal/worker"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

type application struct {
	config        config
	logger        *zap.SugaredLogger
	rateLimiter   ratelimiter.Limiter
	storage       *mongo.Storage
	broker        queue.Broker
	recordRepo    repo.AuditRecordRepository
	settingRepo   repo.SettingRepository
	recordService *service.AuditRecordService
	recordWorker  *worker.AuditRecordWorker
}

type config struct {
	addr        string
	env         string
	rateLimiter ratelimiter.Config
	mongo       mongoConfig
	rabbitMQ    rabbitMQConfig
}

type mongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type rabbitMQConfig struct {
	URL           string
	MaxRetries    int
	PrefetchCount int
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.rateLimiterMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)

		r.Route("/audit-records", func(r chi.Router) {
			r.Post("/", app.createAuditRecordHandler)
			r.Get("/", app.listAuditRecordsHandler)
			r.Get("/statistics", app.statisticsHandler)
			r.Patch("/{record_id}/manual-status", app.updateManualStatusHandler)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/{key}", app.getSettingHandler)
			r.Put("/{key}", app.putSettingHandler)
		})
	})

	return r
}

func (app *application) rateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.config.rateLimiter.Enabled {
			if allow, _ := app.rateLimiter.Allow(r.RemoteAddr); !allow {
				app.rateLimitExceededResponse(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (app *application) run(mux http.Handler) error {
	if app.recordWorker != nil {
		if err := app.recordWorker.Start(); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		if app.recordWorker != nil {
			app.recordWorker.Stop()
		}

		if app.storage != nil {
			if err := app.storage.Close(ctx); err != nil {
				app.logger.Errorw("error closing MongoDB", "error", err)
			} else {
				app.logger.Info("MongoDB connection closed gracefully")
			}
		}

		if app.broker != nil {
			if err := app.broker.Close(); err != nil {
				app.logger.Errorw("error closing RabbitMQ", "error", err)
			} else {
				app.logger.Info("RabbitMQ connection closed gracefully")
			}
		}

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
