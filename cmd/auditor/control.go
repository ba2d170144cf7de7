package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Johnhpure/product-audit/internal/catalog"
	"github.com/Johnhpure/product-audit/internal/gateway"
	"github.com/Johnhpure/product-audit/internal/moderation"
	"github.com/Johnhpure/product-audit/internal/ocr"
	"github.com/Johnhpure/product-audit/internal/pipeline"
	"github.com/Johnhpure/product-audit/internal/scope"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

type application struct {
	config   config
	logger   *zap.SugaredLogger
	pipeline *pipeline.Pipeline
	gateway  *gateway.Client
}

// runningFlagSetting is the backend setting mirrored on start/stop so the
// review dashboard can show whether a run is active.
const runningFlagSetting = "pipeline_running"

type config struct {
	addr       string
	env        string
	catalog    catalog.Config
	moderation moderation.Config
	ocr        ocr.Config
	uploader   ocr.S3Uploader
	scope      scope.Config
	gateway    gateway.Config
	pipeline   pipeline.Config
	stateFile  string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", app.healthCheckHandler)

	r.Route("/control", func(r chi.Router) {
		r.Post("/start", app.startHandler)
		r.Post("/stop", app.stopHandler)
		r.Get("/status", app.statusHandler)
		r.Get("/history", app.historyHandler)
	})

	return r
}

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": version,
		"env":     app.config.env,
	})
}

func (app *application) startHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.pipeline.Start(); err != nil {
		app.logger.Errorw("failed to start pipeline", "error", err)
		app.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	app.mirrorRunningFlag(r.Context(), true)

	app.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  app.pipeline.Status(),
	})
}

func (app *application) stopHandler(w http.ResponseWriter, r *http.Request) {
	app.pipeline.Stop()
	app.mirrorRunningFlag(r.Context(), false)

	app.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  app.pipeline.Status(),
	})
}

// mirrorRunningFlag is best-effort; the local state file stays authoritative.
func (app *application) mirrorRunningFlag(ctx context.Context, running bool) {
	if app.gateway == nil {
		return
	}
	if err := app.gateway.PutSetting(ctx, runningFlagSetting, strconv.FormatBool(running)); err != nil {
		app.logger.Warnw("failed to mirror running flag", "error", err)
	}
}

func (app *application) statusHandler(w http.ResponseWriter, r *http.Request) {
	state := app.pipeline.State()

	app.writeJSON(w, http.StatusOK, map[string]any{
		"status": app.pipeline.Status(),
		"state":  state,
		"stats":  state.Stats,
	})
}

func (app *application) historyHandler(w http.ResponseWriter, r *http.Request) {
	history := app.pipeline.History()

	app.writeJSON(w, http.StatusOK, map[string]any{
		"history": history,
		"total":   len(history),
	})
}

func (app *application) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		app.logger.Errorw("failed to write response", "error", err)
	}
}

func (app *application) run(mux http.Handler) error {
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

		// Suspend keeps the persisted running flag set; the next process
		// start resumes the interrupted run.
		app.pipeline.Suspend()
		if done := app.pipeline.Done(); done != nil {
			select {
			case <-done:
			case <-ctx.Done():
			}
		}

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("control server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("control server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
