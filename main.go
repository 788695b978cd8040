package main

import (
	"context"
	"drawboard-server/config"
	"drawboard-server/core"
	"drawboard-server/handlers/api/drawings"
	"drawboard-server/handlers/ui"
	"drawboard-server/handlers/websocket"
	"drawboard-server/stores"
	"drawboard-server/web"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func allowOrigin(allowed []string) func(r *http.Request, origin string) bool {
	return func(r *http.Request, origin string) bool {
		if origin == "" {
			return false
		}
		if slices.Contains(allowed, origin) {
			return true
		}

		parsed, err := url.Parse(origin)
		if err != nil {
			return false
		}

		switch parsed.Scheme {
		case "http", "https":
			switch parsed.Hostname() {
			case "localhost", "127.0.0.1", "::1":
				return true
			}
		case "tauri":
			return parsed.Hostname() == "localhost"
		}
		return false
	}
}

func setupRouter(cfg *config.Config, repo *core.Repository, hub *websocket.Hub) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  allowOrigin(cfg.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Route("/api/drawings", drawings.Routes(repo, cfg.MaxBodyBytes))
		r.Route("/drawings", drawings.Routes(repo, cfg.MaxBodyBytes))
	})

	if hub != nil {
		r.Get("/api/feed", func(w http.ResponseWriter, r *http.Request) {
			render.JSON(w, r, map[string]int{"subscribers": hub.GetSubscriberCount()})
		})
		r.Handle("/socket.io/*", hub.Server().ServeHandler(nil))
	}

	r.NotFound(ui.HandleUI(web.Assets, "/api"))

	return r
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file loaded")
	}

	configPath := flag.String("config", "", "Path to a YAML config file")
	logLevel := flag.String("loglevel", "info", "Set the logging level: debug, info, warn, error, fatal, panic")
	listenAddr := flag.String("listen", ":3002", "Set the server listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "loglevel":
			cfg.LogLevel = *logLevel
		case "listen":
			cfg.Listen = *listenAddr
		}
	})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx := context.Background()
	store, err := stores.GetStore(ctx, cfg.Storage)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open storage")
	}

	hub := websocket.SetupSocketIO(cfg.AllowedOrigins)
	repo := core.NewRepository(store, core.WithEvents(hub))

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: setupRouter(cfg, repo, hub),
	}

	logrus.WithField("addr", cfg.Listen).Info("Starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	waitForShutdown()

	logrus.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	hub.Close()
	if err := store.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close storage")
	}
}

func waitForShutdown() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(signals)

	s := <-signals
	logrus.WithField("signal", s.String()).Debug("Received signal")
}
