package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vatbridge/vatbridge/internal/config"
	"github.com/vatbridge/vatbridge/internal/handlers"
	"github.com/vatbridge/vatbridge/internal/hmrc"
	"github.com/vatbridge/vatbridge/internal/middleware"
	"github.com/vatbridge/vatbridge/internal/service"
	"github.com/vatbridge/vatbridge/internal/session"
	"github.com/vatbridge/vatbridge/internal/web"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	store := initSessionStore(cfg, logger)

	renderer, err := web.NewRenderer(logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load templates")
	}

	stateService, err := service.NewStateService(cfg.Session.SecretKey, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize state service")
	}

	oauth := hmrc.NewOAuth(&cfg.HMRC, logger)
	fraud := hmrc.NewFraudHeaders(&cfg.Vendor)
	client := hmrc.NewClient(&cfg.HMRC, fraud, logger)
	tokenService := service.NewTokenService(oauth, store, logger)

	authHandlers := handlers.NewAuthHandlers(oauth, stateService, store, renderer, logger)
	vatHandlers := handlers.NewVATHandlers(client, tokenService, renderer, logger)

	sessionMiddleware := middleware.NewSessionMiddleware(store, logger)
	router := setupRouter(authHandlers, vatHandlers, sessionMiddleware, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initSessionStore(cfg *config.Config, logger *logrus.Logger) session.Store {
	if cfg.Redis.Endpoint == "" {
		logger.Info("Using in-memory session store")
		return session.NewMemoryStore(cfg.Session.TTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Endpoint,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	logger.WithField("endpoint", cfg.Redis.Endpoint).Info("Using Redis session store")
	return session.NewRedisStore(client, cfg.Session.TTL, logger)
}

func setupRouter(
	authHandlers *handlers.AuthHandlers,
	vatHandlers *handlers.VATHandlers,
	sessionMiddleware *middleware.SessionMiddleware,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	router.Handle("/", sessionMiddleware.LoadSession(http.HandlerFunc(authHandlers.Index))).Methods("GET")
	router.HandleFunc("/login", authHandlers.Login).Methods("GET")
	router.HandleFunc("/oauth/callback", authHandlers.Callback).Methods("GET")
	router.HandleFunc("/logout", authHandlers.Logout).Methods("POST")

	protected := router.PathPrefix("/").Subrouter()
	protected.Use(sessionMiddleware.RequireSession)
	protected.HandleFunc("/obligations", vatHandlers.Obligations).Methods("GET", "POST")
	protected.HandleFunc("/returns", vatHandlers.Returns).Methods("GET", "POST")
	protected.HandleFunc("/liabilities", vatHandlers.Liabilities).Methods("GET", "POST")

	return router
}
