package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microblog/apiserver/config"
	"github.com/microblog/apiserver/internal/auth"
	"github.com/microblog/apiserver/internal/db"
	"github.com/microblog/apiserver/internal/handlers"
	"github.com/microblog/apiserver/internal/mq"
	"github.com/microblog/apiserver/internal/services"
	"github.com/microblog/apiserver/internal/storage"
	"github.com/microblog/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	userStore := store.NewUserStore(dbConn)
	postStore := store.NewPostStore(dbConn)
	commentStore := store.NewCommentStore(dbConn)

	var broker *mq.MQ
	var publisher services.Publisher
	if strings.TrimSpace(cfg.RabbitMQ.URL) != "" {
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		broker = mq.New(client)
		publisher = broker
	}

	var avatars *storage.Avatars
	if strings.TrimSpace(cfg.Minio.Endpoint) != "" {
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		avatars = storage.NewAvatars(client)
		if err := avatars.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			return nil, err
		}
	}

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	userService := services.NewUserService(userStore, hasher, logger)
	postService := services.NewPostService(postStore, userStore, publisher, logger)
	commentService := services.NewCommentService(commentStore, postStore, userStore, publisher, logger)

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, jwtSecret)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, avatars, logger, authMiddleware)
	})
	router.Route("/posts", func(r chi.Router) {
		handlers.PostRouter(r, postService, logger, authMiddleware)
	})
	router.Route("/comments", func(r chi.Router) {
		handlers.CommentRouter(r, commentService, logger, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	return s.httpServer.Close()
}
