// Пакет server — HTTP-сервер Sharing Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/docshare/sharing-module/internal/api/handlers"
	"github.com/bigkaa/docshare/sharing-module/internal/api/middleware"
	"github.com/bigkaa/docshare/sharing-module/internal/config"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/rbac"
)

// Server — HTTP-сервер Sharing Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// jwtMiddleware применяется ко всем путям, кроме health, metrics
// и openapi.json.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler *handlers.APIHandler,
	jwtMiddleware func(http.Handler) http.Handler,
) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(JWTAuthWithExclusions(jwtMiddleware,
		"/health/", "/metrics", "/openapi.json"))

	// Служебные endpoints (без аутентификации)
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)
	router.Get("/openapi.json", handler.HandleOpenAPI)

	router.Route("/api/v1", func(r chi.Router) {
		// Каталог классов: чтение — любая роль, регистрация поля — sharer
		r.Route("/document-classes", func(r chi.Router) {
			r.With(middleware.RequireRole(rbac.RoleViewer)).
				Get("/", handler.HandleListClasses)
			r.With(middleware.RequireRole(rbac.RoleSharer)).
				Post("/{id}/fields", handler.HandleAddField)
		})

		// Сессии публикации: только sharer
		r.Route("/sessions", func(r chi.Router) {
			r.Use(middleware.RequireRole(rbac.RoleSharer))
			r.Post("/", handler.HandleStartSession)
			r.Get("/{id}", handler.HandleGetSession)
			r.Delete("/{id}", handler.HandleDiscardSession)
			r.Put("/{id}/class", handler.HandleSwitchClass)
			r.Patch("/{id}/metadata", handler.HandleUpdateMetadata)
			r.Post("/{id}/files", handler.HandleAttachFile)
			r.Post("/{id}/submit", handler.HandleSubmit)
		})

		// Просмотр подборок: viewer и выше
		r.Route("/batches", func(r chi.Router) {
			r.Use(middleware.RequireRole(rbac.RoleViewer))
			r.Get("/", handler.HandleBrowseBatches)
			r.Get("/{id}", handler.HandleGetBatch)
			r.Get("/{id}/files/{fileID}/download", handler.HandleDownloadFile)
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// JWTAuthWithExclusions оборачивает middleware, пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без middleware.
func JWTAuthWithExclusions(mw func(http.Handler) http.Handler, excludePrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			mw(next).ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
