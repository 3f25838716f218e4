// handler.go — основной обработчик API Sharing Module.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/docshare/sharing-module/internal/api/errors"
	"github.com/bigkaa/docshare/sharing-module/internal/service"
	"github.com/bigkaa/docshare/sharing-module/internal/storeclient"
)

// APIHandler — основной обработчик API Sharing Module.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health     *HealthHandler
	catalog    *service.CatalogService
	submission *service.SubmissionService
	browse     *service.BrowseService
	store      *storeclient.Client
	specJSON   []byte
	logger     *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	catalog *service.CatalogService,
	submission *service.SubmissionService,
	browse *service.BrowseService,
	store *storeclient.Client,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:     health,
		catalog:    catalog,
		submission: submission,
		browse:     browse,
		store:      store,
		logger:     logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError транслирует ошибки сервисного слоя в HTTP-ответ.
// Чужая сессия отдаётся как 403; отсутствующая или истёкшая — как 410:
// LRU-вытеснение и истечение TTL для клиента неотличимы.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		apierrors.SessionExpired(w, "Сессия публикации не найдена или истекла")
	case errors.Is(err, service.ErrSessionOwner):
		apierrors.Forbidden(w, "Сессия принадлежит другому пользователю")
	case errors.Is(err, service.ErrClassNotFound):
		apierrors.NotFound(w, "Класс документов не найден")
	case errors.Is(err, service.ErrNotClassSharer):
		apierrors.Forbidden(w, "Пользователь не входит в публикаторы класса")
	case errors.Is(err, service.ErrCatalogEmpty):
		apierrors.AdminUnavailable(w, "Каталог классов документов ещё не загружен")
	default:
		h.logger.Error("ошибка сервиса публикации", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка")
	}
}
