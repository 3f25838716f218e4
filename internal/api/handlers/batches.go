// batches.go — обработчики просмотра подборок.
// GET /api/v1/batches — страница подборок класса с фильтрами
// GET /api/v1/batches/{id} — одна подборка в отображаемом виде
// GET /api/v1/batches/{id}/files/{fileID}/download — скачивание файла
//
// Фильтры по полям метаданных передаются как filter[<имя поля>]=<значение>;
// для enum и boolean параметр может повторяться (набор принятых значений,
// включая синтетическое "null").
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/docshare/sharing-module/internal/api/errors"
	"github.com/bigkaa/docshare/sharing-module/internal/api/middleware"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/model"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/schema"
	"github.com/bigkaa/docshare/sharing-module/internal/service"
)

// HandleBrowseBatches — GET /api/v1/batches.
// Авторизация: роль viewer и выше — на уровне middleware.
func (h *APIHandler) HandleBrowseBatches(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	classID := query.Get("class_id")
	if classID == "" {
		apierrors.ValidationError(w, "Параметр class_id обязателен")
		return
	}

	dc, err := h.catalog.Class(classID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	createdFrom, err := parseDateParam(query.Get("created_from"))
	if err != nil {
		apierrors.ValidationError(w, "Параметр created_from: ожидается дата YYYY-MM-DD")
		return
	}
	createdTo, err := parseDateParam(query.Get("created_to"))
	if err != nil {
		apierrors.ValidationError(w, "Параметр created_to: ожидается дата YYYY-MM-DD")
		return
	}
	// Верхняя граница диапазона — конец дня включительно
	if createdTo != nil {
		end := createdTo.Add(24*time.Hour - time.Nanosecond)
		createdTo = &end
	}

	page, err := parseIntParam(query.Get("page"))
	if err != nil {
		apierrors.ValidationError(w, "Параметр page: ожидается целое число")
		return
	}
	perPage, err := parseIntParam(query.Get("per_page"))
	if err != nil {
		apierrors.ValidationError(w, "Параметр per_page: ожидается целое число")
		return
	}

	result, err := h.browse.Browse(r.Context(), service.BrowseQuery{
		ClassID:     classID,
		UserID:      middleware.SubjectFromContext(r.Context()),
		Filters:     parseFilters(dc.Fields, query),
		Text:        query.Get("q"),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
		Page:        page,
		PerPage:     perPage,
	})
	if err != nil {
		h.logger.Error("ошибка просмотра подборок",
			slog.String("class_id", classID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при выборке подборок")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGetBatch — GET /api/v1/batches/{id}.
// Недоступная пользователю подборка неотличима от несуществующей (404).
func (h *APIHandler) HandleGetBatch(w http.ResponseWriter, r *http.Request) {
	view, err := h.browse.Batch(r.Context(),
		chi.URLParam(r, "id"), middleware.SubjectFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			apierrors.NotFound(w, "Подборка не найдена")
			return
		}
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// HandleDownloadFile — GET /api/v1/batches/{id}/files/{fileID}/download.
// Проверка видимости подборки выполняется до обращения к Storage Element.
func (h *APIHandler) HandleDownloadFile(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "id")
	fileID := chi.URLParam(r, "fileID")

	view, err := h.browse.Batch(r.Context(), batchID, middleware.SubjectFromContext(r.Context()))
	if err != nil {
		apierrors.NotFound(w, "Подборка не найдена")
		return
	}

	var bf *model.BatchFile
	for i := range view.Files {
		if view.Files[i].FileID == fileID {
			bf = &view.Files[i]
			break
		}
	}
	if bf == nil {
		apierrors.NotFound(w, "Файл не найден в подборке")
		return
	}

	body, contentType, err := h.store.Download(r.Context(), fileID)
	if err != nil {
		h.logger.Error("ошибка скачивания файла со Storage Element",
			slog.String("batch_id", batchID),
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		apierrors.StoreUnavailable(w, "Storage Element недоступен")
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = bf.ContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": bf.OriginalFilename}))
	if bf.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(bf.Size, 10))
	}

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("передача файла прервана",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
}

// parseFilters извлекает filter[<имя>] параметры для полей класса.
// Для enum и boolean повторяющиеся значения образуют набор Selected,
// для остальных типов берётся скалярный Text.
func parseFilters(fields []schema.FieldDescriptor, query map[string][]string) map[string]schema.FilterValue {
	filters := map[string]schema.FilterValue{}
	for _, f := range fields {
		values, ok := query["filter["+f.Name+"]"]
		if !ok || len(values) == 0 {
			continue
		}

		var fv schema.FilterValue
		switch f.Type {
		case schema.TypeEnum, schema.TypeBoolean:
			fv.Selected = values
		default:
			fv.Text = values[0]
		}
		if !fv.IsEmpty() {
			filters[f.Name] = fv
		}
	}
	return filters
}

// parseDateParam разбирает дату формата openapi date (YYYY-MM-DD).
// Пустая строка — отсутствие параметра.
func parseDateParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(openapi_types.DateFormat, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseIntParam разбирает целочисленный query-параметр.
// Пустая строка — ноль (дефолты подставит сервис).
func parseIntParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
