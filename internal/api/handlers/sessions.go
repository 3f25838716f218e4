// sessions.go — обработчики сессий публикации подборок.
// POST   /api/v1/sessions                 — открыть сессию по классу
// GET    /api/v1/sessions/{id}            — текущее состояние сессии
// PUT    /api/v1/sessions/{id}/class      — сменить класс (значения сбрасываются)
// PATCH  /api/v1/sessions/{id}/metadata   — влить значения, получить валидацию
// POST   /api/v1/sessions/{id}/files      — загрузить файл (multipart)
// POST   /api/v1/sessions/{id}/submit     — опубликовать подборку
// DELETE /api/v1/sessions/{id}            — отменить сессию
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/docshare/sharing-module/internal/api/errors"
	"github.com/bigkaa/docshare/sharing-module/internal/api/middleware"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/model"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/schema"
	"github.com/bigkaa/docshare/sharing-module/internal/service"
)

// maxUploadSize — предел размера одного загружаемого файла (100 MiB).
const maxUploadSize = 100 << 20

// startSessionRequest — тело запроса открытия сессии.
type startSessionRequest struct {
	ClassID string `json:"class_id"`
}

// switchClassRequest — тело запроса смены класса.
type switchClassRequest struct {
	ClassID string `json:"class_id"`
}

// updateMetadataRequest — тело запроса обновления метаданных.
type updateMetadataRequest struct {
	Values map[string]any `json:"values"`
}

// submitRequest — тело запроса публикации.
type submitRequest struct {
	ViewerIDs []string `json:"viewer_ids"`
}

// validationResponse — результат валидации метаданных.
type validationResponse struct {
	Valid  bool              `json:"valid"`
	Fields map[string]string `json:"fields,omitempty"`
}

// sessionResponse — состояние сессии публикации.
type sessionResponse struct {
	ID        string            `json:"id"`
	ClassID   string            `json:"class_id"`
	Fields    []fieldResponse   `json:"fields"`
	Values    map[string]any    `json:"values"`
	Files     []model.BatchFile `json:"files"`
	CreatedAt time.Time         `json:"created_at"`
}

// batchCreatedResponse — ответ на успешную публикацию.
type batchCreatedResponse struct {
	ID              string            `json:"id"`
	DocumentClassID string            `json:"document_class_id"`
	ViewerIDs       []string          `json:"viewer_ids"`
	Files           []model.BatchFile `json:"files"`
}

// HandleStartSession — POST /api/v1/sessions.
// Авторизация: роль sharer — на уровне middleware.
func (h *APIHandler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}
	if req.ClassID == "" {
		apierrors.ValidationError(w, "Поле class_id обязательно")
		return
	}

	sess, err := h.submission.StartSession(claims.Subject, claims.DisplayName, req.ClassID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionToResponse(sess))
}

// HandleGetSession — GET /api/v1/sessions/{id}.
func (h *APIHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.submission.Session(chi.URLParam(r, "id"), middleware.SubjectFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionToResponse(sess))
}

// HandleSwitchClass — PUT /api/v1/sessions/{id}/class.
// Смена класса сбрасывает введённые значения полностью; загруженные
// файлы сохраняются.
func (h *APIHandler) HandleSwitchClass(w http.ResponseWriter, r *http.Request) {
	var req switchClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}
	if req.ClassID == "" {
		apierrors.ValidationError(w, "Поле class_id обязательно")
		return
	}

	sess, err := h.submission.SwitchClass(
		chi.URLParam(r, "id"), middleware.SubjectFromContext(r.Context()), req.ClassID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionToResponse(sess))
}

// HandleUpdateMetadata — PATCH /api/v1/sessions/{id}/metadata.
// Значения вливаются в сессию даже если невалидны: ответ содержит
// пофилдовые причины, жёсткая проверка выполняется при Submit.
func (h *APIHandler) HandleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	var req updateMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	res, err := h.submission.UpdateMetadata(
		chi.URLParam(r, "id"), middleware.SubjectFromContext(r.Context()),
		schema.MetadataRecord(req.Values))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, validationToResponse(res))
}

// HandleAttachFile — POST /api/v1/sessions/{id}/files.
// Принимает multipart/form-data с полем file; файл сразу передаётся
// на Storage Element, локально не буферизуется на диск.
func (h *APIHandler) HandleAttachFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Ожидается multipart/form-data с полем file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	bf, err := h.submission.AttachFile(r.Context(),
		chi.URLParam(r, "id"), middleware.SubjectFromContext(r.Context()),
		header.Filename, contentType, file)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) || errors.Is(err, service.ErrSessionOwner) {
			h.writeServiceError(w, err)
			return
		}
		h.logger.Error("ошибка загрузки файла на Storage Element",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		apierrors.StoreUnavailable(w, "Storage Element недоступен")
		return
	}

	writeJSON(w, http.StatusCreated, bf)
}

// HandleSubmit — POST /api/v1/sessions/{id}/submit.
// Невалидные метаданные — 422 с пофилдовыми причинами, сессия остаётся
// открытой. Успех — 201, сессия закрывается.
func (h *APIHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	batch, err := h.submission.Submit(r.Context(),
		chi.URLParam(r, "id"), middleware.SubjectFromContext(r.Context()), req.ViewerIDs)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			apierrors.WriteFieldErrors(w, "Метаданные не прошли валидацию", reasonsToStrings(verr.Result))
		case errors.Is(err, service.ErrNoViewers):
			apierrors.ValidationError(w, "Список viewer_ids не может быть пустым")
		default:
			h.writeServiceError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, batchCreatedResponse{
		ID:              batch.ID,
		DocumentClassID: batch.DocumentClassID,
		ViewerIDs:       batch.ViewerIDs,
		Files:           batch.Files,
	})
}

// HandleDiscardSession — DELETE /api/v1/sessions/{id}.
func (h *APIHandler) HandleDiscardSession(w http.ResponseWriter, r *http.Request) {
	err := h.submission.Discard(chi.URLParam(r, "id"), middleware.SubjectFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionToResponse конвертирует сессию в API-тип.
// Сериализуется снимок состояния: параллельный запрос к той же сессии
// может мутировать Values/Files под рукой у encoder'а.
func sessionToResponse(sess *service.EditSession) sessionResponse {
	st := sess.State()

	fields := make([]fieldResponse, 0, len(st.Fields))
	for _, f := range st.Fields {
		fields = append(fields, fieldToResponse(f))
	}

	return sessionResponse{
		ID:        st.ID,
		ClassID:   st.ClassID,
		Fields:    fields,
		Values:    st.Values,
		Files:     st.Files,
		CreatedAt: st.CreatedAt,
	}
}

// validationToResponse конвертирует результат валидации в API-тип.
func validationToResponse(res schema.Result) validationResponse {
	return validationResponse{
		Valid:  res.Valid(),
		Fields: reasonsToStrings(res),
	}
}

// reasonsToStrings — карта имя поля → машиночитаемая причина.
func reasonsToStrings(res schema.Result) map[string]string {
	if len(res.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(res.Fields))
	for name, reason := range res.Fields {
		out[name] = string(reason)
	}
	return out
}
