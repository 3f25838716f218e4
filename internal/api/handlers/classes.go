// classes.go — обработчики каталога классов документов.
// GET /api/v1/document-classes — список классов со снимка каталога.
// POST /api/v1/document-classes/{id}/fields — регистрация нового поля
// (проксируется в Admin Module, снимок обновляется немедленно).
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/docshare/sharing-module/internal/adminclient"
	apierrors "github.com/bigkaa/docshare/sharing-module/internal/api/errors"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/model"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/schema"
	"github.com/bigkaa/docshare/sharing-module/internal/service"
)

// optionResponse — вариант enum-поля в API-ответе.
type optionResponse struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// fieldResponse — дескриптор поля в API-ответе.
// InputKind подсказывает клиенту, какой элемент ввода монтировать.
type fieldResponse struct {
	Name       string           `json:"name"`
	Label      string           `json:"label"`
	DataType   string           `json:"data_type"`
	Required   bool             `json:"required"`
	PrimaryKey bool             `json:"is_primary_key"`
	SortOrder  int              `json:"sort_order"`
	InputKind  string           `json:"input_kind"`
	Options    []optionResponse `json:"options,omitempty"`
}

// classResponse — класс документов в API-ответе.
type classResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Fields      []fieldResponse `json:"fields"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// classListResponse — ответ списка классов.
type classListResponse struct {
	Items []classResponse `json:"items"`
	Total int             `json:"total"`
}

// addFieldRequest — тело запроса регистрации нового поля.
type addFieldRequest struct {
	Name      string           `json:"name"`
	Label     string           `json:"label"`
	DataType  string           `json:"data_type"`
	Required  bool             `json:"required"`
	SortOrder int              `json:"sort_order"`
	Options   []optionResponse `json:"options,omitempty"`
}

// HandleListClasses — GET /api/v1/document-classes.
// Параметр q — глобальный текстовый поиск по имени, описанию
// и отображаемым именам публикаторов класса.
// Авторизация: роль viewer и выше — на уровне middleware.
func (h *APIHandler) HandleListClasses(w http.ResponseWriter, r *http.Request) {
	classes := h.catalog.ClassesMatching(r.URL.Query().Get("q"))

	items := make([]classResponse, 0, len(classes))
	for i := range classes {
		items = append(items, classToResponse(&classes[i]))
	}

	writeJSON(w, http.StatusOK, classListResponse{
		Items: items,
		Total: len(items),
	})
}

// HandleAddField — POST /api/v1/document-classes/{id}/fields.
// Авторизация: роль sharer — на уровне middleware.
func (h *APIHandler) HandleAddField(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "id")

	var req addFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	if req.Name == "" {
		apierrors.ValidationError(w, "Поле name обязательно")
		return
	}
	dataType, err := schema.ParseDataType(req.DataType)
	if err != nil {
		apierrors.ValidationError(w, "Нераспознанный тип данных: "+req.DataType)
		return
	}
	if dataType == schema.TypeEnum && len(req.Options) == 0 {
		apierrors.ValidationError(w, "Для enum-поля требуется непустой список options")
		return
	}

	options := make([]schema.Option, 0, len(req.Options))
	for _, o := range req.Options {
		options = append(options, schema.Option{Value: o.Value, Label: o.Label})
	}

	updated, err := h.catalog.AddField(r.Context(), classID, adminclient.AddFieldRequest{
		Name:      req.Name,
		Label:     req.Label,
		Type:      dataType,
		Required:  req.Required,
		SortOrder: req.SortOrder,
		Options:   options,
	})
	if err != nil {
		switch {
		case errors.Is(err, adminclient.ErrDuplicateField):
			apierrors.Conflict(w, "Поле с именем "+req.Name+" уже существует в классе")
		case errors.Is(err, service.ErrClassNotFound):
			apierrors.NotFound(w, "Класс документов не найден")
		case errors.Is(err, service.ErrCatalogEmpty):
			apierrors.AdminUnavailable(w, "Каталог классов документов ещё не загружен")
		default:
			h.logger.Error("ошибка регистрации поля",
				slog.String("class_id", classID),
				slog.String("field", req.Name),
				slog.String("error", err.Error()),
			)
			apierrors.AdminUnavailable(w, "Admin Module недоступен")
		}
		return
	}

	writeJSON(w, http.StatusCreated, classToResponse(updated))
}

// classToResponse конвертирует domain-модель класса в API-тип.
func classToResponse(dc *model.DocumentClass) classResponse {
	fields := make([]fieldResponse, 0, len(dc.Fields))
	for _, f := range dc.Fields {
		fields = append(fields, fieldToResponse(f))
	}

	return classResponse{
		ID:          dc.ID,
		Name:        dc.Name,
		Description: dc.Description,
		Fields:      fields,
		CreatedAt:   dc.CreatedAt,
		UpdatedAt:   dc.UpdatedAt,
	}
}

// fieldToResponse конвертирует дескриптор поля в API-тип.
func fieldToResponse(f schema.FieldDescriptor) fieldResponse {
	// Тип проверен при ингесте схемы, ошибка здесь невозможна
	kind, _ := schema.InputKindFor(f.Type)

	var options []optionResponse
	for _, o := range f.Options {
		options = append(options, optionResponse{Value: o.Value, Label: o.Label})
	}

	return fieldResponse{
		Name:       f.Name,
		Label:      f.Label,
		DataType:   string(f.Type),
		Required:   f.Required,
		PrimaryKey: f.PrimaryKey,
		SortOrder:  f.SortOrder,
		InputKind:  string(kind),
		Options:    options,
	}
}
