// browse.go — просмотр подборок viewer'ом: выборка из БД, фильтрация
// по значениям метаданных движком схем, проекция в отображаемый вид.
//
// SQL выполняет грубое сужение (класс, видимость, диапазон публикации,
// предел скана); фильтры по типизированным полям метаданных считаются
// in-memory теми же предикатами, что и валидация — вариативность
// формата хранения не даёт ложноотрицательных результатов.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/docshare/sharing-module/internal/domain/model"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/schema"
	"github.com/bigkaa/docshare/sharing-module/internal/repository"
)

// Метрики просмотра.
var (
	browseRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_browse_requests_total",
		Help: "Количество запросов просмотра подборок",
	})
	browseScannedBatches = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sm_browse_scanned_batches",
		Help:    "Количество подборок, просканированных за один запрос",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000},
	})
)

// BatchLister — операции репозитория, нужные просмотру.
type BatchLister interface {
	List(ctx context.Context, q repository.BatchQuery) ([]model.Batch, error)
	GetByID(ctx context.Context, id string) (*model.Batch, error)
}

// BrowseQuery — параметры запроса просмотра.
type BrowseQuery struct {
	// ClassID — класс документов (обязательный)
	ClassID string
	// UserID — ограничение видимости (sub из JWT)
	UserID string
	// Filters — фильтры по типизированным полям метаданных
	Filters map[string]schema.FilterValue
	// Text — глобальный текстовый поиск (имя публикатора, имена файлов)
	Text string
	// CreatedFrom, CreatedTo — диапазон времени публикации
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	// Page, PerPage — пагинация результата (после фильтрации)
	Page    int
	PerPage int
}

// FieldView — одно отформатированное поле подборки.
type FieldView struct {
	// Name — машинное имя поля
	Name string `json:"name"`
	// Label — подпись поля
	Label string `json:"label"`
	// Value — представление значения
	Value schema.Renderable `json:"value"`
}

// BatchView — подборка в отображаемом виде.
type BatchView struct {
	ID         string            `json:"id"`
	ClassID    string            `json:"class_id"`
	ClassName  string            `json:"class_name"`
	SharerName string            `json:"sharer_name"`
	Metadata   []FieldView       `json:"metadata"`
	Files      []model.BatchFile `json:"files"`
	CreatedAt  time.Time         `json:"created_at"`
}

// BrowsePage — страница результата просмотра.
type BrowsePage struct {
	Items   []BatchView `json:"items"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

// BrowseService — просмотр подборок.
type BrowseService struct {
	catalog   *CatalogService
	batches   BatchLister
	formatter *schema.Formatter
	scanLimit int
	logger    *slog.Logger
}

// NewBrowseService создаёт сервис просмотра.
// scanLimit ограничивает число подборок, загружаемых из БД для
// in-memory фильтрации (SM_BROWSE_SCAN_LIMIT).
func NewBrowseService(
	catalog *CatalogService,
	batches BatchLister,
	formatter *schema.Formatter,
	scanLimit int,
	logger *slog.Logger,
) *BrowseService {
	return &BrowseService{
		catalog:   catalog,
		batches:   batches,
		formatter: formatter,
		scanLimit: scanLimit,
		logger:    logger.With(slog.String("component", "browse_service")),
	}
}

// Browse возвращает страницу подборок класса, видимых пользователю
// и прошедших все активные фильтры.
func (s *BrowseService) Browse(ctx context.Context, q BrowseQuery) (*BrowsePage, error) {
	browseRequestsTotal.Inc()

	dc, err := s.catalog.Class(q.ClassID)
	if err != nil {
		return nil, err
	}

	batches, err := s.batches.List(ctx, repository.BatchQuery{
		DocumentClassID: q.ClassID,
		UserID:          q.UserID,
		CreatedFrom:     q.CreatedFrom,
		CreatedTo:       q.CreatedTo,
		Limit:           s.scanLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("выборка подборок класса %s: %w", q.ClassID, err)
	}
	browseScannedBatches.Observe(float64(len(batches)))

	// Фильтры по полям метаданных — движком схем, логическое И
	matched := batches[:0:0]
	for _, b := range batches {
		if !recordPasses(dc.Fields, q.Filters, b.Metadata) {
			continue
		}
		if !textMatches(q.Text, &b) {
			continue
		}
		matched = append(matched, b)
	}

	total := len(matched)
	page, perPage := normalizePageParams(q.Page, q.PerPage)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	items := make([]BatchView, 0, end-start)
	for _, b := range matched[start:end] {
		items = append(items, s.project(dc, &b))
	}

	return &BrowsePage{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

// Batch возвращает одну подборку в отображаемом виде с проверкой
// видимости для пользователя.
func (s *BrowseService) Batch(ctx context.Context, batchID, userID string) (*BatchView, error) {
	b, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("подборка %s: %w", batchID, ErrBatchNotFound)
	}

	if !batchVisible(b, userID) {
		// Недоступная подборка неотличима от несуществующей
		return nil, fmt.Errorf("подборка %s: %w", batchID, ErrBatchNotFound)
	}

	dc, err := s.catalog.Class(b.DocumentClassID)
	if err != nil {
		return nil, err
	}

	view := s.project(dc, b)
	return &view, nil
}

// project строит отображаемый вид подборки: поля в порядке дескрипторов,
// каждое значение отформатировано тотальным форматтером.
func (s *BrowseService) project(dc *model.DocumentClass, b *model.Batch) BatchView {
	meta := make([]FieldView, 0, len(dc.Fields))
	for _, f := range dc.Fields {
		meta = append(meta, FieldView{
			Name:  f.Name,
			Label: f.Label,
			Value: s.formatter.Format(f, b.Metadata[f.Name]),
		})
	}

	return BatchView{
		ID:         b.ID,
		ClassID:    dc.ID,
		ClassName:  dc.Name,
		SharerName: b.SharerName,
		Metadata:   meta,
		Files:      b.Files,
		CreatedAt:  b.CreatedAt,
	}
}

// recordPasses — запись проходит все активные фильтры по полям.
func recordPasses(fields []schema.FieldDescriptor, filters map[string]schema.FilterValue, record schema.MetadataRecord) bool {
	if len(filters) == 0 {
		return true
	}
	got := schema.Apply(fields, filters, []schema.MetadataRecord{record})
	return len(got) == 1
}

// textMatches — регистронезависимый поиск по атрибутам подборки,
// не описанным схемой: имя публикатора и имена файлов.
func textMatches(text string, b *model.Batch) bool {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return true
	}
	if strings.Contains(strings.ToLower(b.SharerName), text) {
		return true
	}
	for _, f := range b.Files {
		if strings.Contains(strings.ToLower(f.OriginalFilename), text) {
			return true
		}
	}
	return false
}

// batchVisible — подборка видна пользователю: он публикатор или получатель.
func batchVisible(b *model.Batch, userID string) bool {
	if userID == "" {
		return true
	}
	if b.SharerID == userID {
		return true
	}
	for _, v := range b.ViewerIDs {
		if v == userID {
			return true
		}
	}
	return false
}

// normalizePageParams — дефолты и пределы пагинации.
func normalizePageParams(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage < 1:
		perPage = 20
	case perPage > 200:
		perPage = 200
	}
	return page, perPage
}
