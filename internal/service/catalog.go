// catalog.go — in-memory снимок каталога классов документов.
//
// Владелец классов — Admin Module; Sharing Module держит локальный
// снимок и обновляет его фоновой горутиной. Потребители получают
// глубокие копии: снимок, выданный наружу, не мутируется обновлением.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/docshare/sharing-module/internal/adminclient"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/model"
)

// Метрики каталога.
var (
	catalogClasses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sm_catalog_document_classes",
		Help: "Количество классов документов в снимке каталога",
	})
	catalogRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_catalog_refresh_total",
		Help: "Количество обновлений каталога по результату",
	}, []string{"result"})
)

// CatalogClient — операции Admin Module, нужные каталогу.
// Реализуется adminclient.Client; в тестах — функциональным моком.
type CatalogClient interface {
	GetDocumentClasses(ctx context.Context) ([]model.DocumentClass, error)
	AddField(ctx context.Context, classID string, field adminclient.AddFieldRequest) (*model.DocumentClass, error)
}

// CatalogService — снимок каталога классов документов.
type CatalogService struct {
	client          CatalogClient
	refreshInterval time.Duration
	logger          *slog.Logger

	mu          sync.RWMutex
	classes     map[string]*model.DocumentClass
	lastRefresh time.Time
}

// NewCatalogService создаёт сервис каталога. Снимок пуст до первого
// Refresh — вызывающий обязан выполнить его при старте.
func NewCatalogService(client CatalogClient, refreshInterval time.Duration, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		client:          client,
		refreshInterval: refreshInterval,
		logger:          logger.With(slog.String("component", "catalog_service")),
		classes:         map[string]*model.DocumentClass{},
	}
}

// Refresh загружает каталог из Admin Module и заменяет снимок атомарно.
// Ошибка загрузки оставляет предыдущий снимок нетронутым: устаревший
// каталог лучше пустого.
func (s *CatalogService) Refresh(ctx context.Context) error {
	classes, err := s.client.GetDocumentClasses(ctx)
	if err != nil {
		catalogRefreshTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("обновление каталога: %w", err)
	}

	snapshot := make(map[string]*model.DocumentClass, len(classes))
	for i := range classes {
		snapshot[classes[i].ID] = &classes[i]
	}

	s.mu.Lock()
	s.classes = snapshot
	s.lastRefresh = time.Now()
	s.mu.Unlock()

	catalogRefreshTotal.WithLabelValues("ok").Inc()
	catalogClasses.Set(float64(len(snapshot)))
	s.logger.Info("каталог классов обновлён",
		slog.Int("classes", len(snapshot)),
	)

	return nil
}

// Run запускает периодическое обновление каталога.
// Блокируется до отмены ctx; запускать в отдельной горутине.
func (s *CatalogService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("фоновое обновление каталога остановлено")
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error("ошибка фонового обновления каталога",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Classes возвращает все классы снимка (глубокие копии),
// упорядоченные по имени.
func (s *CatalogService) Classes() []model.DocumentClass {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.DocumentClass, 0, len(s.classes))
	for _, dc := range s.classes {
		out = append(out, *dc.Clone())
	}
	sortClassesByName(out)
	return out
}

// ClassesMatching возвращает классы, у которых текст встречается
// (без учёта регистра) в имени, описании или отображаемом имени одного
// из публикаторов. Значения полей метаданных поиском не затрагиваются.
// Пустой текст эквивалентен Classes().
func (s *CatalogService) ClassesMatching(text string) []model.DocumentClass {
	classes := s.Classes()

	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return classes
	}

	out := classes[:0:0]
	for i := range classes {
		if classMatchesText(&classes[i], text) {
			out = append(out, classes[i])
		}
	}
	return out
}

// classMatchesText — подстрочное совпадение с фиксированным набором
// текстовых атрибутов класса; text уже в нижнем регистре.
func classMatchesText(dc *model.DocumentClass, text string) bool {
	if strings.Contains(strings.ToLower(dc.Name), text) ||
		strings.Contains(strings.ToLower(dc.Description), text) {
		return true
	}
	for _, sh := range dc.Sharers {
		if strings.Contains(strings.ToLower(sh.DisplayName), text) {
			return true
		}
	}
	return false
}

// Class возвращает класс по ID (глубокую копию).
func (s *CatalogService) Class(id string) (*model.DocumentClass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.classes) == 0 && s.lastRefresh.IsZero() {
		return nil, ErrCatalogEmpty
	}

	dc, ok := s.classes[id]
	if !ok {
		return nil, fmt.Errorf("класс %s: %w", id, ErrClassNotFound)
	}
	return dc.Clone(), nil
}

// AddField регистрирует новое поле класса в Admin Module и вливает
// обновлённый класс в снимок, не дожидаясь планового Refresh.
// Конфликт имени (adminclient.ErrDuplicateField) пробрасывается как есть.
func (s *CatalogService) AddField(ctx context.Context, classID string, field adminclient.AddFieldRequest) (*model.DocumentClass, error) {
	// Класс должен существовать в снимке: не гоняем заведомо битый запрос
	if _, err := s.Class(classID); err != nil {
		return nil, err
	}

	updated, err := s.client.AddField(ctx, classID, field)
	if err != nil {
		if errors.Is(err, adminclient.ErrDuplicateField) {
			return nil, err
		}
		return nil, fmt.Errorf("регистрация поля %q: %w", field.Name, err)
	}

	s.mu.Lock()
	s.classes[updated.ID] = updated.Clone()
	s.mu.Unlock()

	s.logger.Info("поле зарегистрировано в классе",
		slog.String("class_id", classID),
		slog.String("field", field.Name),
		slog.String("data_type", string(field.Type)),
	)

	return updated.Clone(), nil
}

// LastRefresh — время последнего успешного обновления снимка
// (для readiness probe).
func (s *CatalogService) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}

// sortClassesByName — детерминированный порядок списка классов.
func sortClassesByName(classes []model.DocumentClass) {
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].Name < classes[j].Name
	})
}
