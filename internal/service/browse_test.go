package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/bigkaa/docshare/sharing-module/internal/domain/model"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/schema"
	"github.com/bigkaa/docshare/sharing-module/internal/repository"
)

// mockBatchLister — мок репозитория подборок для просмотра.
type mockBatchLister struct {
	listFunc func(ctx context.Context, q repository.BatchQuery) ([]model.Batch, error)
	getFunc  func(ctx context.Context, id string) (*model.Batch, error)
}

func (m *mockBatchLister) List(ctx context.Context, q repository.BatchQuery) ([]model.Batch, error) {
	return m.listFunc(ctx, q)
}

func (m *mockBatchLister) GetByID(ctx context.Context, id string) (*model.Batch, error) {
	return m.getFunc(ctx, id)
}

// newTestBrowse собирает сервис просмотра поверх каталога из одного
// класса и фиксированного набора подборок.
func newTestBrowse(t *testing.T, batches []model.Batch) *BrowseService {
	t.Helper()

	client := &mockAdminClient{
		getClassesFunc: func(context.Context) ([]model.DocumentClass, error) {
			return []model.DocumentClass{testClass("c1")}, nil
		},
	}
	cat := newTestCatalog(t, client)
	if err := cat.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	lister := &mockBatchLister{
		listFunc: func(_ context.Context, q repository.BatchQuery) ([]model.Batch, error) {
			var out []model.Batch
			for _, b := range batches {
				if b.DocumentClassID == q.DocumentClassID {
					out = append(out, b)
				}
			}
			return out, nil
		},
		getFunc: func(_ context.Context, id string) (*model.Batch, error) {
			for i := range batches {
				if batches[i].ID == id {
					return &batches[i], nil
				}
			}
			return nil, repository.ErrNotFound
		},
	}

	fm := schema.NewFormatter("it", "", "")
	return NewBrowseService(cat, lister, fm, 5000, slog.Default())
}

func testBatches() []model.Batch {
	now := time.Now()
	return []model.Batch{
		{
			ID: "b1", DocumentClassID: "c1", SharerID: "u-sharer", SharerName: "Mario Rossi",
			ViewerIDs: []string{"u-viewer"},
			Metadata:  schema.MetadataRecord{"numero": "2026-0001", "importo": 100.0, "attivo": "1"},
			Files:     []model.BatchFile{{FileID: "f1", OriginalFilename: "fattura-gennaio.pdf"}},
			CreatedAt: now,
		},
		{
			ID: "b2", DocumentClassID: "c1", SharerID: "u-sharer", SharerName: "Mario Rossi",
			ViewerIDs: []string{"u-viewer"},
			Metadata:  schema.MetadataRecord{"numero": "2026-0002", "importo": 250.5, "attivo": false},
			CreatedAt: now,
		},
		{
			ID: "b3", DocumentClassID: "c1", SharerID: "u-sharer", SharerName: "Luigi Verdi",
			ViewerIDs: []string{"u-viewer"},
			Metadata:  schema.MetadataRecord{"numero": "2025-0099", "importo": 100.0},
			CreatedAt: now,
		},
	}
}

// TestBrowseMetadataFilter проверяет фильтрацию по типизированным полям:
// вариативность формата хранения boolean не даёт ложноотрицательных.
func TestBrowseMetadataFilter(t *testing.T) {
	svc := newTestBrowse(t, testBatches())

	// Фильтр attivo=[true] принимает запись с "1"
	page, err := svc.Browse(context.Background(), BrowseQuery{
		ClassID: "c1",
		UserID:  "u-viewer",
		Filters: map[string]schema.FilterValue{
			"attivo": {Selected: []string{"true"}},
		},
	})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != "b1" {
		t.Errorf("attivo=[true]: найдено %d, ожидалась подборка b1", page.Total)
	}

	// Sentinel null принимает запись без значения attivo
	page, err = svc.Browse(context.Background(), BrowseQuery{
		ClassID: "c1",
		UserID:  "u-viewer",
		Filters: map[string]schema.FilterValue{
			"attivo": {Selected: []string{schema.NullSentinel}},
		},
	})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != "b3" {
		t.Errorf("attivo=[null]: найдено %d, ожидалась подборка b3", page.Total)
	}

	// Числовой фильтр: точное совпадение разобранных значений
	page, err = svc.Browse(context.Background(), BrowseQuery{
		ClassID: "c1",
		UserID:  "u-viewer",
		Filters: map[string]schema.FilterValue{
			"importo": {Text: "100"},
		},
	})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("importo=100: найдено %d, ожидалось 2", page.Total)
	}
}

// TestBrowseTextSearch проверяет глобальный поиск по имени публикатора
// и именам файлов.
func TestBrowseTextSearch(t *testing.T) {
	svc := newTestBrowse(t, testBatches())

	page, err := svc.Browse(context.Background(), BrowseQuery{
		ClassID: "c1", UserID: "u-viewer", Text: "verdi",
	})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != "b3" {
		t.Errorf("поиск verdi: найдено %d", page.Total)
	}

	page, err = svc.Browse(context.Background(), BrowseQuery{
		ClassID: "c1", UserID: "u-viewer", Text: "GENNAIO",
	})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != "b1" {
		t.Errorf("поиск по имени файла: найдено %d", page.Total)
	}
}

// TestBrowseProjection проверяет проекцию: поля в порядке дескрипторов,
// значения отформатированы, пустые — placeholder.
func TestBrowseProjection(t *testing.T) {
	svc := newTestBrowse(t, testBatches())

	page, err := svc.Browse(context.Background(), BrowseQuery{ClassID: "c1", UserID: "u-viewer"})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("Total = %d", page.Total)
	}

	var b3 *BatchView
	for i := range page.Items {
		if page.Items[i].ID == "b3" {
			b3 = &page.Items[i]
		}
	}
	if b3 == nil {
		t.Fatal("подборка b3 не найдена в выдаче")
	}

	// Порядок полей — по дескрипторам класса
	if b3.Metadata[0].Name != "numero" || b3.Metadata[1].Name != "importo" || b3.Metadata[2].Name != "attivo" {
		t.Errorf("порядок полей: %s, %s, %s", b3.Metadata[0].Name, b3.Metadata[1].Name, b3.Metadata[2].Name)
	}
	// Отсутствующий boolean — placeholder, не «нет»
	if b3.Metadata[2].Value.Kind != schema.RenderEmpty {
		t.Errorf("attivo без значения: kind = %q, ожидался empty", b3.Metadata[2].Value.Kind)
	}
}

// TestBrowsePagination проверяет пагинацию после фильтрации.
func TestBrowsePagination(t *testing.T) {
	svc := newTestBrowse(t, testBatches())

	page, err := svc.Browse(context.Background(), BrowseQuery{
		ClassID: "c1", UserID: "u-viewer", Page: 2, PerPage: 2,
	})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 1 {
		t.Errorf("страница 2 из 2: total=%d, items=%d", page.Total, len(page.Items))
	}

	// Страница за пределами выдачи — пустой список, не ошибка
	page, err = svc.Browse(context.Background(), BrowseQuery{
		ClassID: "c1", UserID: "u-viewer", Page: 99, PerPage: 2,
	})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if len(page.Items) != 0 {
		t.Errorf("страница за пределами: items=%d", len(page.Items))
	}
}

// TestBatchVisibility проверяет, что недоступная подборка неотличима
// от несуществующей.
func TestBatchVisibility(t *testing.T) {
	svc := newTestBrowse(t, testBatches())

	if _, err := svc.Batch(context.Background(), "b1", "u-viewer"); err != nil {
		t.Errorf("получатель не видит адресованную подборку: %v", err)
	}
	if _, err := svc.Batch(context.Background(), "b1", "u-sharer"); err != nil {
		t.Errorf("публикатор не видит свою подборку: %v", err)
	}
	if _, err := svc.Batch(context.Background(), "b1", "u-stranger"); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("посторонний: ошибка %v, ожидалась ErrBatchNotFound", err)
	}
	if _, err := svc.Batch(context.Background(), "missing", "u-viewer"); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("несуществующая: ошибка %v, ожидалась ErrBatchNotFound", err)
	}
}
