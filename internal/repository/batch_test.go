package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/docshare/sharing-module/internal/config"
	"github.com/bigkaa/docshare/sharing-module/internal/database"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/model"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/schema"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool и функцию очистки.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("docshare_test"),
		postgres.WithUsername("docshare"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	os.Setenv("SM_DB_HOST", host)
	os.Setenv("SM_DB_PORT", port.Port())
	os.Setenv("SM_DB_NAME", "docshare_test")
	os.Setenv("SM_DB_USER", "docshare")
	os.Setenv("SM_DB_PASSWORD", "test-password")
	os.Setenv("SM_DB_SSL_MODE", "disable")
	os.Setenv("SM_ADMIN_URL", "http://localhost:8000")
	os.Setenv("SM_STORE_URL", "http://localhost:8020")
	os.Setenv("SM_IDP_TOKEN_URL", "http://localhost:8080/token")
	os.Setenv("SM_IDP_CLIENT_ID", "test")
	os.Setenv("SM_IDP_CLIENT_SECRET", "test")
	os.Setenv("SM_JWT_JWKS_URL", "http://localhost:8080/jwks")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// --- Тесты BatchRepository ---

func TestBatchCreateGet(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewBatchRepository(pool)

	classID := uuid.New().String()
	b := &model.Batch{
		ID:              uuid.New().String(),
		DocumentClassID: classID,
		SharerID:        "u-sharer",
		SharerName:      "Mario Rossi",
		ViewerIDs:       []string{"u-viewer-1", "u-viewer-2"},
		Metadata: schema.MetadataRecord{
			"numero":  "2026-0042",
			"importo": 199.90,
			"attivo":  true,
		},
		Files: []model.BatchFile{
			{FileID: uuid.New().String(), OriginalFilename: "fattura.pdf", ContentType: "application/pdf", Size: 1024, Checksum: "sha256:abc"},
		},
	}

	// Create
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if b.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}

	// Повторный Create с тем же ID — конфликт
	if err := repo.Create(ctx, b); !errors.Is(err, ErrConflict) {
		t.Errorf("повторный Create: ошибка %v, ожидалась ErrConflict", err)
	}

	// GetByID
	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.SharerName != "Mario Rossi" {
		t.Errorf("SharerName = %q", got.SharerName)
	}
	if len(got.ViewerIDs) != 2 {
		t.Errorf("ViewerIDs = %v", got.ViewerIDs)
	}
	if got.Metadata["numero"] != "2026-0042" {
		t.Errorf("metadata numero = %v", got.Metadata["numero"])
	}
	// jsonb возвращает числа как float64 — канонический вид для движка схем
	if got.Metadata["importo"] != 199.90 {
		t.Errorf("metadata importo = %v (%T)", got.Metadata["importo"], got.Metadata["importo"])
	}
	if len(got.Files) != 1 || got.Files[0].OriginalFilename != "fattura.pdf" {
		t.Errorf("files = %+v", got.Files)
	}

	// GetByID несуществующей подборки
	if _, err := repo.GetByID(ctx, uuid.New().String()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(missing): ошибка %v, ожидалась ErrNotFound", err)
	}
}

func TestBatchListVisibility(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewBatchRepository(pool)

	classID := uuid.New().String()
	mk := func(sharerID string, viewers []string) *model.Batch {
		b := &model.Batch{
			ID:              uuid.New().String(),
			DocumentClassID: classID,
			SharerID:        sharerID,
			ViewerIDs:       viewers,
			Metadata:        schema.MetadataRecord{},
		}
		if err := repo.Create(ctx, b); err != nil {
			t.Fatalf("Create() ошибка: %v", err)
		}
		return b
	}

	own := mk("u-alice", nil)
	shared := mk("u-bob", []string{"u-alice"})
	mk("u-bob", []string{"u-carol"}) // невидимая для alice

	got, err := repo.List(ctx, BatchQuery{DocumentClassID: classID, UserID: "u-alice", Limit: 100})
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("видимых подборок %d, ожидалось 2", len(got))
	}
	seen := map[string]bool{}
	for _, b := range got {
		seen[b.ID] = true
	}
	if !seen[own.ID] || !seen[shared.ID] {
		t.Errorf("видимость: свои и адресованные подборки должны попадать в выборку")
	}

	// Без ограничения видимости — все подборки класса
	all, err := repo.List(ctx, BatchQuery{DocumentClassID: classID, Limit: 100})
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("всего подборок %d, ожидалось 3", len(all))
	}
}

func TestBatchListCreatedRange(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewBatchRepository(pool)

	classID := uuid.New().String()
	b := &model.Batch{
		ID:              uuid.New().String(),
		DocumentClassID: classID,
		SharerID:        "u-1",
		Metadata:        schema.MetadataRecord{},
	}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	past := b.CreatedAt.Add(-time.Hour)
	future := b.CreatedAt.Add(time.Hour)

	got, err := repo.List(ctx, BatchQuery{DocumentClassID: classID, CreatedFrom: &past, CreatedTo: &future})
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("в диапазоне %d подборок, ожидалась 1", len(got))
	}

	got, err = repo.List(ctx, BatchQuery{DocumentClassID: classID, CreatedFrom: &future})
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("вне диапазона %d подборок, ожидалось 0", len(got))
	}
}

func TestBatchDelete(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewBatchRepository(pool)

	b := &model.Batch{
		ID:              uuid.New().String(),
		DocumentClassID: uuid.New().String(),
		SharerID:        "u-1",
		Metadata:        schema.MetadataRecord{},
	}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	if err := repo.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("после Delete ожидалась ErrNotFound, получено %v", err)
	}
	if err := repo.Delete(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete: ошибка %v, ожидалась ErrNotFound", err)
	}
}
