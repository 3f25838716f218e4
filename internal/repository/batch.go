package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/docshare/sharing-module/internal/domain/model"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/schema"
)

// BatchRepository — репозиторий подборок документов.
type BatchRepository struct {
	db DBTX
}

// NewBatchRepository создаёт репозиторий подборок.
func NewBatchRepository(db DBTX) *BatchRepository {
	return &BatchRepository{db: db}
}

// BatchQuery — параметры выборки подборок из БД.
// Это грубое SQL-сужение: фильтрация по значениям метаданных
// выполняется движком схем in-memory поверх результата.
type BatchQuery struct {
	// DocumentClassID — обязательный: подборки одного класса
	DocumentClassID string
	// UserID — видимость: sharer_id = UserID или UserID в viewer_ids.
	// Пустая строка — без ограничения видимости (сервисный доступ).
	UserID string
	// CreatedFrom, CreatedTo — диапазон времени публикации (опционально)
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	// Limit — предел выборки (защита от неограниченного скана)
	Limit int
}

// Create сохраняет новую подборку.
// Metadata и Files сериализуются в jsonb.
func (r *BatchRepository) Create(ctx context.Context, b *model.Batch) error {
	metadata, err := json.Marshal(b.Metadata)
	if err != nil {
		return fmt.Errorf("сериализация метаданных подборки: %w", err)
	}
	files, err := json.Marshal(b.Files)
	if err != nil {
		return fmt.Errorf("сериализация файлов подборки: %w", err)
	}

	viewerIDs := b.ViewerIDs
	if viewerIDs == nil {
		viewerIDs = []string{}
	}

	query := `
		INSERT INTO batches (id, document_class_id, sharer_id, sharer_name, viewer_ids, metadata, files)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		b.ID, b.DocumentClassID, b.SharerID, b.SharerName, viewerIDs, metadata, files,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("подборка %s: %w", b.ID, ErrConflict)
		}
		return fmt.Errorf("ошибка создания подборки: %w", err)
	}

	return nil
}

// GetByID возвращает подборку по ID.
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*model.Batch, error) {
	query := `
		SELECT id, document_class_id, sharer_id, sharer_name, viewer_ids, metadata, files, created_at, updated_at
		FROM batches
		WHERE id = $1`

	b, err := scanBatch(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("подборка %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка получения подборки: %w", err)
	}

	return b, nil
}

// List возвращает подборки по параметрам запроса.
// WHERE собирается динамически из заданных полей BatchQuery,
// сортировка — по времени публикации (новые первыми).
func (r *BatchRepository) List(ctx context.Context, q BatchQuery) ([]model.Batch, error) {
	query := `
		SELECT id, document_class_id, sharer_id, sharer_name, viewer_ids, metadata, files, created_at, updated_at
		FROM batches
		WHERE document_class_id = $1`
	args := []any{q.DocumentClassID}

	if q.UserID != "" {
		args = append(args, q.UserID)
		query += fmt.Sprintf(" AND (sharer_id = $%d OR $%d = ANY(viewer_ids))", len(args), len(args))
	}
	if q.CreatedFrom != nil {
		args = append(args, *q.CreatedFrom)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if q.CreatedTo != nil {
		args = append(args, *q.CreatedTo)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки подборок: %w", err)
	}
	defer rows.Close()

	var batches []model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения подборки: %w", err)
		}
		batches = append(batches, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации подборок: %w", err)
	}

	return batches, nil
}

// Delete удаляет подборку. Файлы на Storage Element не трогаются —
// их жизненным циклом управляет retention policy хранилища.
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления подборки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("подборка %s: %w", id, ErrNotFound)
	}
	return nil
}

// scanBatch читает одну строку batches.
// jsonb-колонки metadata и files приходят как []byte и десериализуются
// вручную: metadata хранится schema-less и типизируется движком схем
// только при чтении.
func scanBatch(row pgx.Row) (*model.Batch, error) {
	var (
		b            model.Batch
		metadataJSON []byte
		filesJSON    []byte
	)

	err := row.Scan(
		&b.ID,
		&b.DocumentClassID,
		&b.SharerID,
		&b.SharerName,
		&b.ViewerIDs,
		&metadataJSON,
		&filesJSON,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Metadata = schema.MetadataRecord{}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &b.Metadata); err != nil {
			return nil, fmt.Errorf("десериализация метаданных подборки %s: %w", b.ID, err)
		}
	}
	if len(filesJSON) > 0 {
		if err := json.Unmarshal(filesJSON, &b.Files); err != nil {
			return nil, fmt.Errorf("десериализация файлов подборки %s: %w", b.ID, err)
		}
	}

	return &b, nil
}
