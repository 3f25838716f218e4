package model

import (
	"time"

	"github.com/bigkaa/docshare/sharing-module/internal/domain/schema"
)

// Batch — подборка документов, опубликованная одной операцией:
// одна запись метаданных, один набор получателей-viewer'ов.
// Хранится в таблице batches.
type Batch struct {
	// ID — UUID подборки
	ID string
	// DocumentClassID — UUID класса документов, по схеме которого
	// заполнены метаданные
	DocumentClassID string
	// SharerID — идентификатор опубликовавшего (sub из IdP)
	SharerID string
	// SharerName — отображаемое имя опубликовавшего (кэшируется
	// для глобального текстового поиска)
	SharerName string
	// ViewerIDs — получатели подборки
	ViewerIDs []string
	// Metadata — значения полей класса (schema-less JSON в хранилище)
	Metadata schema.MetadataRecord
	// Files — файлы подборки, загруженные на Storage Element
	Files []BatchFile
	// CreatedAt — время публикации
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления записи
	UpdatedAt time.Time
}

// BatchFile — ссылка на файл подборки в удалённом хранилище.
type BatchFile struct {
	// FileID — UUID файла на Storage Element
	FileID string `json:"file_id"`
	// OriginalFilename — оригинальное имя файла
	OriginalFilename string `json:"original_filename"`
	// ContentType — MIME-тип
	ContentType string `json:"content_type"`
	// Size — размер в байтах
	Size int64 `json:"size"`
	// Checksum — SHA-256 контрольная сумма
	Checksum string `json:"checksum"`
}
