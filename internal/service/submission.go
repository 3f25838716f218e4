// submission.go — сессии публикации подборок (серверный wizard).
//
// Сессия держит immutable snapshot набора полей класса на момент
// старта: фоновое обновление каталога не меняет форму под руками
// публикатора. Расхождение снимка с актуальной схемой обнаруживается
// при Submit повторной валидацией против свежего снимка каталога.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bigkaa/docshare/sharing-module/internal/domain/model"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/schema"
)

// EditSession — состояние незавершённой публикации одного пользователя.
type EditSession struct {
	// ID — UUID сессии
	ID string
	// UserID — владелец сессии (sub из JWT)
	UserID string
	// UserName — отображаемое имя владельца (кэшируется в подборку)
	UserName string
	// ClassID — выбранный класс документов
	ClassID string
	// Fields — снимок набора полей на момент выбора класса
	Fields []schema.FieldDescriptor
	// Values — введённые значения в сыром виде (имя поля → значение)
	Values schema.MetadataRecord
	// Files — файлы, уже загруженные на Storage Element
	Files []model.BatchFile
	// CreatedAt — время старта сессии
	CreatedAt time.Time

	// mu защищает ClassID, Fields, Values и Files: параллельные запросы
	// к одной сессии не исключены, защита от гонок — ответственность сессии
	mu sync.Mutex
}

// SessionState — согласованный снимок мутируемого состояния сессии.
// Values и Files — копии: потребитель читает их без блокировки,
// не рискуя гонкой с параллельным запросом к той же сессии.
type SessionState struct {
	ID        string
	ClassID   string
	Fields    []schema.FieldDescriptor
	Values    schema.MetadataRecord
	Files     []model.BatchFile
	CreatedAt time.Time
}

// State возвращает снимок состояния сессии под блокировкой.
func (sess *EditSession) State() SessionState {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	values := make(schema.MetadataRecord, len(sess.Values))
	for k, v := range sess.Values {
		values[k] = v
	}
	files := make([]model.BatchFile, len(sess.Files))
	copy(files, sess.Files)

	return SessionState{
		ID:        sess.ID,
		ClassID:   sess.ClassID,
		Fields:    sess.Fields,
		Values:    values,
		Files:     files,
		CreatedAt: sess.CreatedAt,
	}
}

// FileUploader — загрузка файлов на Storage Element.
// Реализуется storeclient.Client.
type FileUploader interface {
	Upload(ctx context.Context, filename, contentType string, content io.Reader) (*model.BatchFile, error)
}

// BatchCreator — сохранение опубликованной подборки.
// Реализуется repository.BatchRepository.
type BatchCreator interface {
	Create(ctx context.Context, b *model.Batch) error
}

// SubmissionService — управление сессиями публикации.
type SubmissionService struct {
	catalog  *CatalogService
	uploader FileUploader
	batches  BatchCreator
	sessions *lru.LRU[string, *EditSession]
	logger   *slog.Logger
}

// NewSubmissionService создаёт сервис публикации.
// maxSessions ограничивает количество одновременных сессий (LRU-вытеснение),
// ttl — время жизни бездействующей сессии.
func NewSubmissionService(
	catalog *CatalogService,
	uploader FileUploader,
	batches BatchCreator,
	maxSessions int,
	ttl time.Duration,
	logger *slog.Logger,
) *SubmissionService {
	return &SubmissionService{
		catalog:  catalog,
		uploader: uploader,
		batches:  batches,
		sessions: lru.NewLRU[string, *EditSession](maxSessions, nil, ttl),
		logger:   logger.With(slog.String("component", "submission_service")),
	}
}

// StartSession открывает сессию публикации по выбранному классу.
// Пользователь должен входить в публикаторы класса.
func (s *SubmissionService) StartSession(userID, userName, classID string) (*EditSession, error) {
	dc, err := s.catalog.Class(classID)
	if err != nil {
		return nil, err
	}
	if !classAllowsSharer(dc, userID) {
		return nil, fmt.Errorf("класс %s, пользователь %s: %w", classID, userID, ErrNotClassSharer)
	}

	sess := &EditSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		UserName:  userName,
		ClassID:   dc.ID,
		Fields:    schema.CloneFields(dc.Fields),
		Values:    schema.MetadataRecord{},
		CreatedAt: time.Now(),
	}
	s.sessions.Add(sess.ID, sess)

	s.logger.Info("сессия публикации открыта",
		slog.String("session_id", sess.ID),
		slog.String("class_id", classID),
		slog.String("user_id", userID),
	)

	return sess, nil
}

// Session возвращает сессию по ID с проверкой владельца.
func (s *SubmissionService) Session(sessionID, userID string) (*EditSession, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("сессия %s: %w", sessionID, ErrSessionNotFound)
	}
	if sess.UserID != userID {
		return nil, fmt.Errorf("сессия %s: %w", sessionID, ErrSessionOwner)
	}
	return sess, nil
}

// SwitchClass меняет класс документов в открытой сессии.
// Введённые значения сбрасываются полностью: старые имена полей
// не переносятся на новую схему, даже совпадающие. Загруженные файлы
// сохраняются — они не привязаны к схеме.
func (s *SubmissionService) SwitchClass(sessionID, userID, classID string) (*EditSession, error) {
	sess, err := s.Session(sessionID, userID)
	if err != nil {
		return nil, err
	}

	dc, err := s.catalog.Class(classID)
	if err != nil {
		return nil, err
	}
	if !classAllowsSharer(dc, userID) {
		return nil, fmt.Errorf("класс %s, пользователь %s: %w", classID, userID, ErrNotClassSharer)
	}

	sess.mu.Lock()
	sess.ClassID = dc.ID
	sess.Fields = schema.CloneFields(dc.Fields)
	sess.Values = schema.MetadataRecord{}
	sess.mu.Unlock()

	s.logger.Info("сессия переключена на другой класс",
		slog.String("session_id", sessionID),
		slog.String("class_id", classID),
	)

	return sess, nil
}

// UpdateMetadata вливает введённые значения в сессию и возвращает
// текущий результат валидации. Невалидные значения сохраняются как
// есть: валидация подсказывает, но не мешает вводу — жёсткая проверка
// происходит при Submit.
func (s *SubmissionService) UpdateMetadata(sessionID, userID string, values schema.MetadataRecord) (schema.Result, error) {
	sess, err := s.Session(sessionID, userID)
	if err != nil {
		return schema.Result{}, err
	}

	// Валидация идёт по копии: параллельный запрос к той же сессии
	// может писать в Values, пока Validate итерирует запись
	sess.mu.Lock()
	for name, v := range values {
		sess.Values[name] = v
	}
	record := make(schema.MetadataRecord, len(sess.Values))
	for k, v := range sess.Values {
		record[k] = v
	}
	fields := sess.Fields
	sess.mu.Unlock()

	return schema.Validate(fields, record), nil
}

// AttachFile загружает файл на Storage Element и прикрепляет его к сессии.
func (s *SubmissionService) AttachFile(ctx context.Context, sessionID, userID, filename, contentType string, content io.Reader) (*model.BatchFile, error) {
	sess, err := s.Session(sessionID, userID)
	if err != nil {
		return nil, err
	}

	bf, err := s.uploader.Upload(ctx, filename, contentType, content)
	if err != nil {
		return nil, fmt.Errorf("загрузка файла %q: %w", filename, err)
	}

	sess.mu.Lock()
	sess.Files = append(sess.Files, *bf)
	sess.mu.Unlock()

	return bf, nil
}

// Submit публикует подборку: валидирует метаданные против снимка
// сессии, канонизирует значения и сохраняет Batch. Успешный Submit
// закрывает сессию.
func (s *SubmissionService) Submit(ctx context.Context, sessionID, userID string, viewerIDs []string) (*model.Batch, error) {
	sess, err := s.Session(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if len(viewerIDs) == 0 {
		return nil, ErrNoViewers
	}

	st := sess.State()

	canonical, res := schema.Canonicalize(st.Fields, st.Values)
	if !res.Valid() {
		return nil, &ValidationError{Result: res}
	}

	batch := &model.Batch{
		ID:              uuid.New().String(),
		DocumentClassID: st.ClassID,
		SharerID:        sess.UserID,
		SharerName:      sess.UserName,
		ViewerIDs:       dedupe(viewerIDs),
		Metadata:        canonical,
		Files:           st.Files,
	}

	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("публикация подборки: %w", err)
	}

	s.sessions.Remove(sessionID)

	s.logger.Info("подборка опубликована",
		slog.String("batch_id", batch.ID),
		slog.String("class_id", batch.DocumentClassID),
		slog.String("sharer_id", batch.SharerID),
		slog.Int("viewers", len(batch.ViewerIDs)),
		slog.Int("files", len(batch.Files)),
	)

	return batch, nil
}

// Discard закрывает сессию без публикации.
func (s *SubmissionService) Discard(sessionID, userID string) error {
	if _, err := s.Session(sessionID, userID); err != nil {
		return err
	}
	s.sessions.Remove(sessionID)
	return nil
}

// classAllowsSharer — пользователь входит в публикаторы класса.
// Пустой список публикаторов означает «все пользователи с ролью sharer».
func classAllowsSharer(dc *model.DocumentClass, userID string) bool {
	if len(dc.Sharers) == 0 {
		return true
	}
	for _, sh := range dc.Sharers {
		if sh.ID == userID {
			return true
		}
	}
	return false
}

// dedupe убирает дубликаты, сохраняя порядок.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
