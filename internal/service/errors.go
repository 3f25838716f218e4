// Пакет service — бизнес-логика Sharing Module: каталог классов
// документов, сессии публикации, просмотр подборок.
package service

import (
	"errors"
	"fmt"

	"github.com/bigkaa/docshare/sharing-module/internal/domain/schema"
)

// Ошибки сервисного слоя.
var (
	// ErrClassNotFound — класс документов отсутствует в каталоге.
	ErrClassNotFound = errors.New("класс документов не найден")
	// ErrSessionNotFound — сессия публикации не существует или истекла.
	ErrSessionNotFound = errors.New("сессия публикации не найдена или истекла")
	// ErrSessionOwner — сессия принадлежит другому пользователю.
	ErrSessionOwner = errors.New("сессия принадлежит другому пользователю")
	// ErrNotClassSharer — пользователь не входит в публикаторы класса.
	ErrNotClassSharer = errors.New("пользователь не допущен к публикации по этому классу")
	// ErrBatchNotFound — подборка не найдена или недоступна пользователю.
	ErrBatchNotFound = errors.New("подборка не найдена")
	// ErrCatalogEmpty — каталог классов ещё не загружен из Admin Module.
	ErrCatalogEmpty = errors.New("каталог классов документов ещё не загружен")
	// ErrNoViewers — подборку некому адресовать.
	ErrNoViewers = errors.New("не указан ни один получатель подборки")
)

// ValidationError — запись метаданных не прошла валидацию при публикации.
// Несёт пофилдовые причины для ответа API.
type ValidationError struct {
	Result schema.Result
}

// Error реализует error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("метаданные не прошли валидацию: %d невалидных полей", len(e.Result.Fields))
}
