// Пакет model — доменные модели Sharing Module.
package model

import (
	"time"

	"github.com/bigkaa/docshare/sharing-module/internal/domain/schema"
)

// DocumentClass — административно определённая схема класса документов.
// Не хранится локально — владелец персистентности Admin Module;
// Sharing Module держит нормализованный in-memory снимок каталога.
type DocumentClass struct {
	// ID — UUID класса
	ID string
	// Name — имя класса
	Name string
	// Description — описание класса
	Description string
	// Fields — упорядоченный набор дескрипторов полей
	Fields []schema.FieldDescriptor
	// Sharers — пользователи, допущенные к публикации по этому классу
	Sharers []Sharer
	// CreatedAt — время создания в Admin Module
	CreatedAt time.Time
	// UpdatedAt — время последнего изменения
	UpdatedAt time.Time
}

// Sharer — пользователь-публикатор, авторизованный для класса документов.
type Sharer struct {
	// ID — идентификатор пользователя в IdP (sub)
	ID string
	// Username — имя пользователя
	Username string
	// DisplayName — отображаемое имя
	DisplayName string
	// Email — адрес электронной почты
	Email string
}

// Clone возвращает глубокую копию класса.
// Снимок каталога, выданный потребителю, не должен мутироваться
// фоновым обновлением.
func (dc *DocumentClass) Clone() *DocumentClass {
	if dc == nil {
		return nil
	}
	cloned := *dc
	cloned.Fields = schema.CloneFields(dc.Fields)
	if dc.Sharers != nil {
		cloned.Sharers = make([]Sharer, len(dc.Sharers))
		copy(cloned.Sharers, dc.Sharers)
	}
	return &cloned
}
