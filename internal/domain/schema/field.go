// field.go — дескриптор поля класса документов.
package schema

import (
	"fmt"
	"sort"
)

// Option — один вариант значения enum-поля.
type Option struct {
	// Value — хранимое значение
	Value string
	// Label — подпись для отображения
	Label string
}

// FieldDescriptor — описание одного поля класса документов.
// Value object: после конструирования не изменяется.
type FieldDescriptor struct {
	// Name — уникальный машинный ключ внутри класса (snake_case)
	Name string
	// Label — человекочитаемая подпись
	Label string
	// Type — тип данных из закрытого множества
	Type DataType
	// Required — обязательность; проверяется только при валидации,
	// никогда не мутирует сохранённые данные
	Required bool
	// PrimaryKey — признак первичного ключа; уникальность внутри
	// класса движок не навязывает (ответственность вызывающего)
	PrimaryKey bool
	// SortOrder — порядок отображения и ввода; не обязан быть сплошным
	SortOrder int
	// Options — упорядоченный список вариантов; только для Type = enum
	Options []Option
}

// NewFieldDescriptor конструирует дескриптор с проверкой инвариантов:
// непустое имя, распознанный тип, непустые options для enum.
func NewFieldDescriptor(
	name, label, dataType string,
	required, primaryKey bool,
	sortOrder int,
	options []Option,
) (FieldDescriptor, error) {
	if name == "" {
		return FieldDescriptor{}, ErrEmptyName
	}

	t, err := ParseDataType(dataType)
	if err != nil {
		return FieldDescriptor{}, fmt.Errorf("поле %q: %w", name, err)
	}

	if t == TypeEnum && len(options) == 0 {
		return FieldDescriptor{}, fmt.Errorf("поле %q: %w", name, ErrNoOptions)
	}
	if t != TypeEnum {
		// Инвариант: options присутствуют только у enum
		options = nil
	}

	return FieldDescriptor{
		Name:       name,
		Label:      label,
		Type:       t,
		Required:   required,
		PrimaryKey: primaryKey,
		SortOrder:  sortOrder,
		Options:    options,
	}, nil
}

// optionLabel возвращает подпись варианта по хранимому значению.
func (f FieldDescriptor) optionLabel(value string) (string, bool) {
	for _, o := range f.Options {
		if o.Value == value {
			return o.Label, true
		}
	}
	return "", false
}

// hasOption проверяет, что значение входит в options.
func (f FieldDescriptor) hasOption(value string) bool {
	_, ok := f.optionLabel(value)
	return ok
}

// OrderFields возвращает отсортированную копию среза дескрипторов:
// по SortOrder, при равенстве — по Name (детерминированный полный порядок).
func OrderFields(fields []FieldDescriptor) []FieldDescriptor {
	ordered := CloneFields(fields)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}
		return ordered[i].Name < ordered[j].Name
	})
	return ordered
}

// CloneFields возвращает глубокую копию среза дескрипторов.
// Используется для immutable snapshot набора полей на время сессии
// редактирования: фоновое обновление каталога не должна видеть
// активная валидация.
func CloneFields(fields []FieldDescriptor) []FieldDescriptor {
	if fields == nil {
		return nil
	}
	cloned := make([]FieldDescriptor, len(fields))
	for i, f := range fields {
		cloned[i] = f
		if f.Options != nil {
			cloned[i].Options = make([]Option, len(f.Options))
			copy(cloned[i].Options, f.Options)
		}
	}
	return cloned
}
