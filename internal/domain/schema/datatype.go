// Пакет schema — движок типизированных схем классов документов.
//
// Runtime-описание полей класса документов (тип данных, обязательность,
// варианты enum, порядок) управляет единообразно:
//   - выбором элемента ввода (InputKind),
//   - валидацией и нормализацией значений (Validate),
//   - выбором фильтра и вычислением предикатов (Matches, Apply),
//   - человекочитаемым отображением сохранённых значений (Formatter).
//
// Набор типов данных закрыт. Поведение каждого типа регистрируется
// один раз в таблице диспетчеризации (registry.go) — единый источник
// истины для формы, фильтра, форматтера и валидатора.
package schema

import "fmt"

// DataType — тег типа данных поля. Закрытое множество.
type DataType string

const (
	// TypeString — свободный текст.
	TypeString DataType = "string"
	// TypeBoolean — логическое значение (чекбокс, tri-state фильтр).
	TypeBoolean DataType = "boolean"
	// TypeInteger — целое число.
	TypeInteger DataType = "integer"
	// TypeDecimal — число с дробной частью.
	TypeDecimal DataType = "decimal"
	// TypeDate — календарная дата без времени.
	TypeDate DataType = "date"
	// TypeDatetime — момент времени (дата + время).
	TypeDatetime DataType = "datetime"
	// TypeEnum — выбор одного значения из options.
	TypeEnum DataType = "enum"
)

// ParseDataType преобразует wire-строку в DataType.
// Нераспознанный тег — фатальная ошибка ингеста схемы (ErrUnknownDataType),
// никогда не fallback к string.
func ParseDataType(s string) (DataType, error) {
	switch DataType(s) {
	case TypeString, TypeBoolean, TypeInteger, TypeDecimal,
		TypeDate, TypeDatetime, TypeEnum:
		return DataType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDataType, s)
	}
}

// InputKind — вид элемента ввода, монтируемого для поля.
type InputKind string

const (
	// InputText — текстовое поле.
	InputText InputKind = "text"
	// InputNumber — числовое текстовое поле.
	InputNumber InputKind = "number"
	// InputCheckbox — чекбокс (tri-state в фильтрах).
	InputCheckbox InputKind = "checkbox"
	// InputDatePicker — выбор даты.
	InputDatePicker InputKind = "date_picker"
	// InputDateTimePicker — выбор даты и времени.
	InputDateTimePicker InputKind = "datetime_picker"
	// InputSelect — одиночный выбор из options.
	InputSelect InputKind = "select"
)
