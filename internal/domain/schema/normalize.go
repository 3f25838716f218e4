// normalize.go — нормализация сырых значений метаданных к каноническому
// in-memory представлению по типу поля.
//
// Хранилище метаданных бесхитростное (schema-less JSON), поэтому одно и то
// же логическое значение приходит в разных формах: true / 1 / "1" для
// boolean, число или строка для numeric. Нормализация — единственная точка,
// где эта вариативность гасится; валидатор, фильтр и форматтер работают
// уже с каноническими значениями.
//
// Канонические представления:
//
//	string   → string (trimmed)
//	boolean  → bool; неразрешимое значение — nil (unresolved, НЕ false)
//	integer  → int64
//	decimal  → float64
//	date     → time.Time (полночь UTC)
//	datetime → time.Time (UTC)
//	enum     → string (одно из options[].value)
//
// Пустое значение (nil, "", пробелы) нормализуется в (nil, nil).
// Непустое, но непригодное для типа — в (nil, ошибка): валидатор
// отличает «обязательное отсутствует» от «значение не того типа».
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// errMismatch — значение присутствует, но не парсится для своего типа.
var errMismatch = errors.New("значение не соответствует типу поля")

// isEmpty — пустое значение: nil либо строка из пробелов.
func isEmpty(raw any) bool {
	if raw == nil {
		return true
	}
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// normalizeString — identity с trim. Нестроковые формы — mismatch.
func normalizeString(_ FieldDescriptor, raw any) (any, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: ожидалась строка, получено %T", errMismatch, raw)
	}
	return strings.TrimSpace(s), nil
}

// normalizeBoolean — {true,1,"1","true"} → true, {false,0,"0","false"} → false,
// прочее — unresolved. Unresolved отличается от false: форматтер покажет
// явный бейдж «неизвестно», а не «нет».
func normalizeBoolean(_ FieldDescriptor, raw any) (any, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case float64:
		// JSON-числа декодируются в float64
		if v == 1 {
			return true, nil
		}
		if v == 0 {
			return false, nil
		}
	case int:
		if v == 1 {
			return true, nil
		}
		if v == 0 {
			return false, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		}
	}
	return nil, fmt.Errorf("%w: %v не разрешается в boolean", errMismatch, raw)
}

// normalizeInteger — целое из числовых и строковых форм.
// Строка парсится с учётом локального ввода (пробелы-разделители групп).
func normalizeInteger(_ FieldDescriptor, raw any) (any, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return nil, fmt.Errorf("%w: %v не целое", errMismatch, v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(stripGroupSeparators(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q не целое", errMismatch, v)
		}
		return n, nil
	}
	return nil, fmt.Errorf("%w: ожидалось целое, получено %T", errMismatch, raw)
}

// normalizeDecimal — число с дробной частью.
// Строковый ввод допускает запятую как десятичный разделитель
// (локальный формат), если точка не используется.
func normalizeDecimal(_ FieldDescriptor, raw any) (any, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		s := stripGroupSeparators(v)
		if !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q не число", errMismatch, v)
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w: ожидалось число, получено %T", errMismatch, raw)
}

// dateLayouts — допустимые формы значения date/datetime в хранилище.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime пробует разобрать строку всеми известными layout.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeDate — календарная дата без времени.
// Временная составляющая сохранённого значения отбрасывается.
func normalizeDate(_ FieldDescriptor, raw any) (any, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	switch v := raw.(type) {
	case time.Time:
		return truncateToDay(v), nil
	case string:
		t, ok := parseTime(v)
		if !ok {
			return nil, fmt.Errorf("%w: %q не дата", errMismatch, v)
		}
		return truncateToDay(t), nil
	}
	return nil, fmt.Errorf("%w: ожидалась дата, получено %T", errMismatch, raw)
}

// normalizeDatetime — момент времени, приводится к UTC.
func normalizeDatetime(_ FieldDescriptor, raw any) (any, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		t, ok := parseTime(v)
		if !ok {
			return nil, fmt.Errorf("%w: %q не момент времени", errMismatch, v)
		}
		return t.UTC(), nil
	}
	return nil, fmt.Errorf("%w: ожидался момент времени, получено %T", errMismatch, raw)
}

// normalizeEnum — значение должно совпасть с одним из options[].value.
func normalizeEnum(f FieldDescriptor, raw any) (any, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: ожидалась строка enum, получено %T", errMismatch, raw)
	}
	s = strings.TrimSpace(s)
	if !f.hasOption(s) {
		return nil, fmt.Errorf("%w: %q не входит в варианты поля %q", errMismatch, s, f.Name)
	}
	return s, nil
}

// truncateToDay отбрасывает время, оставляя полночь UTC календарного дня.
func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// stripGroupSeparators убирает пробельные разделители групп разрядов
// из числового ввода ("1 234 567" → "1234567").
func stripGroupSeparators(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}
