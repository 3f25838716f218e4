// filter.go — фильтрация коллекций записей метаданных по полям.
//
// Значение фильтра — либо скаляр (текст для string/числовых/датовых
// полей), либо набор принятых закодированных значений для enum/boolean
// (multi-select, включая синтетический sentinel "null" — «значение
// отсутствует»).
//
// Значение записи перед проверкой принадлежности нормализуется той же
// функцией, что и при валидации: вариативность формата хранения
// (1 / true / "1") никогда не даёт ложноотрицательный результат.
package schema

import (
	"strconv"
	"strings"
	"time"
)

// NullSentinel — синтетическое значение фильтра «значение отсутствует».
const NullSentinel = "null"

// FilterValue — пользовательское значение фильтра одного поля.
type FilterValue struct {
	// Text — скалярный фильтр (string, integer, decimal, date, datetime)
	Text string
	// Selected — набор принятых закодированных значений (enum, boolean);
	// может содержать NullSentinel
	Selected []string
}

// IsEmpty — фильтр не задан. Пустой фильтр — no-op: отсутствие намерения
// не смешивается с фильтром по пустоте.
func (fv FilterValue) IsEmpty() bool {
	return strings.TrimSpace(fv.Text) == "" && len(fv.Selected) == 0
}

// Matches проверяет, проходит ли сырое значение записи фильтр поля.
// Пустой фильтр пропускает любую запись.
func Matches(f FieldDescriptor, fv FilterValue, raw any) bool {
	if fv.IsEmpty() {
		return true
	}
	b, err := BehaviorFor(f.Type)
	if err != nil {
		// Неизвестный тип не проходит ингест; ничего не отфильтровываем.
		return true
	}
	return b.Match(f, fv, raw)
}

// Apply сужает коллекцию записей: логическое И по всем активным фильтрам.
// Фильтры по именам, отсутствующим в наборе полей, игнорируются.
func Apply(fields []FieldDescriptor, filters map[string]FilterValue, records []MetadataRecord) []MetadataRecord {
	active := false
	for _, fv := range filters {
		if !fv.IsEmpty() {
			active = true
			break
		}
	}
	if !active {
		return records
	}

	byName := make(map[string]FieldDescriptor, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}

	var out []MetadataRecord
	for _, rec := range records {
		ok := true
		for name, fv := range filters {
			f, known := byName[name]
			if !known {
				continue
			}
			if !Matches(f, fv, rec[name]) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out
}

// --- Предикаты по типам ---

// matchString — регистронезависимое вхождение подстроки.
func matchString(f FieldDescriptor, fv FilterValue, raw any) bool {
	norm, err := normalizeString(f, raw)
	if err != nil || norm == nil {
		return false
	}
	s, _ := norm.(string)
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(fv.Text)))
}

// matchNumeric — точное совпадение разобранных значений.
// Фильтр парсится тем же Normalize, что и значение записи.
func matchNumeric(f FieldDescriptor, fv FilterValue, raw any) bool {
	b, err := BehaviorFor(f.Type)
	if err != nil {
		return true
	}
	want, err := b.Normalize(f, fv.Text)
	if err != nil || want == nil {
		return false
	}
	got, err := b.Normalize(f, raw)
	if err != nil || got == nil {
		return false
	}
	switch w := want.(type) {
	case int64:
		g, ok := got.(int64)
		return ok && g == w
	case float64:
		g, ok := got.(float64)
		return ok && g == w
	}
	return false
}

// matchSet — принадлежность нормализованного значения набору принятых.
// Sentinel "null" принимает записи, чьё значение отсутствует или
// не разрешается (unresolved boolean, устаревший enum).
func matchSet(f FieldDescriptor, fv FilterValue, raw any) bool {
	b, err := BehaviorFor(f.Type)
	if err != nil {
		return true
	}

	// Нормализованное значение записи; ошибка парсинга = unresolved.
	norm, err := b.Normalize(f, raw)
	if err != nil {
		norm = nil
	}
	key := encodeSetKey(norm)

	for _, sel := range fv.Selected {
		if sel == NullSentinel {
			if key == NullSentinel {
				return true
			}
			continue
		}
		// Принятое значение пропускается через тот же парсер:
		// "1" и "true" в фильтре эквивалентны для boolean.
		selNorm, selErr := b.Normalize(f, sel)
		if selErr != nil || selNorm == nil {
			continue
		}
		if encodeSetKey(selNorm) == key {
			return true
		}
	}
	return false
}

// matchDay — совпадение календарного дня; время записи игнорируется.
func matchDay(f FieldDescriptor, fv FilterValue, raw any) bool {
	day, ok := parseTime(fv.Text)
	if !ok {
		return false
	}
	norm, err := normalizeDate(f, raw)
	if err != nil || norm == nil {
		return false
	}
	t, _ := norm.(time.Time)
	return t.Equal(truncateToDay(day))
}

// matchDayWindow — момент времени записи попадает в выбранные сутки.
func matchDayWindow(f FieldDescriptor, fv FilterValue, raw any) bool {
	day, ok := parseTime(fv.Text)
	if !ok {
		return false
	}
	norm, err := normalizeDatetime(f, raw)
	if err != nil || norm == nil {
		return false
	}
	t, _ := norm.(time.Time)
	start := truncateToDay(day)
	end := start.Add(24 * time.Hour)
	return !t.Before(start) && t.Before(end)
}

// encodeSetKey кодирует нормализованное значение для set-membership.
func encodeSetKey(norm any) string {
	switch v := norm.(type) {
	case nil:
		return NullSentinel
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	default:
		return NullSentinel
	}
}
