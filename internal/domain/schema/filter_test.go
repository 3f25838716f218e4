package schema

import (
	"testing"
)

// TestMatches_BooleanStorageVariance — сценарий: запись {attivo: "1"},
// фильтр {attivo: ["true"]} → совпадение. Вариативность формата хранения
// не даёт ложноотрицательных результатов.
func TestMatches_BooleanStorageVariance(t *testing.T) {
	f := FieldDescriptor{Name: "attivo", Type: TypeBoolean}
	fv := FilterValue{Selected: []string{"true"}}

	for _, raw := range []any{"1", true, float64(1)} {
		if !Matches(f, fv, raw) {
			t.Errorf("Matches(%v) = false, ожидался true", raw)
		}
	}
	for _, raw := range []any{"0", false, float64(0), nil} {
		if Matches(f, fv, raw) {
			t.Errorf("Matches(%v) = true, ожидался false", raw)
		}
	}
}

// TestMatches_NullSentinel — sentinel "null" принимает отсутствующие
// и неразрешимые значения.
func TestMatches_NullSentinel(t *testing.T) {
	f := FieldDescriptor{Name: "attivo", Type: TypeBoolean}
	fv := FilterValue{Selected: []string{NullSentinel}}

	if !Matches(f, fv, nil) {
		t.Error("nil не совпал с sentinel null")
	}
	if !Matches(f, fv, "") {
		t.Error("пустая строка не совпала с sentinel null")
	}
	if !Matches(f, fv, "мусор") {
		t.Error("unresolved значение не совпало с sentinel null")
	}
	if Matches(f, fv, true) {
		t.Error("true совпал с sentinel null")
	}
}

// TestMatches_EmptyFilterIsNoop — пустой фильтр пропускает всё,
// включая пустые значения (отсутствие намерения ≠ фильтр по пустоте).
func TestMatches_EmptyFilterIsNoop(t *testing.T) {
	fields := []FieldDescriptor{
		{Name: "titolo", Type: TypeString},
		{Name: "attivo", Type: TypeBoolean},
	}
	for _, f := range fields {
		if !Matches(f, FilterValue{}, nil) {
			t.Errorf("поле %s: пустой фильтр отбросил запись", f.Name)
		}
		if !Matches(f, FilterValue{}, "qualcosa") {
			t.Errorf("поле %s: пустой фильтр отбросил непустое значение", f.Name)
		}
	}
}

// TestMatches_StringSubstring — регистронезависимое вхождение.
func TestMatches_StringSubstring(t *testing.T) {
	f := FieldDescriptor{Name: "titolo", Type: TypeString}

	if !Matches(f, FilterValue{Text: "FATT"}, "Fattura 42") {
		t.Error("подстрока в другом регистре не совпала")
	}
	if Matches(f, FilterValue{Text: "nota"}, "Fattura 42") {
		t.Error("посторонняя подстрока совпала")
	}
	if Matches(f, FilterValue{Text: "x"}, nil) {
		t.Error("пустое значение совпало с непустым фильтром")
	}
}

// TestMatches_Numeric — точное совпадение разобранных значений.
func TestMatches_Numeric(t *testing.T) {
	intField := FieldDescriptor{Name: "quantita", Type: TypeInteger}
	decField := FieldDescriptor{Name: "importo", Type: TypeDecimal}

	if !Matches(intField, FilterValue{Text: "42"}, float64(42)) {
		t.Error("целое 42 не совпало с фильтром \"42\"")
	}
	if Matches(intField, FilterValue{Text: "42"}, float64(421)) {
		t.Error("421 совпал с фильтром \"42\"")
	}
	if !Matches(decField, FilterValue{Text: "1234,56"}, 1234.56) {
		t.Error("decimal с запятой в фильтре не совпал")
	}
}

// TestMatches_DateDayOnly — сценарий: фильтр-день 2024-01-15 совпадает
// с date-значением "2024-01-15T22:10:00Z" (сравнение по календарному дню).
func TestMatches_DateDayOnly(t *testing.T) {
	f := FieldDescriptor{Name: "data", Type: TypeDate}
	fv := FilterValue{Text: "2024-01-15"}

	if !Matches(f, fv, "2024-01-15T22:10:00Z") {
		t.Error("date: значение того же дня не совпало")
	}
	if Matches(f, fv, "2024-01-16T00:00:00Z") {
		t.Error("date: значение следующего дня совпало")
	}
}

// TestMatches_DatetimeDayWindow — для datetime момент должен попасть
// в выбранные сутки целиком.
func TestMatches_DatetimeDayWindow(t *testing.T) {
	f := FieldDescriptor{Name: "creato", Type: TypeDatetime}
	fv := FilterValue{Text: "2024-01-15"}

	if !Matches(f, fv, "2024-01-15T22:10:00Z") {
		t.Error("datetime внутри суток не совпал")
	}
	if Matches(f, fv, "2024-01-16T00:00:01Z") {
		t.Error("datetime за пределами суток совпал")
	}
	if Matches(f, fv, "2024-01-14T23:59:59Z") {
		t.Error("datetime предыдущих суток совпал")
	}
}

// TestMatches_EnumSet — multi-select по значениям enum.
func TestMatches_EnumSet(t *testing.T) {
	f := FieldDescriptor{Name: "categoria", Type: TypeEnum,
		Options: []Option{{Value: "a", Label: "Alpha"}, {Value: "b", Label: "Beta"}}}

	fv := FilterValue{Selected: []string{"a", "b"}}
	if !Matches(f, fv, "a") || !Matches(f, fv, "b") {
		t.Error("значение из принятого набора не совпало")
	}

	fv = FilterValue{Selected: []string{"a"}}
	if Matches(f, fv, "b") {
		t.Error("значение вне принятого набора совпало")
	}
	// Устаревшее значение вне options — unresolved, ловится только sentinel
	if Matches(f, fv, "z") {
		t.Error("устаревшее значение совпало с обычным фильтром")
	}
	if !Matches(f, FilterValue{Selected: []string{NullSentinel}}, "z") {
		t.Error("устаревшее значение не совпало с sentinel null")
	}
}

// TestApply_LogicalAndAndIdempotence — И по активным фильтрам;
// повторное применение не меняет результат.
func TestApply_LogicalAndAndIdempotence(t *testing.T) {
	fields := []FieldDescriptor{
		{Name: "titolo", Type: TypeString},
		{Name: "attivo", Type: TypeBoolean},
	}
	records := []MetadataRecord{
		{"titolo": "Fattura gennaio", "attivo": "1"},
		{"titolo": "Fattura febbraio", "attivo": "0"},
		{"titolo": "Nota spese", "attivo": true},
	}
	filters := map[string]FilterValue{
		"titolo": {Text: "fattura"},
		"attivo": {Selected: []string{"true"}},
	}

	got := Apply(fields, filters, records)
	if len(got) != 1 {
		t.Fatalf("записей = %d, ожидалась 1", len(got))
	}
	if got[0]["titolo"] != "Fattura gennaio" {
		t.Errorf("запись = %v", got[0])
	}

	// Идемпотентность
	again := Apply(fields, filters, got)
	if len(again) != len(got) {
		t.Errorf("повторное применение изменило результат: %d != %d", len(again), len(got))
	}
}

// TestApply_InactiveFilters — запись без активных фильтров возвращается как есть.
func TestApply_InactiveFilters(t *testing.T) {
	fields := []FieldDescriptor{{Name: "titolo", Type: TypeString}}
	records := []MetadataRecord{{"titolo": "uno"}, {}}

	got := Apply(fields, map[string]FilterValue{"titolo": {}}, records)
	if len(got) != 2 {
		t.Errorf("записей = %d, ожидались 2", len(got))
	}
}
