// validate.go — валидация записи метаданных против набора дескрипторов.
package schema

// MetadataRecord — значения полей класса документов: имя поля → сырое
// значение (string | число | bool | nil — как пришло из JSON).
// Движок владеет только формой и валидностью записи, не её хранением.
type MetadataRecord map[string]any

// Reason — машиночитаемая причина невалидности поля.
type Reason string

const (
	// ReasonRequiredMissing — обязательное поле пусто или отсутствует.
	ReasonRequiredMissing Reason = "required_missing"
	// ReasonTypeMismatch — значение присутствует, но не парсится
	// для объявленного типа поля.
	ReasonTypeMismatch Reason = "type_mismatch"
)

// Result — результат валидации записи.
// Пустая карта Fields означает Valid.
type Result struct {
	// Fields — имя невалидного поля → причина
	Fields map[string]Reason
}

// Valid — запись прошла валидацию по всем полям.
func (r Result) Valid() bool {
	return len(r.Fields) == 0
}

// Validate проверяет запись против набора дескрипторов.
//
// Для каждого дескриптора: поле, отсутствующее в записи, трактуется как
// пустое значение; пустое необязательное поле валидно; обязательное
// пустое — ReasonRequiredMissing; непустое непарсимое — ReasonTypeMismatch.
// Ошибки валидации всегда гасятся локально и отдаются как пофилдовые
// причины, никогда не паника и не error во время обычного ввода формы.
func Validate(fields []FieldDescriptor, record MetadataRecord) Result {
	_, res := Canonicalize(fields, record)
	return res
}

// Canonicalize валидирует запись и возвращает её каноническую форму:
// имя поля → нормализованное значение (string | bool | int64 | float64 |
// time.Time). Пустые поля и ключи, не описанные дескрипторами,
// в каноническую запись не попадают. Результат валидации тот же,
// что у Validate; при невалидной записи каноническая форма содержит
// только прошедшие поля.
func Canonicalize(fields []FieldDescriptor, record MetadataRecord) (MetadataRecord, Result) {
	res := Result{Fields: map[string]Reason{}}
	canonical := MetadataRecord{}

	for _, f := range fields {
		b, err := BehaviorFor(f.Type)
		if err != nil {
			// Дескриптор с неизвестным типом отбрасывается на ингесте;
			// сюда он попасть не должен. Значение непроверяемо.
			res.Fields[f.Name] = ReasonTypeMismatch
			continue
		}

		raw := record[f.Name]
		norm, err := b.Normalize(f, raw)
		switch {
		case err != nil:
			res.Fields[f.Name] = ReasonTypeMismatch
		case norm == nil && f.Required:
			res.Fields[f.Name] = ReasonRequiredMissing
		case norm != nil:
			canonical[f.Name] = norm
		}
	}

	return canonical, res
}
