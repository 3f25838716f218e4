// registry.go — таблица диспетчеризации поведения по типу данных.
//
// Одна запись на вариант закрытого множества DataType, регистрируется
// один раз при инициализации пакета. Форма, валидатор, фильтр и
// форматтер разрешают поведение через эту таблицу — четыре потребителя,
// один источник истины, расхождение исключено.
package schema

import "fmt"

// Behavior — связка поведения одного типа данных.
type Behavior struct {
	// Input — вид элемента ввода для формы
	Input InputKind
	// Normalize — парсинг сырого значения в каноническое (normalize.go)
	Normalize func(f FieldDescriptor, raw any) (any, error)
	// Match — предикат фильтра над сырым значением (filter.go)
	Match func(f FieldDescriptor, fv FilterValue, raw any) bool
	// Format — отображение сохранённого значения (format.go); тотальная,
	// никогда не паникует
	Format func(fc *FormatContext, f FieldDescriptor, raw any) Renderable
}

// registry — поведение по тегу типа. Заполняется в init, далее read-only.
var registry = map[DataType]Behavior{}

// register добавляет поведение типа в таблицу.
// Повторная или посторонняя регистрация — ошибка программиста,
// обнаруживается при старте процесса.
func register(t DataType, b Behavior) {
	if _, err := ParseDataType(string(t)); err != nil {
		panic(fmt.Sprintf("schema: регистрация неизвестного типа %q", t))
	}
	if _, dup := registry[t]; dup {
		panic(fmt.Sprintf("schema: повторная регистрация типа %q", t))
	}
	registry[t] = b
}

func init() {
	register(TypeString, Behavior{
		Input:     InputText,
		Normalize: normalizeString,
		Match:     matchString,
		Format:    formatString,
	})
	register(TypeBoolean, Behavior{
		Input:     InputCheckbox,
		Normalize: normalizeBoolean,
		Match:     matchSet,
		Format:    formatBoolean,
	})
	register(TypeInteger, Behavior{
		Input:     InputNumber,
		Normalize: normalizeInteger,
		Match:     matchNumeric,
		Format:    formatInteger,
	})
	register(TypeDecimal, Behavior{
		Input:     InputNumber,
		Normalize: normalizeDecimal,
		Match:     matchNumeric,
		Format:    formatDecimal,
	})
	register(TypeDate, Behavior{
		Input:     InputDatePicker,
		Normalize: normalizeDate,
		Match:     matchDay,
		Format:    formatDate,
	})
	register(TypeDatetime, Behavior{
		Input:     InputDateTimePicker,
		Normalize: normalizeDatetime,
		Match:     matchDayWindow,
		Format:    formatDatetime,
	})
	register(TypeEnum, Behavior{
		Input:     InputSelect,
		Normalize: normalizeEnum,
		Match:     matchSet,
		Format:    formatEnum,
	})
}

// BehaviorFor разрешает поведение по тегу типа.
// Тотальная функция над закрытым множеством: для любого валидного тега
// поведение существует; неизвестный тег — ErrUnknownDataType, без
// fallback по умолчанию.
func BehaviorFor(t DataType) (Behavior, error) {
	b, ok := registry[t]
	if !ok {
		return Behavior{}, fmt.Errorf("%w: %q", ErrUnknownDataType, t)
	}
	return b, nil
}

// InputKindFor — селектор вида элемента ввода для поля.
// Часть публичной поверхности движка (выбор виджета слоем композиции).
func InputKindFor(t DataType) (InputKind, error) {
	b, err := BehaviorFor(t)
	if err != nil {
		return "", err
	}
	return b.Input, nil
}
