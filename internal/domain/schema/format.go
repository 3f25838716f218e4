// format.go — отображение сохранённых значений метаданных.
//
// Контракт: Format чистая и тотальная — никогда не паникует и не
// возвращает ошибку, какое бы значение ни лежало в хранилище (nil,
// чужая форма, значение от устаревшей схемы). Хранилище метаданных
// schema-less, схемы эволюционируют: старые записи могут нести значения,
// не совпадающие с текущим типом поля. Любая неожиданная форма
// деградирует до литеральной строки или явного placeholder «—»,
// но не до отказа.
package schema

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// RenderKind — вид представления значения для слоя композиции.
type RenderKind string

const (
	// RenderText — литеральный текст.
	RenderText RenderKind = "text"
	// RenderLink — абсолютный URL, отображается ссылкой.
	RenderLink RenderKind = "link"
	// RenderBadgeYes — boolean true.
	RenderBadgeYes RenderKind = "badge_yes"
	// RenderBadgeNo — boolean false.
	RenderBadgeNo RenderKind = "badge_no"
	// RenderBadgeUnknown — boolean не разрешился; явно отличается от
	// «нет», никогда не показывается как false.
	RenderBadgeUnknown RenderKind = "badge_unknown"
	// RenderEmpty — значение не указано.
	RenderEmpty RenderKind = "empty"
)

// Placeholder — текст для непоказуемых и пустых значений.
const Placeholder = "—"

// Renderable — готовое к отображению представление значения.
type Renderable struct {
	// Kind — вид представления
	Kind RenderKind `json:"kind"`
	// Text — текст представления
	Text string `json:"text"`
	// Href — адрес ссылки (только для RenderLink)
	Href string `json:"href,omitempty"`
}

// FormatContext — локаль и layout'ы дат для форматирования.
// Один настроенный экземпляр на процесс (единственная локаль — см.
// границы системы); передаётся явно, без глобального состояния.
type FormatContext struct {
	printer        *message.Printer
	dateLayout     string
	dateTimeLayout string
}

// Formatter — Display Formatter движка схем.
type Formatter struct {
	fc *FormatContext
}

// NewFormatter создаёт форматтер для указанной локали (BCP 47, например
// "ru" или "it"). Нераспознанная локаль деградирует до und без ошибки.
// dateLayout/dateTimeLayout — Go-layout'ы отображения дат.
func NewFormatter(locale, dateLayout, dateTimeLayout string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	if dateLayout == "" {
		dateLayout = "02.01.2006"
	}
	if dateTimeLayout == "" {
		dateTimeLayout = "02.01.2006 15:04"
	}
	return &Formatter{
		fc: &FormatContext{
			printer:        message.NewPrinter(tag),
			dateLayout:     dateLayout,
			dateTimeLayout: dateTimeLayout,
		},
	}
}

// Format возвращает представление сохранённого значения поля.
// Тотальная: безопасна для любого raw.
func (fm *Formatter) Format(f FieldDescriptor, raw any) Renderable {
	b, err := BehaviorFor(f.Type)
	if err != nil {
		// Дескриптор мимо ингеста: показываем literal, не падаем.
		return literalRenderable(raw)
	}
	return b.Format(fm.fc, f, raw)
}

// literalRenderable — деградация неожиданной формы до строки.
func literalRenderable(raw any) Renderable {
	if isEmpty(raw) {
		return Renderable{Kind: RenderEmpty, Text: Placeholder}
	}
	return Renderable{Kind: RenderText, Text: fmt.Sprint(raw)}
}

// --- Форматтеры по типам ---

// formatString — literal, кроме двух особых случаев: значение-URL
// отображается ссылкой, значение с ISO-8601 датой — локальной датой.
func formatString(fc *FormatContext, f FieldDescriptor, raw any) Renderable {
	norm, err := normalizeString(f, raw)
	if err != nil || norm == nil {
		return literalRenderable(raw)
	}
	s, _ := norm.(string)

	if u, uerr := url.Parse(s); uerr == nil && u.IsAbs() && u.Host != "" &&
		(u.Scheme == "http" || u.Scheme == "https") {
		return Renderable{Kind: RenderLink, Text: s, Href: s}
	}

	if t, ok := isoDatePrefix(s); ok {
		return Renderable{Kind: RenderText, Text: t.Format(fc.dateLayout)}
	}

	return Renderable{Kind: RenderText, Text: s}
}

// formatBoolean — бейдж да/нет; неразрешимое значение — явный бейдж
// «неизвестно», никогда молча «нет».
func formatBoolean(_ *FormatContext, f FieldDescriptor, raw any) Renderable {
	norm, err := normalizeBoolean(f, raw)
	if err != nil || norm == nil {
		if isEmpty(raw) {
			return Renderable{Kind: RenderEmpty, Text: Placeholder}
		}
		return Renderable{Kind: RenderBadgeUnknown, Text: "неизвестно"}
	}
	if v, _ := norm.(bool); v {
		return Renderable{Kind: RenderBadgeYes, Text: "да"}
	}
	return Renderable{Kind: RenderBadgeNo, Text: "нет"}
}

// formatInteger — локализованное целое.
func formatInteger(fc *FormatContext, f FieldDescriptor, raw any) Renderable {
	norm, err := normalizeInteger(f, raw)
	if err != nil || norm == nil {
		return literalRenderable(raw)
	}
	n, _ := norm.(int64)
	return Renderable{Kind: RenderText, Text: fc.printer.Sprint(number.Decimal(n))}
}

// formatDecimal — локализованное число с дробной частью.
func formatDecimal(fc *FormatContext, f FieldDescriptor, raw any) Renderable {
	norm, err := normalizeDecimal(f, raw)
	if err != nil || norm == nil {
		return literalRenderable(raw)
	}
	v, _ := norm.(float64)
	return Renderable{Kind: RenderText, Text: fc.printer.Sprint(number.Decimal(v))}
}

// formatDate — локальная дата без времени.
func formatDate(fc *FormatContext, f FieldDescriptor, raw any) Renderable {
	norm, err := normalizeDate(f, raw)
	if err != nil || norm == nil {
		return literalRenderable(raw)
	}
	t, _ := norm.(time.Time)
	return Renderable{Kind: RenderText, Text: t.Format(fc.dateLayout)}
}

// formatDatetime — локальные дата и время.
func formatDatetime(fc *FormatContext, f FieldDescriptor, raw any) Renderable {
	norm, err := normalizeDatetime(f, raw)
	if err != nil || norm == nil {
		return literalRenderable(raw)
	}
	t, _ := norm.(time.Time)
	return Renderable{Kind: RenderText, Text: t.Format(fc.dateTimeLayout)}
}

// formatEnum — подпись совпавшего варианта; значение вне options
// (устаревшая схема) деградирует до literal, не до отказа.
func formatEnum(_ *FormatContext, f FieldDescriptor, raw any) Renderable {
	if isEmpty(raw) {
		return Renderable{Kind: RenderEmpty, Text: Placeholder}
	}
	s, ok := raw.(string)
	if !ok {
		return literalRenderable(raw)
	}
	if label, found := f.optionLabel(strings.TrimSpace(s)); found {
		return Renderable{Kind: RenderText, Text: label}
	}
	return Renderable{Kind: RenderText, Text: s}
}

// isoDatePrefix распознаёт строку, начинающуюся с календарной даты
// ISO-8601 ("2024-01-15", "2024-01-15T22:10:00Z").
func isoDatePrefix(s string) (time.Time, bool) {
	if len(s) < 10 {
		return time.Time{}, false
	}
	if len(s) > 10 && s[10] != 'T' && s[10] != ' ' {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
