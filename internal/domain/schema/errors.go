// errors.go — ошибки движка типизированных схем.
package schema

import "errors"

var (
	// ErrUnknownDataType — дескриптор несёт нераспознанный тег типа данных.
	// Фатальная ошибка конструирования: движок никогда не деградирует
	// неизвестный тип до строки, иначе невалидные значения просочатся
	// в отправляемые метаданные.
	ErrUnknownDataType = errors.New("неизвестный тип данных")

	// ErrNoOptions — enum-поле без непустого списка вариантов.
	ErrNoOptions = errors.New("enum-поле требует непустой список вариантов")

	// ErrEmptyName — дескриптор без машинного имени поля.
	ErrEmptyName = errors.New("пустое имя поля")
)
