package schema

import (
	"errors"
	"testing"
)

// TestBehaviorFor_Total — поведение определено для каждого тега
// закрытого множества.
func TestBehaviorFor_Total(t *testing.T) {
	all := []DataType{
		TypeString, TypeBoolean, TypeInteger, TypeDecimal,
		TypeDate, TypeDatetime, TypeEnum,
	}
	for _, dt := range all {
		b, err := BehaviorFor(dt)
		if err != nil {
			t.Fatalf("BehaviorFor(%s) ошибка: %v", dt, err)
		}
		if b.Normalize == nil || b.Match == nil || b.Format == nil || b.Input == "" {
			t.Errorf("BehaviorFor(%s): неполная связка поведения", dt)
		}
	}
}

// TestBehaviorFor_UnknownTag — неизвестный тег не разрешается
// в поведение по умолчанию.
func TestBehaviorFor_UnknownTag(t *testing.T) {
	_, err := BehaviorFor(DataType("geo_point"))
	if !errors.Is(err, ErrUnknownDataType) {
		t.Errorf("ошибка = %v, ожидалась ErrUnknownDataType", err)
	}
}

// TestInputKindFor — селектор вида элемента ввода.
func TestInputKindFor(t *testing.T) {
	tests := []struct {
		dt   DataType
		want InputKind
	}{
		{TypeString, InputText},
		{TypeBoolean, InputCheckbox},
		{TypeInteger, InputNumber},
		{TypeDecimal, InputNumber},
		{TypeDate, InputDatePicker},
		{TypeDatetime, InputDateTimePicker},
		{TypeEnum, InputSelect},
	}
	for _, tt := range tests {
		got, err := InputKindFor(tt.dt)
		if err != nil {
			t.Fatalf("InputKindFor(%s) ошибка: %v", tt.dt, err)
		}
		if got != tt.want {
			t.Errorf("InputKindFor(%s) = %q, ожидался %q", tt.dt, got, tt.want)
		}
	}

	if _, err := InputKindFor(DataType("json")); !errors.Is(err, ErrUnknownDataType) {
		t.Errorf("ошибка = %v, ожидалась ErrUnknownDataType", err)
	}
}
