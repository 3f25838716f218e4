package schema

import (
	"errors"
	"testing"
)

// TestNewFieldDescriptor_UnknownType проверяет, что нераспознанный тег
// типа — фатальная ошибка конструирования, а не тихий fallback.
func TestNewFieldDescriptor_UnknownType(t *testing.T) {
	_, err := NewFieldDescriptor("campo", "Campo", "geo_point", false, false, 0, nil)
	if err == nil {
		t.Fatal("ожидалась ошибка для неизвестного типа данных")
	}
	if !errors.Is(err, ErrUnknownDataType) {
		t.Errorf("ошибка = %v, ожидалась ErrUnknownDataType", err)
	}
}

// TestNewFieldDescriptor_EnumRequiresOptions проверяет инвариант
// непустых options для enum.
func TestNewFieldDescriptor_EnumRequiresOptions(t *testing.T) {
	_, err := NewFieldDescriptor("categoria", "Categoria", "enum", true, false, 0, nil)
	if !errors.Is(err, ErrNoOptions) {
		t.Errorf("ошибка = %v, ожидалась ErrNoOptions", err)
	}

	fd, err := NewFieldDescriptor("categoria", "Categoria", "enum", true, false, 0,
		[]Option{{Value: "a", Label: "Alpha"}})
	if err != nil {
		t.Fatalf("NewFieldDescriptor вернул ошибку: %v", err)
	}
	if len(fd.Options) != 1 {
		t.Errorf("Options count = %d, ожидался 1", len(fd.Options))
	}
}

// TestNewFieldDescriptor_OptionsDroppedForNonEnum проверяет, что options
// присутствуют только у enum-полей.
func TestNewFieldDescriptor_OptionsDroppedForNonEnum(t *testing.T) {
	fd, err := NewFieldDescriptor("titolo", "Titolo", "string", false, false, 0,
		[]Option{{Value: "x", Label: "X"}})
	if err != nil {
		t.Fatalf("NewFieldDescriptor вернул ошибку: %v", err)
	}
	if fd.Options != nil {
		t.Errorf("Options = %v, ожидался nil для string-поля", fd.Options)
	}
}

// TestOrderFields проверяет полный порядок: SortOrder, при равенстве — Name.
func TestOrderFields(t *testing.T) {
	fields := []FieldDescriptor{
		{Name: "beta", Type: TypeString, SortOrder: 2},
		{Name: "alpha", Type: TypeString, SortOrder: 2},
		{Name: "gamma", Type: TypeString, SortOrder: 1},
	}

	ordered := OrderFields(fields)

	want := []string{"gamma", "alpha", "beta"}
	for i, name := range want {
		if ordered[i].Name != name {
			t.Errorf("ordered[%d] = %q, ожидался %q", i, ordered[i].Name, name)
		}
	}

	// Исходный срез не изменён
	if fields[0].Name != "beta" {
		t.Error("OrderFields изменил исходный срез")
	}
}

// TestCloneFields проверяет изоляцию глубокой копии.
func TestCloneFields(t *testing.T) {
	orig := []FieldDescriptor{
		{Name: "categoria", Type: TypeEnum, Options: []Option{{Value: "a", Label: "Alpha"}}},
	}

	cloned := CloneFields(orig)
	cloned[0].Options[0].Label = "Mutated"

	if orig[0].Options[0].Label != "Alpha" {
		t.Error("мутация копии затронула исходные options")
	}
}
