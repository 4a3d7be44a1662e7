package codefirst

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/edmx/edm"
)

func TestParseTag(t *testing.T) {
	t.Parallel()

	type tagged struct {
		Plain    string
		Skipped  string `edm:"-"`
		Renamed  string `edm:"name=Headline, maxlength=MAX"`
		Key      int    `edm:"key,generated=none"`
		Money    float64 `edm:"precision=18,scale=4,required"`
		Stamp    []byte `edm:"concurrency,computed"`
		Optional string `edm:"nullable,identity"`
		BlogID   int    `edm:"fk=Blog"`
		Blog     *int   `edm:"fk=A | B,inverse=Posts"`
	}

	precision, scale := 18, 4

	tests := []struct {
		field string
		want  fieldTag
	}{
		{field: "Plain", want: fieldTag{}},
		{field: "Skipped", want: fieldTag{skip: true}},
		{field: "Renamed", want: fieldTag{name: "Headline", maxLength: "Max"}},
		{field: "Key", want: fieldTag{key: true, generated: edm.StoreGeneratedNone}},
		{field: "Money", want: fieldTag{precision: &precision, scale: &scale, required: true}},
		{field: "Stamp", want: fieldTag{concurrency: true, generated: edm.StoreGeneratedComputed}},
		{field: "Optional", want: fieldTag{nullable: true, generated: edm.StoreGeneratedIdentity}},
		{field: "BlogID", want: fieldTag{fk: []string{"Blog"}}},
		{field: "Blog", want: fieldTag{fk: []string{"A", "B"}, inverse: "Posts"}},
	}

	typ := reflect.TypeFor[tagged]()

	for _, tt := range tests {
		f, ok := typ.FieldByName(tt.field)
		require.True(t, ok)

		got, err := parseTag(f)
		require.NoError(t, err, tt.field)
		assert.Equal(t, tt.want, got, tt.field)
	}

	f, _ := typ.FieldByName("Renamed")
	assert.Equal(t, "Headline", fieldTag{name: "Headline"}.propertyName(f))
	assert.Equal(t, "Renamed", fieldTag{}.propertyName(f))
}

func TestParseTag_Errors(t *testing.T) {
	t.Parallel()

	type bad struct {
		Length    string `edm:"maxlength=long"`
		Precision int    `edm:"precision=x"`
		Generated int    `edm:"generated=sometimes"`
		Unknown   int    `edm:"primary"`
	}

	typ := reflect.TypeFor[bad]()

	for i := range typ.NumField() {
		f := typ.Field(i)

		_, err := parseTag(f)
		require.Error(t, err, f.Name)
		assert.Contains(t, err.Error(), f.Name)
	}
}

func TestPluralize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Blog":     "Blogs",
		"Category": "Categories",
		"Day":      "Days",
		"Address":  "Addresses",
		"Box":      "Boxes",
		"Match":    "Matches",
		"Wish":     "Wishes",
		"":         "",
	}

	for in, want := range tests {
		assert.Equal(t, want, pluralize(in), in)
	}
}

func TestPrimitiveFor(t *testing.T) {
	t.Parallel()

	type local struct{}

	tests := []struct {
		value    any
		want     string
		ok       bool
		nullable bool
	}{
		{value: 0, want: edm.TypeInt64, ok: true},
		{value: int32(0), want: edm.TypeInt32, ok: true},
		{value: uint8(0), want: edm.TypeByte, ok: true},
		{value: true, want: edm.TypeBoolean, ok: true},
		{value: "", want: edm.TypeString, ok: true},
		{value: new(string), want: edm.TypeString, ok: true, nullable: true},
		{value: float32(0), want: edm.TypeSingle, ok: true},
		{value: []byte(nil), want: edm.TypeBinary, ok: true, nullable: true},
		{value: local{}, ok: false},
		{value: map[string]int{}, ok: false},
	}

	for _, tt := range tests {
		typ := reflect.TypeOf(tt.value)

		got, ok := primitiveFor(typ)
		assert.Equal(t, tt.want, got, typ.String())
		assert.Equal(t, tt.ok, ok, typ.String())

		if ok {
			assert.Equal(t, tt.nullable, nullableFor(typ), typ.String())
		}
	}
}
