package storetype

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rlch/edmx/edm"
)

func TestPostgres(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prop *edm.Property
		want string
		ok   bool
	}{
		{prop: &edm.Property{Type: edm.TypeInt32}, want: "integer", ok: true},
		{prop: &edm.Property{Type: "Edm.Int64"}, want: "bigint", ok: true},
		{prop: &edm.Property{Type: edm.TypeString}, want: "text", ok: true},
		{prop: &edm.Property{Type: edm.TypeString, MaxLength: "200"}, want: "character varying", ok: true},
		{prop: &edm.Property{Type: edm.TypeString, MaxLength: "Max"}, want: "text", ok: true},
		{prop: &edm.Property{Type: edm.TypeGuid}, want: "uuid", ok: true},
		{prop: &edm.Property{Type: edm.TypeDateTimeOffset}, want: "timestamp with time zone", ok: true},
		{prop: &edm.Property{Type: edm.TypeGeographyPoint}, want: "geography", ok: true},
		{prop: &edm.Property{Type: "Edm.GeometryPolygon"}, want: "geometry", ok: true},
		{prop: &edm.Property{Type: "Blogging.Address"}, want: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := Postgres(tt.prop)
		assert.Equal(t, tt.want, got, "type %s", tt.prop.Type)
		assert.Equal(t, tt.ok, ok, "type %s", tt.prop.Type)
	}
}

func TestFromPostgres(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dataType string
		want     string
		ok       bool
	}{
		{dataType: "integer", want: edm.TypeInt32, ok: true},
		{dataType: "CHARACTER VARYING", want: edm.TypeString, ok: true},
		{dataType: " numeric ", want: edm.TypeDecimal, ok: true},
		{dataType: "timestamp with time zone", want: edm.TypeDateTimeOffset, ok: true},
		{dataType: "jsonb", want: edm.TypeString, ok: true},
		{dataType: "geography", want: edm.TypeGeography, ok: true},
		{dataType: "tsvector", want: edm.TypeString, ok: false},
	}

	for _, tt := range tests {
		got, ok := FromPostgres(tt.dataType)
		assert.Equal(t, tt.want, got, "data type %q", tt.dataType)
		assert.Equal(t, tt.ok, ok, "data type %q", tt.dataType)
	}
}
