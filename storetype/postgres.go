// Package storetype maps EDM primitive types to and from PostgreSQL column
// types. Code-First uses it to derive storage models; Database-First uses
// it to map introspected columns back to conceptual properties.
package storetype

import (
	"strings"

	"github.com/rlch/edmx/edm"
)

// Provider names.
const (
	ProviderPostgres = "postgres"
)

var toPostgres = map[string]string{
	edm.TypeBinary:         "bytea",
	edm.TypeBoolean:        "boolean",
	edm.TypeByte:           "smallint",
	edm.TypeSByte:          "smallint",
	edm.TypeInt16:          "smallint",
	edm.TypeInt32:          "integer",
	edm.TypeInt64:          "bigint",
	edm.TypeSingle:         "real",
	edm.TypeDouble:         "double precision",
	edm.TypeDecimal:        "numeric",
	edm.TypeString:         "text",
	edm.TypeDateTime:       "timestamp without time zone",
	edm.TypeDateTimeOffset: "timestamp with time zone",
	edm.TypeTime:           "interval",
	edm.TypeGuid:           "uuid",
}

var fromPostgres = map[string]string{
	"bytea":                       edm.TypeBinary,
	"boolean":                     edm.TypeBoolean,
	"smallint":                    edm.TypeInt16,
	"integer":                     edm.TypeInt32,
	"bigint":                      edm.TypeInt64,
	"real":                        edm.TypeSingle,
	"double precision":            edm.TypeDouble,
	"numeric":                     edm.TypeDecimal,
	"money":                       edm.TypeDecimal,
	"text":                        edm.TypeString,
	"character varying":           edm.TypeString,
	"character":                   edm.TypeString,
	"citext":                      edm.TypeString,
	"json":                        edm.TypeString,
	"jsonb":                       edm.TypeString,
	"date":                        edm.TypeDateTime,
	"timestamp without time zone": edm.TypeDateTime,
	"timestamp with time zone":    edm.TypeDateTimeOffset,
	"time without time zone":      edm.TypeTime,
	"interval":                    edm.TypeTime,
	"uuid":                        edm.TypeGuid,
	"geography":                   edm.TypeGeography,
	"geometry":                    edm.TypeGeometry,
}

// Postgres returns the PostgreSQL column type for an EDM primitive. A
// bounded string becomes "character varying". It returns false for
// non-primitive types.
func Postgres(p *edm.Property) (string, bool) {
	name := edm.PrimitiveName(p.Type)

	if name == edm.TypeString && p.MaxLength != "" && !strings.EqualFold(p.MaxLength, "max") {
		return "character varying", true
	}

	// PostGIS stores every spatial shape in one column type per family.
	if edm.IsSpatial(name) {
		if strings.HasPrefix(name, edm.TypeGeography) {
			return "geography", true
		}

		return "geometry", true
	}

	t, ok := toPostgres[name]

	return t, ok
}

// FromPostgres returns the EDM primitive for a PostgreSQL data type as
// reported by information_schema.columns. Unknown types map to String.
func FromPostgres(dataType string) (string, bool) {
	t, ok := fromPostgres[strings.ToLower(strings.TrimSpace(dataType))]
	if !ok {
		return edm.TypeString, false
	}

	return t, true
}
