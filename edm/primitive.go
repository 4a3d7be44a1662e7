package edm

import "strings"

// EDM primitive type names, unqualified.
const (
	TypeBinary         = "Binary"
	TypeBoolean        = "Boolean"
	TypeByte           = "Byte"
	TypeDateTime       = "DateTime"
	TypeDateTimeOffset = "DateTimeOffset"
	TypeTime           = "Time"
	TypeDecimal        = "Decimal"
	TypeDouble         = "Double"
	TypeSingle         = "Single"
	TypeGuid           = "Guid"
	TypeInt16          = "Int16"
	TypeInt32          = "Int32"
	TypeInt64          = "Int64"
	TypeSByte          = "SByte"
	TypeString         = "String"
)

// Spatial primitive type names (CSDL v3).
const (
	TypeGeography                = "Geography"
	TypeGeographyPoint           = "GeographyPoint"
	TypeGeographyLineString      = "GeographyLineString"
	TypeGeographyPolygon         = "GeographyPolygon"
	TypeGeographyMultiPoint      = "GeographyMultiPoint"
	TypeGeographyMultiLineString = "GeographyMultiLineString"
	TypeGeographyMultiPolygon    = "GeographyMultiPolygon"
	TypeGeographyCollection      = "GeographyCollection"
	TypeGeometry                 = "Geometry"
	TypeGeometryPoint            = "GeometryPoint"
	TypeGeometryLineString       = "GeometryLineString"
	TypeGeometryPolygon          = "GeometryPolygon"
	TypeGeometryMultiPoint       = "GeometryMultiPoint"
	TypeGeometryMultiLineString  = "GeometryMultiLineString"
	TypeGeometryMultiPolygon     = "GeometryMultiPolygon"
	TypeGeometryCollection       = "GeometryCollection"
)

// PrimitiveNamespace qualifies primitive type names.
const PrimitiveNamespace = "Edm"

var primitives = map[string]bool{
	TypeBinary:         true,
	TypeBoolean:        true,
	TypeByte:           true,
	TypeDateTime:       true,
	TypeDateTimeOffset: true,
	TypeTime:           true,
	TypeDecimal:        true,
	TypeDouble:         true,
	TypeSingle:         true,
	TypeGuid:           true,
	TypeInt16:          true,
	TypeInt32:          true,
	TypeInt64:          true,
	TypeSByte:          true,
	TypeString:         true,

	TypeGeography:                true,
	TypeGeographyPoint:           true,
	TypeGeographyLineString:      true,
	TypeGeographyPolygon:         true,
	TypeGeographyMultiPoint:      true,
	TypeGeographyMultiLineString: true,
	TypeGeographyMultiPolygon:    true,
	TypeGeographyCollection:      true,
	TypeGeometry:                 true,
	TypeGeometryPoint:            true,
	TypeGeometryLineString:       true,
	TypeGeometryPolygon:          true,
	TypeGeometryMultiPoint:       true,
	TypeGeometryMultiLineString:  true,
	TypeGeometryMultiPolygon:     true,
	TypeGeometryCollection:       true,
}

// IsPrimitive reports whether name is an EDM primitive, with or without the
// "Edm." prefix.
func IsPrimitive(name string) bool {
	return primitives[strings.TrimPrefix(name, PrimitiveNamespace+".")]
}

// PrimitiveName returns the unqualified primitive name.
func PrimitiveName(name string) string {
	return strings.TrimPrefix(name, PrimitiveNamespace+".")
}

// IsSpatial reports whether name is a Geography or Geometry primitive.
func IsSpatial(name string) bool {
	name = PrimitiveName(name)

	return primitives[name] && (strings.HasPrefix(name, TypeGeography) || strings.HasPrefix(name, TypeGeometry))
}

// IsIntegral reports whether name is an integer primitive.
func IsIntegral(name string) bool {
	switch PrimitiveName(name) {
	case TypeByte, TypeSByte, TypeInt16, TypeInt32, TypeInt64:
		return true
	default:
		return false
	}
}
