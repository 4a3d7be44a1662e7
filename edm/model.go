// Package edm is the in-memory Entity Data Model.
//
// A Model describes entity types, their scalar and navigation properties,
// the associations between them and the entity container exposing them as
// sets. Models are produced by the csdl reader, the codefirst and
// modelfirst extractors, and the dbfirst introspector. Ownership passes to
// the caller; nothing in this module mutates a model after returning it.
package edm

import "strings"

// Model is an EDM schema.
type Model struct {
	// Namespace qualifies every type in the schema (e.g., "Blogging").
	Namespace string

	// Alias is an optional short qualifier (commonly "Self").
	Alias string

	EntityTypes  []*EntityType
	ComplexTypes []*ComplexType
	EnumTypes    []*EnumType
	Associations []*Association

	// Container is the entity container, nil if the schema declares none.
	Container *EntityContainer
}

// NewModel creates an empty model in the given namespace.
func NewModel(namespace string) *Model {
	return &Model{Namespace: namespace}
}

// EntityType represents an entity type.
type EntityType struct {
	Name     string
	BaseType string
	Abstract bool

	// Key lists the names of the key properties, in key order.
	Key []string

	Properties           []*Property
	NavigationProperties []*NavigationProperty
}

// ComplexType represents a structured type without identity.
type ComplexType struct {
	Name       string
	Properties []*Property
}

// EnumType is a named set of constants over an integral primitive.
type EnumType struct {
	Name string

	// UnderlyingType is an integral primitive; empty means Int32.
	UnderlyingType string

	IsFlags bool
	Members []*EnumMember
}

// EnumMember is one named constant. Value is empty when the member takes
// the next implicit value.
type EnumMember struct {
	Name  string
	Value string
}

// Property is a scalar or complex-typed property.
type Property struct {
	Name string

	// Type is an EDM primitive ("Int32", "Edm.String") or a qualified
	// complex or enum type name.
	Type string

	Nullable bool

	// MaxLength is a number or "Max". Empty means unspecified.
	MaxLength string

	Precision *int
	Scale     *int

	// StoreGeneratedPattern is one of the StoreGenerated constants.
	StoreGeneratedPattern string

	// ConcurrencyMode is "Fixed" for optimistic concurrency tokens.
	ConcurrencyMode string
}

// Store generated patterns.
const (
	StoreGeneratedNone     = "None"
	StoreGeneratedIdentity = "Identity"
	StoreGeneratedComputed = "Computed"
)

// NavigationProperty connects an entity type to another through an association.
type NavigationProperty struct {
	Name string

	// Relationship is the qualified association name.
	Relationship string

	FromRole string
	ToRole   string
}

// Multiplicity is the multiplicity of an association end.
type Multiplicity string

// Multiplicities.
const (
	MultiplicityZeroOrOne Multiplicity = "0..1"
	MultiplicityOne       Multiplicity = "1"
	MultiplicityMany      Multiplicity = "*"
)

// Valid reports whether m is a known multiplicity.
func (m Multiplicity) Valid() bool {
	switch m {
	case MultiplicityZeroOrOne, MultiplicityOne, MultiplicityMany:
		return true
	default:
		return false
	}
}

// Association relates two entity types.
type Association struct {
	Name       string
	Ends       [2]*AssociationEnd
	Constraint *ReferentialConstraint
}

// AssociationEnd is one side of an association.
type AssociationEnd struct {
	Role string

	// Type is the qualified entity type name.
	Type string

	Multiplicity Multiplicity

	// OnDelete is "Cascade" or empty.
	OnDelete string
}

// ReferentialConstraint describes a foreign key between the association ends.
type ReferentialConstraint struct {
	Principal ConstraintRole
	Dependent ConstraintRole
}

// ConstraintRole names an end and the properties participating in the key.
type ConstraintRole struct {
	Role       string
	Properties []string
}

// End returns the end with the given role, or nil.
func (a *Association) End(role string) *AssociationEnd {
	for _, e := range a.Ends {
		if e != nil && e.Role == role {
			return e
		}
	}

	return nil
}

// EntityContainer exposes entity types as sets.
type EntityContainer struct {
	Name            string
	EntitySets      []*EntitySet
	AssociationSets []*AssociationSet
}

// EntitySet is a named collection of entities of one type.
type EntitySet struct {
	Name string

	// EntityType is the qualified entity type name.
	EntityType string

	// Schema and Table name the backing table in storage models.
	Schema string
	Table  string
}

// AssociationSet is a named collection of association instances.
type AssociationSet struct {
	Name string

	// Association is the qualified association name.
	Association string

	Ends [2]AssociationSetEnd
}

// AssociationSetEnd binds an association role to an entity set.
type AssociationSetEnd struct {
	Role      string
	EntitySet string
}

// Qualify prefixes name with the model namespace unless already qualified.
func (m *Model) Qualify(name string) string {
	if name == "" || m.Namespace == "" || strings.Contains(name, ".") {
		return name
	}

	return m.Namespace + "." + name
}

// Unqualify strips the namespace or alias prefix from name. Names qualified
// by another namespace are returned unchanged.
func (m *Model) Unqualify(name string) string {
	for _, prefix := range []string{m.Namespace, m.Alias} {
		if prefix != "" && strings.HasPrefix(name, prefix+".") {
			return name[len(prefix)+1:]
		}
	}

	return name
}

// EntityType looks up an entity type by simple or qualified name.
func (m *Model) EntityType(name string) *EntityType {
	name = m.Unqualify(name)
	for _, et := range m.EntityTypes {
		if et.Name == name {
			return et
		}
	}

	return nil
}

// ComplexType looks up a complex type by simple or qualified name.
func (m *Model) ComplexType(name string) *ComplexType {
	name = m.Unqualify(name)
	for _, ct := range m.ComplexTypes {
		if ct.Name == name {
			return ct
		}
	}

	return nil
}

// EnumType looks up an enum type by simple or qualified name.
func (m *Model) EnumType(name string) *EnumType {
	name = m.Unqualify(name)
	for _, et := range m.EnumTypes {
		if et.Name == name {
			return et
		}
	}

	return nil
}

// Association looks up an association by simple or qualified name.
func (m *Model) Association(name string) *Association {
	name = m.Unqualify(name)
	for _, a := range m.Associations {
		if a.Name == name {
			return a
		}
	}

	return nil
}

// EntitySet looks up an entity set by name.
func (m *Model) EntitySet(name string) *EntitySet {
	if m.Container == nil {
		return nil
	}

	for _, es := range m.Container.EntitySets {
		if es.Name == name {
			return es
		}
	}

	return nil
}

// EntitySetFor returns the first entity set whose type is the named entity type.
func (m *Model) EntitySetFor(entityType string) *EntitySet {
	if m.Container == nil {
		return nil
	}

	want := m.Unqualify(entityType)
	for _, es := range m.Container.EntitySets {
		if m.Unqualify(es.EntityType) == want {
			return es
		}
	}

	return nil
}

// NavigationTarget returns the entity type and multiplicity at the far end
// of a navigation property. It returns nil when the association or role
// does not resolve.
func (m *Model) NavigationTarget(nav *NavigationProperty) (*EntityType, Multiplicity) {
	a := m.Association(nav.Relationship)
	if a == nil {
		return nil, ""
	}

	end := a.End(nav.ToRole)
	if end == nil {
		return nil, ""
	}

	return m.EntityType(end.Type), end.Multiplicity
}

// Property looks up a scalar property by name.
func (et *EntityType) Property(name string) *Property {
	for _, p := range et.Properties {
		if p.Name == name {
			return p
		}
	}

	return nil
}

// NavigationProperty looks up a navigation property by name.
func (et *EntityType) NavigationProperty(name string) *NavigationProperty {
	for _, n := range et.NavigationProperties {
		if n.Name == name {
			return n
		}
	}

	return nil
}

// IsKey reports whether the named property is part of the key.
func (et *EntityType) IsKey(name string) bool {
	for _, k := range et.Key {
		if k == name {
			return true
		}
	}

	return false
}

// Property looks up a property by name.
func (ct *ComplexType) Property(name string) *Property {
	for _, p := range ct.Properties {
		if p.Name == name {
			return p
		}
	}

	return nil
}
