package codefirst

import (
	"strconv"

	"github.com/rlch/edmx/edm"
	"github.com/rlch/edmx/storetype"
)

// Storage model defaults, mirroring the names Code-First tooling emits.
const (
	DefaultNamespace        = "CodeFirstNamespace"
	DefaultStoreNamespace   = "CodeFirstDatabaseSchema"
	DefaultStoreContainer   = "CodeFirstDatabase"
	DefaultStoreSchema      = "public"
	DefaultProviderManifest = "16"
)

// storageModel derives the store schema of a conceptual model: one table
// per entity set, complex properties flattened into Owner_Member columns,
// and one store association per relationship. Many-to-many relationships
// get a link table named after the association; relationships without
// foreign key properties get Nav_Key columns on the dependent table.
func storageModel(m *edm.Model, schema string) *edm.Model {
	sb := &storeBuilder{
		m: m,
		s: &edm.Model{
			Namespace: DefaultStoreNamespace,
			Alias:     "Self",
			Container: &edm.EntityContainer{Name: DefaultStoreContainer},
		},
		schema: schema,
	}

	for _, et := range m.EntityTypes {
		st := &edm.EntityType{Name: et.Name, Key: et.Key}

		for _, p := range et.Properties {
			st.Properties = append(st.Properties, storeColumns(m, "", p, et.IsKey(p.Name))...)
		}

		table := et.Name
		if es := m.EntitySetFor(et.Name); es != nil {
			table = es.Name
		}

		sb.addTable(st, table)
	}

	for _, a := range m.Associations {
		switch {
		case a.Constraint != nil:
			sb.foreignKey(a)
		case a.Ends[0].Multiplicity == edm.MultiplicityMany && a.Ends[1].Multiplicity == edm.MultiplicityMany:
			sb.linkTable(a)
		default:
			sb.independentKey(a)
		}
	}

	return sb.s
}

// storeBuilder accumulates the storage model. Store entity sets are named
// after their entity types.
type storeBuilder struct {
	m      *edm.Model
	s      *edm.Model
	schema string
}

func (sb *storeBuilder) addTable(st *edm.EntityType, table string) {
	sb.s.EntityTypes = append(sb.s.EntityTypes, st)
	sb.s.Container.EntitySets = append(sb.s.Container.EntitySets, &edm.EntitySet{
		Name:       st.Name,
		EntityType: sb.s.Qualify(st.Name),
		Schema:     sb.schema,
		Table:      table,
	})
}

func (sb *storeBuilder) addAssociation(a *edm.Association) {
	sb.s.Associations = append(sb.s.Associations, a)
	sb.s.Container.AssociationSets = append(sb.s.Container.AssociationSets, &edm.AssociationSet{
		Name:        a.Name,
		Association: sb.s.Qualify(a.Name),
		Ends: [2]edm.AssociationSetEnd{
			{Role: a.Ends[0].Role, EntitySet: sb.s.Unqualify(a.Ends[0].Type)},
			{Role: a.Ends[1].Role, EntitySet: sb.s.Unqualify(a.Ends[1].Type)},
		},
	})
}

// storeEnd copies a conceptual end into the store namespace.
func (sb *storeBuilder) storeEnd(end *edm.AssociationEnd) *edm.AssociationEnd {
	return &edm.AssociationEnd{
		Role:         end.Role,
		Type:         sb.s.Qualify(sb.m.Unqualify(end.Type)),
		Multiplicity: end.Multiplicity,
		OnDelete:     end.OnDelete,
	}
}

// foreignKey maps a relationship whose foreign key properties are mapped
// columns of the dependent table.
func (sb *storeBuilder) foreignKey(a *edm.Association) {
	principal := a.End(a.Constraint.Principal.Role)
	dependent := a.End(a.Constraint.Dependent.Role)

	sb.addAssociation(&edm.Association{
		Name: a.Name,
		Ends: [2]*edm.AssociationEnd{sb.storeEnd(principal), sb.storeEnd(dependent)},
		Constraint: &edm.ReferentialConstraint{
			Principal: a.Constraint.Principal,
			Dependent: a.Constraint.Dependent,
		},
	})
}

// linkTable maps a many-to-many relationship onto a table keyed by both
// ends' keys, with one cascading store association per end.
func (sb *storeBuilder) linkTable(a *edm.Association) {
	link := &edm.EntityType{Name: a.Name}

	var fks [2][]string

	for i, end := range a.Ends {
		et := sb.m.EntityType(end.Type)

		for _, col := range sb.keyColumns(link, et, et.Name+"_") {
			col.Nullable = false
			link.Properties = append(link.Properties, col)
			link.Key = append(link.Key, col.Name)
			fks[i] = append(fks[i], col.Name)
		}
	}

	sb.addTable(link, a.Name)

	for i, end := range a.Ends {
		et := sb.m.EntityType(end.Type)

		sb.addAssociation(&edm.Association{
			Name: end.Role,
			Ends: [2]*edm.AssociationEnd{
				{Role: et.Name, Type: sb.s.Qualify(et.Name), Multiplicity: edm.MultiplicityOne, OnDelete: "Cascade"},
				{Role: link.Name, Type: sb.s.Qualify(link.Name), Multiplicity: edm.MultiplicityMany},
			},
			Constraint: &edm.ReferentialConstraint{
				Principal: edm.ConstraintRole{Role: et.Name, Properties: et.Key},
				Dependent: edm.ConstraintRole{Role: link.Name, Properties: fks[i]},
			},
		})
	}
}

// independentKey maps a relationship without foreign key properties by
// adding Nav_Key columns to the dependent table. The dependent is the many
// end, or the optional end of a one-to-one, or else the first end.
func (sb *storeBuilder) independentKey(a *edm.Association) {
	dependent, principal := a.Ends[0], a.Ends[1]
	if principal.Multiplicity == edm.MultiplicityMany ||
		dependent.Multiplicity == edm.MultiplicityOne && principal.Multiplicity == edm.MultiplicityZeroOrOne {
		dependent, principal = principal, dependent
	}

	dt := sb.m.EntityType(dependent.Type)
	pt := sb.m.EntityType(principal.Type)

	prefix := pt.Name
	for _, n := range dt.NavigationProperties {
		if sb.m.Unqualify(n.Relationship) == a.Name && n.FromRole == dependent.Role {
			prefix = n.Name

			break
		}
	}

	st := sb.s.EntityType(dt.Name)

	var fk []string

	for _, col := range sb.keyColumns(st, pt, prefix+"_") {
		col.Nullable = principal.Multiplicity != edm.MultiplicityOne
		st.Properties = append(st.Properties, col)
		fk = append(fk, col.Name)
	}

	sb.addAssociation(&edm.Association{
		Name: a.Name,
		Ends: [2]*edm.AssociationEnd{sb.storeEnd(principal), sb.storeEnd(dependent)},
		Constraint: &edm.ReferentialConstraint{
			Principal: edm.ConstraintRole{Role: principal.Role, Properties: pt.Key},
			Dependent: edm.ConstraintRole{Role: dependent.Role, Properties: fk},
		},
	})
}

// keyColumns returns columns on table referencing the key of et, named
// prefix+key and numbered when the name is taken.
func (sb *storeBuilder) keyColumns(table, et *edm.EntityType, prefix string) []*edm.Property {
	var cols []*edm.Property

	for _, k := range et.Key {
		p := et.Property(k)
		if p == nil {
			continue
		}

		for _, col := range storeColumns(sb.m, prefix, p, false) {
			col.StoreGeneratedPattern = ""

			name := col.Name
			for i := 1; table.Property(col.Name) != nil || containsColumn(cols, col.Name); i++ {
				col.Name = name + strconv.Itoa(i)
			}

			cols = append(cols, col)
		}
	}

	return cols
}

func containsColumn(cols []*edm.Property, name string) bool {
	for _, c := range cols {
		if c.Name == name {
			return true
		}
	}

	return false
}

// storeColumns maps a conceptual property to one or more store columns.
func storeColumns(m *edm.Model, prefix string, p *edm.Property, key bool) []*edm.Property {
	if ct := m.ComplexType(p.Type); ct != nil && !edm.IsPrimitive(p.Type) {
		var cols []*edm.Property
		for _, cp := range ct.Properties {
			cols = append(cols, storeColumns(m, prefix+p.Name+"_", cp, false)...)
		}

		return cols
	}

	col := &edm.Property{
		Name:                  prefix + p.Name,
		Nullable:              p.Nullable && !key,
		Precision:             p.Precision,
		Scale:                 p.Scale,
		StoreGeneratedPattern: p.StoreGeneratedPattern,
	}

	col.Type, _ = storetype.Postgres(p)
	if col.Type == "character varying" {
		col.MaxLength = p.MaxLength
	}

	return []*edm.Property{col}
}
