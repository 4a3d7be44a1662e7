package codefirst

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rlch/edmx"
	"github.com/rlch/edmx/edm"
)

var (
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
	uuidType     = reflect.TypeFor[uuid.UUID]()
	bytesType    = reflect.TypeFor[[]byte]()
)

// nullTypes maps database/sql null wrappers to their EDM primitive.
var nullTypes = map[reflect.Type]string{
	reflect.TypeFor[sql.NullString]():  edm.TypeString,
	reflect.TypeFor[sql.NullBool]():    edm.TypeBoolean,
	reflect.TypeFor[sql.NullByte]():    edm.TypeByte,
	reflect.TypeFor[sql.NullInt16]():   edm.TypeInt16,
	reflect.TypeFor[sql.NullInt32]():   edm.TypeInt32,
	reflect.TypeFor[sql.NullInt64]():   edm.TypeInt64,
	reflect.TypeFor[sql.NullFloat64](): edm.TypeDouble,
	reflect.TypeFor[sql.NullTime]():    edm.TypeDateTime,
}

// entity is a registered entity type and its navigation fields.
type entity struct {
	typ  reflect.Type
	et   *edm.EntityType
	set  string
	navs []*nav

	// fkFor maps a navigation name to scalar properties tagged fk=<nav>.
	fkFor map[string][]string
}

// nav is a navigation field awaiting association.
type nav struct {
	owner    *entity
	target   *entity
	prop     *edm.NavigationProperty
	many     bool
	required bool

	// fk lists foreign key properties: on the owner for references, on
	// the target for collections.
	fk         []string
	fkExplicit []string
	inverseTag string

	inverse *nav
	done    bool
}

type builder struct {
	m      *edm.Model
	logger *zap.Logger

	entities map[reflect.Type]*entity
	order    []*entity
	complex  map[reflect.Type]*edm.ComplexType
	building map[reflect.Type]bool
}

func newBuilder(namespace string, logger *zap.Logger) *builder {
	return &builder{
		m:        &edm.Model{Namespace: namespace, Alias: "Self"},
		logger:   logger,
		entities: make(map[reflect.Type]*entity),
		complex:  make(map[reflect.Type]*edm.ComplexType),
		building: make(map[reflect.Type]bool),
	}
}

// build produces the conceptual model for a context struct type.
func (b *builder) build(ctxType reflect.Type) (*edm.Model, error) {
	if err := b.registerSets(ctxType); err != nil {
		return nil, err
	}

	if len(b.order) == 0 {
		return nil, fmt.Errorf("%w: %s declares no entity sets", edmx.ErrInvalidContext, ctxType)
	}

	// Navigation fields can reach entity types that have no set of their
	// own; discovering them grows b.order while we iterate.
	for i := 0; i < len(b.order); i++ {
		b.discover(b.order[i].typ)
	}

	for _, e := range b.order {
		if err := b.buildEntity(e); err != nil {
			return nil, err
		}
	}

	if err := b.resolveForeignKeys(); err != nil {
		return nil, err
	}

	if err := b.pairInverses(); err != nil {
		return nil, err
	}

	b.buildAssociations()
	b.buildContainer(ctxType.Name())

	return b.m, nil
}

func (b *builder) registerSets(ctxType reflect.Type) error {
	for _, f := range reflect.VisibleFields(ctxType) {
		if !f.IsExported() || f.Type.Kind() != reflect.Struct || !f.Type.Implements(entitySetType) {
			continue
		}

		tag, err := parseTag(f)
		if err != nil {
			return fmt.Errorf("%s: %w", ctxType.Name(), err)
		}

		if tag.skip {
			continue
		}

		elem := reflect.Zero(f.Type).Interface().(entitySet).entityType()
		if elem.Kind() != reflect.Struct {
			return fmt.Errorf("%w: set %s has non-struct element %s", edmx.ErrInvalidContext, f.Name, elem)
		}

		if _, dup := b.entities[elem]; dup {
			return fmt.Errorf("%w: entity type %s is exposed by more than one set", edmx.ErrInvalidContext, elem.Name())
		}

		b.addEntity(elem, tag.propertyName(f))
	}

	return nil
}

func (b *builder) addEntity(t reflect.Type, set string) *entity {
	e := &entity{
		typ:   t,
		set:   set,
		et:    &edm.EntityType{Name: t.Name()},
		fkFor: make(map[string][]string),
	}

	b.entities[t] = e
	b.order = append(b.order, e)
	b.m.EntityTypes = append(b.m.EntityTypes, e.et)

	return e
}

// discover registers entity types reachable from t's navigation fields.
func (b *builder) discover(t reflect.Type) {
	for _, f := range entityFields(t) {
		ft := f.Type
		if ft.Kind() == reflect.Slice && ft != bytesType {
			ft = ft.Elem()
		}

		ft = deref(ft)

		if _, ok := b.entities[ft]; ok || !isEntityCandidate(ft) {
			continue
		}

		b.logger.Debug("Discovered entity type through navigation",
			zap.String("type", ft.Name()),
			zap.String("from", t.Name()+"."+f.Name))

		b.addEntity(ft, pluralize(ft.Name()))
	}
}

// entityFields returns the exported, non-embedded fields of t including
// fields promoted from embedded structs.
func entityFields(t reflect.Type) []reflect.StructField {
	var out []reflect.StructField

	for _, f := range reflect.VisibleFields(t) {
		if f.Anonymous || !f.IsExported() {
			continue
		}

		if tag, err := parseTag(f); err == nil && tag.skip {
			continue
		}

		out = append(out, f)
	}

	return out
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}

// isEntityCandidate reports whether a struct type has a discoverable key.
func isEntityCandidate(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t == timeType || nullTypes[t] != "" {
		return false
	}

	return len(keyFields(t)) > 0
}

// keyFields returns the key fields of t: those tagged key, else a field
// named ID/Id or <Type>ID/<Type>Id.
func keyFields(t reflect.Type) []string {
	var tagged, conventional []string

	for _, f := range entityFields(t) {
		tag, err := parseTag(f)
		if err != nil {
			continue
		}

		name := tag.propertyName(f)

		if tag.key {
			tagged = append(tagged, name)

			continue
		}

		switch f.Name {
		case "ID", "Id", t.Name() + "ID", t.Name() + "Id":
			if _, ok := primitiveFor(f.Type); ok && conventional == nil {
				conventional = []string{name}
			}
		}
	}

	if len(tagged) > 0 {
		return tagged
	}

	return conventional
}

// primitiveFor maps a Go type to an EDM primitive. The bool result reports
// whether a mapping exists.
func primitiveFor(t reflect.Type) (string, bool) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t {
	case timeType:
		return edm.TypeDateTime, true
	case durationType:
		return edm.TypeTime, true
	case uuidType:
		return edm.TypeGuid, true
	case bytesType:
		return edm.TypeBinary, true
	}

	if name, ok := nullTypes[t]; ok {
		return name, true
	}

	switch t.Kind() {
	case reflect.Bool:
		return edm.TypeBoolean, true
	case reflect.Int8:
		return edm.TypeSByte, true
	case reflect.Uint8:
		return edm.TypeByte, true
	case reflect.Int16:
		return edm.TypeInt16, true
	case reflect.Int32, reflect.Uint16:
		return edm.TypeInt32, true
	case reflect.Int, reflect.Int64, reflect.Uint32:
		return edm.TypeInt64, true
	case reflect.Uint, reflect.Uint64:
		return edm.TypeDecimal, true
	case reflect.Float32:
		return edm.TypeSingle, true
	case reflect.Float64:
		return edm.TypeDouble, true
	case reflect.String:
		return edm.TypeString, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return edm.TypeBinary, true
		}
	}

	return "", false
}

// nullableFor reports whether values of t can be absent.
func nullableFor(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		return true
	}

	_, ok := nullTypes[t]

	return ok
}

func (b *builder) buildEntity(e *entity) error {
	e.et.Key = keyFields(e.typ)
	if len(e.et.Key) == 0 {
		return fmt.Errorf("%w: entity type %s has no key (tag a field edm:\"key\" or name it ID)",
			edmx.ErrInvalidContext, e.typ.Name())
	}

	for _, f := range entityFields(e.typ) {
		tag, err := parseTag(f)
		if err != nil {
			return fmt.Errorf("%s: %w", e.typ.Name(), err)
		}

		name := tag.propertyName(f)
		loc := e.typ.Name() + "." + f.Name

		if n := b.navigationFor(e, f, tag); n != nil {
			e.navs = append(e.navs, n)
			e.et.NavigationProperties = append(e.et.NavigationProperties, n.prop)

			continue
		}

		if edmType, ok := primitiveFor(f.Type); ok {
			p := scalarProperty(name, edmType, f.Type, tag)
			if e.et.IsKey(name) {
				p.Nullable = false
			}

			e.et.Properties = append(e.et.Properties, p)

			for _, navName := range tag.fk {
				e.fkFor[navName] = append(e.fkFor[navName], name)
			}

			continue
		}

		ct, err := b.complexType(deref(f.Type))
		if err != nil {
			return fmt.Errorf("%s: %w", loc, err)
		}

		if ct != nil {
			e.et.Properties = append(e.et.Properties, &edm.Property{
				Name: name,
				Type: b.m.Qualify(ct.Name),
			})

			continue
		}

		b.logger.Debug("Skipping unmapped field", zap.String("field", loc), zap.Stringer("type", f.Type))
	}

	// A single integral key is generated by the store unless tagged otherwise.
	if len(e.et.Key) == 1 {
		if p := e.et.Property(e.et.Key[0]); p != nil && p.StoreGeneratedPattern == "" && edm.IsIntegral(p.Type) {
			p.StoreGeneratedPattern = edm.StoreGeneratedIdentity
		}
	}

	for _, p := range e.et.Properties {
		if p.StoreGeneratedPattern == edm.StoreGeneratedNone {
			p.StoreGeneratedPattern = ""
		}
	}

	return nil
}

func scalarProperty(name, edmType string, t reflect.Type, tag fieldTag) *edm.Property {
	p := &edm.Property{
		Name:                  name,
		Type:                  edmType,
		Nullable:              nullableFor(t),
		MaxLength:             tag.maxLength,
		Precision:             tag.precision,
		Scale:                 tag.scale,
		StoreGeneratedPattern: tag.generated,
	}

	switch {
	case tag.required || tag.key:
		p.Nullable = false
	case tag.nullable:
		p.Nullable = true
	}

	if tag.concurrency {
		p.ConcurrencyMode = "Fixed"
	}

	return p
}

// navigationFor returns a navigation for fields typed as a registered
// entity, a pointer to one, or a slice of either.
func (b *builder) navigationFor(e *entity, f reflect.StructField, tag fieldTag) *nav {
	ft := f.Type
	many := false

	if ft.Kind() == reflect.Slice && ft != bytesType {
		ft = ft.Elem()
		many = true
	}

	target, ok := b.entities[deref(ft)]
	if !ok {
		return nil
	}

	return &nav{
		owner:      e,
		target:     target,
		prop:       &edm.NavigationProperty{Name: tag.propertyName(f)},
		many:       many,
		required:   tag.required,
		fkExplicit: tag.fk,
		inverseTag: tag.inverse,
	}
}

// complexType returns the complex type for a non-entity struct, building it
// on first use. It returns nil for types that cannot be mapped, and an error
// when the type contains itself, directly or through other complex types.
func (b *builder) complexType(t reflect.Type) (*edm.ComplexType, error) {
	if t.Kind() != reflect.Struct || t.Name() == "" {
		return nil, nil
	}

	if b.building[t] {
		return nil, fmt.Errorf("%w: complex type %s contains itself", edmx.ErrInvalidContext, t.Name())
	}

	if ct, ok := b.complex[t]; ok {
		return ct, nil
	}

	b.building[t] = true
	defer delete(b.building, t)

	ct := &edm.ComplexType{Name: t.Name()}

	for _, f := range entityFields(t) {
		tag, err := parseTag(f)
		if err != nil {
			b.logger.Debug("Skipping complex field with bad tag", zap.String("field", t.Name()+"."+f.Name), zap.Error(err))

			continue
		}

		name := tag.propertyName(f)

		if edmType, ok := primitiveFor(f.Type); ok {
			ct.Properties = append(ct.Properties, scalarProperty(name, edmType, f.Type, tag))

			continue
		}

		if _, isEntity := b.entities[deref(f.Type)]; isEntity {
			b.logger.Debug("Skipping navigation inside complex type", zap.String("field", t.Name()+"."+f.Name))

			continue
		}

		nested, err := b.complexType(deref(f.Type))
		if err != nil {
			return nil, fmt.Errorf("%w (via %s.%s)", err, t.Name(), f.Name)
		}

		if nested != nil {
			ct.Properties = append(ct.Properties, &edm.Property{Name: name, Type: b.m.Qualify(nested.Name)})
		}
	}

	if len(ct.Properties) == 0 {
		return nil, nil
	}

	b.complex[t] = ct
	b.m.ComplexTypes = append(b.m.ComplexTypes, ct)

	return ct, nil
}

// resolveForeignKeys finds the foreign key properties of every navigation.
func (b *builder) resolveForeignKeys() error {
	for _, e := range b.order {
		for _, n := range e.navs {
			holder := n.owner
			if n.many {
				holder = n.target
			}

			switch {
			case len(n.fkExplicit) > 0:
				for _, name := range n.fkExplicit {
					if holder.et.Property(name) == nil {
						return fmt.Errorf("%w: %s.%s: foreign key %q is not a property of %s",
							edmx.ErrInvalidContext, e.et.Name, n.prop.Name, name, holder.et.Name)
					}
				}

				n.fk = n.fkExplicit
			case !n.many && len(e.fkFor[n.prop.Name]) > 0:
				n.fk = e.fkFor[n.prop.Name]
			case !n.many:
				n.fk = conventionalForeignKey(e.et, n.target.et, n.prop.Name)
			default:
				n.fk = conventionalForeignKey(n.target.et, e.et, "")
			}

			if principal := principalOf(n); len(n.fk) > 0 && len(n.fk) != len(principal.Key) {
				return fmt.Errorf("%w: %s.%s: %d foreign key properties for a %d part key",
					edmx.ErrInvalidContext, e.et.Name, n.prop.Name, len(n.fk), len(principal.Key))
			}
		}
	}

	return nil
}

// principalOf returns the principal entity type of a navigation's constraint.
func principalOf(n *nav) *edm.EntityType {
	if n.many {
		return n.owner.et
	}

	return n.target.et
}

// conventionalForeignKey looks on dependent for properties named after the
// navigation or the principal followed by each principal key property.
func conventionalForeignKey(dependent, principal *edm.EntityType, navName string) []string {
	var prefixes []string
	if navName != "" {
		prefixes = append(prefixes, navName)
	}

	prefixes = append(prefixes, principal.Name)

	for _, prefix := range prefixes {
		fk := make([]string, 0, len(principal.Key))

		for _, k := range principal.Key {
			name := prefix + k
			if dependent.Property(name) == nil && len(principal.Key) == 1 {
				for _, alt := range []string{prefix + "ID", prefix + "Id"} {
					if dependent.Property(alt) != nil {
						name = alt

						break
					}
				}
			}

			if dependent.Property(name) == nil || (len(dependent.Key) == 1 && dependent.IsKey(name)) {
				fk = nil

				break
			}

			fk = append(fk, name)
		}

		if len(fk) == len(principal.Key) {
			return fk
		}
	}

	return nil
}

// pairInverses matches navigations that are two views of one relationship.
func (b *builder) pairInverses() error {
	for _, e := range b.order {
		for _, n := range e.navs {
			if n.inverse != nil {
				continue
			}

			if n.inverseTag != "" {
				m := n.target.nav(n.inverseTag)
				if m == nil || m.target != e || m == n {
					return fmt.Errorf("%w: %s.%s: inverse %q is not a navigation from %s back to %s",
						edmx.ErrInvalidContext, e.et.Name, n.prop.Name, n.inverseTag, n.target.et.Name, e.et.Name)
				}

				if m.inverse != nil && m.inverse != n {
					return fmt.Errorf("%w: %s.%s: inverse %q is already paired",
						edmx.ErrInvalidContext, e.et.Name, n.prop.Name, n.inverseTag)
				}

				n.inverse, m.inverse = m, n

				continue
			}

			back := candidates(n.target, e, n)
			forward := candidates(e, n.target, nil)

			// For self references both lists overlap; count only the
			// navigations that are not themselves candidates.
			forward = subtract(forward, back)

			if len(back) != 1 || len(forward) != 1 || forward[0] != n {
				continue
			}

			m := back[0]

			// Two references (or two collections) of a type to itself are
			// distinct relationships, not inverses.
			if n.target == e && m.many == n.many {
				continue
			}

			n.inverse, m.inverse = m, n
		}
	}

	return nil
}

func (e *entity) nav(name string) *nav {
	for _, n := range e.navs {
		if n.prop.Name == name {
			return n
		}
	}

	return nil
}

// candidates returns the unpaired navigations on from that target to and
// are not explicitly paired elsewhere.
func candidates(from, to *entity, exclude *nav) []*nav {
	var out []*nav

	for _, n := range from.navs {
		if n == exclude || n.target != to || n.inverse != nil || n.inverseTag != "" {
			continue
		}

		out = append(out, n)
	}

	return out
}

func subtract(a, b []*nav) []*nav {
	var out []*nav

outer:
	for _, x := range a {
		for _, y := range b {
			if x == y {
				continue outer
			}
		}

		out = append(out, x)
	}

	return out
}

// buildAssociations creates one association per navigation pair or
// unpaired navigation.
func (b *builder) buildAssociations() {
	for _, e := range b.order {
		for _, n := range e.navs {
			if n.done {
				continue
			}

			src := sourceOf(n)
			inv := src.inverse

			// A foreign key declared on the collection side backs the reference.
			if inv != nil && inv.many && !src.many && len(src.fk) == 0 {
				src.fk = inv.fk
			}

			name := src.owner.et.Name + "_" + src.prop.Name
			srcRole, tgtRole := name+"_Source", name+"_Target"

			a := &edm.Association{
				Name: name,
				Ends: [2]*edm.AssociationEnd{
					{Role: srcRole, Type: b.m.Qualify(src.owner.et.Name), Multiplicity: sourceMultiplicity(src)},
					{Role: tgtRole, Type: b.m.Qualify(src.target.et.Name), Multiplicity: targetMultiplicity(src)},
				},
			}

			if len(src.fk) > 0 {
				if src.many {
					a.Constraint = &edm.ReferentialConstraint{
						Principal: edm.ConstraintRole{Role: srcRole, Properties: src.owner.et.Key},
						Dependent: edm.ConstraintRole{Role: tgtRole, Properties: src.fk},
					}
				} else {
					a.Constraint = &edm.ReferentialConstraint{
						Principal: edm.ConstraintRole{Role: tgtRole, Properties: src.target.et.Key},
						Dependent: edm.ConstraintRole{Role: srcRole, Properties: src.fk},
					}
				}

				principal := a.End(a.Constraint.Principal.Role)
				if principal.Multiplicity == edm.MultiplicityOne {
					principal.OnDelete = "Cascade"
				}
			}

			qualified := b.m.Qualify(name)

			src.prop.Relationship, src.prop.FromRole, src.prop.ToRole = qualified, srcRole, tgtRole
			src.done = true

			if inv != nil {
				inv.prop.Relationship, inv.prop.FromRole, inv.prop.ToRole = qualified, tgtRole, srcRole
				inv.done = true
			}

			b.m.Associations = append(b.m.Associations, a)
		}
	}
}

// sourceOf picks the navigation that names the association: the reference
// side of a one-to-many pair, the side holding the foreign key of a
// one-to-one pair, else n itself.
func sourceOf(n *nav) *nav {
	m := n.inverse
	if m == nil {
		return n
	}

	switch {
	case n.many && !m.many:
		return m
	case !n.many && !m.many && len(n.fk) == 0 && len(m.fk) > 0:
		return m
	default:
		return n
	}
}

// targetMultiplicity is the multiplicity of the end src navigates to.
func targetMultiplicity(src *nav) edm.Multiplicity {
	if src.many {
		return edm.MultiplicityMany
	}

	if src.required || len(src.fk) > 0 && !anyNullable(src.owner.et, src.fk) {
		return edm.MultiplicityOne
	}

	return edm.MultiplicityZeroOrOne
}

// sourceMultiplicity is the multiplicity of src's own end.
func sourceMultiplicity(src *nav) edm.Multiplicity {
	inv := src.inverse

	switch {
	case inv != nil && inv.many:
		return edm.MultiplicityMany
	case inv != nil:
		if inv.required {
			return edm.MultiplicityOne
		}

		return edm.MultiplicityZeroOrOne
	case !src.many:
		return edm.MultiplicityMany
	case len(src.fk) > 0 && !anyNullable(src.target.et, src.fk):
		return edm.MultiplicityOne
	default:
		return edm.MultiplicityZeroOrOne
	}
}

func anyNullable(et *edm.EntityType, names []string) bool {
	for _, name := range names {
		if p := et.Property(name); p == nil || p.Nullable {
			return true
		}
	}

	return false
}

func (b *builder) buildContainer(name string) {
	c := &edm.EntityContainer{Name: name}

	setFor := make(map[string]string, len(b.order))

	for _, e := range b.order {
		c.EntitySets = append(c.EntitySets, &edm.EntitySet{
			Name:       e.set,
			EntityType: b.m.Qualify(e.et.Name),
		})
		setFor[b.m.Qualify(e.et.Name)] = e.set
	}

	for _, a := range b.m.Associations {
		c.AssociationSets = append(c.AssociationSets, &edm.AssociationSet{
			Name:        a.Name,
			Association: b.m.Qualify(a.Name),
			Ends: [2]edm.AssociationSetEnd{
				{Role: a.Ends[0].Role, EntitySet: setFor[a.Ends[0].Type]},
				{Role: a.Ends[1].Role, EntitySet: setFor[a.Ends[1].Type]},
			},
		})
	}

	b.m.Container = c
}

// namespaceFor returns the namespace chosen by a context type, if any.
func namespaceFor(t reflect.Type) string {
	if ns, ok := reflect.New(t).Interface().(Namespacer); ok {
		return strings.TrimSpace(ns.Namespace())
	}

	return ""
}
