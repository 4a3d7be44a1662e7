package edm

import "fmt"

// Diagnostic codes.
const (
	CodeDuplicateName      = "DuplicateName"
	CodeUnknownType        = "UnknownType"
	CodeBadKey             = "BadKey"
	CodeUnknownAssociation = "UnknownAssociation"
	CodeUnknownRole        = "UnknownRole"
	CodeBadMultiplicity    = "BadMultiplicity"
	CodeBadConstraint      = "BadConstraint"
	CodeUnknownEntitySet   = "UnknownEntitySet"
)

// Diagnostic is an unresolved or conflicting reference found in a model.
type Diagnostic struct {
	Code string

	// Location is the dotted path of the offending element
	// (e.g., "Blog.Posts", "Post_Blog.Post_Blog_Target").
	Location string

	Message string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s (%s)", d.Location, d.Message, d.Code)
}

// Resolve checks that every name referenced by the model resolves. It
// returns the diagnostics in document order; an empty result means the
// model is internally consistent.
func (m *Model) Resolve() []Diagnostic {
	r := &resolver{m: m}

	r.checkDuplicates()

	for _, ct := range m.ComplexTypes {
		for _, p := range ct.Properties {
			r.checkPropertyType(ct.Name+"."+p.Name, p)
		}
	}

	for _, et := range m.EnumTypes {
		r.checkEnumType(et)
	}

	for _, et := range m.EntityTypes {
		r.checkEntityType(et)
	}

	for _, a := range m.Associations {
		r.checkAssociation(a)
	}

	if m.Container != nil {
		r.checkContainer(m.Container)
	}

	return r.diags
}

type resolver struct {
	m     *Model
	diags []Diagnostic
}

func (r *resolver) add(code, loc, format string, args ...any) {
	r.diags = append(r.diags, Diagnostic{Code: code, Location: loc, Message: fmt.Sprintf(format, args...)})
}

func (r *resolver) checkDuplicates() {
	seen := make(map[string]bool)

	check := func(name string) {
		if seen[name] {
			r.add(CodeDuplicateName, name, "type %q is declared more than once", name)
		}

		seen[name] = true
	}

	for _, et := range r.m.EntityTypes {
		check(et.Name)
	}

	for _, ct := range r.m.ComplexTypes {
		check(ct.Name)
	}

	for _, et := range r.m.EnumTypes {
		check(et.Name)
	}

	for _, a := range r.m.Associations {
		check(a.Name)
	}
}

func (r *resolver) checkPropertyType(loc string, p *Property) {
	if IsPrimitive(p.Type) || r.m.ComplexType(p.Type) != nil || r.m.EnumType(p.Type) != nil {
		return
	}

	r.add(CodeUnknownType, loc, "property type %q does not resolve", p.Type)
}

func (r *resolver) checkEnumType(et *EnumType) {
	if et.UnderlyingType != "" && !IsIntegral(et.UnderlyingType) {
		r.add(CodeUnknownType, et.Name, "underlying type %q is not an integral primitive", et.UnderlyingType)
	}

	names := make(map[string]bool)

	for _, m := range et.Members {
		if names[m.Name] {
			r.add(CodeDuplicateName, et.Name+"."+m.Name, "member %q is declared more than once", m.Name)
		}

		names[m.Name] = true
	}
}

func (r *resolver) checkEntityType(et *EntityType) {
	if et.BaseType != "" && r.m.EntityType(et.BaseType) == nil {
		r.add(CodeUnknownType, et.Name, "base type %q does not resolve", et.BaseType)
	}

	names := make(map[string]bool)

	for _, p := range et.Properties {
		loc := et.Name + "." + p.Name
		if names[p.Name] {
			r.add(CodeDuplicateName, loc, "member %q is declared more than once", p.Name)
		}

		names[p.Name] = true

		r.checkPropertyType(loc, p)
	}

	if len(et.Key) == 0 && et.BaseType == "" && !et.Abstract {
		r.add(CodeBadKey, et.Name, "entity type has no key")
	}

	for _, k := range et.Key {
		if r.m.findProperty(et, k) == nil {
			r.add(CodeBadKey, et.Name, "key property %q is not declared", k)
		}
	}

	for _, n := range et.NavigationProperties {
		loc := et.Name + "." + n.Name
		if names[n.Name] {
			r.add(CodeDuplicateName, loc, "member %q is declared more than once", n.Name)
		}

		names[n.Name] = true

		r.checkNavigation(loc, et, n)
	}
}

func (r *resolver) checkNavigation(loc string, et *EntityType, n *NavigationProperty) {
	a := r.m.Association(n.Relationship)
	if a == nil {
		r.add(CodeUnknownAssociation, loc, "relationship %q does not resolve", n.Relationship)

		return
	}

	from := a.End(n.FromRole)
	if from == nil {
		r.add(CodeUnknownRole, loc, "from role %q is not an end of %s", n.FromRole, a.Name)
	} else if r.m.Unqualify(from.Type) != et.Name && !r.m.derivesFrom(et, from.Type) {
		r.add(CodeUnknownRole, loc, "from role %q has type %s, not %s", n.FromRole, from.Type, et.Name)
	}

	if a.End(n.ToRole) == nil {
		r.add(CodeUnknownRole, loc, "to role %q is not an end of %s", n.ToRole, a.Name)
	}
}

func (r *resolver) checkAssociation(a *Association) {
	for i, end := range a.Ends {
		if end == nil {
			r.add(CodeUnknownRole, a.Name, "association end %d is missing", i+1)

			continue
		}

		loc := a.Name + "." + end.Role
		if r.m.EntityType(end.Type) == nil {
			r.add(CodeUnknownType, loc, "end type %q does not resolve", end.Type)
		}

		if !end.Multiplicity.Valid() {
			r.add(CodeBadMultiplicity, loc, "multiplicity %q is not one of 0..1, 1, *", end.Multiplicity)
		}
	}

	if a.Ends[0] != nil && a.Ends[1] != nil && a.Ends[0].Role == a.Ends[1].Role {
		r.add(CodeDuplicateName, a.Name, "both ends use role %q", a.Ends[0].Role)
	}

	if a.Constraint != nil {
		r.checkConstraintRole(a, a.Constraint.Principal)
		r.checkConstraintRole(a, a.Constraint.Dependent)

		if len(a.Constraint.Principal.Properties) != len(a.Constraint.Dependent.Properties) {
			r.add(CodeBadConstraint, a.Name, "principal and dependent property counts differ")
		}
	}
}

func (r *resolver) checkConstraintRole(a *Association, cr ConstraintRole) {
	loc := a.Name + "." + cr.Role

	end := a.End(cr.Role)
	if end == nil {
		r.add(CodeBadConstraint, loc, "constraint role %q is not an end of %s", cr.Role, a.Name)

		return
	}

	et := r.m.EntityType(end.Type)
	if et == nil {
		return
	}

	for _, p := range cr.Properties {
		if r.m.findProperty(et, p) == nil {
			r.add(CodeBadConstraint, loc, "constraint property %q is not declared on %s", p, et.Name)
		}
	}
}

func (r *resolver) checkContainer(c *EntityContainer) {
	sets := make(map[string]bool)

	for _, es := range c.EntitySets {
		loc := c.Name + "." + es.Name
		if sets[es.Name] {
			r.add(CodeDuplicateName, loc, "entity set %q is declared more than once", es.Name)
		}

		sets[es.Name] = true

		if r.m.EntityType(es.EntityType) == nil {
			r.add(CodeUnknownType, loc, "entity type %q does not resolve", es.EntityType)
		}
	}

	for _, as := range c.AssociationSets {
		loc := c.Name + "." + as.Name

		a := r.m.Association(as.Association)
		if a == nil {
			r.add(CodeUnknownAssociation, loc, "association %q does not resolve", as.Association)

			continue
		}

		for _, end := range as.Ends {
			if a.End(end.Role) == nil {
				r.add(CodeUnknownRole, loc, "role %q is not an end of %s", end.Role, a.Name)
			}

			if !sets[end.EntitySet] {
				r.add(CodeUnknownEntitySet, loc, "entity set %q is not declared", end.EntitySet)
			}
		}
	}
}

// findProperty looks up a property on et or its base types.
func (m *Model) findProperty(et *EntityType, name string) *Property {
	for seen := map[string]bool{}; et != nil && !seen[et.Name]; et = m.EntityType(et.BaseType) {
		seen[et.Name] = true

		if p := et.Property(name); p != nil {
			return p
		}

		if et.BaseType == "" {
			break
		}
	}

	return nil
}

// derivesFrom reports whether et is, or inherits from, the named type.
func (m *Model) derivesFrom(et *EntityType, name string) bool {
	name = m.Unqualify(name)

	for seen := map[string]bool{}; et != nil && !seen[et.Name]; et = m.EntityType(et.BaseType) {
		seen[et.Name] = true

		if et.Name == name {
			return true
		}

		if et.BaseType == "" {
			break
		}
	}

	return false
}
