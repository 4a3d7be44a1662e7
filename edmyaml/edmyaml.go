// Package edmyaml renders an edm.Model as a compact YAML summary.
package edmyaml

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/rlch/edmx/edm"
)

// yamlModel is the YAML representation of edm.Model.
type yamlModel struct {
	Namespace    string                              `yaml:"namespace"`
	Container    string                              `yaml:"container,omitempty"`
	EntityTypes  map[string]*yamlEntity              `yaml:"entity_types"`
	ComplexTypes map[string]map[string]*yamlProperty `yaml:"complex_types,omitempty"`
	EnumTypes    map[string][]string                 `yaml:"enum_types,omitempty"`
	Associations map[string]*yamlAssociation         `yaml:"associations,omitempty"`
}

// yamlEntity is the YAML representation of edm.EntityType.
type yamlEntity struct {
	Set         string                     `yaml:"set,omitempty"`
	Base        string                     `yaml:"base,omitempty"`
	Abstract    bool                       `yaml:"abstract,omitempty"`
	Key         []string                   `yaml:"key,flow,omitempty"`
	Properties  map[string]*yamlProperty   `yaml:"properties,omitempty"`
	Navigations map[string]*yamlNavigation `yaml:"navigations,omitempty"`
}

// yamlProperty is the YAML representation of edm.Property.
type yamlProperty struct {
	Type      string `yaml:"type"`
	Nullable  bool   `yaml:"nullable,omitempty"`
	MaxLength string `yaml:"max_length,omitempty"`
	Generated string `yaml:"generated,omitempty"`
}

// yamlNavigation is the YAML representation of edm.NavigationProperty.
type yamlNavigation struct {
	Target       string `yaml:"target"`
	Multiplicity string `yaml:"multiplicity"`
	Relationship string `yaml:"relationship"`
}

// yamlAssociation is the YAML representation of edm.Association.
type yamlAssociation struct {
	Ends       map[string]string `yaml:"ends"`
	Principal  string            `yaml:"principal,omitempty"`
	Dependent  string            `yaml:"dependent,omitempty"`
	ForeignKey []string          `yaml:"foreign_key,flow,omitempty"`
}

// Write renders m as YAML. Map keys are sorted, so output is deterministic.
func Write(w io.Writer, m *edm.Model) (err error) {
	if _, err := fmt.Fprintf(w, "# EDM summary of %s\n", m.Namespace); err != nil {
		return err
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer func() {
		if cerr := encoder.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return encoder.Encode(toYAML(m))
}

func toYAML(m *edm.Model) *yamlModel {
	ym := &yamlModel{
		Namespace:   m.Namespace,
		EntityTypes: make(map[string]*yamlEntity, len(m.EntityTypes)),
	}

	if m.Container != nil {
		ym.Container = m.Container.Name
	}

	for _, et := range m.EntityTypes {
		ye := &yamlEntity{
			Base:     m.Unqualify(et.BaseType),
			Abstract: et.Abstract,
			Key:      et.Key,
		}

		if es := m.EntitySetFor(et.Name); es != nil {
			ye.Set = es.Name
		}

		if len(et.Properties) > 0 {
			ye.Properties = properties(m, et.Properties)
		}

		if len(et.NavigationProperties) > 0 {
			ye.Navigations = make(map[string]*yamlNavigation, len(et.NavigationProperties))
			for _, n := range et.NavigationProperties {
				yn := &yamlNavigation{Relationship: m.Unqualify(n.Relationship)}
				if target, mult := m.NavigationTarget(n); target != nil {
					yn.Target = target.Name
					yn.Multiplicity = string(mult)
				}

				ye.Navigations[n.Name] = yn
			}
		}

		ym.EntityTypes[et.Name] = ye
	}

	if len(m.ComplexTypes) > 0 {
		ym.ComplexTypes = make(map[string]map[string]*yamlProperty, len(m.ComplexTypes))
		for _, ct := range m.ComplexTypes {
			ym.ComplexTypes[ct.Name] = properties(m, ct.Properties)
		}
	}

	if len(m.EnumTypes) > 0 {
		ym.EnumTypes = make(map[string][]string, len(m.EnumTypes))
		for _, en := range m.EnumTypes {
			members := make([]string, 0, len(en.Members))
			for _, mem := range en.Members {
				members = append(members, mem.Name)
			}

			ym.EnumTypes[en.Name] = members
		}
	}

	if len(m.Associations) > 0 {
		ym.Associations = make(map[string]*yamlAssociation, len(m.Associations))
		for _, a := range m.Associations {
			ya := &yamlAssociation{Ends: make(map[string]string, 2)}

			for _, end := range a.Ends {
				if end != nil {
					ya.Ends[end.Role] = m.Unqualify(end.Type) + " " + string(end.Multiplicity)
				}
			}

			if c := a.Constraint; c != nil {
				ya.Principal = c.Principal.Role
				ya.Dependent = c.Dependent.Role
				ya.ForeignKey = c.Dependent.Properties
			}

			ym.Associations[a.Name] = ya
		}
	}

	return ym
}

func properties(m *edm.Model, props []*edm.Property) map[string]*yamlProperty {
	out := make(map[string]*yamlProperty, len(props))
	for _, p := range props {
		out[p.Name] = &yamlProperty{
			Type:      m.Unqualify(p.Type),
			Nullable:  p.Nullable,
			MaxLength: p.MaxLength,
			Generated: p.StoreGeneratedPattern,
		}
	}

	return out
}
