package csdl

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/rlch/edmx/edm"
)

// WriteSchema writes m as a bare CSDL v3 <Schema> document.
func WriteSchema(w io.Writer, m *edm.Model) error {
	return encode(w, schemaToXML(m, NamespaceCSDLv3))
}

// WriteEDMX writes doc as an EDMX v3 envelope holding the conceptual model
// and, when present, the storage model.
func WriteEDMX(w io.Writer, doc *Document) error {
	if doc == nil || doc.Conceptual == nil {
		return ErrNoConceptualModel
	}

	out := &xmlEdmxOut{
		Version:   EDMXVersion,
		XmlnsEdmx: NamespaceEDMXv3,
		Runtime: xmlRuntimeOut{
			ConceptualModels: xmlModelsOut{Schema: schemaToXML(doc.Conceptual, NamespaceCSDLv3)},
		},
	}

	if doc.Storage != nil {
		ss := schemaToXML(doc.Storage, NamespaceSSDLv3)
		ss.Provider = doc.Provider
		ss.ProviderManifestToken = doc.ProviderManifestToken
		out.Runtime.StorageModels = &xmlModelsOut{Schema: ss}
	}

	return encode(w, out)
}

func encode(w io.Writer, v any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("csdl: encoding: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("csdl: encoding: %w", err)
	}

	_, err := io.WriteString(w, "\n")

	return err
}

func schemaToXML(m *edm.Model, xmlns string) *xmlSchema {
	xs := &xmlSchema{
		Xmlns:     xmlns,
		Namespace: m.Namespace,
		Alias:     m.Alias,
	}

	for _, et := range m.EntityTypes {
		xet := xmlEntityType{
			Name:     et.Name,
			BaseType: et.BaseType,
			Abstract: et.Abstract,
		}

		if len(et.Key) > 0 {
			xet.Key = &xmlKey{PropertyRefs: propertyRefs(et.Key)}
		}

		for _, p := range et.Properties {
			xet.Properties = append(xet.Properties, propertyToXML(p))
		}

		for _, n := range et.NavigationProperties {
			xet.NavigationProperties = append(xet.NavigationProperties, xmlNavigation{
				Name:         n.Name,
				Relationship: n.Relationship,
				FromRole:     n.FromRole,
				ToRole:       n.ToRole,
			})
		}

		xs.EntityTypes = append(xs.EntityTypes, xet)
	}

	for _, ct := range m.ComplexTypes {
		xct := xmlComplexType{Name: ct.Name}
		for _, p := range ct.Properties {
			xct.Properties = append(xct.Properties, propertyToXML(p))
		}

		xs.ComplexTypes = append(xs.ComplexTypes, xct)
	}

	for _, en := range m.EnumTypes {
		xen := xmlEnumType{
			Name:           en.Name,
			UnderlyingType: en.UnderlyingType,
			IsFlags:        en.IsFlags,
		}
		for _, mem := range en.Members {
			xen.Members = append(xen.Members, xmlEnumMember{Name: mem.Name, Value: mem.Value})
		}

		xs.EnumTypes = append(xs.EnumTypes, xen)
	}

	for _, a := range m.Associations {
		xa := xmlAssociation{Name: a.Name}

		for _, end := range a.Ends {
			if end == nil {
				continue
			}

			xe := xmlEnd{Role: end.Role, Type: end.Type, Multiplicity: string(end.Multiplicity)}
			if end.OnDelete != "" {
				xe.OnDelete = &xmlOnDelete{Action: end.OnDelete}
			}

			xa.Ends = append(xa.Ends, xe)
		}

		if c := a.Constraint; c != nil {
			xa.Constraint = &xmlConstraint{
				Principal: xmlConstraintRole{Role: c.Principal.Role, PropertyRefs: propertyRefs(c.Principal.Properties)},
				Dependent: xmlConstraintRole{Role: c.Dependent.Role, PropertyRefs: propertyRefs(c.Dependent.Properties)},
			}
		}

		xs.Associations = append(xs.Associations, xa)
	}

	if c := m.Container; c != nil {
		xc := xmlContainer{Name: c.Name}

		for _, es := range c.EntitySets {
			xc.EntitySets = append(xc.EntitySets, xmlEntitySet{
				Name:       es.Name,
				EntityType: es.EntityType,
				Schema:     es.Schema,
				Table:      es.Table,
			})
		}

		for _, as := range c.AssociationSets {
			xas := xmlAssociationSet{Name: as.Name, Association: as.Association}
			for _, end := range as.Ends {
				xas.Ends = append(xas.Ends, xmlSetEnd{Role: end.Role, EntitySet: end.EntitySet})
			}

			xc.AssociationSets = append(xc.AssociationSets, xas)
		}

		xs.EntityContainers = []xmlContainer{xc}
	}

	return xs
}

func propertyToXML(p *edm.Property) xmlProperty {
	xp := xmlProperty{
		Name:                  p.Name,
		Type:                  p.Type,
		MaxLength:             p.MaxLength,
		Precision:             p.Precision,
		Scale:                 p.Scale,
		StoreGeneratedPattern: p.StoreGeneratedPattern,
		ConcurrencyMode:       p.ConcurrencyMode,
	}

	// Nullable defaults to true; only the non-default is written.
	if !p.Nullable {
		f := false
		xp.Nullable = &f
	}

	return xp
}

func propertyRefs(names []string) []xmlPropertyRef {
	refs := make([]xmlPropertyRef, 0, len(names))
	for _, n := range names {
		refs = append(refs, xmlPropertyRef{Name: n})
	}

	return refs
}
