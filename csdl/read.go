// Package csdl reads and writes conceptual schema definition documents.
//
// Parse accepts a bare CSDL <Schema> document, as shipped in Model-First
// resources, or an EDMX envelope as produced by WriteEDMX and by designer
// tooling. The schema is mapped onto an edm.Model and every reference in it
// is resolved; unresolved references are reported as a *ParseError that
// carries the partially built model's diagnostics.
package csdl

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rlch/edmx/edm"
)

// Sentinel errors.
var (
	// ErrUnknownDocument is returned when the root element is neither a
	// Schema nor an Edmx envelope.
	ErrUnknownDocument = errors.New("csdl: unknown document element")

	// ErrNoConceptualModel is returned when an EDMX envelope carries no
	// conceptual schema.
	ErrNoConceptualModel = errors.New("csdl: no conceptual model")

	// ErrUnsupportedNamespace is returned for schemas in an unknown XML namespace.
	ErrUnsupportedNamespace = errors.New("csdl: unsupported schema namespace")
)

// ParseError reports the diagnostics found while resolving a parsed schema.
type ParseError struct {
	Diagnostics []edm.Diagnostic
}

func (e *ParseError) Error() string {
	if len(e.Diagnostics) == 1 {
		return "csdl: " + e.Diagnostics[0].Error()
	}

	msgs := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		msgs = append(msgs, d.Error())
	}

	return fmt.Sprintf("csdl: %d errors: %s", len(e.Diagnostics), strings.Join(msgs, "; "))
}

// Document is a parsed EDMX document.
type Document struct {
	// Conceptual is the conceptual model. Never nil for a parsed document.
	Conceptual *edm.Model

	// Storage is the storage model, nil when the document carries none.
	Storage *edm.Model

	// Provider and ProviderManifestToken describe the storage model's
	// database provider.
	Provider              string
	ProviderManifestToken string
}

// Parse reads a CSDL or EDMX document and returns its conceptual model.
//
// XML syntax errors are returned wrapped. When the document is well formed
// but references do not resolve, Parse returns the model together with a
// *ParseError; callers decide whether the degraded model is usable.
func Parse(r io.Reader) (*edm.Model, error) {
	doc, err := ParseDocument(r)
	if doc == nil {
		return nil, err
	}

	return doc.Conceptual, err
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte) (*edm.Model, error) {
	return Parse(bytes.NewReader(data))
}

// ParseDocument reads a CSDL or EDMX document. Only the conceptual model is
// resolved; storage schemas use provider types and are returned as read.
func ParseDocument(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(stripBOM(r))

	start, err := rootElement(dec)
	if err != nil {
		return nil, err
	}

	doc := &Document{}

	var conceptual *xmlSchema

	switch start.Name.Local {
	case "Schema":
		var xs xmlSchema
		if err := dec.DecodeElement(&xs, &start); err != nil {
			return nil, fmt.Errorf("csdl: decoding schema: %w", err)
		}

		conceptual = &xs
	case "Edmx":
		var xe xmlEdmx
		if err := dec.DecodeElement(&xe, &start); err != nil {
			return nil, fmt.Errorf("csdl: decoding edmx: %w", err)
		}

		var storage *xmlSchema

		conceptual, storage, err = envelopeSchemas(&xe)
		if err != nil {
			return nil, err
		}

		if storage != nil {
			if !knownSchemaNamespaces[storage.Xmlns] {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedNamespace, storage.Xmlns)
			}

			doc.Storage, _ = schemaToModel(storage)
			doc.Provider = storage.Provider
			doc.ProviderManifestToken = storage.ProviderManifestToken
		}
	default:
		return nil, fmt.Errorf("%w: <%s>", ErrUnknownDocument, start.Name.Local)
	}

	if !knownSchemaNamespaces[conceptual.Xmlns] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedNamespace, conceptual.Xmlns)
	}

	var diags []edm.Diagnostic

	doc.Conceptual, diags = schemaToModel(conceptual)
	diags = append(diags, doc.Conceptual.Resolve()...)

	if len(diags) > 0 {
		return doc, &ParseError{Diagnostics: diags}
	}

	return doc, nil
}

// rootElement advances the decoder to the document element.
func rootElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, fmt.Errorf("%w: empty document", ErrUnknownDocument)
			}

			return xml.StartElement{}, fmt.Errorf("csdl: reading document: %w", err)
		}

		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

func envelopeSchemas(xe *xmlEdmx) (conceptual, storage *xmlSchema, err error) {
	var models *xmlModels

	switch {
	case xe.Runtime != nil && xe.Runtime.ConceptualModels != nil:
		models = xe.Runtime.ConceptualModels

		if sm := xe.Runtime.StorageModels; sm != nil && len(sm.Schemas) > 0 {
			storage = &sm.Schemas[0]
		}
	case xe.DataServices != nil:
		models = xe.DataServices
	}

	if models == nil || len(models.Schemas) == 0 {
		return nil, nil, ErrNoConceptualModel
	}

	// Data services documents may split a model over several schemas; the
	// first schema declaring entity types is the conceptual model.
	conceptual = &models.Schemas[0]

	for i := range models.Schemas {
		if len(models.Schemas[i].EntityTypes) > 0 {
			conceptual = &models.Schemas[i]

			break
		}
	}

	// The entity container may live in a schema of its own.
	if len(conceptual.EntityContainers) == 0 {
		for i := range models.Schemas {
			if containers := models.Schemas[i].EntityContainers; len(containers) > 0 {
				merged := *conceptual
				merged.EntityContainers = containers
				conceptual = &merged

				break
			}
		}
	}

	return conceptual, storage, nil
}

// schemaToModel maps the XML schema onto an edm.Model. Structural problems
// that cannot be represented in the model are returned as diagnostics.
func schemaToModel(xs *xmlSchema) (*edm.Model, []edm.Diagnostic) {
	m := &edm.Model{
		Namespace: xs.Namespace,
		Alias:     xs.Alias,
	}

	var diags []edm.Diagnostic

	for _, xet := range xs.EntityTypes {
		et := &edm.EntityType{
			Name:     xet.Name,
			BaseType: xet.BaseType,
			Abstract: xet.Abstract,
		}

		if xet.Key != nil {
			for _, ref := range xet.Key.PropertyRefs {
				et.Key = append(et.Key, ref.Name)
			}
		}

		for _, xp := range xet.Properties {
			et.Properties = append(et.Properties, propertyFromXML(xp))
		}

		for _, xn := range xet.NavigationProperties {
			et.NavigationProperties = append(et.NavigationProperties, &edm.NavigationProperty{
				Name:         xn.Name,
				Relationship: xn.Relationship,
				FromRole:     xn.FromRole,
				ToRole:       xn.ToRole,
			})
		}

		m.EntityTypes = append(m.EntityTypes, et)
	}

	for _, xct := range xs.ComplexTypes {
		ct := &edm.ComplexType{Name: xct.Name}
		for _, xp := range xct.Properties {
			ct.Properties = append(ct.Properties, propertyFromXML(xp))
		}

		m.ComplexTypes = append(m.ComplexTypes, ct)
	}

	for _, xen := range xs.EnumTypes {
		en := &edm.EnumType{
			Name:           xen.Name,
			UnderlyingType: xen.UnderlyingType,
			IsFlags:        xen.IsFlags,
		}
		for _, xm := range xen.Members {
			en.Members = append(en.Members, &edm.EnumMember{Name: xm.Name, Value: xm.Value})
		}

		m.EnumTypes = append(m.EnumTypes, en)
	}

	for _, xa := range xs.Associations {
		a := &edm.Association{Name: xa.Name}

		if len(xa.Ends) != 2 {
			diags = append(diags, edm.Diagnostic{
				Code:     edm.CodeUnknownRole,
				Location: xa.Name,
				Message:  fmt.Sprintf("association declares %d ends, want 2", len(xa.Ends)),
			})
		}

		for i, xe := range xa.Ends {
			if i >= len(a.Ends) {
				break
			}

			end := &edm.AssociationEnd{
				Role:         xe.Role,
				Type:         xe.Type,
				Multiplicity: edm.Multiplicity(xe.Multiplicity),
			}
			if xe.OnDelete != nil {
				end.OnDelete = xe.OnDelete.Action
			}

			a.Ends[i] = end
		}

		if xa.Constraint != nil {
			a.Constraint = &edm.ReferentialConstraint{
				Principal: constraintRoleFromXML(xa.Constraint.Principal),
				Dependent: constraintRoleFromXML(xa.Constraint.Dependent),
			}
		}

		m.Associations = append(m.Associations, a)
	}

	if len(xs.EntityContainers) > 1 {
		diags = append(diags, edm.Diagnostic{
			Code:     edm.CodeDuplicateName,
			Location: xs.Namespace,
			Message:  fmt.Sprintf("schema declares %d entity containers, want at most 1", len(xs.EntityContainers)),
		})
	}

	if len(xs.EntityContainers) > 0 {
		m.Container = containerFromXML(&xs.EntityContainers[0])
	}

	return m, diags
}

func propertyFromXML(xp xmlProperty) *edm.Property {
	return &edm.Property{
		Name:                  xp.Name,
		Type:                  xp.Type,
		Nullable:              xp.Nullable == nil || *xp.Nullable,
		MaxLength:             xp.MaxLength,
		Precision:             xp.Precision,
		Scale:                 xp.Scale,
		StoreGeneratedPattern: xp.StoreGeneratedPattern,
		ConcurrencyMode:       xp.ConcurrencyMode,
	}
}

func constraintRoleFromXML(xr xmlConstraintRole) edm.ConstraintRole {
	cr := edm.ConstraintRole{Role: xr.Role}
	for _, ref := range xr.PropertyRefs {
		cr.Properties = append(cr.Properties, ref.Name)
	}

	return cr
}

func containerFromXML(xc *xmlContainer) *edm.EntityContainer {
	c := &edm.EntityContainer{Name: xc.Name}

	for _, xes := range xc.EntitySets {
		c.EntitySets = append(c.EntitySets, &edm.EntitySet{
			Name:       xes.Name,
			EntityType: xes.EntityType,
			Schema:     xes.Schema,
			Table:      xes.Table,
		})
	}

	for _, xas := range xc.AssociationSets {
		as := &edm.AssociationSet{Name: xas.Name, Association: xas.Association}
		for i, end := range xas.Ends {
			if i >= len(as.Ends) {
				break
			}

			as.Ends[i] = edm.AssociationSetEnd{Role: end.Role, EntitySet: end.EntitySet}
		}

		c.AssociationSets = append(c.AssociationSets, as)
	}

	return c
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripBOM drops a leading UTF-8 byte order mark ahead of the XML declaration.
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)

	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	return br
}
