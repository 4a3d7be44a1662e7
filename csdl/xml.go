package csdl

import "encoding/xml"

// XML namespaces.
const (
	NamespaceCSDLv1 = "http://schemas.microsoft.com/ado/2006/04/edm"
	NamespaceCSDLv2 = "http://schemas.microsoft.com/ado/2008/09/edm"
	NamespaceCSDLv3 = "http://schemas.microsoft.com/ado/2009/11/edm"

	NamespaceSSDLv1 = "http://schemas.microsoft.com/ado/2006/04/edm/ssdl"
	NamespaceSSDLv2 = "http://schemas.microsoft.com/ado/2009/02/edm/ssdl"
	NamespaceSSDLv3 = "http://schemas.microsoft.com/ado/2009/11/edm/ssdl"

	NamespaceEDMXv3 = "http://schemas.microsoft.com/ado/2009/11/edmx"

	// EDMXVersion is the envelope version written by WriteEDMX.
	EDMXVersion = "3.0"
)

var knownSchemaNamespaces = map[string]bool{
	"":              true,
	NamespaceCSDLv1: true,
	NamespaceCSDLv2: true,
	NamespaceCSDLv3: true,
	NamespaceSSDLv1: true,
	NamespaceSSDLv2: true,
	NamespaceSSDLv3: true,
}

// Schema contents. The same element types serve conceptual and storage
// schemas; element names are matched by local name on read.

type xmlSchema struct {
	XMLName xml.Name `xml:"Schema"`
	Xmlns   string   `xml:"xmlns,attr,omitempty"`

	Namespace             string `xml:"Namespace,attr"`
	Alias                 string `xml:"Alias,attr,omitempty"`
	Provider              string `xml:"Provider,attr,omitempty"`
	ProviderManifestToken string `xml:"ProviderManifestToken,attr,omitempty"`

	EntityTypes      []xmlEntityType  `xml:"EntityType"`
	ComplexTypes     []xmlComplexType `xml:"ComplexType"`
	EnumTypes        []xmlEnumType    `xml:"EnumType"`
	Associations     []xmlAssociation `xml:"Association"`
	EntityContainers []xmlContainer   `xml:"EntityContainer"`
}

type xmlEntityType struct {
	Name                 string          `xml:"Name,attr"`
	BaseType             string          `xml:"BaseType,attr,omitempty"`
	Abstract             bool            `xml:"Abstract,attr,omitempty"`
	Key                  *xmlKey         `xml:"Key"`
	Properties           []xmlProperty   `xml:"Property"`
	NavigationProperties []xmlNavigation `xml:"NavigationProperty"`
}

type xmlComplexType struct {
	Name       string        `xml:"Name,attr"`
	Properties []xmlProperty `xml:"Property"`
}

type xmlEnumType struct {
	Name           string          `xml:"Name,attr"`
	UnderlyingType string          `xml:"UnderlyingType,attr,omitempty"`
	IsFlags        bool            `xml:"IsFlags,attr,omitempty"`
	Members        []xmlEnumMember `xml:"Member"`
}

type xmlEnumMember struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr,omitempty"`
}

type xmlKey struct {
	PropertyRefs []xmlPropertyRef `xml:"PropertyRef"`
}

type xmlPropertyRef struct {
	Name string `xml:"Name,attr"`
}

type xmlProperty struct {
	Name                  string `xml:"Name,attr"`
	Type                  string `xml:"Type,attr"`
	Nullable              *bool  `xml:"Nullable,attr,omitempty"`
	MaxLength             string `xml:"MaxLength,attr,omitempty"`
	Precision             *int   `xml:"Precision,attr,omitempty"`
	Scale                 *int   `xml:"Scale,attr,omitempty"`
	StoreGeneratedPattern string `xml:"StoreGeneratedPattern,attr,omitempty"`
	ConcurrencyMode       string `xml:"ConcurrencyMode,attr,omitempty"`
}

type xmlNavigation struct {
	Name         string `xml:"Name,attr"`
	Relationship string `xml:"Relationship,attr"`
	FromRole     string `xml:"FromRole,attr"`
	ToRole       string `xml:"ToRole,attr"`
}

type xmlAssociation struct {
	Name       string         `xml:"Name,attr"`
	Ends       []xmlEnd       `xml:"End"`
	Constraint *xmlConstraint `xml:"ReferentialConstraint"`
}

type xmlEnd struct {
	Role         string       `xml:"Role,attr"`
	Type         string       `xml:"Type,attr"`
	Multiplicity string       `xml:"Multiplicity,attr"`
	OnDelete     *xmlOnDelete `xml:"OnDelete"`
}

type xmlOnDelete struct {
	Action string `xml:"Action,attr"`
}

type xmlConstraint struct {
	Principal xmlConstraintRole `xml:"Principal"`
	Dependent xmlConstraintRole `xml:"Dependent"`
}

type xmlConstraintRole struct {
	Role         string           `xml:"Role,attr"`
	PropertyRefs []xmlPropertyRef `xml:"PropertyRef"`
}

type xmlContainer struct {
	Name            string              `xml:"Name,attr"`
	EntitySets      []xmlEntitySet      `xml:"EntitySet"`
	AssociationSets []xmlAssociationSet `xml:"AssociationSet"`
}

type xmlEntitySet struct {
	Name       string `xml:"Name,attr"`
	EntityType string `xml:"EntityType,attr"`
	Schema     string `xml:"Schema,attr,omitempty"`
	Table      string `xml:"Table,attr,omitempty"`
}

type xmlAssociationSet struct {
	Name        string      `xml:"Name,attr"`
	Association string      `xml:"Association,attr"`
	Ends        []xmlSetEnd `xml:"End"`
}

type xmlSetEnd struct {
	Role      string `xml:"Role,attr"`
	EntitySet string `xml:"EntitySet,attr"`
}

// EDMX envelope as read. Element names match any namespace prefix.

type xmlEdmx struct {
	Version      string      `xml:"Version,attr"`
	Runtime      *xmlRuntime `xml:"Runtime"`
	DataServices *xmlModels  `xml:"DataServices"`
}

type xmlRuntime struct {
	ConceptualModels *xmlModels `xml:"ConceptualModels"`
	StorageModels    *xmlModels `xml:"StorageModels"`
}

type xmlModels struct {
	Schemas []xmlSchema `xml:"Schema"`
}

// EDMX envelope as written. encoding/xml emits prefixed names verbatim.

type xmlEdmxOut struct {
	XMLName   xml.Name      `xml:"edmx:Edmx"`
	Version   string        `xml:"Version,attr"`
	XmlnsEdmx string        `xml:"xmlns:edmx,attr"`
	Runtime   xmlRuntimeOut `xml:"edmx:Runtime"`
}

type xmlRuntimeOut struct {
	ConceptualModels xmlModelsOut  `xml:"edmx:ConceptualModels"`
	StorageModels    *xmlModelsOut `xml:"edmx:StorageModels,omitempty"`
}

type xmlModelsOut struct {
	Schema *xmlSchema `xml:"Schema"`
}
