package csdl_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/edmx/csdl"
	"github.com/rlch/edmx/edm"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)

	return data
}

func ptr[T any](v T) *T {
	return &v
}

func TestParse_Schema(t *testing.T) {
	t.Parallel()

	m, err := csdl.ParseBytes(readFixture(t, "blogging.csdl"))
	require.NoError(t, err)

	assert.Equal(t, "Blogging.Model", m.Namespace)
	assert.Equal(t, "Self", m.Alias)

	require.Len(t, m.EntityTypes, 2)
	assert.Equal(t, "Blog", m.EntityTypes[0].Name)
	assert.Equal(t, "Post", m.EntityTypes[1].Name)

	blog := m.EntityType("Blogging.Model.Blog")
	require.NotNil(t, blog)
	assert.Equal(t, []string{"BlogId"}, blog.Key)

	wantBlogProps := []*edm.Property{
		{Name: "BlogId", Type: "Int32", StoreGeneratedPattern: edm.StoreGeneratedIdentity},
		{Name: "Name", Type: "String", Nullable: true, MaxLength: "200"},
		{Name: "Address", Type: "Self.Address"},
	}
	if diff := cmp.Diff(wantBlogProps, blog.Properties); diff != "" {
		t.Errorf("Blog properties mismatch (-want +got):\n%s", diff)
	}

	post := m.EntityType("Self.Post")
	require.NotNil(t, post)

	rating := post.Property("Rating")
	require.NotNil(t, rating)
	assert.Equal(t, ptr(5), rating.Precision)
	assert.Equal(t, ptr(2), rating.Scale)
	assert.True(t, rating.Nullable)
	assert.Equal(t, "Fixed", post.Property("RowVersion").ConcurrencyMode)
	assert.Equal(t, "Max", post.Property("Title").MaxLength)

	target, mult := m.NavigationTarget(blog.NavigationProperty("Posts"))
	require.NotNil(t, target)
	assert.Equal(t, "Post", target.Name)
	assert.Equal(t, edm.MultiplicityMany, mult)

	target, mult = m.NavigationTarget(post.NavigationProperty("Blog"))
	require.NotNil(t, target)
	assert.Equal(t, "Blog", target.Name)
	assert.Equal(t, edm.MultiplicityOne, mult)

	a := m.Association("Post_Blog")
	require.NotNil(t, a)
	assert.Equal(t, "Cascade", a.End("Post_Blog_Target").OnDelete)

	wantConstraint := &edm.ReferentialConstraint{
		Principal: edm.ConstraintRole{Role: "Post_Blog_Target", Properties: []string{"BlogId"}},
		Dependent: edm.ConstraintRole{Role: "Post_Blog_Source", Properties: []string{"BlogId"}},
	}
	if diff := cmp.Diff(wantConstraint, a.Constraint); diff != "" {
		t.Errorf("constraint mismatch (-want +got):\n%s", diff)
	}

	require.NotNil(t, m.ComplexType("Address"))
	assert.Len(t, m.ComplexType("Self.Address").Properties, 2)

	require.NotNil(t, m.Container)
	assert.Equal(t, "BloggingContext", m.Container.Name)
	assert.Equal(t, "Posts", m.EntitySetFor("Post").Name)
	require.Len(t, m.Container.AssociationSets, 1)
}

func TestParse_ByteOrderMark(t *testing.T) {
	t.Parallel()

	data := append([]byte{0xEF, 0xBB, 0xBF}, readFixture(t, "blogging.csdl")...)

	m, err := csdl.ParseBytes(data)
	require.NoError(t, err)
	assert.Equal(t, "Blogging.Model", m.Namespace)
}

func TestParse_DataServices(t *testing.T) {
	t.Parallel()

	m, err := csdl.Parse(bytes.NewReader(readFixture(t, "northwind_v2.edmx")))
	require.NoError(t, err)

	// The annotations schema comes first but declares no entity types, and
	// the container is declared in a schema of its own.
	assert.Equal(t, "NorthwindModel", m.Namespace)
	require.NotNil(t, m.Container)
	assert.Equal(t, "NorthwindEntities", m.Container.Name)
	assert.Equal(t, "Categories", m.EntitySetFor("NorthwindModel.Category").Name)

	category := m.EntityType("Category")
	require.NotNil(t, category)
	assert.Equal(t, "15", category.Property("CategoryName").MaxLength)
	assert.False(t, category.Property("CategoryName").Nullable)
	assert.True(t, m.EntityType("Product").Property("CategoryID").Nullable)

	target, mult := m.NavigationTarget(m.EntityType("Product").NavigationProperty("Category"))
	require.NotNil(t, target)
	assert.Equal(t, "Category", target.Name)
	assert.Equal(t, edm.MultiplicityZeroOrOne, mult)
}

func TestParse_UnresolvedReferences(t *testing.T) {
	t.Parallel()

	m, err := csdl.ParseBytes(readFixture(t, "broken.csdl"))
	require.Error(t, err)

	var perr *csdl.ParseError
	require.True(t, errors.As(err, &perr))

	want := []edm.Diagnostic{
		{Code: edm.CodeUnknownType, Location: "Order.Total"},
		{Code: edm.CodeUnknownAssociation, Location: "Order.Customer"},
		{Code: edm.CodeUnknownType, Location: "BrokenContext.Lines"},
	}
	if diff := cmp.Diff(want, perr.Diagnostics, cmpopts.IgnoreFields(edm.Diagnostic{}, "Message")); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}

	assert.Contains(t, err.Error(), "3 errors")

	// The partially built model accompanies the error.
	require.NotNil(t, m)
	assert.NotNil(t, m.EntityType("Order"))
}

const shopSchema = `<?xml version="1.0" encoding="utf-8"?>
<Schema Namespace="Shop" xmlns="http://schemas.microsoft.com/ado/2009/11/edm">
  <EnumType Name="Status" UnderlyingType="Byte">
    <Member Name="Pending" Value="0" />
    <Member Name="Shipped" Value="1" />
    <Member Name="Cancelled" />
  </EnumType>
  <EnumType Name="Flags" IsFlags="true">
    <Member Name="Gift" Value="1" />
    <Member Name="Express" Value="2" />
  </EnumType>
  <EntityType Name="Order">
    <Key><PropertyRef Name="ID" /></Key>
    <Property Name="ID" Type="Int32" Nullable="false" />
    <Property Name="Status" Type="Shop.Status" Nullable="false" />
    <Property Name="Options" Type="Shop.Flags" />
    <Property Name="Destination" Type="Edm.GeographyPoint" />
    <Property Name="Area" Type="Geography" />
    <Property Name="Footprint" Type="GeometryPolygon" />
  </EntityType>
  <EntityContainer Name="ShopContext">
    <EntitySet Name="Orders" EntityType="Shop.Order" />
  </EntityContainer>
</Schema>`

func TestParse_EnumAndSpatialTypes(t *testing.T) {
	t.Parallel()

	m, err := csdl.ParseBytes([]byte(shopSchema))
	require.NoError(t, err)

	want := []*edm.EnumType{
		{
			Name:           "Status",
			UnderlyingType: "Byte",
			Members: []*edm.EnumMember{
				{Name: "Pending", Value: "0"},
				{Name: "Shipped", Value: "1"},
				{Name: "Cancelled"},
			},
		},
		{
			Name:    "Flags",
			IsFlags: true,
			Members: []*edm.EnumMember{
				{Name: "Gift", Value: "1"},
				{Name: "Express", Value: "2"},
			},
		},
	}
	if diff := cmp.Diff(want, m.EnumTypes); diff != "" {
		t.Errorf("enum types mismatch (-want +got):\n%s", diff)
	}

	assert.Same(t, m.EnumTypes[0], m.EnumType("Shop.Status"))

	order := m.EntityType("Order")
	require.NotNil(t, order)
	assert.Equal(t, "Edm.GeographyPoint", order.Property("Destination").Type)

	var buf bytes.Buffer
	require.NoError(t, csdl.WriteSchema(&buf, m))
	assert.Contains(t, buf.String(), `<EnumType Name="Flags" IsFlags="true">`)

	again, err := csdl.Parse(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(m, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_BadEnumType(t *testing.T) {
	t.Parallel()

	input := strings.NewReplacer(
		`UnderlyingType="Byte"`, `UnderlyingType="String"`,
		`<Member Name="Gift" Value="1" />`, `<Member Name="Express" Value="1" />`,
	).Replace(shopSchema)

	_, err := csdl.ParseBytes([]byte(input))

	var perr *csdl.ParseError
	require.ErrorAs(t, err, &perr)

	want := []edm.Diagnostic{
		{Code: edm.CodeUnknownType, Location: "Status"},
		{Code: edm.CodeDuplicateName, Location: "Flags.Express"},
	}
	if diff := cmp.Diff(want, perr.Diagnostics, cmpopts.IgnoreFields(edm.Diagnostic{}, "Message")); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "empty document",
			input:   "",
			wantErr: csdl.ErrUnknownDocument,
		},
		{
			name:    "unknown root element",
			input:   `<Model Namespace="A"/>`,
			wantErr: csdl.ErrUnknownDocument,
		},
		{
			name:    "unsupported namespace",
			input:   `<Schema Namespace="A" xmlns="urn:not-edm"/>`,
			wantErr: csdl.ErrUnsupportedNamespace,
		},
		{
			name:    "envelope without models",
			input:   `<edmx:Edmx Version="3.0" xmlns:edmx="http://schemas.microsoft.com/ado/2009/11/edmx"><edmx:Runtime/></edmx:Edmx>`,
			wantErr: csdl.ErrNoConceptualModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := csdl.ParseBytes([]byte(tt.input))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, m)
		})
	}
}

func TestParse_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := csdl.ParseBytes([]byte(`<Schema Namespace="A" xmlns="http://schemas.microsoft.com/ado/2009/11/edm"><EntityType Name="X">`))
	require.Error(t, err)

	var perr *csdl.ParseError
	assert.False(t, errors.As(err, &perr), "syntax errors are not resolution diagnostics")
}

func TestWriteSchema_RoundTrip(t *testing.T) {
	t.Parallel()

	m, err := csdl.ParseBytes(readFixture(t, "blogging.csdl"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, csdl.WriteSchema(&buf, m))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, `xmlns="`+csdl.NamespaceCSDLv3+`"`)
	assert.NotContains(t, out, `Nullable="true"`)

	again, err := csdl.Parse(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(m, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteEDMX(t *testing.T) {
	t.Parallel()

	conceptual, err := csdl.ParseBytes(readFixture(t, "blogging.csdl"))
	require.NoError(t, err)

	storage := &edm.Model{
		Namespace: "Blogging.Store",
		Alias:     "Self",
		EntityTypes: []*edm.EntityType{{
			Name:       "Blog",
			Key:        []string{"BlogId"},
			Properties: []*edm.Property{{Name: "BlogId", Type: "integer", StoreGeneratedPattern: edm.StoreGeneratedIdentity}},
		}},
		Container: &edm.EntityContainer{
			Name:       "BloggingStore",
			EntitySets: []*edm.EntitySet{{Name: "Blog", EntityType: "Self.Blog", Schema: "public", Table: "Blogs"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, csdl.WriteEDMX(&buf, &csdl.Document{
		Conceptual:            conceptual,
		Storage:               storage,
		Provider:              "postgres",
		ProviderManifestToken: "16",
	}))

	out := buf.String()
	assert.Contains(t, out, `<edmx:Edmx Version="3.0" xmlns:edmx="`+csdl.NamespaceEDMXv3+`">`)
	assert.Contains(t, out, `<edmx:ConceptualModels>`)
	assert.Contains(t, out, `xmlns="`+csdl.NamespaceSSDLv3+`"`)
	assert.Contains(t, out, `Provider="postgres"`)
	assert.Contains(t, out, `Table="Blogs"`)

	doc, err := csdl.ParseDocument(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(conceptual, doc.Conceptual); diff != "" {
		t.Errorf("conceptual mismatch (-want +got):\n%s", diff)
	}

	require.NotNil(t, doc.Storage)
	assert.Equal(t, "postgres", doc.Provider)
	assert.Equal(t, "16", doc.ProviderManifestToken)
	assert.Equal(t, "integer", doc.Storage.EntityType("Blog").Property("BlogId").Type)
	assert.Equal(t, "Blogs", doc.Storage.EntitySet("Blog").Table)
}

func TestWriteEDMX_ConceptualOnly(t *testing.T) {
	t.Parallel()

	m := &edm.Model{
		Namespace: "Tiny",
		EntityTypes: []*edm.EntityType{{
			Name:       "Thing",
			Key:        []string{"ID"},
			Properties: []*edm.Property{{Name: "ID", Type: edm.TypeGuid}},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, csdl.WriteEDMX(&buf, &csdl.Document{Conceptual: m}))
	assert.NotContains(t, buf.String(), "StorageModels")

	doc, err := csdl.ParseDocument(&buf)
	require.NoError(t, err)
	assert.Nil(t, doc.Storage)
	assert.Equal(t, "Thing", doc.Conceptual.EntityTypes[0].Name)
}

func TestWriteEDMX_NoConceptualModel(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, csdl.WriteEDMX(&bytes.Buffer{}, nil), csdl.ErrNoConceptualModel)
	require.ErrorIs(t, csdl.WriteEDMX(&bytes.Buffer{}, &csdl.Document{}), csdl.ErrNoConceptualModel)
}
