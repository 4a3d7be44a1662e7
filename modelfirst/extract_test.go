package modelfirst_test

import (
	"embed"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rlch/edmx"
	"github.com/rlch/edmx/csdl"
	"github.com/rlch/edmx/edm"
	"github.com/rlch/edmx/modelfirst"
)

//go:embed testdata
var resources embed.FS

// bloggingContext is a Model-First context backed by embedded resources.
type bloggingContext struct{}

func (bloggingContext) ConnectionString() string {
	return "metadata=res://*/Blogging.Model.csdl|res://*/Blogging.Model.ssdl|res://*/Blogging.Model.msl;" +
		`provider=postgres;provider connection string="host=localhost dbname=blog"`
}

func (bloggingContext) Resources() fs.FS { return resources }

func schema(namespace string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<Schema Namespace="` + namespace + `" xmlns="http://schemas.microsoft.com/ado/2009/11/edm">
  <EntityContainer Name="Ctx">
    <EntitySet Name="Things" EntityType="` + namespace + `.Thing" />
  </EntityContainer>
  <EntityType Name="Thing">
    <Key><PropertyRef Name="ID" /></Key>
    <Property Name="ID" Type="Int32" Nullable="false" />
  </EntityType>
</Schema>`
}

const malformedSchema = `<?xml version="1.0" encoding="utf-8"?>
<Schema Namespace="Foo" xmlns="http://schemas.microsoft.com/ado/2009/11/edm">
  <EntityType Name="Order">
    <Property Name="Total" Type="Foo.Money" />
    <NavigationProperty Name="Customer" Relationship="Foo.Order_Customer" FromRole="Order" ToRole="Customer" />
  </EntityType>
</Schema>`

const fooConn = "metadata=res://*/Foo.Bar.csdl|res://*/Foo.Bar.ssdl|res://*/Foo.Bar.msl;provider=postgres"

func TestExtract_EmbeddedResource(t *testing.T) {
	t.Parallel()

	m, err := modelfirst.Extract(bloggingContext{})
	require.NoError(t, err)

	assert.Equal(t, "Blogging.Model", m.Namespace)
	require.NotNil(t, m.EntityType("Blog"))
	require.NotNil(t, m.EntityType("Post"))

	target, mult := m.NavigationTarget(m.EntityType("Post").NavigationProperty("Blog"))
	require.NotNil(t, target)
	assert.Equal(t, "Blog", target.Name)
	assert.Equal(t, edm.MultiplicityOne, mult)
}

func TestExtract_LocatesNamedResource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fsys fstest.MapFS
		want string
	}{
		{
			name: "dotted file at root",
			fsys: fstest.MapFS{
				"Foo.Bar.csdl":   {Data: []byte(schema("Foo.Bar"))},
				"Foo.Other.csdl": {Data: []byte(schema("Foo.Other"))},
			},
			want: "Foo.Bar",
		},
		{
			name: "nested path",
			fsys: fstest.MapFS{
				"Foo/Bar.csdl":   {Data: []byte(schema("Foo.Bar"))},
				"Foo/Other.csdl": {Data: []byte(schema("Foo.Other"))},
			},
			want: "Foo.Bar",
		},
		{
			name: "below a directory prefix",
			fsys: fstest.MapFS{
				"schemas/Foo/Bar.csdl": {Data: []byte(schema("Prefixed"))},
			},
			want: "Prefixed",
		},
		{
			name: "exact match wins over prefixed match",
			fsys: fstest.MapFS{
				"A/Foo/Bar.csdl": {Data: []byte(schema("Prefixed"))},
				"Foo/Bar.csdl":   {Data: []byte(schema("Exact"))},
			},
			want: "Exact",
		},
		{
			name: "similar names do not match",
			fsys: fstest.MapFS{
				"XFoo.Bar.csdl": {Data: []byte(schema("Wrong"))},
				"Foo.Bar.csdl":  {Data: []byte(schema("Right"))},
			},
			want: "Right",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := modelfirst.Extract(modelfirst.New(fooConn, tt.fsys))
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Namespace)
			assert.NotNil(t, m.EntityType("Thing"))
		})
	}
}

func TestExtract_NoSchemaResourceInMetadata(t *testing.T) {
	t.Parallel()

	// A file with an empty dotted name would match an empty lookup; the
	// extractor must fail before attempting one.
	fsys := fstest.MapFS{".csdl": {Data: []byte(schema("Empty"))}}

	for _, conn := range []string{
		"metadata=res://*/;provider=postgres",
		"metadata=res://*/Foo.Bar.ssdl|res://*/Foo.Bar.msl",
		"provider=postgres",
		"",
	} {
		m, err := modelfirst.Extract(modelfirst.New(conn, fsys))
		require.ErrorIs(t, err, edmx.ErrNoSchemaResource, "connection %q", conn)
		assert.Nil(t, m)
	}
}

func TestExtract_ResourceNotFound(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"Foo.Baz.csdl": {Data: []byte(schema("Foo.Baz"))}}

	m, err := modelfirst.Extract(modelfirst.New(fooConn, fsys))
	require.ErrorIs(t, err, edmx.ErrResourceNotFound)
	assert.Nil(t, m)

	_, err = modelfirst.Extract(modelfirst.New(fooConn, nil))
	require.ErrorIs(t, err, edmx.ErrResourceNotFound)
}

func TestExtract_MalformedSchemaFails(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	fsys := fstest.MapFS{"Foo.Bar.csdl": {Data: []byte(malformedSchema)}}

	m, err := modelfirst.Extract(modelfirst.New(fooConn, fsys), modelfirst.WithLogger(zap.New(core)))
	require.Error(t, err)
	assert.Nil(t, m, "a degraded model must not be returned")

	var perr *csdl.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, err.Error(), "Foo.Bar.csdl")

	// One warning per diagnostic.
	entries := logs.FilterMessage("Conceptual schema error").All()
	require.Len(t, entries, len(perr.Diagnostics))

	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		ctx := e.ContextMap()
		assert.Equal(t, "Foo.Bar.csdl", ctx["resource"])
		codes = append(codes, ctx["code"].(string))
	}

	assert.Equal(t, []string{edm.CodeUnknownType, edm.CodeBadKey, edm.CodeUnknownAssociation}, codes)
}

func TestExtract_SyntaxError(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	fsys := fstest.MapFS{"Foo.Bar.csdl": {Data: []byte("<Schema Namespace=")}}

	m, err := modelfirst.Extract(modelfirst.New(fooConn, fsys), modelfirst.WithLogger(zap.New(core)))
	require.Error(t, err)
	assert.Nil(t, m)
	assert.Zero(t, logs.Len())
}

func TestExtract_InvalidContext(t *testing.T) {
	t.Parallel()

	_, err := modelfirst.Extract(nil)
	require.ErrorIs(t, err, edmx.ErrInvalidContext)

	_, err = modelfirst.Extract(modelfirst.New(`metadata="unterminated`, fstest.MapFS{}))
	require.Error(t, err)
}

func TestFindResource(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"Blogging/Model.csdl": {Data: []byte("x")},
		"Blogging/Model.ssdl": {Data: []byte("y")},
		"Other.csdl":          {Data: []byte("z")},
	}

	tests := []struct {
		name    string
		want    string
		wantErr error
	}{
		{name: "Blogging.Model.csdl", want: "Blogging/Model.csdl"},
		{name: "Blogging.Model.ssdl", want: "Blogging/Model.ssdl"},
		{name: "Other.csdl", want: "Other.csdl"},
		{name: "Model.csdl", want: "Blogging/Model.csdl"},
		{name: "Missing.csdl", wantErr: edmx.ErrResourceNotFound},
		{name: "", wantErr: edmx.ErrResourceNotFound},
	}

	for _, tt := range tests {
		got, err := modelfirst.FindResource(fsys, tt.name)
		if tt.wantErr != nil {
			require.ErrorIs(t, err, tt.wantErr, "name %q", tt.name)

			continue
		}

		require.NoError(t, err, "name %q", tt.name)
		assert.Equal(t, tt.want, got, "name %q", tt.name)
	}

	data, err := modelfirst.ReadResource(fsys, "Blogging.Model.csdl")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}
