package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testdata = "../../csdl/testdata"

const fooSchema = `<?xml version="1.0" encoding="utf-8"?>
<Schema Namespace="Foo.Bar" xmlns="http://schemas.microsoft.com/ado/2009/11/edm">
  <EntityContainer Name="FooContext">
    <EntitySet Name="Things" EntityType="Foo.Bar.Thing" />
  </EntityContainer>
  <EntityType Name="Thing">
    <Key><PropertyRef Name="ID" /></Key>
    <Property Name="ID" Type="Int32" Nullable="false" />
  </EntityType>
</Schema>`

// writeConfig writes an .edmx.yaml into a fresh directory and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".edmx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer

	app := newApp()
	app.Writer = &buf
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run(context.Background(), append([]string{"edmx"}, args...))

	return buf.String(), err
}

func TestInspect_YAML(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "output:\n  color: false\n")

	out, err := run(t, "-c", cfg, "-f", "yaml", "inspect", filepath.Join(testdata, "blogging.csdl"))
	require.NoError(t, err)

	assert.Contains(t, out, "# EDM summary of Blogging.Model")
	assert.Contains(t, out, "container: BloggingContext")
	assert.NotContains(t, out, "==>", "a single file has no header")
}

func TestInspect_Directory(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "output:\n  format: text\n  color: false\n")

	out, err := run(t, "-c", cfg, "inspect", "--filter", `len(navigations) > 0`, testdata)

	// broken.csdl fails to resolve; the other files are still printed.
	require.ErrorIs(t, err, ErrDiagnosticErrors)
	assert.Contains(t, out, "blogging.csdl <==")
	assert.Contains(t, out, "northwind_v2.edmx <==")
	assert.NotContains(t, out, "broken.csdl")
	assert.Contains(t, out, "entity types match len(navigations) > 0")
}

func TestInspect_Errors(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "debug: false\n")

	_, err := run(t, "-c", cfg, "-f", "toml", "inspect", testdata)
	require.ErrorIs(t, err, ErrUnknownFormat)

	_, err = run(t, "-c", cfg, "inspect", t.TempDir())
	require.ErrorIs(t, err, ErrNoSchemaFiles)

	_, err = run(t, "-c", cfg, "inspect", "--filter", "name ==", testdata)
	require.Error(t, err)

	_, err = run(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "inspect", testdata)
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, `
connections:
  Foo: metadata=res://*/Foo.Bar.csdl|res://*/Foo.Bar.ssdl;provider=postgres
resources: res
`)

	res := filepath.Join(filepath.Dir(cfg), "res", "Foo")
	require.NoError(t, os.MkdirAll(res, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(res, "Bar.csdl"), []byte(fooSchema), 0o644))

	// The only configured connection is used without flags.
	out, err := run(t, "-c", cfg, "-f", "csdl", "resolve")
	require.NoError(t, err)
	assert.Contains(t, out, `Namespace="Foo.Bar"`)
	assert.Contains(t, out, `<EntityContainer Name="FooContext">`)

	out, err = run(t, "-c", cfg, "-f", "yaml", "resolve", "--name", "Foo")
	require.NoError(t, err)
	assert.Contains(t, out, "namespace: Foo.Bar")

	_, err = run(t, "-c", cfg, "resolve", "--name", "Bar")
	require.Error(t, err)

	_, err = run(t, "-c", cfg, "resolve", "--conn", "metadata=res://*/Missing.csdl")
	require.Error(t, err)
}

func TestResolve_NoConnection(t *testing.T) {
	t.Setenv("EDMX_CONNECTION", "")

	cfg := writeConfig(t, "debug: false\n")

	_, err := run(t, "-c", cfg, "resolve")
	require.ErrorIs(t, err, ErrNoConnection)
}

func TestIntrospect_NoDSN(t *testing.T) {
	t.Setenv("EDMX_DSN", "")

	cfg := writeConfig(t, "debug: false\n")

	_, err := run(t, "-c", cfg, "introspect")
	require.ErrorIs(t, err, ErrNoDSN)
}

func TestCollectSchemaFiles(t *testing.T) {
	t.Parallel()

	blogging := filepath.Join(testdata, "blogging.csdl")

	files, err := collectSchemaFiles([]string{blogging, blogging, filepath.Join(testdata, "..", "read.go")})
	require.NoError(t, err)
	assert.Equal(t, []string{blogging}, files)

	files, err = collectSchemaFiles([]string{testdata})
	require.NoError(t, err)
	assert.Len(t, files, 3)

	_, err = collectSchemaFiles([]string{filepath.Join(testdata, "nope")})
	require.Error(t, err)
}
