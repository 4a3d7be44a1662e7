// Package modelfirst extracts an Entity Data Model from a conceptual schema
// shipped as an embedded resource.
//
// The context's connection string names the resource in its metadata
// property, as in
//
//	metadata=res://*/Blogging.Model.csdl|res://*/Blogging.Model.ssdl|res://*/Blogging.Model.msl;provider=postgres
//
// and the context's resources (normally an embed.FS) carry the file. A
// dotted resource name matches either a file of that exact name or the
// file whose slash-separated path reads the same with dots
// ("Blogging/Model.csdl"), optionally below a directory prefix
// ("schemas/Blogging/Model.csdl"). Exact matches win.
package modelfirst

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"go.uber.org/zap"

	"github.com/rlch/edmx"
	"github.com/rlch/edmx/csdl"
	"github.com/rlch/edmx/edm"
)

// Context is a data context backed by a designer-authored conceptual schema.
type Context interface {
	// ConnectionString returns the active connection string.
	ConnectionString() string

	// Resources returns the file system holding the schema resources.
	Resources() fs.FS
}

// New returns a Context over a connection string and resource file system.
func New(connectionString string, resources fs.FS) Context {
	return &staticContext{conn: connectionString, resources: resources}
}

type staticContext struct {
	conn      string
	resources fs.FS
}

func (c *staticContext) ConnectionString() string { return c.conn }
func (c *staticContext) Resources() fs.FS         { return c.resources }

type options struct {
	logger *zap.Logger
}

// Option configures extraction.
type Option func(*options)

// WithLogger sets the logger that receives one warning per schema diagnostic.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Extract locates the conceptual schema resource named by ctx's connection
// string and parses it.
//
// It fails with edmx.ErrNoSchemaResource when the metadata property names
// no resource, edmx.ErrResourceNotFound when the resource is missing, and a
// *csdl.ParseError when the schema's references do not resolve. Every
// diagnostic of a ParseError is also logged.
func Extract(ctx Context, opts ...Option) (*edm.Model, error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	if ctx == nil {
		return nil, fmt.Errorf("%w: nil context", edmx.ErrInvalidContext)
	}

	cs, err := edmx.ParseConnectionString(ctx.ConnectionString())
	if err != nil {
		return nil, err
	}

	name, err := cs.SchemaResource()
	if err != nil {
		return nil, err
	}

	data, err := ReadResource(ctx.Resources(), name)
	if err != nil {
		return nil, err
	}

	logger := o.logger.With(zap.String("resource", name))
	logger.Debug("Loaded conceptual schema resource", zap.Int("bytes", len(data)))

	model, err := csdl.ParseBytes(data)
	if err != nil {
		var perr *csdl.ParseError
		if errors.As(err, &perr) {
			for _, d := range perr.Diagnostics {
				logger.Warn("Conceptual schema error",
					zap.String("code", d.Code),
					zap.String("location", d.Location),
					zap.String("message", d.Message))
			}
		}

		return nil, fmt.Errorf("modelfirst: %s: %w", name, err)
	}

	return model, nil
}

// ReadResource reads the dotted resource name from fsys.
func ReadResource(fsys fs.FS, name string) ([]byte, error) {
	if fsys == nil {
		return nil, fmt.Errorf("%w: %s (no resources)", edmx.ErrResourceNotFound, name)
	}

	p, err := FindResource(fsys, name)
	if err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("reading resource %s: %w", name, err)
	}

	return data, nil
}

// FindResource returns the path in fsys of the dotted resource name.
func FindResource(fsys fs.FS, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", edmx.ErrResourceNotFound)
	}

	if fs.ValidPath(name) {
		if info, err := fs.Stat(fsys, name); err == nil && !info.IsDir() {
			return name, nil
		}
	}

	// An exact dotted match wins over a match below a directory prefix
	// (e.g., "schemas/Blogging/Model.csdl" for "Blogging.Model.csdl").
	var exact, suffix string

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		switch r := dotted(p); {
		case r == name:
			exact = p

			return fs.SkipAll
		case suffix == "" && strings.HasSuffix(r, "."+name):
			suffix = p
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("searching resources for %s: %w", name, err)
	}

	switch {
	case exact != "":
		return exact, nil
	case suffix != "":
		return suffix, nil
	default:
		return "", fmt.Errorf("%w: %s", edmx.ErrResourceNotFound, name)
	}
}

// dotted renders a slash path as a resource name.
func dotted(p string) string {
	return strings.ReplaceAll(p, "/", ".")
}
