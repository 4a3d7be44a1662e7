// Package codefirst extracts an Entity Data Model from Go types.
//
// A context is a struct whose exported Set[T] fields declare entity sets.
// Entity types are inferred from the struct definitions of T by convention
// and edm struct tags; entity types reachable through navigation fields are
// included even without a set of their own.
//
// # Example
//
//	type Blog struct {
//	    ID    int
//	    Name  string `edm:"maxlength=200"`
//	    Posts []*Post
//	}
//
//	type Post struct {
//	    ID     int
//	    Title  string
//	    BlogID int
//	    Blog   *Blog
//	}
//
//	type BloggingContext struct {
//	    Blogs codefirst.Set[Blog]
//	    Posts codefirst.Set[Post]
//	}
//
//	model, err := codefirst.ExtractFor[BloggingContext]()
//
// Extraction writes the conceptual and storage models to an in-memory EDMX
// document and parses it back, so the returned model is exactly what a
// consumer reading that document would see.
package codefirst

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"go.uber.org/zap"

	"github.com/rlch/edmx"
	"github.com/rlch/edmx/csdl"
	"github.com/rlch/edmx/edm"
	"github.com/rlch/edmx/storetype"
)

type options struct {
	logger           *zap.Logger
	namespace        string
	storeSchema      string
	provider         string
	providerManifest string
}

// Option configures extraction.
type Option func(*options)

// WithLogger sets the logger used for extraction diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNamespace sets the conceptual model namespace. It takes precedence
// over a context's Namespace method.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithStoreSchema sets the database schema of the derived tables.
func WithStoreSchema(schema string) Option {
	return func(o *options) {
		o.storeSchema = schema
	}
}

// WithProvider sets the storage model's provider and manifest token.
func WithProvider(provider, manifestToken string) Option {
	return func(o *options) {
		o.provider = provider
		o.providerManifest = manifestToken
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:           zap.NewNop(),
		storeSchema:      DefaultStoreSchema,
		provider:         storetype.ProviderPostgres,
		providerManifest: DefaultProviderManifest,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	return o
}

// Extract returns the model of a context value. ctx is a struct or a
// pointer to one; only its type is inspected.
func Extract(ctx any, opts ...Option) (*edm.Model, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: nil context", edmx.ErrInvalidContext)
	}

	return extract(reflect.TypeOf(ctx), newOptions(opts))
}

// ExtractFor returns the model of context type C. The zero value of C is
// the context, so no instance is needed.
func ExtractFor[C any](opts ...Option) (*edm.Model, error) {
	return extract(reflect.TypeFor[C](), newOptions(opts))
}

// WriteEDMX writes the EDMX document of a context value to w.
func WriteEDMX(w io.Writer, ctx any, opts ...Option) error {
	if ctx == nil {
		return fmt.Errorf("%w: nil context", edmx.ErrInvalidContext)
	}

	o := newOptions(opts)

	doc, err := document(reflect.TypeOf(ctx), o)
	if err != nil {
		return err
	}

	return csdl.WriteEDMX(w, doc)
}

func extract(t reflect.Type, o *options) (*edm.Model, error) {
	doc, err := document(t, o)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := csdl.WriteEDMX(&buf, doc); err != nil {
		return nil, fmt.Errorf("codefirst: writing edmx: %w", err)
	}

	o.logger.Debug("Serialized context model", zap.String("context", t.Name()), zap.Int("bytes", buf.Len()))

	model, err := csdl.Parse(&buf)
	if err != nil {
		return nil, fmt.Errorf("codefirst: reading edmx: %w", err)
	}

	o.logger.Debug("Extracted context model",
		zap.String("context", t.Name()),
		zap.String("namespace", model.Namespace),
		zap.Int("entityTypes", len(model.EntityTypes)),
		zap.Int("associations", len(model.Associations)))

	return model, nil
}

// document builds the conceptual and storage models of a context type.
func document(t reflect.Type, o *options) (*csdl.Document, error) {
	t = deref(t)
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", edmx.ErrInvalidContext, t)
	}

	namespace := o.namespace
	if namespace == "" {
		namespace = namespaceFor(t)
	}

	if namespace == "" {
		namespace = DefaultNamespace
	}

	conceptual, err := newBuilder(namespace, o.logger).build(t)
	if err != nil {
		return nil, err
	}

	return &csdl.Document{
		Conceptual:            conceptual,
		Storage:               storageModel(conceptual, o.storeSchema),
		Provider:              o.provider,
		ProviderManifestToken: o.providerManifest,
	}, nil
}
