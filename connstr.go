package edmx

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// schemaResourcePattern finds a dotted conceptual schema resource name
// (e.g., "Blogging.Model.csdl") inside a metadata property. Name segments
// are Unicode letters, digits and underscores.
var schemaResourcePattern = regexp.MustCompile(`((?:[\p{L}\p{N}_]+\.)+csdl)`)

// ConnectionString is a parsed keyword/value connection string such as
//
//	metadata=res://*/Blogging.Model.csdl|res://*/Blogging.Model.ssdl;provider=postgres;provider connection string="host=localhost"
//
// Keywords are case-insensitive. When a keyword repeats, the last value wins.
type ConnectionString struct {
	values map[string]string
	order  []string
}

// ParseConnectionString parses a connection string.
func ParseConnectionString(s string) (ConnectionString, error) {
	cs := ConnectionString{values: make(map[string]string)}

	s = strings.TrimSpace(s)
	if s == "" {
		return cs, nil
	}

	g, err := connParser.ParseString("", s)
	if err != nil {
		return cs, fmt.Errorf("parsing connection string: %w", err)
	}

	for _, p := range g.Pairs {
		key := normalizeKeyword(p.Key)
		if key == "" {
			return cs, fmt.Errorf("parsing connection string: empty keyword")
		}

		cs.set(key, p.Value.text())
	}

	return cs, nil
}

// MustParseConnectionString is like ParseConnectionString but panics on error.
func MustParseConnectionString(s string) ConnectionString {
	cs, err := ParseConnectionString(s)
	if err != nil {
		panic(err)
	}

	return cs
}

func (v *connValue) text() string {
	switch {
	case v == nil:
		return ""
	case v.Quoted != nil:
		return unquote(*v.Quoted)
	default:
		return strings.TrimSpace(strings.Join(v.Raw, ""))
	}
}

func (c *ConnectionString) set(key, value string) {
	if _, ok := c.values[key]; !ok {
		c.order = append(c.order, key)
	}

	c.values[key] = value
}

// Get returns the value for a keyword.
func (c ConnectionString) Get(key string) (string, bool) {
	v, ok := c.values[normalizeKeyword([]string{key})]

	return v, ok
}

// Keywords returns the keywords in the order they first appeared.
func (c ConnectionString) Keywords() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of distinct keywords.
func (c ConnectionString) Len() int {
	return len(c.order)
}

// Metadata returns the metadata property, or empty if absent.
func (c ConnectionString) Metadata() string {
	v, _ := c.Get(KeywordMetadata)

	return v
}

// MetadataResources splits the metadata property on "|" into its entries.
func (c ConnectionString) MetadataResources() []string {
	var out []string

	for _, part := range strings.Split(c.Metadata(), "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// SchemaResource returns the first dotted conceptual schema resource name
// found in the metadata property. It returns ErrNoSchemaResource when the
// property is absent or nothing matches.
func (c ConnectionString) SchemaResource() (string, error) {
	md := c.Metadata()

	name := schemaResourcePattern.FindString(md)
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrNoSchemaResource, md)
	}

	return name, nil
}

// String renders the connection string with keywords in original order.
// Values containing separators or quotes are double-quoted.
func (c ConnectionString) String() string {
	parts := make([]string, 0, len(c.order))

	for _, k := range c.order {
		parts = append(parts, k+"="+quoteValue(c.values[k]))
	}

	return strings.Join(parts, ";")
}

func quoteValue(v string) string {
	if !strings.ContainsAny(v, ";=\"' \t") {
		return v
	}

	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// ResolveConnectionString parses s and follows a "name=<connection>"
// indirection through the configured connections.
func (c *Config) ResolveConnectionString(s string) (ConnectionString, error) {
	cs, err := ParseConnectionString(s)
	if err != nil {
		return cs, err
	}

	name, ok := cs.Get(KeywordName)
	if !ok || cs.Len() != 1 {
		return cs, nil
	}

	if c == nil {
		return cs, fmt.Errorf("%w: %s", ErrUnknownConnection, name)
	}

	conn, err := c.Connection(name)
	if err != nil {
		return cs, err
	}

	return ParseConnectionString(conn)
}

// ConnectionNames returns the configured connection names, sorted.
func (c *Config) ConnectionNames() []string {
	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
