// Package inspect renders a human-readable view of an edm.Model.
package inspect

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/rlch/edmx/edm"
)

type styles struct {
	root     lipgloss.Style
	entity   lipgloss.Style
	key      lipgloss.Style
	typ      lipgloss.Style
	nav      lipgloss.Style
	dim      lipgloss.Style
	enumer   lipgloss.Style
	complexT lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()

		return styles{
			root:     plain,
			entity:   plain,
			key:      plain,
			typ:      plain,
			nav:      plain,
			dim:      plain,
			enumer:   plain.PaddingRight(1),
			complexT: plain,
		}
	}

	return styles{
		root:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		entity:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")),
		key:      lipgloss.NewStyle().Foreground(lipgloss.Color("#F1C40F")),
		typ:      lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		nav:      lipgloss.NewStyle().Foreground(lipgloss.Color("#5DADE2")),
		dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		enumer:   lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).PaddingRight(1),
		complexT: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#9B9B9B")),
	}
}

type options struct {
	color  bool
	filter *Filter
}

// Option configures rendering.
type Option func(*options)

// WithColor enables ANSI styling.
func WithColor(color bool) Option {
	return func(o *options) {
		o.color = color
	}
}

// WithFilter limits the rendered entity types to those matching f.
func WithFilter(f *Filter) Option {
	return func(o *options) {
		o.filter = f
	}
}

// Render writes m as a tree: one branch per entity type listing its key,
// properties and navigations, then the complex types.
func Render(w io.Writer, m *edm.Model, opts ...Option) error {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	s := newStyles(o.color)

	title := m.Namespace
	if m.Container != nil {
		title += " " + s.dim.Render("("+m.Container.Name+")")
	}

	root := tree.Root(s.root.Render(title)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(s.enumer)

	shown := 0

	for _, et := range m.EntityTypes {
		ok, err := o.filter.Match(m, et)
		if err != nil {
			return err
		}

		if !ok {
			continue
		}

		shown++

		root.Child(entityTree(m, et, s))
	}

	if o.filter == nil {
		for _, ct := range m.ComplexTypes {
			node := tree.Root(s.complexT.Render(ct.Name + " (complex)"))
			for _, p := range ct.Properties {
				node.Child(propertyLine(m, p, false, s))
			}

			root.Child(node)
		}
	}

	if _, err := fmt.Fprintln(w, root.String()); err != nil {
		return err
	}

	if o.filter != nil {
		_, err := fmt.Fprintln(w, s.dim.Render(fmt.Sprintf("%d of %d entity types match %s", shown, len(m.EntityTypes), o.filter)))

		return err
	}

	return nil
}

func entityTree(m *edm.Model, et *edm.EntityType, s styles) *tree.Tree {
	label := et.Name
	if es := m.EntitySetFor(et.Name); es != nil {
		label += " " + s.dim.Render("["+es.Name+"]")
	}

	if et.BaseType != "" {
		label += s.dim.Render(" : " + m.Unqualify(et.BaseType))
	}

	node := tree.Root(s.entity.Render(label))

	for _, p := range et.Properties {
		node.Child(propertyLine(m, p, et.IsKey(p.Name), s))
	}

	for _, n := range et.NavigationProperties {
		target, mult := m.NavigationTarget(n)
		if target == nil {
			node.Child(s.nav.Render(n.Name) + " -> " + s.dim.Render("?"))

			continue
		}

		node.Child(s.nav.Render(n.Name) + " -> " + target.Name + " " + s.dim.Render(multiplicityLabel(mult)))
	}

	return node
}

func propertyLine(m *edm.Model, p *edm.Property, key bool, s styles) string {
	var b strings.Builder

	if key {
		b.WriteString(s.key.Render("*"))
	}

	b.WriteString(p.Name)
	b.WriteString(": ")
	b.WriteString(s.typ.Render(m.Unqualify(p.Type)))

	if p.Nullable {
		b.WriteString("?")
	}

	var facets []string
	if p.MaxLength != "" {
		facets = append(facets, "max "+p.MaxLength)
	}

	if p.StoreGeneratedPattern != "" {
		facets = append(facets, strings.ToLower(p.StoreGeneratedPattern))
	}

	if p.ConcurrencyMode == "Fixed" {
		facets = append(facets, "concurrency")
	}

	if len(facets) > 0 {
		b.WriteString(" ")
		b.WriteString(s.dim.Render("(" + strings.Join(facets, ", ") + ")"))
	}

	return b.String()
}

func multiplicityLabel(m edm.Multiplicity) string {
	switch m {
	case edm.MultiplicityMany:
		return "[*]"
	case edm.MultiplicityZeroOrOne:
		return "[0..1]"
	case edm.MultiplicityOne:
		return "[1]"
	default:
		return "[" + string(m) + "]"
	}
}
