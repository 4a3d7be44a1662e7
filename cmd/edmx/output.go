package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/rlch/edmx"
	"github.com/rlch/edmx/csdl"
	"github.com/rlch/edmx/edm"
	"github.com/rlch/edmx/edmyaml"
	"github.com/rlch/edmx/inspect"
)

// Command errors.
var (
	ErrUnknownFormat    = errors.New("unknown output format")
	ErrNoSchemaFiles    = errors.New("no .csdl or .edmx files found")
	ErrNoConnection     = errors.New("no connection string (use --conn, --name or a config connection)")
	ErrNoDSN            = errors.New("no database DSN (use --dsn, EDMX_DSN or postgres.dsn in .edmx.yaml)")
	ErrDiagnosticErrors = errors.New("schema files contain errors")
)

// printer writes models in the selected format.
type printer struct {
	w      io.Writer
	format string
	color  bool
	filter *inspect.Filter
}

func (s *session) printer(w io.Writer, format string, filter *inspect.Filter) *printer {
	return &printer{w: w, format: format, color: s.color(w), filter: filter}
}

// color reports whether styled output should be written to w: the config
// setting when present, else whether w is a terminal.
func (s *session) color(w io.Writer) bool {
	if s.cfg != nil && s.cfg.Output.Color != nil {
		return *s.cfg.Output.Color
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *printer) print(doc *csdl.Document) error {
	switch p.format {
	case edmx.FormatYAML:
		return edmyaml.Write(p.w, doc.Conceptual)
	case edmx.FormatCSDL:
		return csdl.WriteSchema(p.w, doc.Conceptual)
	case edmx.FormatEDMX:
		return csdl.WriteEDMX(p.w, doc)
	default:
		return inspect.Render(p.w, doc.Conceptual, inspect.WithColor(p.color), inspect.WithFilter(p.filter))
	}
}

func (p *printer) printModel(m *edm.Model) error {
	return p.print(&csdl.Document{Conceptual: m})
}

// printHeader separates the output of several files in text mode.
func (p *printer) printHeader(path string) error {
	if p.format != edmx.FormatText {
		return nil
	}

	_, err := fmt.Fprintf(p.w, "\n==> %s <==\n", path)

	return err
}
