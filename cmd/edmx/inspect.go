package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/boyter/gocodewalker"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/edmx"
	"github.com/rlch/edmx/csdl"
	"github.com/rlch/edmx/inspect"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Parse, resolve and print conceptual schema files",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "filter",
				Usage: `expr-lang filter over entity types (e.g., 'len(navigations) > 0')`,
			},
		},
		Action: runInspect,
	}
}

func runInspect(_ context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	format, err := s.format(cmd)
	if err != nil {
		return err
	}

	var filter *inspect.Filter
	if src := cmd.String("filter"); src != "" {
		filter, err = inspect.CompileFilter(src)
		if err != nil {
			return err
		}
	}

	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{"."}
	}

	files, err := collectSchemaFiles(args)
	if err != nil {
		return fmt.Errorf("discovering schema files: %w", err)
	}

	if len(files) == 0 {
		return ErrNoSchemaFiles
	}

	p := s.printer(cmd.Root().Writer, format, filter)

	var failed bool

	for _, path := range files {
		doc, err := parseFile(path)
		if err != nil {
			var perr *csdl.ParseError
			if !errors.As(err, &perr) {
				return fmt.Errorf("%s: %w", path, err)
			}

			for _, d := range perr.Diagnostics {
				s.logger.Error("Schema error",
					zap.String("file", path),
					zap.String("code", d.Code),
					zap.String("location", d.Location),
					zap.String("message", d.Message))
			}

			failed = true

			continue
		}

		if len(files) > 1 {
			if err := p.printHeader(path); err != nil {
				return err
			}
		}

		if err := p.print(doc); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	if failed {
		return ErrDiagnosticErrors
	}

	return nil
}

func parseFile(path string) (*csdl.Document, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return csdl.ParseDocument(f)
}

// collectSchemaFiles expands args into .csdl and .edmx files, sorted.
func collectSchemaFiles(args []string) ([]string, error) {
	var files []string

	seen := make(map[string]bool)

	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}

		if !seen[abs] {
			seen[abs] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if isSchemaFile(arg) {
				add(arg)
			}

			continue
		}

		if err := walkSchemaFiles(arg, add); err != nil {
			return nil, err
		}
	}

	sort.Strings(files)

	return files, nil
}

func isSchemaFile(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")

	return ext == edmx.ExtConceptual || ext == edmx.ExtEDMX
}

// walkSchemaFiles walks root honoring .gitignore and calls fn for each
// schema file.
func walkSchemaFiles(root string, fn func(string)) error {
	fileListQueue := make(chan *gocodewalker.File, 100)

	fileWalker := gocodewalker.NewFileWalker(root, fileListQueue)
	fileWalker.AllowListExtensions = []string{edmx.ExtConceptual, edmx.ExtEDMX}

	var walkErr error
	fileWalker.SetErrorHandler(func(e error) bool {
		walkErr = e

		return true
	})

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for f := range fileListQueue {
			fn(f.Location)
		}
	}()

	if err := fileWalker.Start(); err != nil {
		return err
	}

	wg.Wait()

	return walkErr
}
