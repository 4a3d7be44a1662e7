package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/edmx/modelfirst"
)

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Extract the Model-First model named by a connection string",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "conn",
				Usage:   "connection string carrying a metadata property",
				Sources: cli.EnvVars("EDMX_CONNECTION"),
			},
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "named connection from .edmx.yaml",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "resource directory (default: resources in .edmx.yaml, else .)",
			},
		},
		Action: runResolve,
	}
}

func runResolve(_ context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	format, err := s.format(cmd)
	if err != nil {
		return err
	}

	raw := cmd.String("conn")
	if name := cmd.String("name"); raw == "" && name != "" {
		raw = "name=" + name
	}

	if raw == "" && s.cfg != nil {
		// A config with a single connection needs no flag.
		if names := s.cfg.ConnectionNames(); len(names) == 1 {
			raw = "name=" + names[0]
		}
	}

	if raw == "" {
		return ErrNoConnection
	}

	cs, err := s.cfg.ResolveConnectionString(raw)
	if err != nil {
		return err
	}

	dir := firstNonEmpty(cmd.String("dir"), s.resourcesDir(), ".")

	s.logger.Debug("Resolving Model-First context",
		zap.String("metadata", cs.Metadata()),
		zap.String("dir", dir))

	model, err := modelfirst.Extract(modelfirst.New(cs.String(), os.DirFS(dir)), modelfirst.WithLogger(s.logger))
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	return s.printer(cmd.Root().Writer, format, nil).printModel(model)
}

func (s *session) resourcesDir() string {
	if s.cfg == nil {
		return ""
	}

	return s.cfg.ResourcesDir()
}
