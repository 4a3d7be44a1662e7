package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/urfave/cli/v3"

	"github.com/rlch/edmx"
	"github.com/rlch/edmx/dbfirst"
)

func introspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "introspect",
		Usage: "Build a model from a live PostgreSQL schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "PostgreSQL connection string",
				Sources: cli.EnvVars("EDMX_DSN"),
			},
			&cli.StringFlag{
				Name:    "schema",
				Aliases: []string{"s"},
				Usage:   "database schema (default: public)",
			},
			&cli.StringFlag{
				Name:  "namespace",
				Usage: "conceptual namespace of the produced model",
			},
		},
		Action: runIntrospect,
	}
}

func runIntrospect(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	format, err := s.format(cmd)
	if err != nil {
		return err
	}

	pg := func(get func(*edmx.PostgresConfig) string) func(*edmx.Config) string {
		return func(c *edmx.Config) string {
			if c.Postgres == nil {
				return ""
			}

			return get(c.Postgres)
		}
	}

	dsn := firstNonEmpty(cmd.String("dsn"), cfgString(s.cfg, pg(func(p *edmx.PostgresConfig) string { return p.DSN })))
	if dsn == "" {
		return ErrNoDSN
	}

	schema := firstNonEmpty(cmd.String("schema"), cfgString(s.cfg, pg(func(p *edmx.PostgresConfig) string { return p.Schema })), dbfirst.DefaultSchema)
	namespace := firstNonEmpty(cmd.String("namespace"), cfgString(s.cfg, pg(func(p *edmx.PostgresConfig) string { return p.Namespace })), dbfirst.DefaultNamespace)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	model, err := dbfirst.New(db,
		dbfirst.WithLogger(s.logger),
		dbfirst.WithSchema(schema),
		dbfirst.WithNamespace(namespace),
	).Model(ctx)
	if err != nil {
		return err
	}

	return s.printer(cmd.Root().Writer, format, nil).printModel(model)
}
