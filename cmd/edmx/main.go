// Command edmx inspects Entity Data Models: conceptual schema files,
// Model-First resources named by a connection string, and live PostgreSQL
// schemas.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/edmx"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "edmx:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "edmx",
		Usage: "Inspect Entity Data Models",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to .edmx.yaml (default: nearest in the working directory or above)",
				Sources: cli.EnvVars("EDMX_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "output format (text, yaml, csdl, edmx)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			inspectCommand(),
			resolveCommand(),
			introspectCommand(),
		},
	}
}

// newLogger builds a development logger on stderr; stdout carries output.
func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return config.Build()
}

// session is the state shared by every command: the loaded config (nil
// when none was found) and the logger.
type session struct {
	cfg    *edmx.Config
	logger *zap.Logger
}

func newSession(cmd *cli.Command) (*session, error) {
	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cmd.Bool("debug") || (cfg != nil && cfg.Debug))
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	if cfg != nil {
		logger.Debug("Loaded config", zap.String("dir", cfg.Dir()))
	}

	return &session{cfg: cfg, logger: logger}, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// format returns the output format: flag, then config, then text.
func (s *session) format(cmd *cli.Command) (string, error) {
	format := firstNonEmpty(cmd.String("format"), cfgString(s.cfg, func(c *edmx.Config) string { return c.Output.Format }), edmx.FormatText)

	for _, f := range edmx.Formats {
		if f == format {
			return format, nil
		}
	}

	return "", fmt.Errorf("%w: %s (available: %v)", ErrUnknownFormat, format, edmx.Formats)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

func cfgString(cfg *edmx.Config, getter func(*edmx.Config) string) string {
	if cfg == nil {
		return ""
	}

	return getter(cfg)
}
