package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rlch/edmx"
)

// loadConfig loads the config at path, or the nearest .edmx.yaml walking up
// from the working directory when path is empty. A missing config is not an
// error; the returned config is nil.
func loadConfig(path string) (*edmx.Config, error) {
	if path != "" {
		cfg, err := edmx.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}

		return cfg, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}

	cfg, err := edmx.LoadConfig(cwd)
	if errors.Is(err, edmx.ErrConfigNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}
