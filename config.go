package edmx

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the .edmx.yaml configuration file.
type Config struct {
	// Connections maps a connection name (e.g., "BloggingEntities") to a
	// connection string carrying a metadata property.
	Connections map[string]string `yaml:"connections,omitempty"`

	// Resources is the directory holding conceptual schema resources.
	// Relative paths are resolved against the config file's directory.
	Resources string `yaml:"resources,omitempty"`

	// Postgres holds settings for database introspection.
	Postgres *PostgresConfig `yaml:"postgres,omitempty"`

	// Output controls how models are rendered by the CLI.
	Output OutputConfig `yaml:"output,omitempty"`

	// Debug enables debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// dir is the directory the config was loaded from.
	dir string
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	// DSN is a lib/pq connection string or URL.
	DSN string `yaml:"dsn"`
	// Schema is the database schema to introspect (default "public").
	Schema string `yaml:"schema,omitempty"`
	// Namespace is the EDM namespace of the introspected model.
	Namespace string `yaml:"namespace,omitempty"`
}

// OutputConfig holds rendering settings.
type OutputConfig struct {
	// Format is one of Formats.
	Format string `yaml:"format,omitempty"`
	// Color forces colored output on or off. Unset means auto-detect.
	Color *bool `yaml:"color,omitempty"`
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".edmx.yaml", ".edmx.yml", "edmx.yaml", "edmx.yml"}

// Dir returns the directory the config was loaded from.
func (c *Config) Dir() string {
	return c.dir
}

// Connection returns the named connection string.
func (c *Config) Connection(name string) (string, error) {
	conn, ok := c.Connections[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownConnection, name)
	}

	return conn, nil
}

// ResourcesDir returns the resources directory resolved against the config
// directory. Empty if not configured.
func (c *Config) ResourcesDir() string {
	if c.Resources == "" {
		return ""
	}

	if filepath.IsAbs(c.Resources) || c.dir == "" {
		return filepath.Clean(c.Resources)
	}

	return filepath.Join(c.dir, c.Resources)
}

// LoadConfig finds and loads the nearest .edmx.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	cfg.dir = filepath.Dir(path)

	return &cfg, nil
}
