// Package config loads drift's per-repository configuration (drift.yaml)
// and manages the .drift state directory that marks a repository as
// managed. Every setting can be overridden through DRIFT_-prefixed
// environment variables (DRIFT_URL, DRIFT_MIGRATIONS_DIR, ...).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/driftsql/drift/internal/dialect"
	"github.com/driftsql/drift/internal/drifterr"
)

const (
	// FileName is the configuration file at the repository root.
	FileName = "drift.yaml"
	// StateDir marks a managed repository and holds the snapshot.
	StateDir = ".drift"
	// IgnoreFileName holds the ignore patterns.
	IgnoreFileName = ".driftignore"
)

// Config is the materialized drift.yaml.
type Config struct {
	// URL is the database connection URL.
	URL string `yaml:"url" mapstructure:"url"`
	// Dialect forces a dialect; empty means detect from the URL.
	Dialect string `yaml:"dialect,omitempty" mapstructure:"dialect"`
	// Schema is the database schema to introspect (postgres family).
	Schema string `yaml:"schema,omitempty" mapstructure:"schema"`
	// SchemaFile is the authored schema document, relative to the root.
	SchemaFile string `yaml:"schema_file" mapstructure:"schema_file"`

	Migrations MigrationsConfig `yaml:"migrations" mapstructure:"migrations"`
	Apply      ApplyConfig      `yaml:"apply" mapstructure:"apply"`
	Introspect IntrospectConfig `yaml:"introspect" mapstructure:"introspect"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`

	// Root is the repository root the config was loaded from. Not part of
	// the file.
	Root string `yaml:"-" mapstructure:"-"`
}

// MigrationsConfig controls the migrations directory and file naming.
type MigrationsConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Naming string `yaml:"naming" mapstructure:"naming"` // sequential or timestamped
	Table  string `yaml:"table" mapstructure:"table"`
}

// ApplyConfig controls push and migrate behavior.
type ApplyConfig struct {
	// AllowDestructive skips the destructive-change prompt.
	AllowDestructive bool `yaml:"allow_destructive" mapstructure:"allow_destructive"`
	// Transform enables the best-effort dialect transformer on validate.
	Transform bool `yaml:"transform" mapstructure:"transform"`
}

// IntrospectConfig controls what pull reads from the database.
type IntrospectConfig struct {
	IncludeFunctions bool     `yaml:"include_functions" mapstructure:"include_functions"`
	IncludeTriggers  bool     `yaml:"include_triggers" mapstructure:"include_triggers"`
	IncludeViews     bool     `yaml:"include_views" mapstructure:"include_views"`
	Exclude          []string `yaml:"exclude,omitempty" mapstructure:"exclude"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// Defaults returns the configuration drift init writes.
func Defaults() *Config {
	return &Config{
		SchemaFile: "schema.json",
		Migrations: MigrationsConfig{
			Dir:    "migrations",
			Naming: "sequential",
			Table:  "_drift_migrations",
		},
		Introspect: IntrospectConfig{
			IncludeFunctions: true,
			IncludeTriggers:  true,
			IncludeViews:     true,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads drift.yaml from the repository root, applying environment
// overrides. The root must be a managed repository.
func Load(root string) (*Config, error) {
	if err := EnsureManaged(root); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(root, FileName))
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DRIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Defaults()
	v.SetDefault("schema_file", def.SchemaFile)
	v.SetDefault("migrations.dir", def.Migrations.Dir)
	v.SetDefault("migrations.naming", def.Migrations.Naming)
	v.SetDefault("migrations.table", def.Migrations.Table)
	v.SetDefault("introspect.include_functions", def.Introspect.IncludeFunctions)
	v.SetDefault("introspect.include_triggers", def.Introspect.IncludeTriggers)
	v.SetDefault("introspect.include_views", def.Introspect.IncludeViews)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	// Declare the env-only keys so AutomaticEnv picks them up without a
	// file entry.
	v.SetDefault("url", "")
	v.SetDefault("dialect", "")
	v.SetDefault("schema", "")

	if _, err := os.Stat(filepath.Join(root, FileName)); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, drifterr.Wrap(drifterr.Configuration, fmt.Errorf("read %s: %w", FileName, err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, drifterr.Wrap(drifterr.Configuration, fmt.Errorf("parse %s: %w", FileName, err))
	}
	cfg.Root = root
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Dialect != "" {
		if _, err := dialect.Get(c.Dialect); err != nil {
			return drifterr.Wrap(drifterr.Configuration, err)
		}
	}
	switch c.Migrations.Naming {
	case "sequential", "timestamped":
	default:
		return drifterr.New(drifterr.Configuration, "migrations.naming must be sequential or timestamped, got %q", c.Migrations.Naming)
	}
	return nil
}

// ResolveDialect returns the configured dialect, falling back to URL
// detection.
func (c *Config) ResolveDialect() (*dialect.Dialect, error) {
	if c.Dialect != "" {
		return dialect.Get(c.Dialect)
	}
	if c.URL == "" {
		return nil, drifterr.New(drifterr.Configuration, "no database url configured; set url in %s or DRIFT_URL", FileName)
	}
	d, err := dialect.Detect(c.URL)
	if err != nil {
		return nil, drifterr.Wrap(drifterr.Configuration, err)
	}
	return d, nil
}

// StatePath returns the .drift state directory path.
func (c *Config) StatePath() string { return filepath.Join(c.Root, StateDir) }

// SchemaPath returns the authored schema document path.
func (c *Config) SchemaPath() string { return filepath.Join(c.Root, c.SchemaFile) }

// MigrationsPath returns the migrations directory path.
func (c *Config) MigrationsPath() string { return filepath.Join(c.Root, c.Migrations.Dir) }

// IgnorePath returns the ignore file path.
func (c *Config) IgnorePath() string { return filepath.Join(c.Root, IgnoreFileName) }

// IsManaged reports whether root carries a .drift state directory.
func IsManaged(root string) bool {
	fi, err := os.Stat(filepath.Join(root, StateDir))
	return err == nil && fi.IsDir()
}

// EnsureManaged returns a NotManaged error when root is not a drift
// repository.
func EnsureManaged(root string) error {
	if !IsManaged(root) {
		return drifterr.New(drifterr.NotManaged, "%s is not a drift repository (missing %s); run drift init", root, StateDir)
	}
	return nil
}

// Init marks root as managed: creates the state directory and, unless one
// exists, writes a default drift.yaml seeded with the given URL.
func Init(root, url string) (*Config, error) {
	if IsManaged(root) {
		return nil, drifterr.New(drifterr.Configuration, "%s is already a drift repository", root)
	}
	if err := os.MkdirAll(filepath.Join(root, StateDir), 0o755); err != nil {
		return nil, drifterr.Wrap(drifterr.Configuration, err)
	}

	cfg := Defaults()
	cfg.URL = url
	cfg.Root = root

	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		body, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, drifterr.Wrap(drifterr.Configuration, err)
		}
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return nil, drifterr.Wrap(drifterr.Configuration, err)
		}
	}
	return cfg, nil
}
