package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/driftsql/drift/internal/drifterr"
)

func initRepo(t *testing.T, url string) string {
	t.Helper()
	root := t.TempDir()
	if _, err := Init(root, url); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return root
}

func TestLoadUnmanagedRepo(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected NotManaged error")
	}
	if drifterr.KindOf(err) != drifterr.NotManaged {
		t.Errorf("kind = %v, want NotManaged", drifterr.KindOf(err))
	}
	if drifterr.ExitCode(err) != 128 {
		t.Errorf("exit code = %d, want 128", drifterr.ExitCode(err))
	}
}

func TestInitAndLoadDefaults(t *testing.T) {
	root := initRepo(t, "postgres://app@localhost/app")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.URL != "postgres://app@localhost/app" {
		t.Errorf("url = %q", cfg.URL)
	}
	if cfg.SchemaFile != "schema.json" {
		t.Errorf("schema_file = %q", cfg.SchemaFile)
	}
	if cfg.Migrations.Dir != "migrations" || cfg.Migrations.Naming != "sequential" {
		t.Errorf("migrations = %+v", cfg.Migrations)
	}
	if cfg.Migrations.Table != "_drift_migrations" {
		t.Errorf("table = %q", cfg.Migrations.Table)
	}
	if !cfg.Introspect.IncludeViews {
		t.Error("include_views should default to true")
	}
}

func TestInitTwiceFails(t *testing.T) {
	root := initRepo(t, "")
	if _, err := Init(root, ""); err == nil {
		t.Fatal("expected already-initialized error")
	}
}

func TestEnvOverrides(t *testing.T) {
	root := initRepo(t, "postgres://localhost/app")
	t.Setenv("DRIFT_URL", "mysql://root@localhost/app")
	t.Setenv("DRIFT_MIGRATIONS_NAMING", "timestamped")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.URL != "mysql://root@localhost/app" {
		t.Errorf("url = %q, want env override", cfg.URL)
	}
	if cfg.Migrations.Naming != "timestamped" {
		t.Errorf("naming = %q, want env override", cfg.Migrations.Naming)
	}
}

func TestResolveDialect(t *testing.T) {
	root := initRepo(t, "postgres://user@db.example.com/app")
	cfg, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}

	d, err := cfg.ResolveDialect()
	if err != nil {
		t.Fatalf("ResolveDialect: %v", err)
	}
	if d.Name != "postgres" {
		t.Errorf("dialect = %q", d.Name)
	}

	cfg.Dialect = "neon"
	if d, err = cfg.ResolveDialect(); err != nil || d.Name != "neon" {
		t.Errorf("explicit dialect: %v %v", d, err)
	}

	cfg.Dialect = ""
	cfg.URL = ""
	if _, err = cfg.ResolveDialect(); drifterr.KindOf(err) != drifterr.Configuration {
		t.Errorf("missing url: kind = %v", drifterr.KindOf(err))
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	root := initRepo(t, "")
	body := "dialect: oracle\n"
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(root); err == nil {
		t.Fatal("expected unknown dialect rejection")
	}

	body = "migrations:\n  naming: random\n"
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(root); err == nil {
		t.Fatal("expected naming rejection")
	}
}

func TestPaths(t *testing.T) {
	root := initRepo(t, "")
	cfg, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StatePath() != filepath.Join(root, ".drift") {
		t.Errorf("state path = %q", cfg.StatePath())
	}
	if cfg.SchemaPath() != filepath.Join(root, "schema.json") {
		t.Errorf("schema path = %q", cfg.SchemaPath())
	}
	if cfg.MigrationsPath() != filepath.Join(root, "migrations") {
		t.Errorf("migrations path = %q", cfg.MigrationsPath())
	}
	if cfg.IgnorePath() != filepath.Join(root, ".driftignore") {
		t.Errorf("ignore path = %q", cfg.IgnorePath())
	}
}
