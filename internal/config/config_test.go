package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PackagesRoot == "" {
		t.Fatal("expected a default packages root")
	}
	if cfg.NoColor {
		t.Fatal("expected color enabled by default")
	}
}

func TestLoadReadsYaml(t *testing.T) {
	dir := t.TempDir()
	content := "packages_root: /tmp/pkgs\nmodule_paths:\n  - ./lib\nno_color: true\n"
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PackagesRoot != "/tmp/pkgs" {
		t.Fatalf("unexpected packages root %q", cfg.PackagesRoot)
	}
	if len(cfg.ModulePaths) != 1 || cfg.ModulePaths[0] != "./lib" {
		t.Fatalf("unexpected module paths %v", cfg.ModulePaths)
	}
	if !cfg.NoColor {
		t.Fatal("expected no_color true")
	}
}

func TestLoadRejectsBrokenYaml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected a yaml error")
	}
}
