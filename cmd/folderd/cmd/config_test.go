package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestConfigCmd_Subcommands(t *testing.T) {
	cmd := newConfigCmd()
	for _, name := range []string{"init", "show", "path"} {
		if _, _, err := cmd.Find([]string{name}); err != nil {
			t.Errorf("expected config subcommand %q: %v", name, err)
		}
	}
}

func TestConfigPathCmd(t *testing.T) {
	cmd := newConfigPathCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if out.Len() == 0 {
		t.Error("expected a path to be printed")
	}
}

func TestConfigInitCmd_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cmd := newConfigInitCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	configPath := filepath.Join(dir, "folderd", "config.yaml")
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("expected config file at %s: %v", configPath, err)
	}
}

func TestConfigInitCmd_RefusesOverwriteWithoutForce(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	first := newConfigInitCmd()
	first.SetOut(&bytes.Buffer{})
	if err := first.Execute(); err != nil {
		t.Fatalf("first config init failed: %v", err)
	}

	second := newConfigInitCmd()
	var out bytes.Buffer
	second.SetOut(&out)
	if err := second.Execute(); err != nil {
		t.Fatalf("second config init should not error, got: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("already exists")) {
		t.Errorf("expected 'already exists' message, got: %s", out.String())
	}
}

func TestConfigShowCmd_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cmd := newConfigShowCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--source", "defaults"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("config show --source defaults failed: %v", err)
	}
	if out.Len() == 0 {
		t.Error("expected YAML output")
	}
}

func TestConfigShowCmd_InvalidSource(t *testing.T) {
	cmd := newConfigShowCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--source", "bogus"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for invalid --source")
	}
}
