package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStdin(t *testing.T, content string) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatalf("create temp stdin: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write stdin: %v", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("seek stdin: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestRunInitWizard_AcceptsDefaultsOnBlankInput(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	in := writeStdin(t, "\n\n\n\n\n\n")
	out, err := os.CreateTemp(t.TempDir(), "stdout")
	if err != nil {
		t.Fatalf("create temp stdout: %v", err)
	}
	defer out.Close()

	if err := RunInitWizard(in, out); err != nil {
		t.Fatalf("wizard: %v", err)
	}

	saved, err := Load()
	if err != nil {
		t.Fatalf("load after wizard: %v", err)
	}
	def := Default()
	if saved.ListenAddr != def.ListenAddr || saved.ServerName != def.ServerName {
		t.Fatalf("expected defaults to be saved, got %+v", saved)
	}
}

func TestRunInitWizard_AppliesOverridesAndAllowlist(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	stateDir := filepath.Join(home, "custom-state")

	in := writeStdin(t, strings.Join([]string{
		stateDir,
		"0.0.0.0:9999",
		"list.internal",
		"UTC",
		"5",
		"10.0.0.0/24, 127.0.0.1:8080",
	}, "\n") + "\n")
	out, err := os.CreateTemp(t.TempDir(), "stdout")
	if err != nil {
		t.Fatalf("create temp stdout: %v", err)
	}
	defer out.Close()

	if err := RunInitWizard(in, out); err != nil {
		t.Fatalf("wizard: %v", err)
	}

	saved, err := Load()
	if err != nil {
		t.Fatalf("load after wizard: %v", err)
	}
	if saved.StateDir != stateDir {
		t.Fatalf("expected custom state dir, got %q", saved.StateDir)
	}
	if saved.ListenAddr != "0.0.0.0:9999" || saved.ServerName != "list.internal" {
		t.Fatalf("unexpected saved config: %+v", saved)
	}
	if saved.WorkerPoolSize != 5 {
		t.Fatalf("expected pool size 5, got %d", saved.WorkerPoolSize)
	}
	if len(saved.Allowlist) != 2 {
		t.Fatalf("expected 2 allowlist entries, got %+v", saved.Allowlist)
	}
}

func TestAtoiDefault(t *testing.T) {
	if v := atoiDefault("7", 1); v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
	if v := atoiDefault("not-a-number", 3); v != 3 {
		t.Fatalf("expected fallback 3, got %d", v)
	}
	if v := atoiDefault("-1", 3); v != 3 {
		t.Fatalf("expected fallback for non-positive, got %d", v)
	}
}
