package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ace.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	p := Default()
	if !p.UseARAEnabled() || !p.UseARFEnabled() || p.FullAccessRequested() {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	path := writeTemp(t, "use_arf: false\n")
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !p.UseARAEnabled() {
		t.Errorf("use_ara should keep its default of true")
	}
	if p.UseARFEnabled() {
		t.Errorf("use_arf should be false per the override")
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeTemp(t, "use_ara: true\nbogus_key: 1\n")
	if _, err := Load(path); err == nil {
		t.Errorf("expected an error for an unknown config key")
	}
}

func TestLoad_FullAccessTrue(t *testing.T) {
	path := writeTemp(t, "full_access: true\n")
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !p.FullAccessRequested() {
		t.Errorf("full_access should be true per the override")
	}
}
