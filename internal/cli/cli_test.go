package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeDescriptor writes a minimal working descriptor plus its namelist
// template into dir and returns the descriptor path.
func writeDescriptor(t *testing.T, dir string) string {
	t.Helper()

	template := filepath.Join(dir, "template.txt")
	if err := os.WriteFile(template, []byte("&HMC\n  sDomainName = 'default'\n/\n"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	doc := `{
  "settings": {
    "priority": ["user"],
    "flags": {"update_namelist": true, "update_execution": true},
    "variables": {
      "lut": {
        "user": {
          "domain_name": "marche",
          "path_root": "` + dir + `"
        }
      }
    }
  },
  "time": {
    "start": "2025-01-01 00:00",
    "period": 2,
    "frequency": "h"
  },
  "application_namelist": {
    "file": {
      "template": "{path_root}/template.txt",
      "project": "{path_root}/run/$yyyy$mm$dd$HH/namelist.txt"
    },
    "fields": {
      "by_value": {"sDomainName": "{domain_name}"}
    }
  }
}`
	path := filepath.Join(dir, "descriptor.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.Execute()
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeDescriptor(t, dir)

	if err := execute(t, "--log-level", "error", "validate", path); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateCommand_BadDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"settings": {"priority": ["cloud"]}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := execute(t, "--log-level", "error", "validate", path)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(err.Error(), "cloud") {
		t.Errorf("error = %v", err)
	}
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeDescriptor(t, dir)
	db := filepath.Join(dir, "shybox.db")

	if err := execute(t, "--log-level", "error", "run", path, "--db", db); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Both timestamps produced their namelist.
	for _, stamp := range []string{"2025010100", "2025010101"} {
		nml := filepath.Join(dir, "run", stamp, "namelist.txt")
		data, err := os.ReadFile(nml)
		if err != nil {
			t.Fatalf("read %s: %v", nml, err)
		}
		if !strings.Contains(string(data), "sDomainName = 'marche'") {
			t.Errorf("%s not substituted:\n%s", stamp, data)
		}
	}
	if _, err := os.Stat(db); err != nil {
		t.Errorf("provenance database missing: %v", err)
	}
}

func TestRunCommand_FailuresExitNonZero(t *testing.T) {
	dir := t.TempDir()
	path := writeDescriptor(t, dir)

	// Remove the template so every timestamp fails.
	if err := os.Remove(filepath.Join(dir, "template.txt")); err != nil {
		t.Fatalf("remove template: %v", err)
	}

	err := execute(t, "--log-level", "error", "run", path)
	if err == nil {
		t.Fatal("expected an error when all timestamps fail")
	}
	if !strings.Contains(err.Error(), "2 of 2 timestamps failed") {
		t.Errorf("error = %v", err)
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCmd()
	want := map[string]bool{"run": false, "validate": false, "time": false, "list": false, "serve": false}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
