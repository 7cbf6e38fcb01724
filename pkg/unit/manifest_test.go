package unit

import (
	"testing"

	"github.com/spf13/afero"
)

func TestLoadManifest_TOML(t *testing.T) {
	fs := afero.NewMemMapFs()
	toml := `
dimensions = ["dome", "env"]
type = "tf"
overwrite = true
opt_dims = ["dc"]
`
	if err := afero.WriteFile(fs, "/units/web/manifest.toml", []byte(toml), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m, err := LoadManifest(fs, "/units/web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Type != "tf" || len(m.Dimensions) != 2 || !m.Overwrite {
		t.Fatalf("unexpected manifest: %#v", m)
	}
	if len(m.OptDims) != 1 || m.OptDims[0] != "dc" {
		t.Fatalf("expected opt_dims [dc], got %v", m.OptDims)
	}
}

func TestLoadManifest_LegacyJSONFallback(t *testing.T) {
	fs := afero.NewMemMapFs()
	legacy := `{"dimensions": ["env"], "type": "bash"}`
	if err := afero.WriteFile(fs, "/units/web/unit_manifest.json", []byte(legacy), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m, err := LoadManifest(fs, "/units/web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Type != "bash" || len(m.Dimensions) != 1 || m.Dimensions[0] != "env" {
		t.Fatalf("unexpected manifest from legacy JSON: %#v", m)
	}
}

func TestLoadManifest_MissingBothIsFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := LoadManifest(fs, "/units/missing"); err == nil {
		t.Fatalf("expected an error when neither manifest form exists")
	}
}
