package unit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"

	"github.com/cubtera/cubtera/pkg/logging"
)

func TestCopyFiles_ComposesTempWorkspace(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedUnit(t, fs)
	cfg := testConfig()

	u, err := New(context.Background(), cfg, fs, "web", []string{"dome:acme", "env:prod"}, nil, newFactory(fs), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := u.CopyFiles(fs, cfg, logging.NewNopLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mainTf, err := afero.ReadFile(fs, u.TempFolder+"/main.tf")
	if err != nil {
		t.Fatalf("expected unit file copied into temp folder: %v", err)
	}
	if string(mainTf) != "# unit main\n" {
		t.Fatalf("unexpected main.tf content: %q", mainTf)
	}

	domeBundle, err := afero.ReadFile(fs, u.TempFolder+"/cubtera_dim_dome.json")
	if err != nil {
		t.Fatalf("expected dome var bundle written: %v", err)
	}
	var domeVars map[string]interface{}
	if err := json.Unmarshal(domeBundle, &domeVars); err != nil {
		t.Fatalf("unmarshal dome bundle: %v", err)
	}

	envBundle, err := afero.ReadFile(fs, u.TempFolder+"/cubtera_dim_env.json")
	if err != nil {
		t.Fatalf("expected env var bundle written: %v", err)
	}
	var envVars map[string]interface{}
	if err := json.Unmarshal(envBundle, &envVars); err != nil {
		t.Fatalf("unmarshal env bundle: %v", err)
	}
	envMeta, ok := envVars["dim_env_meta"].(map[string]interface{})
	if !ok || envMeta["region"] != "us-east-2" {
		t.Fatalf("expected dim_env_meta.region in env bundle, got %#v", envVars)
	}
}

func TestCopyFiles_WritesExtensionVars(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedUnit(t, fs)
	cfg := testConfig()

	u, err := New(context.Background(), cfg, fs, "web", []string{"dome:acme", "env:prod"}, []string{"region:us-east-2"}, newFactory(fs), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := u.CopyFiles(fs, cfg, logging.NewNopLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := afero.ReadFile(fs, u.TempFolder+"/cubtera_ext.json")
	if err != nil {
		t.Fatalf("expected cubtera_ext.json written: %v", err)
	}
	var ext map[string]string
	if err := json.Unmarshal(raw, &ext); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ext["ext_region_name"] != "us-east-2" {
		t.Fatalf("unexpected extension vars: %#v", ext)
	}
}

func TestCopyFiles_OptDimPlaceholderIsNulled(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedUnit(t, fs)
	cfg := testConfig()

	if err := afero.WriteFile(fs, "/units/cubtera/web/manifest.toml", []byte(`
dimensions = ["dome", "env"]
type = "tf"
opt_dims = ["dc"]
`), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := afero.WriteFile(fs, "/inv/cubtera/dc/.default:meta.json", []byte(`{"zone":"a"}`), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	u, err := New(context.Background(), cfg, fs, "web", []string{"dome:acme", "env:prod"}, nil, newFactory(fs), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := u.CopyFiles(fs, cfg, logging.NewNopLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := afero.ReadFile(fs, u.TempFolder+"/cubtera_dim_dc.json")
	if err != nil {
		t.Fatalf("expected dc placeholder written: %v", err)
	}
	var vars map[string]interface{}
	if err := json.Unmarshal(raw, &vars); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if vars["dim_dc_meta"] != nil {
		t.Fatalf("expected null placeholder value, got %v", vars["dim_dc_meta"])
	}
}
