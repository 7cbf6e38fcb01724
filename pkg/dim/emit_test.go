package dim

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
)

func TestEmitFiles_WritesVarBundleAndIncludes(t *testing.T) {
	fs := afero.NewMemMapFs()

	if err := afero.WriteFile(fs, "/inv/cubtera/env/prod:cert.pem", []byte("cert-data"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if err := afero.WriteFile(fs, "/inv/cubtera/env/.default:policy.json.tpl", []byte("tpl-data"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if err := afero.WriteFile(fs, "/inv/cubtera/env/staging:cert.pem", []byte("other-env"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	d := &Dim{
		Type: "env",
		Name: "prod",
		Data: map[string]interface{}{"name": "prod", "region": "us-east-2"},
	}

	if err := d.EmitFiles(fs, "/inv/cubtera/env", "/work", ":"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bundle, err := afero.ReadFile(fs, "/work/cubtera_dim_env.json")
	if err != nil {
		t.Fatalf("expected var bundle written: %v", err)
	}
	var vars map[string]interface{}
	if err := json.Unmarshal(bundle, &vars); err != nil {
		t.Fatalf("unmarshal bundle: %v", err)
	}
	if vars["dim_env_region"] != "us-east-2" {
		t.Fatalf("expected dim_env_region in bundle, got %#v", vars)
	}

	cert, err := afero.ReadFile(fs, "/work/cert.pem")
	if err != nil || string(cert) != "cert-data" {
		t.Fatalf("expected prod's cert.pem copied and stripped, err=%v content=%q", err, cert)
	}

	tpl, err := afero.ReadFile(fs, "/work/policy.json.tpl")
	if err != nil || string(tpl) != "tpl-data" {
		t.Fatalf("expected default policy.json.tpl copied and stripped, err=%v content=%q", err, tpl)
	}

	exists, _ := afero.Exists(fs, "/work/staging:cert.pem")
	if exists {
		t.Fatalf("did not expect staging's files to be copied into prod's workspace")
	}
}

func TestEmitFiles_MissingInventoryDirIsNotFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := &Dim{Type: "env", Name: "prod", Data: map[string]interface{}{"name": "prod"}}

	if err := d.EmitFiles(fs, "/inv/cubtera/env", "/work", ":"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ok, _ := afero.Exists(fs, "/work/cubtera_dim_env.json"); !ok {
		t.Fatalf("expected var bundle still written even with no includes directory")
	}
}
