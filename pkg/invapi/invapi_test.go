package invapi

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"github.com/cubtera/cubtera/pkg/config"
	"github.com/cubtera/cubtera/pkg/datasource"
	"github.com/cubtera/cubtera/pkg/logging"
)

func seedInventory(t *testing.T, fs afero.Fs) {
	t.Helper()
	write := func(path, content string) {
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatalf("seeding %s: %v", path, err)
		}
	}

	write("/inv/cubtera/dome/acme:meta.json", `{}`)
	write("/inv/cubtera/env/prod:meta.json", `{"region":"us-east-2","parent":"dome:acme"}`)
	write("/inv/cubtera/env/staging:meta.json", `{"parent":"dome:acme"}`)
	write("/inv/cubtera/env/.default:meta.json", `{"ttl":300}`)
}

func newTestService(t *testing.T, fs afero.Fs) *Service {
	t.Helper()
	cfg := &config.Config{
		Org:          "cubtera",
		Orgs:         []string{"cubtera", "admin"},
		DimRelations: []string{"dome", "env"},
	}

	factory := func(org, dimType string) (datasource.DataSource, error) {
		return datasource.NewFS(fs, "/inv", org, dimType, ":", logging.NewNopLogger()), nil
	}

	return New(cfg, factory, nil)
}

func TestDimByName_ResolvesParentChain(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedInventory(t, fs)
	svc := newTestService(t, fs)

	env, err := svc.DimByName(context.Background(), "cubtera", "env", "prod", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env["id"] != "dimByName" || env["status"] != "ok" {
		t.Fatalf("unexpected envelope: %#v", env)
	}
	data, ok := env["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object, got %#v", env["data"])
	}
	meta, ok := data["meta"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected meta object, got %#v", data["meta"])
	}
	if meta["region"] != "us-east-2" {
		t.Fatalf("expected region us-east-2, got %v", meta["region"])
	}
	if meta["ttl"] != float64(300) {
		t.Fatalf("expected merged default ttl 300, got %v", meta["ttl"])
	}
}

func TestDimParent_NoParentReturnsErrorEnvelope(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedInventory(t, fs)
	svc := newTestService(t, fs)

	resp, err := svc.DimParent(context.Background(), "cubtera", "dome", "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp["status"] != "error" || resp["message"] != "No parent dim found" {
		t.Fatalf("expected no-parent error envelope, got %#v", resp)
	}
	if resp["data"] != nil {
		t.Fatalf("expected nil data on error envelope, got %#v", resp["data"])
	}
}

func TestDimParent_ReturnsParent(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedInventory(t, fs)
	svc := newTestService(t, fs)

	resp, err := svc.DimParent(context.Background(), "cubtera", "env", "prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp["status"] != "ok" || resp["name"] != "acme" || resp["type"] != "dome" {
		t.Fatalf("unexpected parent envelope: %#v", resp)
	}
}

func TestDimsByParent_ListsKids(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedInventory(t, fs)
	svc := newTestService(t, fs)

	resp, err := svc.DimsByParent(context.Background(), "cubtera", "dome", "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object, got %#v", resp["data"])
	}
	if data["dim_type"] != "env" {
		t.Fatalf("expected dim_type env, got %v", data["dim_type"])
	}
	names, ok := data["dim_names"].([]string)
	if !ok || len(names) != 2 {
		t.Fatalf("expected two kid names, got %#v", data["dim_names"])
	}
}

func TestOrgs_ExcludesReservedNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc := newTestService(t, fs)

	resp, err := svc.Orgs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, ok := resp["data"].([]string)
	if !ok {
		t.Fatalf("expected string slice data, got %#v", resp["data"])
	}
	if len(data) != 1 || data[0] != "cubtera" {
		t.Fatalf("expected only cubtera to survive the exclusion list, got %#v", data)
	}
}

func TestDlog_NoClientReturnsSoftErrorEnvelope(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc := newTestService(t, fs)

	resp, err := svc.Dlog(context.Background(), "cubtera", []KeyValue{{Key: "env", Value: "prod"}}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp["status"] != "error" || resp["id"] != "dlog" {
		t.Fatalf("expected soft error envelope, got %#v", resp)
	}
}
