package unit

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/cubtera/cubtera/pkg/config"
	"github.com/cubtera/cubtera/pkg/datasource"
	"github.com/cubtera/cubtera/pkg/logging"
)

func testConfig() *config.Config {
	return &config.Config{
		Org:               "cubtera",
		Orgs:              []string{"cubtera"},
		DimRelations:      []string{"dome", "env", "dc"},
		UnitsPath:         "/units",
		InventoryPath:     "/inv",
		ModulesPath:       "/modules",
		TempFolderPath:    "/tmp/cubtera",
		FileNameSeparator: ":",
	}
}

func seedUnit(t *testing.T, fs afero.Fs) {
	t.Helper()
	write := func(path, content string) {
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatalf("seed %s: %v", path, err)
		}
	}

	write("/units/cubtera/web/manifest.toml", `
dimensions = ["dome", "env"]
type = "tf"
`)
	write("/units/cubtera/web/main.tf", "# unit main\n")

	write("/inv/cubtera/dome/acme:meta.json", `{}`)
	write("/inv/cubtera/env/prod:meta.json", `{"region":"us-east-2","parent":"dome:acme"}`)
}

func newFactory(fs afero.Fs) DataSourceFactory {
	return func(dimType string) (datasource.DataSource, error) {
		return datasource.NewFS(fs, "/inv", "cubtera", dimType, ":", logging.NewNopLogger()), nil
	}
}

func TestNew_ResolvesProvidedDims(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedUnit(t, fs)
	cfg := testConfig()

	u, err := New(context.Background(), cfg, fs, "web", []string{"dome:acme", "env:prod"}, nil, newFactory(fs), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.Dimensions) != 2 {
		t.Fatalf("expected 2 resolved dims, got %d", len(u.Dimensions))
	}
	if u.Dimensions[0].Type != "dome" || u.Dimensions[1].Type != "env" {
		t.Fatalf("expected dims sorted dome,env — got %s,%s", u.Dimensions[0].Type, u.Dimensions[1].Type)
	}
}

func TestNew_MissingRequiredDimensionIsFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedUnit(t, fs)
	cfg := testConfig()

	_, err := New(context.Background(), cfg, fs, "web", []string{"dome:acme"}, nil, newFactory(fs), "")
	if err == nil {
		t.Fatalf("expected error when a required dimension is missing")
	}
}

func TestBuild_AllowListGatesExecution(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedUnit(t, fs)
	cfg := testConfig()

	u, err := New(context.Background(), cfg, fs, "web", []string{"dome:acme", "env:prod"}, nil, newFactory(fs), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u.Manifest.AllowList = []string{"dome:other"}

	if err := u.Build(); !errors.Is(err, ErrGated) {
		t.Fatalf("expected ErrGated, got %v", err)
	}
}

func TestBuild_NoGatesPasses(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedUnit(t, fs)
	cfg := testConfig()

	u, err := New(context.Background(), cfg, fs, "web", []string{"dome:acme", "env:prod"}, nil, newFactory(fs), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := u.Build(); err != nil {
		t.Fatalf("unexpected gating error: %v", err)
	}
}

func TestStatePath_JoinsKeyPathsAndExtensions(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedUnit(t, fs)
	cfg := testConfig()

	u, err := New(context.Background(), cfg, fs, "web", []string{"dome:acme", "env:prod"}, []string{"region:us"}, newFactory(fs), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "dome:acme/dome:acme/env:prod/region:us"
	if got := u.StatePath(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
