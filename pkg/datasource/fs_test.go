package datasource

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"github.com/cubtera/cubtera/pkg/logging"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestFS_GetByName_SingleDim(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/inv/cubtera/env/prod:meta.json", `{"region":"us-east-2"}`)

	ds := NewFS(fs, "/inv", "cubtera", "env", ":", logging.NewNopLogger())

	rec, err := ds.GetByName(context.Background(), "prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meta, ok := rec["meta"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected meta object, got %#v", rec)
	}
	if meta["region"] != "us-east-2" {
		t.Fatalf("expected region us-east-2, got %v", meta["region"])
	}
	if rec["name"] != "prod" {
		t.Fatalf("expected name to be stamped, got %v", rec["name"])
	}
}

func TestFS_GetDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/inv/cubtera/env/.default:meta.json", `{"ttl":300}`)

	ds := NewFS(fs, "/inv", "cubtera", "env", ":", logging.NewNopLogger())

	defaults, err := ds.GetDefaults(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meta, ok := defaults["meta"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected meta object in defaults, got %#v", defaults)
	}
	if meta["ttl"] != float64(300) {
		t.Fatalf("expected ttl 300, got %v", meta["ttl"])
	}
}

func TestFS_GetAllNames_ExcludesDefaultsAndSchema(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/inv/cubtera/env/prod:meta.json", `{}`)
	writeFile(t, fs, "/inv/cubtera/env/staging.json", `{}`)
	writeFile(t, fs, "/inv/cubtera/env/.default:meta.json", `{}`)
	writeFile(t, fs, "/inv/cubtera/env/prod:schema.json", `{}`)

	ds := NewFS(fs, "/inv", "cubtera", "env", ":", logging.NewNopLogger())

	names, err := ds.GetAllNames(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]bool{"prod": true, "staging": true}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for _, n := range names {
		if !want[n] {
			t.Fatalf("unexpected name %q in %v", n, names)
		}
	}
}

func TestFS_GetAllTypes(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/inv/cubtera/env/prod:meta.json", `{}`)
	writeFile(t, fs, "/inv/cubtera/dome/prod:meta.json", `{}`)

	ds := NewFS(fs, "/inv", "cubtera", "env", ":", logging.NewNopLogger())

	types, err := ds.GetAllTypes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]bool{"env": true, "dome": true}
	if len(types) != len(want) {
		t.Fatalf("expected %v, got %v", want, types)
	}
}

func TestFS_GetByName_Absent(t *testing.T) {
	fs := afero.NewMemMapFs()
	ds := NewFS(fs, "/inv", "cubtera", "env", ":", logging.NewNopLogger())

	rec, err := ds.GetByName(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec["name"] != "missing" {
		t.Fatalf("expected a stub record with name set, got %#v", rec)
	}
}
