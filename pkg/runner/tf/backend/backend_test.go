package backend

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestWriteStateBackendFile_SingleChildBackend(t *testing.T) {
	fs := afero.NewMemMapFs()
	stateBackend := map[string]interface{}{
		"s3": map[string]interface{}{
			"bucket": "my-bucket",
			"key":    "org/unit/state",
		},
	}

	if err := WriteStateBackendFile(fs, "/work/cubtera_backend.tf", stateBackend); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := afero.ReadFile(fs, "/work/cubtera_backend.tf")
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	content := string(out)

	for _, want := range []string{`terraform {`, `backend "s3" {`, `bucket = "my-bucket"`, `key    = "org/unit/state"`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, content)
		}
	}
}

func TestWriteStateBackendFile_NestedObjectBecomesNestedBlock(t *testing.T) {
	fs := afero.NewMemMapFs()
	stateBackend := map[string]interface{}{
		"s3": map[string]interface{}{
			"bucket": "my-bucket",
			"assume_role": map[string]interface{}{
				"role_arn": "arn:aws:iam::123456789012:role/deploy",
			},
		},
	}

	if err := WriteStateBackendFile(fs, "/work/cubtera_backend.tf", stateBackend); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := afero.ReadFile(fs, "/work/cubtera_backend.tf")
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	content := string(out)

	if !strings.Contains(content, "assume_role {") {
		t.Fatalf("expected nested object to become an assume_role block, got:\n%s", content)
	}
	if !strings.Contains(content, `role_arn = "arn:aws:iam::123456789012:role/deploy"`) {
		t.Fatalf("expected nested block's attribute written, got:\n%s", content)
	}
	if strings.Contains(content, `assume_role = ""`) {
		t.Fatalf("nested object must not be silently dropped to an empty string, got:\n%s", content)
	}
}

func TestWriteStateBackendFile_RejectsMultiChildObject(t *testing.T) {
	fs := afero.NewMemMapFs()
	stateBackend := map[string]interface{}{
		"s3":  map[string]interface{}{"bucket": "a"},
		"oci": map[string]interface{}{"bucket": "b"},
	}

	if err := WriteStateBackendFile(fs, "/work/cubtera_backend.tf", stateBackend); err == nil {
		t.Fatalf("expected error for a multi-child state backend object")
	}
}

func TestWriteGeneratedVarsFile_WritesSortedPlaceholders(t *testing.T) {
	fs := afero.NewMemMapFs()

	if err := WriteGeneratedVarsFile(fs, "/work/cubtera_vars.tf", []string{"dim_env_name", "dim_dc_region"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := afero.ReadFile(fs, "/work/cubtera_vars.tf")
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	content := string(out)

	dcIdx := strings.Index(content, `variable "dim_dc_region"`)
	envIdx := strings.Index(content, `variable "dim_env_name"`)
	if dcIdx == -1 || envIdx == -1 {
		t.Fatalf("expected both variable blocks present, got:\n%s", content)
	}
	if dcIdx > envIdx {
		t.Fatalf("expected variables sorted, got:\n%s", content)
	}
	if !strings.Contains(content, `description = "Generated by Cubtera"`) {
		t.Fatalf("expected generated description, got:\n%s", content)
	}
}

func TestCtyValue_NestedArrayObjectIsPreserved(t *testing.T) {
	fs := afero.NewMemMapFs()
	stateBackend := map[string]interface{}{
		"s3": map[string]interface{}{
			"tags": []interface{}{
				map[string]interface{}{"key": "env", "value": "prod"},
			},
		},
	}

	if err := WriteStateBackendFile(fs, "/work/cubtera_backend.tf", stateBackend); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := afero.ReadFile(fs, "/work/cubtera_backend.tf")
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	content := string(out)

	if !strings.Contains(content, `key`) || !strings.Contains(content, `"env"`) || !strings.Contains(content, `"prod"`) {
		t.Fatalf("expected array-of-object element rendered inline, got:\n%s", content)
	}
}
