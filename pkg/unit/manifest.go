// Package unit implements unit manifest parsing and materialisation (C4):
// parsing a unit descriptor, gating by allow/deny/affinity rules, and
// composing a deterministic temp workspace from inventory data plus unit
// source files.
package unit

import (
	"encoding/json"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/cubtera/cubtera/pkg/cerrors"
)

// manifestFileName is the current manifest format; legacyManifestFileName
// is tried when it is absent, per the Open Question resolution carrying
// forward the teacher's own deprecation TODO (SPEC_FULL.md §C.1).
const (
	manifestFileName       = "manifest.toml"
	legacyManifestFileName = "unit_manifest.json"
)

// Manifest is a unit's descriptor: the dimensions it requires, its gating
// rules, its runner type and params, and the extra files/env vars its spec
// declares.
type Manifest struct {
	Dimensions   []string          `toml:"dimensions" json:"dimensions"`
	Overwrite    bool              `toml:"overwrite" json:"overwrite"`
	OptDims      []string          `toml:"opt_dims" json:"opt_dims,omitempty"`
	AllowList    []string          `toml:"allow_list" json:"allow_list,omitempty"`
	DenyList     []string          `toml:"deny_list" json:"deny_list,omitempty"`
	AffinityTags []string          `toml:"affinity_tags" json:"affinity_tags,omitempty"`
	Type         string            `toml:"type" json:"type"`
	Spec         *Spec             `toml:"spec" json:"spec,omitempty"`
	Runner       map[string]string `toml:"runner" json:"runner,omitempty"`
	State        map[string]string `toml:"state" json:"state,omitempty"`
}

// Spec carries a unit's extra env var / file declarations. TfVersion is
// deprecated (SPEC_FULL.md §C.2): runner.Builder uses it for the version
// only when the manifest has no runner table at all, and then it replaces
// any configured version and clears runner_command.
type Spec struct {
	TfVersion string   `toml:"tf_version" json:"tf_version,omitempty"`
	EnvVars   *EnvVars `toml:"env_vars" json:"env_vars,omitempty"`
	Files     *Files   `toml:"files" json:"files,omitempty"`
}

// EnvVars lists environment variables the unit's runner command needs,
// split into ones whose absence is fatal versus ones that pass through
// only when present.
type EnvVars struct {
	Required map[string]string `toml:"required" json:"required,omitempty"`
	Optional map[string]string `toml:"optional" json:"optional,omitempty"`
}

// Files lists extra source→destination file copies folded into the temp
// workspace, beyond the unit folder's own contents.
type Files struct {
	Required map[string]string `toml:"required" json:"required,omitempty"`
	Optional map[string]string `toml:"optional" json:"optional,omitempty"`
}

// LoadManifest reads manifest.toml from dir, falling back to the legacy
// unit_manifest.json when the TOML file is absent.
func LoadManifest(fs afero.Fs, dir string) (*Manifest, error) {
	tomlPath := filepath.Join(dir, manifestFileName)
	if exists, _ := afero.Exists(fs, tomlPath); exists {
		raw, err := afero.ReadFile(fs, tomlPath)
		if err != nil {
			return nil, cerrors.Wrapf(err, cerrors.CategoryUnit, cerrors.SeverityHigh,
				"reading unit manifest at %s", tomlPath)
		}
		var m Manifest
		if err := toml.Unmarshal(raw, &m); err != nil {
			return nil, cerrors.Wrapf(err, cerrors.CategoryUnit, cerrors.SeverityHigh,
				"parsing unit manifest at %s", tomlPath)
		}
		return &m, nil
	}

	jsonPath := filepath.Join(dir, legacyManifestFileName)
	raw, err := afero.ReadFile(fs, jsonPath)
	if err != nil {
		return nil, cerrors.Wrapf(err, cerrors.CategoryUnit, cerrors.SeverityHigh,
			"no manifest found at %s or %s", tomlPath, jsonPath)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, cerrors.Wrapf(err, cerrors.CategoryUnit, cerrors.SeverityHigh,
			"parsing legacy unit manifest at %s", jsonPath)
	}
	return &m, nil
}

// manifestExists reports whether either manifest form is present at dir,
// without fully parsing it — used to detect a generic-unit overlay
// candidate alongside an org-specific manifest.
func manifestExists(fs afero.Fs, dir string) bool {
	for _, name := range []string{manifestFileName, legacyManifestFileName} {
		if exists, _ := afero.Exists(fs, filepath.Join(dir, name)); exists {
			return true
		}
	}
	return false
}

func manifestLoadError(name, orgDir, genericDir string) error {
	return cerrors.Newf(cerrors.CategoryUnit, cerrors.SeverityCritical,
		"can't find unit %q: no manifest at %s or %s", name, orgDir, genericDir)
}
