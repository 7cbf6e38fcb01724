package runner

import (
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/cubtera/cubtera/pkg/config"
	"github.com/cubtera/cubtera/pkg/logging"
	"github.com/cubtera/cubtera/pkg/unit"
)

// Builder computes a Load and Kind for a unit invocation: the merged
// runner params (global config overlaid with manifest, manifest wins) and
// the merged, templated state backend object (global config state[<type>]
// overlaid with manifest state, manifest wins), per spec.md §4.5.
type Builder struct {
	Cfg *config.Config
}

// NewBuilder constructs a Builder bound to cfg.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{Cfg: cfg}
}

// Build resolves kind from u.Manifest.Type and assembles the Load the
// concrete Runner variant will be constructed from.
func (rb *Builder) Build(u *unit.Unit, command []string, fs afero.Fs, logger logging.Interface) (*Load, Kind, error) {
	kind, err := ParseKind(u.Manifest.Type)
	if err != nil {
		return nil, "", err
	}

	merged := map[string]string{}
	for k, v := range rb.Cfg.Runner[strings.ToLower(string(kind))] {
		merged[k] = v
	}
	for k, v := range u.Manifest.Runner {
		merged[k] = v
	}
	params := NewParams(merged)

	// Deprecated spec.tf_version fallback (SPEC_FULL.md §C.2): only
	// applies when the manifest carries no runner map of its own at all.
	if len(u.Manifest.Runner) == 0 && u.Manifest.Spec != nil && u.Manifest.Spec.TfVersion != "" {
		params.Version = u.Manifest.Spec.TfVersion
		params.RunnerCommand = ""
		logger.Warnf("DEPRECATED: tf version set via spec.tf_version in unit manifest, use runner.version instead")
	}

	backendType := params.StateBackend
	backendParams := map[string]string{}
	for k, v := range rb.Cfg.State[backendType] {
		backendParams[k] = v
	}
	for k, v := range u.Manifest.State {
		backendParams[k] = v
	}

	dimTree := u.StatePath()
	templated := make(map[string]interface{}, len(backendParams))
	for k, v := range backendParams {
		templated[k] = renderTemplate(v, rb.Cfg.Org, u.Name, dimTree)
	}

	load := &Load{
		Unit:         u,
		Command:      command,
		Params:       params,
		StateBackend: map[string]interface{}{backendType: templated},
		Org:          rb.Cfg.Org,
		Cfg:          rb.Cfg,
		Fs:           fs,
		Logger:       logger,
	}
	return load, kind, nil
}

var templateVarPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// renderTemplate expands {{org}}, {{unit_name}} and {{dim_tree}} within s;
// any other {{...}} token passes through unchanged, per spec.md §4.5's
// Handlebars-style templating applied to every string within
// state_backend.
func renderTemplate(s, org, unitName, dimTree string) string {
	return templateVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := templateVarPattern.FindStringSubmatch(match)
		switch sub[1] {
		case "org":
			return org
		case "unit_name":
			return unitName
		case "dim_tree":
			return dimTree
		default:
			return match
		}
	})
}
