// Package backend synthesises the Terraform/OpenTofu backend and
// generated-variable HCL files TfRunner writes into a unit's temp
// workspace, and runs optional preflight reachability checks against the
// configured backend before Terraform ever touches it.
//
// Grounded on tf/mod.rs's hand-rolled json_to_hcl/convert_json_to_hcl_file
// (which special-cased a single-child "backend" object into
// `backend "<type>" { ... }`), reimplemented with hclwrite per
// SPEC_FULL.md §B.2 instead of string concatenation.
package backend

import (
	"context"
	"sort"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"

	"github.com/cubtera/cubtera/pkg/cerrors"
)

// WriteStateBackendFile writes a `terraform { backend "<type>" { ... } }`
// block to path. stateBackend is the merged, already-templated object of
// shape {"<type>": {"key": "value", ...}} produced by runner.Builder.Build
// — exactly one top-level key, matching the single-child special case the
// original emitter hard-coded for "backend".
func WriteStateBackendFile(fs afero.Fs, path string, stateBackend map[string]interface{}) error {
	backendType, body, err := singleChild(stateBackend)
	if err != nil {
		return err
	}

	f := hclwrite.NewEmptyFile()
	tfBlock := f.Body().AppendNewBlock("terraform", nil)
	backendBlock := tfBlock.Body().AppendNewBlock("backend", []string{backendType})
	setAttributes(backendBlock.Body(), body)

	return afero.WriteFile(fs, path, f.Bytes(), 0o644)
}

// WriteGeneratedVarsFile writes one `variable "<key>" { ... }` block per
// key in keys to path, matching the original's "Generated by Cubtera"
// placeholder variables for every dimension var-bundle key discovered
// across a unit's cubtera_*.json files.
func WriteGeneratedVarsFile(fs afero.Fs, path string, keys []string) error {
	sorted := append([]string{}, keys...)
	sort.Strings(sorted)

	f := hclwrite.NewEmptyFile()
	for _, key := range sorted {
		block := f.Body().AppendNewBlock("variable", []string{key})
		// "type = any" is a bare type-constraint keyword, not a string, so
		// it is written as a raw identifier token rather than via
		// SetAttributeValue (which would quote it).
		block.Body().SetAttributeRaw("type", identToken("any"))
		block.Body().SetAttributeValue("default", cty.NullVal(cty.DynamicPseudoType))
		block.Body().SetAttributeValue("description", cty.StringVal("Generated by Cubtera"))
	}

	return afero.WriteFile(fs, path, f.Bytes(), 0o644)
}

func singleChild(obj map[string]interface{}) (string, map[string]interface{}, error) {
	if len(obj) != 1 {
		return "", nil, cerrors.Newf(cerrors.CategoryRunner, cerrors.SeverityCritical,
			"state backend object must have exactly one top-level key (the backend type), got %d", len(obj))
	}
	for k, v := range obj {
		child, ok := v.(map[string]interface{})
		if !ok {
			return "", nil, cerrors.Newf(cerrors.CategoryRunner, cerrors.SeverityCritical,
				"state backend %q config must be an object", k)
		}
		return k, child, nil
	}
	panic("unreachable")
}

// setAttributes writes one attribute or nested block per key in values,
// sorted for deterministic output. A nested object recurses into a
// `key { ... }` block rather than an attribute, matching the original
// json_to_hcl's object handling (spec.md §4.6); every other value type is
// written as a literal attribute via ctyValue.
func setAttributes(body *hclwrite.Body, values map[string]interface{}) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if nested, ok := values[k].(map[string]interface{}); ok {
			block := body.AppendNewBlock(k, nil)
			setAttributes(block.Body(), nested)
			continue
		}
		body.SetAttributeValue(k, ctyValue(values[k]))
	}
}

func identToken(name string) hclwrite.Tokens {
	return hclwrite.Tokens{
		{Type: hclsyntax.TokenIdent, Bytes: []byte(name)},
	}
}

func ctyValue(v interface{}) cty.Value {
	switch val := v.(type) {
	case string:
		return cty.StringVal(val)
	case bool:
		return cty.BoolVal(val)
	case float64:
		return cty.NumberFloatVal(val)
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case []interface{}:
		elems := make([]cty.Value, len(val))
		for i, e := range val {
			elems[i] = ctyValue(e)
		}
		if len(elems) == 0 {
			return cty.ListValEmpty(cty.DynamicPseudoType)
		}
		return cty.TupleVal(elems)
	case map[string]interface{}:
		// Reached only for an object nested inside an array element, since
		// setAttributes handles top-level object values as blocks directly;
		// an HCL object-constructor expression is the correct literal form
		// here (spec.md §4.6's array branch keeps elements inline).
		fields := make(map[string]cty.Value, len(val))
		for k, v := range val {
			fields[k] = ctyValue(v)
		}
		return cty.ObjectVal(fields)
	default:
		return cty.StringVal("")
	}
}

// PreflightCheck is implemented per backend type; failures are soft
// (logged, never fatal — SPEC_FULL.md §B.4).
type PreflightCheck func(ctx context.Context, cfg map[string]interface{}) error

var checks = map[string]PreflightCheck{}

// RegisterPreflight installs a reachability check for backendType. The s3
// and oci checks register themselves from this package's own init (they
// live here rather than in separate sub-packages since both are thin
// wrappers around an SDK client call with no state of their own).
func RegisterPreflight(backendType string, check PreflightCheck) {
	checks[backendType] = check
}

// RunPreflight runs the registered check for backendType, if any.
// Backend types with no registered check are skipped silently — the
// preflight step is advisory, not required (SPEC_FULL.md §B.4).
func RunPreflight(ctx context.Context, backendType string, cfg map[string]interface{}) error {
	check, ok := checks[backendType]
	if !ok {
		return nil
	}
	return check(ctx, cfg)
}
