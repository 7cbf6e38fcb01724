package unit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/cubtera/cubtera/pkg/cerrors"
	"github.com/cubtera/cubtera/pkg/config"
	"github.com/cubtera/cubtera/pkg/datasource"
	"github.com/cubtera/cubtera/pkg/dim"
	"github.com/cubtera/cubtera/pkg/tools"
)

// Unit is one resolved, dimension-bound execution package: a manifest plus
// the concrete dims/extensions the caller supplied, ready for gating and
// temp-workspace composition.
type Unit struct {
	Name       string
	Manifest   *Manifest
	TempFolder string
	Extensions []string
	Dimensions []*dim.Dim
	OptDims    []*dim.Dim

	unitFolder        string
	genericUnitFolder string // "" when no generic overlay candidate exists
}

// DataSourceFactory builds a DataSource for dimType within org.
type DataSourceFactory func(dimType string) (datasource.DataSource, error)

// New resolves and validates a unit invocation: loads its manifest
// (org-specific first, generic unit as fallback — SPEC_FULL.md keeps both
// as overlay candidates when overwrite=true), checks every manifest
// dimension was supplied, sorts and partitions the caller's dims, and
// fully builds every resulting Dim.
//
// Grounded on unit/mod.rs's Unit::new: manifest load-order, the
// starts_with-based dimension matching and sort_by_key ordering, and the
// opt_dims partition/placeholder logic are ported algorithm-for-algorithm.
func New(ctx context.Context, cfg *config.Config, fs afero.Fs, name string, dimArgs, extensions []string, newDataSource DataSourceFactory, dimContext string) (*Unit, error) {
	orgUnitFolder := filepath.Join(cfg.UnitsPath, cfg.Org, name)
	genericUnitFolder := filepath.Join(cfg.UnitsPath, name)

	var manifest *Manifest
	var unitFolder string
	var generic string

	if m, err := LoadManifest(fs, orgUnitFolder); err == nil {
		manifest = m
		unitFolder = orgUnitFolder
		if manifestExists(fs, genericUnitFolder) {
			generic = genericUnitFolder
		}
	} else if m, err := LoadManifest(fs, genericUnitFolder); err == nil {
		manifest = m
		unitFolder = genericUnitFolder
	} else {
		return nil, manifestLoadError(name, orgUnitFolder, genericUnitFolder)
	}

	for _, required := range manifest.Dimensions {
		if !anyHasPrefix(dimArgs, required) {
			return nil, cerrors.Newf(cerrors.CategoryUnit, cerrors.SeverityCritical,
				"required dimension [%s] was not provided", required)
		}
	}

	sorted := sortByManifestOrder(dimArgs, manifest.Dimensions)
	if len(sorted) < len(manifest.Dimensions) {
		return nil, cerrors.Newf(cerrors.CategoryUnit, cerrors.SeverityCritical,
			"not enough dimensions provided for unit %q", name)
	}
	provided := append([]string{}, sorted[:len(manifest.Dimensions)]...)
	other := sorted[len(manifest.Dimensions):]

	if len(manifest.OptDims) > 0 {
		for _, d := range other {
			if contains(manifest.OptDims, dimTypeOf(d)) {
				provided = append(provided, d)
			}
		}
	}

	var optDims []*dim.Dim
	for _, optType := range manifest.OptDims {
		d, err := dim.NewUndefined(ctx, optType, newDataSource)
		if err != nil {
			return nil, err
		}
		optDims = append(optDims, d)
	}

	tempFolder := filepath.Join(cfg.TempFolderPath, cfg.Org, name, filepath.Join(provided...), filepath.Join(extensions...))

	dimensions := make([]*dim.Dim, 0, len(provided))
	for _, spec := range provided {
		parts := strings.SplitN(spec, ":", 2)
		if len(parts) != 2 {
			return nil, cerrors.Newf(cerrors.CategoryUnit, cerrors.SeverityCritical,
				"malformed dimension argument %q (want type:name)", spec)
		}

		builder := dim.NewBuilder(cfg.Org, parts[0], cfg.DimRelations, newDataSource)
		builder.WithName(parts[1])
		if dimContext != "" {
			builder.WithContext(dimContext)
		}

		d, err := builder.FullBuild(ctx)
		if err != nil {
			return nil, err
		}
		dimensions = append(dimensions, d)
	}

	return &Unit{
		Name:              name,
		Manifest:          manifest,
		TempFolder:        tempFolder,
		Extensions:        extensions,
		Dimensions:        dimensions,
		OptDims:           optDims,
		unitFolder:        unitFolder,
		genericUnitFolder: generic,
	}, nil
}

// ErrGated marks a unit execution that should abort with exit code 0 (a
// gating rule rejected the supplied dims) rather than an actual failure.
var ErrGated = errors.New("unit gated")

// Build runs the unit's allow/deny/affinity gates. A non-nil error
// wrapping ErrGated means the caller should log the message and exit 0,
// per spec.md §4.4's "aborts (exit 0, warning logged)".
func (u *Unit) Build() error {
	dimsSet := map[string]bool{}
	for _, d := range u.Dimensions {
		for _, id := range d.ParentChain() {
			dimsSet[id] = true
		}
	}
	all := make([]string, 0, len(dimsSet))
	for id := range dimsSet {
		all = append(all, id)
	}

	if len(u.Manifest.AllowList) > 0 {
		if len(tools.ValueIntersection(u.Manifest.AllowList, all)) == 0 {
			return gatedf("dims %v were not allowed for unit %q (allow_list %v)", all, u.Name, u.Manifest.AllowList)
		}
	}

	if len(u.Manifest.DenyList) > 0 {
		if len(tools.ValueIntersection(u.Manifest.DenyList, all)) > 0 {
			return gatedf("dims %v were denied for unit %q (deny_list %v)", all, u.Name, u.Manifest.DenyList)
		}
	}

	if len(u.Dimensions) > 0 {
		allowedTags := u.Dimensions[0].AffinityTags()
		if len(allowedTags) > 0 {
			if len(u.Manifest.AffinityTags) == 0 {
				return gatedf("unit %q doesn't have required affinity tags %v", u.Name, allowedTags)
			}
			if len(tools.ValueIntersection(allowedTags, u.Manifest.AffinityTags)) == 0 {
				return gatedf("unit %q doesn't have required affinity tags %v", u.Name, allowedTags)
			}
			for _, d := range u.Dimensions {
				if len(tools.ValueIntersection(allowedTags, d.AffinityTags())) == 0 {
					return gatedf("dimension %q doesn't have required affinity tags %v", d.Name, allowedTags)
				}
			}
		}
	}

	return nil
}

func gatedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrGated, fmt.Sprintf(format, args...))
}

// StatePath joins every dim's key_path followed by every extension,
// used as the logical identity for backend key templates.
func (u *Unit) StatePath() string {
	parts := make([]string, 0, len(u.Dimensions)+len(u.Extensions))
	for _, d := range u.Dimensions {
		parts = append(parts, d.KeyPath)
	}
	parts = append(parts, u.Extensions...)
	return strings.Join(parts, "/")
}

// RemoveTempFolder deletes the temp workspace if it exists.
func (u *Unit) RemoveTempFolder(fs afero.Fs) error {
	exists, err := afero.DirExists(fs, u.TempFolder)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return fs.RemoveAll(u.TempFolder)
}

func anyHasPrefix(args []string, prefix string) bool {
	for _, a := range args {
		if strings.HasPrefix(a, prefix) {
			return true
		}
	}
	return false
}

func dimTypeOf(spec string) string {
	if idx := strings.Index(spec, ":"); idx >= 0 {
		return spec[:idx]
	}
	return spec
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// sortByManifestOrder stably sorts dimArgs by the position of the manifest
// dimension type each one starts with; args matching no manifest type sort
// last, preserving their relative order (Rust's sort_by_key is stable).
func sortByManifestOrder(dimArgs, manifestDims []string) []string {
	sorted := append([]string{}, dimArgs...)
	position := func(arg string) int {
		for i, want := range manifestDims {
			if strings.HasPrefix(arg, want) {
				return i
			}
		}
		return len(manifestDims)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return position(sorted[i]) < position(sorted[j])
	})
	return sorted
}
