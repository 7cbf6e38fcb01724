// Package dim implements dimension resolution (C2): loading one dimension
// record, following its parent chain, merging its defaults record,
// computing its kids, and emitting the variable bundle consumed by unit
// materialisation.
package dim

import (
	"context"
	"fmt"
	"strings"

	"github.com/cubtera/cubtera/pkg/cerrors"
	"github.com/cubtera/cubtera/pkg/datasource"
	"github.com/cubtera/cubtera/pkg/tools"
)

// Dim is one resolved dimension record, per spec.md §3.1. It is immutable
// once Build() returns — every Builder call re-reads storage, so there is
// no shared mutable state across Dim instances.
type Dim struct {
	Type    string
	Name    string
	Data    map[string]interface{}
	DataSHA string
	KeyPath string
	Parent  *Dim
	Kids    []string
}

// meta returns the "meta" sub-object of Data, or an empty map if absent.
func (d *Dim) meta() map[string]interface{} {
	if m, ok := d.Data["meta"].(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// AffinityTags returns the dimension's meta.affinity_tags, if any.
func (d *Dim) AffinityTags() []string {
	return stringSlice(d.meta()["affinity_tags"])
}

// Identifier returns "<type>:<name>".
func (d *Dim) Identifier() string {
	return fmt.Sprintf("%s:%s", d.Type, d.Name)
}

// ParentChain returns every identifier ("<type>:<name>") from the root
// ancestor to self, inclusive, in root-to-leaf order.
func (d *Dim) ParentChain() []string {
	var chain []string
	if d.Parent != nil {
		chain = d.Parent.ParentChain()
	}
	return append(chain, d.Identifier())
}

func stringSlice(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Builder is the fluent DimBuilder: choose storage, optionally attach
// context, optionally load data/defaults, then Build() or FullBuild()
// (read data -> read defaults -> merge -> build).
type Builder struct {
	dimType      string
	name         string
	org          string
	context      string
	dimRelations []string
	newDataSource func(dimType string) (datasource.DataSource, error)

	data     map[string]interface{}
	defaults map[string]interface{}

	visited map[string]bool // cycle protection (SPEC_FULL.md §D.1)
}

// NewBuilder constructs a Builder for dimType within org, given a factory
// that produces a DataSource for any dimension type (so parent-chain walks
// and kids lookups can switch dimension type while reusing the same
// storage backend and context).
func NewBuilder(org, dimType string, dimRelations []string, newDataSource func(dimType string) (datasource.DataSource, error)) *Builder {
	return &Builder{
		org:           org,
		dimType:       dimType,
		dimRelations:  dimRelations,
		newDataSource: newDataSource,
		visited:       map[string]bool{},
	}
}

// WithName sets the dimension name up-front, so lookups of undefined dims
// still produce a usable record (spec.md §4.2 "with_name()").
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithContext attaches a context overlay.
func (b *Builder) WithContext(context string) *Builder {
	b.context = context
	return b
}

func (b *Builder) dataSource() (datasource.DataSource, error) {
	ds, err := b.newDataSource(b.dimType)
	if err != nil {
		return nil, err
	}
	if b.context != "" {
		ds.SetContext(b.context)
	}
	return ds, nil
}

// ReadData loads the named record from storage.
func (b *Builder) ReadData(ctx context.Context) (*Builder, error) {
	ds, err := b.dataSource()
	if err != nil {
		return nil, err
	}

	data, err := ds.GetByName(ctx, b.name)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CategoryDimension, cerrors.SeverityHigh,
			fmt.Sprintf("reading dimension %s:%s", b.dimType, b.name))
	}

	b.data = data
	return b, nil
}

// ReadDefaultData loads the type's default record.
func (b *Builder) ReadDefaultData(ctx context.Context) (*Builder, error) {
	ds, err := b.dataSource()
	if err != nil {
		return nil, err
	}

	defaults, err := ds.GetDefaults(ctx)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CategoryDimension, cerrors.SeverityMedium,
			fmt.Sprintf("reading defaults for dimension type %s", b.dimType))
	}

	b.defaults = defaults
	return b, nil
}

// MergeDefaults merges loaded defaults into data (target/self wins),
// per spec.md §3.2.
func (b *Builder) MergeDefaults() *Builder {
	if b.data == nil {
		b.data = map[string]interface{}{}
	}
	if b.defaults != nil {
		b.data = tools.MergeValues(b.data, b.defaults)
	}
	return b
}

// FullBuild is ReadData -> ReadDefaultData -> MergeDefaults -> Build.
func (b *Builder) FullBuild(ctx context.Context) (*Dim, error) {
	if _, err := b.ReadData(ctx); err != nil {
		return nil, err
	}
	if _, err := b.ReadDefaultData(ctx); err != nil {
		return nil, err
	}
	b.MergeDefaults()
	return b.Build(ctx)
}

// Build resolves the parent chain (if data.meta.parent is set), computes
// kids, key_path and data_sha. It does not itself read data/defaults —
// callers wanting that should use FullBuild, or call ReadData first.
func (b *Builder) Build(ctx context.Context) (*Dim, error) {
	if b.data == nil {
		b.data = map[string]interface{}{"name": b.name}
	}

	d := &Dim{
		Type: b.dimType,
		Name: b.name,
		Data: b.data,
	}
	d.Data["name"] = b.name

	if parentRef, ok := d.meta()["parent"].(string); ok && parentRef != "" {
		parent, err := b.buildParent(ctx, parentRef)
		if err != nil {
			return nil, err
		}
		d.Parent = parent
		d.KeyPath = parent.KeyPath + "/" + d.Identifier()
	} else {
		d.KeyPath = d.Identifier()
	}

	kids, err := b.computeKids(ctx)
	if err != nil {
		return nil, err
	}
	d.Kids = kids

	d.DataSHA = tools.CanonicalSHA256(d.Data)

	return d, nil
}

// buildParent parses "<type>:<name>", guards against cycles via a
// visited-set threaded through the recursive call (SPEC_FULL.md §D.1), and
// recursively FullBuild's the parent using the same org/context.
func (b *Builder) buildParent(ctx context.Context, parentRef string) (*Dim, error) {
	parts := strings.SplitN(parentRef, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, cerrors.Newf(cerrors.CategoryDimension, cerrors.SeverityHigh,
			"malformed parent reference %q on %s:%s", parentRef, b.dimType, b.name)
	}
	parentType, parentName := parts[0], parts[1]

	selfKey := fmt.Sprintf("%s:%s", b.dimType, b.name)
	if b.visited[selfKey] {
		return nil, cerrors.Newf(cerrors.CategoryDimension, cerrors.SeverityHigh,
			"cycle detected in parent chain at %s", selfKey)
	}

	childVisited := map[string]bool{selfKey: true}
	for k := range b.visited {
		childVisited[k] = true
	}

	parentBuilder := &Builder{
		org:           b.org,
		dimType:       parentType,
		name:          parentName,
		context:       b.context,
		dimRelations:  b.dimRelations,
		newDataSource: b.newDataSource,
		visited:       childVisited,
	}

	return parentBuilder.FullBuild(ctx)
}

// computeKids locates self's type in dim_relations; if a next type exists,
// it lists every dim of that type whose meta.parent == self's identifier.
func (b *Builder) computeKids(ctx context.Context) ([]string, error) {
	idx := -1
	for i, t := range b.dimRelations {
		if t == b.dimType {
			idx = i
			break
		}
	}
	if idx < 0 || idx+1 >= len(b.dimRelations) {
		return nil, nil
	}
	childType := b.dimRelations[idx+1]

	ds, err := b.newDataSource(childType)
	if err != nil {
		return nil, err
	}
	if b.context != "" {
		ds.SetContext(b.context)
	}

	all, err := ds.GetAll(ctx)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CategoryDimension, cerrors.SeverityMedium,
			fmt.Sprintf("listing candidate kids of type %s", childType))
	}

	self := fmt.Sprintf("%s:%s", b.dimType, b.name)
	var kids []string
	for _, rec := range all {
		meta, _ := rec["meta"].(map[string]interface{})
		if meta == nil {
			continue
		}
		if parent, _ := meta["parent"].(string); parent == self {
			if name, ok := rec["name"].(string); ok {
				kids = append(kids, fmt.Sprintf("%s:%s", childType, name))
			}
		}
	}

	return kids, nil
}

// NewUndefined returns a Dim whose payload is every key from dimType's
// defaults set to null, named "undefined" — used to emit null variable
// bundles for optional dimensions that were not supplied (spec.md §4.2).
func NewUndefined(ctx context.Context, dimType string, newDataSource func(dimType string) (datasource.DataSource, error)) (*Dim, error) {
	ds, err := newDataSource(dimType)
	if err != nil {
		return nil, err
	}

	defaults, err := ds.GetDefaults(ctx)
	if err != nil {
		return nil, err
	}

	nulled := map[string]interface{}{}
	for k := range defaults {
		nulled[k] = nil
	}
	nulled["name"] = "undefined"

	return &Dim{
		Type:    dimType,
		Name:    "undefined",
		Data:    nulled,
		DataSHA: tools.CanonicalSHA256(nulled),
		KeyPath: fmt.Sprintf("%s:undefined", dimType),
	}, nil
}
