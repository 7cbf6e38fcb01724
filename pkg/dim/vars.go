package dim

import "fmt"

// GetJSONDimVars walks the parent chain from root to self and emits an
// object whose keys are "dim_<type>_<attr>" for every top-level attribute
// of every dim's data object in the chain (attributes are emitted as-is,
// whatever role file they came from — "meta" included, not unwrapped, since
// a dim's data legitimately holds several role buckets side by side, e.g.
// "name", "meta", "schema"). Per the Open Question resolution in
// SPEC_FULL.md §D.2, self's keys are applied last in the walk, so self wins
// over any same-named parent key — not the other way around.
func (d *Dim) GetJSONDimVars() map[string]interface{} {
	chain := d.chainRootToSelf()

	vars := map[string]interface{}{}
	for _, link := range chain {
		for attr, value := range link.Data {
			vars[fmt.Sprintf("dim_%s_%s", link.Type, attr)] = value
		}
	}
	return vars
}

// chainRootToSelf returns the parent chain in root-to-leaf order (self
// last), so that a caller merging keys in iteration order naturally ends
// with self's values taking precedence.
func (d *Dim) chainRootToSelf() []*Dim {
	var chain []*Dim
	if d.Parent != nil {
		chain = d.Parent.chainRootToSelf()
	}
	return append(chain, d)
}
