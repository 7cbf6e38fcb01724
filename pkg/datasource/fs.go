package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/cubtera/cubtera/pkg/logging"
)

// fsDataSource implements DataSource over a directory tree, per spec.md
// §4.1's FS layout: <inventory_path>/<org>/<dim_type>/<name>:<role>.json,
// with <name> == ".default" for the per-type defaults record.
//
// Grounded file-for-file on the jsonfile.rs retrieval — filter construction,
// the meta/schema/role split, and get_all_names' exclusion rules mirror it
// exactly.
type fsDataSource struct {
	fs        afero.Fs
	typeDir   string // <inventory_path>/<org>/<dim_type>
	dimType   string
	separator string
	context   string
	logger    logging.Interface
}

// NewFS constructs an FS-backed DataSource rooted at
// <inventoryPath>/<org>/<dimType>.
func NewFS(fs afero.Fs, inventoryPath, org, dimType, separator string, logger logging.Interface) DataSource {
	if separator == "" {
		separator = ":"
	}
	return &fsDataSource{
		fs:        fs,
		typeDir:   filepath.Join(inventoryPath, org, dimType),
		dimType:   dimType,
		separator: separator,
		logger:    logger,
	}
}

func (d *fsDataSource) DimType() string { return d.dimType }

func (d *fsDataSource) SetContext(value string) { d.context = value }
func (d *fsDataSource) GetContext() string      { return d.context }

// GetByName reads every file whose stem starts with "<name><sep>" or is
// exactly "<name>", merging each file's role (derived from the stem suffix
// after the separator, or "meta" when the stem has no suffix) into one
// object. FS ignores context entirely — there is no FS equivalent of a
// context-stamped document.
func (d *fsDataSource) GetByName(_ context.Context, name string) (map[string]interface{}, error) {
	filterName := name
	if strings.HasPrefix(filterName, "_") {
		filterName = "." + strings.TrimPrefix(filterName, "_")
	}
	filter := filterName + d.separator

	entries, err := afero.ReadDir(d.fs, d.typeDir)
	if err != nil {
		if isNotExist(err) {
			return map[string]interface{}{"name": name}, nil
		}
		return nil, err
	}

	result := map[string]interface{}{}
	found := false

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		stem := strings.TrimSuffix(entry.Name(), ".json")
		if !(stem == filterName || strings.HasPrefix(stem, filter)) {
			continue
		}

		role := "meta"
		if idx := strings.Index(stem, d.separator); idx >= 0 {
			role = stem[idx+len(d.separator):]
		}

		raw, err := afero.ReadFile(d.fs, filepath.Join(d.typeDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		var parsed interface{}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}

		result[role] = parsed
		found = true
	}

	if !found {
		return map[string]interface{}{"name": name}, nil
	}

	result["name"] = name
	return result, nil
}

// GetDefaults reads the ".default" pseudo-record.
func (d *fsDataSource) GetDefaults(ctx context.Context) (map[string]interface{}, error) {
	return d.GetByName(ctx, ".default")
}

// GetAll reads every mainline (non-default) record.
func (d *fsDataSource) GetAll(ctx context.Context) ([]map[string]interface{}, error) {
	names, err := d.GetAllNames(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		rec, err := d.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetAllNames enumerates meta files: stems that either contain no
// separator, or whose suffix after the separator is exactly "meta";
// excludes dotfiles (defaults) and anything whose stem contains "schema".
func (d *fsDataSource) GetAllNames(_ context.Context) ([]string, error) {
	entries, err := afero.ReadDir(d.fs, d.typeDir)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	seen := map[string]bool{}
	var names []string

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		stem := strings.TrimSuffix(entry.Name(), ".json")
		if strings.HasPrefix(stem, ".") {
			continue
		}
		if strings.Contains(stem, "schema") {
			continue
		}

		metaSuffix := d.separator + "meta"
		var name string
		switch {
		case !strings.Contains(stem, d.separator):
			name = stem
		case strings.HasSuffix(stem, metaSuffix):
			name = strings.TrimSuffix(stem, metaSuffix)
		default:
			continue
		}

		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names, nil
}

// GetAllTypes lists the sibling directories of typeDir (i.e. every
// dimension type known under the same org).
func (d *fsDataSource) GetAllTypes(_ context.Context) ([]string, error) {
	orgDir := filepath.Dir(d.typeDir)

	entries, err := afero.ReadDir(d.fs, orgDir)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var types []string
	for _, entry := range entries {
		if entry.IsDir() {
			types = append(types, entry.Name())
		}
	}

	sort.Strings(types)
	return types, nil
}

// The FS backend is read-only for these mutation operations, per spec.md
// §4.1's "FS: no-op" column.
func (d *fsDataSource) UpsertAll(context.Context, []map[string]interface{}) error { return nil }
func (d *fsDataSource) UpsertByName(context.Context, string, map[string]interface{}) error {
	return nil
}
func (d *fsDataSource) DeleteByName(context.Context, string) error      { return nil }
func (d *fsDataSource) DeleteAllByContext(context.Context, string) error { return nil }

func isNotExist(err error) bool {
	return os.IsNotExist(err)
}
