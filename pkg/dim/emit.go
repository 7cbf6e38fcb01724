package dim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// EmitFiles writes this dim's variable bundle and copies every dim-include
// file/folder into destDir, per spec.md §4.2 "FS file emission".
// inventoryDir is the <inventory_path>/<org>/<dim_type> directory this dim
// was loaded from (used to locate sibling include files).
func (d *Dim) EmitFiles(fs afero.Fs, inventoryDir, destDir, separator string) error {
	if err := d.WriteVarBundle(fs, destDir); err != nil {
		return err
	}
	return d.copyIncludes(fs, inventoryDir, destDir, separator)
}

// WriteVarBundle writes this dim's variable bundle alone, without touching
// include files — used for optional-dimension null placeholders, which
// have no backing inventory folder to copy includes from.
func (d *Dim) WriteVarBundle(fs afero.Fs, destDir string) error {
	payload, err := json.MarshalIndent(d.GetJSONDimVars(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling dim vars for %s: %w", d.Identifier(), err)
	}

	dest := filepath.Join(destDir, fmt.Sprintf("cubtera_dim_%s.json", d.Type))
	return afero.WriteFile(fs, dest, payload, 0o644)
}

// copyIncludes copies every non-JSON sibling file/folder in inventoryDir
// whose stem begins with ".default<sep>" or "<name><sep>", stripping the
// prefix to produce the destination name.
func (d *Dim) copyIncludes(fs afero.Fs, inventoryDir, destDir, separator string) error {
	entries, err := afero.ReadDir(fs, inventoryDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	defaultPrefix := ".default" + separator
	namePrefix := d.Name + separator

	for _, entry := range entries {
		name := entry.Name()

		if !entry.IsDir() && filepath.Ext(name) == ".json" {
			continue // JSON role files are data, not includes.
		}

		var stripped string
		switch {
		case strings.HasPrefix(name, namePrefix):
			stripped = strings.TrimPrefix(name, namePrefix)
		case strings.HasPrefix(name, defaultPrefix):
			stripped = strings.TrimPrefix(name, defaultPrefix)
		default:
			continue
		}

		src := filepath.Join(inventoryDir, name)
		dst := filepath.Join(destDir, stripped)

		if entry.IsDir() {
			if err := copyDirAfero(fs, src, dst); err != nil {
				return err
			}
			continue
		}

		if err := copyFileAfero(fs, src, dst); err != nil {
			return err
		}
	}

	return nil
}

func copyFileAfero(fs afero.Fs, src, dst string) error {
	data, err := afero.ReadFile(fs, src)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, dst, data, 0o644)
}

func copyDirAfero(fs afero.Fs, src, dst string) error {
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return fs.MkdirAll(target, 0o755)
		}
		return copyFileAfero(fs, path, target)
	})
}
