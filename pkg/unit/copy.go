package unit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/cubtera/cubtera/pkg/cerrors"
	"github.com/cubtera/cubtera/pkg/config"
	"github.com/cubtera/cubtera/pkg/logging"
	"github.com/cubtera/cubtera/pkg/tools"
)

// CopyFiles composes the unit's temp workspace, per spec.md §4.4's nine
// materialisation steps. fs is used for every workspace-local file
// operation (unit/generic overlay, dim var bundles, manifest file copies);
// the modules symlink and the opt-in plugins copy are real host-filesystem
// side effects and always go through the OS, matching their description
// as "one-time OS-global side effect" (spec.md §4.4 step 3).
//
// Grounded on unit/mod.rs's Unit::copy_files, step order preserved.
func (u *Unit) CopyFiles(fs afero.Fs, cfg *config.Config, logger logging.Interface) error {
	if err := fs.MkdirAll(u.TempFolder, 0o755); err != nil {
		return cerrors.Wrapf(err, cerrors.CategoryUnit, cerrors.SeverityCritical,
			"creating temp folder %s", u.TempFolder)
	}

	if err := u.symlinkModules(fs, cfg, logger); err != nil {
		return err
	}

	if cfg.CopyPlugins {
		if err := u.copyPlugins(cfg, logger); err != nil {
			return err
		}
	}

	if u.Manifest.Overwrite && u.genericUnitFolder != "" {
		if err := copyDirOverlay(fs, u.genericUnitFolder, u.TempFolder); err != nil {
			return cerrors.Wrapf(err, cerrors.CategoryUnit, cerrors.SeverityCritical,
				"copying generic unit folder %s", u.genericUnitFolder)
		}
	}

	if err := copyDirOverlay(fs, u.unitFolder, u.TempFolder); err != nil {
		return cerrors.Wrapf(err, cerrors.CategoryUnit, cerrors.SeverityCritical,
			"copying unit folder %s", u.unitFolder)
	}

	for _, opt := range u.OptDims {
		if err := opt.WriteVarBundle(fs, u.TempFolder); err != nil {
			return cerrors.Wrapf(err, cerrors.CategoryUnit, cerrors.SeverityHigh,
				"writing null placeholder for optional dim %s", opt.Type)
		}
	}

	for _, d := range u.Dimensions {
		inventoryDir := filepath.Join(cfg.InventoryPath, cfg.Org, d.Type)
		if err := d.EmitFiles(fs, inventoryDir, u.TempFolder, cfg.FileNameSeparator); err != nil {
			return cerrors.Wrapf(err, cerrors.CategoryUnit, cerrors.SeverityHigh,
				"emitting dim files for %s", d.Identifier())
		}
	}

	if len(u.Extensions) > 0 {
		if err := u.writeExtensions(fs); err != nil {
			return err
		}
	}

	if u.Manifest.Spec != nil && u.Manifest.Spec.Files != nil {
		if err := copyManifestFiles(fs, u.Manifest.Spec.Files.Required, u.TempFolder, func(src string) error {
			return cerrors.Newf(cerrors.CategoryUnit, cerrors.SeverityCritical,
				"required file %s from unit manifest doesn't exist", src)
		}); err != nil {
			return err
		}
		if err := copyManifestFiles(fs, u.Manifest.Spec.Files.Optional, u.TempFolder, func(src string) error {
			logger.Warnf("optional file %s from unit manifest doesn't exist, skipping", src)
			return nil
		}); err != nil {
			return err
		}
	}

	return nil
}

// symlinkModules links <modules_path> as <temp>/modules, resolving a
// relative modules_path against the process's current directory the same
// way the source does (std::env::current_dir().join(modules_path)).
//
// Symlinking is only meaningful on a real filesystem; fs backends that
// don't support it (afero.MemMapFs, used by tests) are skipped with a
// debug log rather than failing the whole pipeline.
func (u *Unit) symlinkModules(fs afero.Fs, cfg *config.Config, logger logging.Interface) error {
	linker, ok := fs.(afero.Linker)
	if !ok {
		logger.Debugf("filesystem backend does not support symlinks, skipping modules link")
		return nil
	}

	target := filepath.Join(u.TempFolder, "modules")
	if exists, _ := afero.Exists(fs, target); exists {
		return nil
	}

	modulesPath := cfg.ModulesPath
	if !filepath.IsAbs(modulesPath) {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		modulesPath = filepath.Join(wd, modulesPath)
	}

	if err := linker.SymlinkIfPossible(modulesPath, target); err != nil {
		return cerrors.Wrapf(err, cerrors.CategoryUnit, cerrors.SeverityCritical,
			"creating modules symlink at %s", target)
	}
	return nil
}

// copyPlugins copies plugins_path into ~/.terraform.d/plugins, gated by
// Config.CopyPlugins (opt-in per SPEC_FULL.md §D.4, rather than the
// source's unconditional copy).
func (u *Unit) copyPlugins(cfg *config.Config, logger logging.Interface) error {
	pluginsPath := cfg.PluginsPath
	if !filepath.IsAbs(pluginsPath) {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		pluginsPath = filepath.Join(wd, pluginsPath)
	}

	if _, err := os.Stat(pluginsPath); os.IsNotExist(err) {
		logger.Warnf("plugin folder %s does not exist, skipping", pluginsPath)
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	dest := filepath.Join(home, ".terraform.d", "plugins")
	logger.Infof("copying plugins from %s to %s", pluginsPath, dest)
	return tools.CopyFolder(pluginsPath, dest, false)
}

func (u *Unit) writeExtensions(fs afero.Fs) error {
	vars := map[string]string{}
	for _, ext := range u.Extensions {
		parts := strings.SplitN(ext, ":", 2)
		if len(parts) != 2 {
			return cerrors.Newf(cerrors.CategoryUnit, cerrors.SeverityCritical,
				"malformed extension argument %q (want type:name)", ext)
		}
		vars[fmt.Sprintf("ext_%s_name", parts[0])] = parts[1]
	}

	payload, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return err
	}

	return afero.WriteFile(fs, filepath.Join(u.TempFolder, "cubtera_ext.json"), payload, 0o644)
}

func copyManifestFiles(fs afero.Fs, files map[string]string, destDir string, onMissing func(src string) error) error {
	for src, dst := range files {
		resolved, err := tools.StringToPath(src)
		if err != nil {
			return err
		}

		exists, err := afero.Exists(fs, resolved)
		if err != nil {
			return err
		}
		if !exists {
			if err := onMissing(resolved); err != nil {
				return err
			}
			continue
		}

		destPath := filepath.Join(destDir, dst)
		if err := fs.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}

		data, err := afero.ReadFile(fs, resolved)
		if err != nil {
			return err
		}
		if err := afero.WriteFile(fs, destPath, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// copyDirOverlay recursively copies src into dst, overwriting any existing
// files at the destination (the unit/generic-unit overlay always wins over
// whatever was copied before it).
func copyDirOverlay(fs afero.Fs, src, dst string) error {
	exists, err := afero.DirExists(fs, src)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return fs.MkdirAll(target, 0o755)
		}

		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		return afero.WriteFile(fs, target, data, info.Mode())
	})
}
