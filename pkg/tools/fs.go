package tools

import (
	"os"

	cp "github.com/otiai10/copy"
)

// CopyFolder recursively copies src into dst. When overwrite is false,
// files already present at the destination are left untouched; when true,
// they are replaced.
func CopyFolder(src, dst string, overwrite bool) error {
	opts := cp.Options{
		OnDirExists: func(src, dest string) cp.DirExistsAction {
			return cp.Merge
		},
		Skip: func(srcinfo os.FileInfo, src, dest string) (bool, error) {
			if overwrite {
				return false, nil
			}
			if _, err := os.Stat(dest); err == nil {
				return true, nil
			}
			return false, nil
		},
	}
	return cp.Copy(src, dst, opts)
}

// CopyAllFilesInFolder copies every regular file directly inside src (not
// recursing into sub-directories) into dst.
func CopyAllFilesInFolder(src, dst string, overwrite bool) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		srcPath := src + string(os.PathSeparator) + entry.Name()
		dstPath := dst + string(os.PathSeparator) + entry.Name()

		if !overwrite {
			if _, err := os.Stat(dstPath); err == nil {
				continue
			}
		}

		if err := cp.Copy(srcPath, dstPath); err != nil {
			return err
		}
	}

	return nil
}
