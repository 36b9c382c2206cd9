package extension

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// installAssets replace-copies an extension's static asset tree into its
// install path under the static root. An extension without assets is a
// no-op. Any existing tree at the destination is removed first so stale
// files from an older version never linger.
func installAssets(srcDir, destDir string) error {
	if srcDir == "" {
		return nil
	}

	info, err := os.Stat(srcDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading asset dir %s: %w", srcDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("asset path %s is not a directory", srcDir)
	}

	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("clearing asset install path %s: %w", destDir, err)
	}
	if err := os.MkdirAll(filepath.Dir(destDir), 0o755); err != nil {
		return fmt.Errorf("creating static root: %w", err)
	}
	if err := os.CopyFS(destDir, os.DirFS(srcDir)); err != nil {
		return fmt.Errorf("copying assets to %s: %w", destDir, err)
	}
	return nil
}

// removeAssets deletes the installed asset tree. Missing trees are fine.
func removeAssets(destDir string) error {
	if destDir == "" {
		return nil
	}
	return os.RemoveAll(destDir)
}
