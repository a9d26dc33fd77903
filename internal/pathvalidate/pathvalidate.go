// Package pathvalidate enforces base-directory containment for
// caller-supplied file-path arguments: export/import destinations and
// any future scanner root.
package pathvalidate

import (
	"path/filepath"
	"strings"

	"github.com/fenwick-labs/memoria/internal/types"
)

// Resolve rejects path components containing ".." before resolution, then
// confirms the resolved absolute path is contained within baseDir (or one of
// allowDirs). Returns the resolved absolute path on success.
func Resolve(path string, baseDir string, allowDirs ...string) (string, error) {
	if path == "" {
		return "", types.Validationf("path must not be empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", types.Validationf("path %q must not contain '..' components", path)
		}
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", types.Validationf("resolve base directory: %v", err)
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(absBase, abs)
	}
	abs, err = filepath.Abs(abs)
	if err != nil {
		return "", types.Validationf("resolve path %q: %v", path, err)
	}

	roots := append([]string{absBase}, allowDirs...)
	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if abs == absRoot || strings.HasPrefix(abs, absRoot+string(filepath.Separator)) {
			return abs, nil
		}
	}
	return "", types.Validationf("path %q escapes the allowed base directory %q", path, absBase)
}
