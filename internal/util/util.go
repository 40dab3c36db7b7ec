package util

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/mod/modfile"
)

// FileExists reports whether path exists.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "stat %s", path)
}

// ModuleRoot walks up from dir to the directory holding go.mod and returns
// it together with the module path. ok is false when there is no go.mod.
func ModuleRoot(dir string) (root, modulePath string, ok bool, err error) {
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", "", false, errors.Wrap(err, "Abs")
	}
	for {
		gomod := filepath.Join(dir, "go.mod")
		data, err := os.ReadFile(gomod)
		if err == nil {
			return dir, modfile.ModulePath(data), true, nil
		}
		if !os.IsNotExist(err) {
			return "", "", false, errors.Wrapf(err, "read %s", gomod)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", false, nil
		}
		dir = parent
	}
}

// ResolvePath joins a relative path to root and leaves absolute paths alone.
func ResolvePath(root, path string) string {
	if filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}
