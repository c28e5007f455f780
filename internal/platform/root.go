package platform

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/aretw0/ankihorse/pkg/adapters/fs"
	"github.com/aretw0/ankihorse/pkg/config"
)

// ErrRootNotFound is returned by FindRoot when no parent directory is a vault.
var ErrRootNotFound = errors.New("vault root not found")

// FindRoot looks upwards from startDir for a vault root indicator: the
// .ankihorse directory or the ankihorse.yaml file. It returns the absolute
// path to the root.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, fs.DefaultSystemDir) || hasFile(dir, config.FileName) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrRootNotFound
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
