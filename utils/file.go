package utils

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// RemoveFileNoError will remove the file at the given path if it exists. Any
// errors will be suppressed.
func RemoveFileNoError(path string) {
	utils.UncheckedErrorFunc(func() error {
		if _, err := os.Stat(path); err == nil {
			return os.Remove(path)
		}
		return nil
	})
}

// WriteFileAtomic streams the output of write into a temporary file next to path and
// renames it over path once write and the close both succeeded. On any failure the
// temporary file is removed and path is left untouched.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Wrapf(err, "error creating temporary file for %q", path)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0o644); err != nil {
		utils.UncheckedError(tmp.Close())
		RemoveFileNoError(tmpName)
		return errors.Wrapf(err, "error setting permissions on %q", tmpName)
	}
	if err := write(tmp); err != nil {
		utils.UncheckedError(tmp.Close())
		RemoveFileNoError(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		RemoveFileNoError(tmpName)
		return errors.Wrapf(err, "error closing %q", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		RemoveFileNoError(tmpName)
		return errors.Wrapf(err, "error moving file into %q", path)
	}
	return nil
}
