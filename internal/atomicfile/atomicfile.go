// Package atomicfile implements the write-rename protocol the tree store
// uses to persist its dump file: a mutation is never visible on disk until
// the final rename commits it, so a crash mid-write leaves the previous
// dump intact.
package atomicfile

import (
	"os"

	"github.com/pkg/errors"
)

// Write replaces path's contents with data using a temp-file-then-rename
// sequence: data is written to path+".new", the previous path+".old" is
// best-effort removed, the current path is best-effort renamed to
// path+".old", and finally path+".new" is renamed onto path. The last
// rename is the only step whose failure is reported to the caller; the two
// best-effort steps are allowed to fail (the .old file may not exist yet,
// or a prior crash may have already consumed it) and are not retried.
func Write(path string, data []byte, perm os.FileMode) error {
	newPath := path + ".new"
	oldPath := path + ".old"

	if err := os.WriteFile(newPath, data, perm); err != nil {
		return errors.Wrapf(err, "atomicfile: write %s", newPath)
	}

	_ = os.Remove(oldPath)
	_ = os.Rename(path, oldPath)

	if err := os.Rename(newPath, path); err != nil {
		return errors.Wrapf(err, "atomicfile: commit rename %s -> %s", newPath, path)
	}

	return nil
}

// Read loads path's contents. It is a thin wrapper kept alongside Write so
// that callers depend on one package for the dump file's full on-disk
// lifecycle rather than reaching into os directly.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "atomicfile: read %s", path)
	}
	return data, nil
}

// Exists reports whether path is present on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
