package manifest

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize bounds how much of a well-known file is read
const MaxFileSize = 4 << 20

// readRootFile reads name from the top of dir. Only regular files that live
// inside dir count: a missing entry, a directory, a dangling link, a link
// leaving dir or a device all report found == false. At most limit bytes are
// returned; truncated is set when the file is longer.
func readRootFile(dir, name string, limit int64) (data []byte, found, truncated bool, err error) {
	path := filepath.Join(dir, name)

	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, false, nil
	}
	if err != nil {
		return nil, false, false, fmt.Errorf("stat %s: %w", name, err)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		target, ok, err := resolveInside(dir, path)
		if err != nil || !ok {
			return nil, false, false, err
		}
		if info, err = os.Stat(target); err != nil {
			return nil, false, false, nil
		}
		path = target
	}
	if !info.Mode().IsRegular() {
		return nil, false, false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, false, false, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	data, err = io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, false, false, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > limit {
		return data[:limit], true, true, nil
	}
	return data, true, false, nil
}

// resolveInside follows the link at path and reports whether the final
// target is contained in dir.
func resolveInside(dir, path string) (string, bool, error) {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		// dangling or looping links are treated as absent
		return "", false, nil
	}
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", false, fmt.Errorf("resolve %s: %w", dir, err)
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", false, nil
	}
	return target, true, nil
}
