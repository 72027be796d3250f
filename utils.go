package braintumor

import (
	"io"
	"os"
	"regexp"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// filesMatchingInDir returns the names of all regular files found directly in directory dirPath
// whose name matches pattern. All regular files are returned if pattern is nil. Names are sorted.
func filesMatchingInDir(fs afero.Fs, dirPath string, pattern *regexp.Regexp) ([]string, error) {
	infos, err := afero.ReadDir(fs, dirPath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read directory %q", dirPath)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		// Must be a regular file or a symlink.
		if !info.Mode().IsRegular() && info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		if pattern != nil && !pattern.MatchString(info.Name()) {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)

	return names, nil
}

// dirExists reports whether path exists and is a directory.
func dirExists(fs afero.Fs, path string) bool {
	ok, err := afero.DirExists(fs, path)
	return err == nil && ok
}

// closeWithErrCheck calls c.Close(). If it returns an error, and (*e == nil), e is set to that
// error.
func closeWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
