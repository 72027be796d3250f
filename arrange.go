package braintumor

// Arrangement of the loose record files of a freshly unpacked dataset into class directories.

import (
	"path/filepath"
	"regexp"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// sampleFilePattern matches the names of unarranged record files.
var sampleFilePattern = regexp.MustCompile(`^[0-9]+\.mat$`)

// ArrangeReport counts what Arrange did with each file.
type ArrangeReport struct {
	Moved   map[ClassLabel]int // Files moved into each class directory.
	Deleted int                // Files removed for not having ExpectedRows rows.
	Skipped int                // Unreadable files or files with an unknown label, left in place.
}

// Total is the number of files Arrange looked at.
func (r ArrangeReport) Total() int {
	n := r.Deleted + r.Skipped
	for _, m := range r.Moved {
		n += m
	}
	return n
}

// Arrange moves every record file found directly in root into the directory of its class.
//
// Only files named like "123.mat" are considered, so a second run over an arranged root finds
// nothing to do. Records whose image does not have ExpectedRows rows are deleted. The class
// directories are created if needed; existing directories are not an error.
func Arrange(fs afero.Fs, root string, reader SampleReader, log logs.Log) (ArrangeReport, error) {
	report := ArrangeReport{Moved: make(map[ClassLabel]int, len(AllClasses))}

	names, err := filesMatchingInDir(fs, root, sampleFilePattern)
	if err != nil {
		return report, err
	}
	log.Infof("Arranging %d files in %v", len(names), root)

	for _, c := range AllClasses {
		dir := filepath.Join(root, c.DirName())
		if err := fs.Mkdir(dir, 0755); err != nil {
			if !dirExists(fs, dir) {
				return report, errors.Wrapf(err, "cannot create %q", dir)
			}
			log.Infof("%v directory already exists", c)
		}
	}

	for _, name := range names {
		path := filepath.Join(root, name)
		s, err := reader.ReadSample(path)
		if err != nil {
			log.Warnf("Cannot read %v, leaving it in place: %v", path, err)
			report.Skipped++
			continue
		}

		if s.Rows() != ExpectedRows {
			if err := fs.Remove(path); err != nil {
				return report, errors.Wrapf(err, "cannot remove %q", path)
			}
			report.Deleted++
			continue
		}

		if !s.Label.Valid() {
			log.Warnf("Unknown label %d in %v, leaving it in place", int(s.Label), path)
			report.Skipped++
			continue
		}

		dst := filepath.Join(root, s.Label.DirName(), name)
		if err := fs.Rename(path, dst); err != nil {
			return report, errors.Wrapf(err, "cannot move %q to %q", path, dst)
		}
		report.Moved[s.Label]++
	}

	log.Infof("Arranged %d files: %d meningioma, %d glioma, %d pituitary, %d deleted, %d skipped",
		report.Total(), report.Moved[Meningioma], report.Moved[Glioma], report.Moved[Pituitary],
		report.Deleted, report.Skipped)
	return report, nil
}
