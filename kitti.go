package braintumor

// KITTI label export.

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// KITTIAnnotation is a single line of a KITTI label file.
type KITTIAnnotation struct {
	Coords [4]float64 // x1, y1, x2, y2
	Label  string
}

// KITTIAnnotatedFile holds the lines of the label file for one image.
type KITTIAnnotatedFile struct {
	Annotations []KITTIAnnotation
	FilePath    string
}

// ToKitti converts the annotations to KITTI format. Polygons and attributes are dropped.
func ToKitti(data AnnotatedFiles) []KITTIAnnotatedFile {
	kittiData := make([]KITTIAnnotatedFile, 0, len(data))
	for _, f := range data {
		kf := KITTIAnnotatedFile{
			Annotations: make([]KITTIAnnotation, len(f.Annotations)),
			FilePath:    f.FilePath,
		}
		for i, a := range f.Annotations {
			kf.Annotations[i] = KITTIAnnotation{Coords: a.Coords, Label: a.Label}
		}
		kittiData = append(kittiData, kf)
	}
	return kittiData
}

// WriteKitti writes one label file per image below dirPath. The label file path is the image path
// with a .txt extension, so "glioma/12.png" is labelled by "glioma/12.txt".
func WriteKitti(fs afero.Fs, dirPath string, data []KITTIAnnotatedFile) error {
	if !dirExists(fs, dirPath) {
		return errors.Errorf("cannot access directory %q", dirPath)
	}

	for _, kf := range data {
		rel := strings.TrimSuffix(kf.FilePath, filepath.Ext(kf.FilePath)) + ".txt"
		path := filepath.Join(dirPath, filepath.FromSlash(rel))
		if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := writeKittiFile(fs, path, kf.Annotations); err != nil {
			return errors.Wrapf(err, "cannot write %q", path)
		}
	}
	return nil
}

// writeKittiFile writes the annotations in the 15 column KITTI object format. Columns other than
// the type and the 2D box are zero.
func writeKittiFile(fs afero.Fs, path string, annotations []KITTIAnnotation) (err error) {
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(f, &err)

	for _, a := range annotations {
		_, err = fmt.Fprintf(f, "%s 0.0 0 0.0 %.2f %.2f %.2f %.2f 0.0 0.0 0.0 0.0 0.0 0.0 0.0\n",
			a.Label, a.Coords[0], a.Coords[1], a.Coords[2], a.Coords[3])
		if err != nil {
			return err
		}
	}
	return nil
}
