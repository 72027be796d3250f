package braintumor

// Sloth label export.

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// SlothAnnotation is a single polygon annotation within a Sloth file.
type SlothAnnotation struct {
	Class string `json:"class,omitempty"`
	Type  string `json:"type,omitempty"`
	XN    string `json:"xn,omitempty"` // Semicolon separated x coordinates.
	YN    string `json:"yn,omitempty"` // Semicolon separated y coordinates.
}

// SlothAnnotatedFile defines the Sloth annotation structure for a single file.
type SlothAnnotatedFile struct {
	Annotations []SlothAnnotation `json:"annotations"`
	Class       string            `json:"class,omitempty"`
	FilePath    string            `json:"filename,omitempty"`
}

// ToSloth converts the annotations to Sloth polygons.
func ToSloth(data AnnotatedFiles) []SlothAnnotatedFile {
	slothData := make([]SlothAnnotatedFile, 0, len(data))
	for _, f := range data {
		sf := SlothAnnotatedFile{
			Annotations: make([]SlothAnnotation, len(f.Annotations)),
			Class:       "image",
			FilePath:    f.FilePath,
		}
		for i, a := range f.Annotations {
			xs := make([]string, len(a.Polygon))
			ys := make([]string, len(a.Polygon))
			for j, p := range a.Polygon {
				xs[j] = strconv.FormatFloat(p.X, 'f', 2, 64)
				ys[j] = strconv.FormatFloat(p.Y, 'f', 2, 64)
			}
			sf.Annotations[i] = SlothAnnotation{
				Class: a.Label,
				Type:  "polygon",
				XN:    strings.Join(xs, ";"),
				YN:    strings.Join(ys, ";"),
			}
		}
		slothData = append(slothData, sf)
	}
	return slothData
}

// WriteSloth writes the Sloth annotations to outFile.
func WriteSloth(fs afero.Fs, outFile string, data []SlothAnnotatedFile) error {
	enc, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs, outFile, enc, 0644); err != nil {
		return errors.Wrapf(err, "cannot write file %q", outFile)
	}
	return nil
}
