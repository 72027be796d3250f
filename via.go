package braintumor

// VGG Image Annotator (VIA) project export.

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// VIAShape describes the polygon of a region.
type VIAShape struct {
	Name       string  `json:"name"` // Always "polygon".
	AllPointsX []int32 `json:"all_points_x"`
	AllPointsY []int32 `json:"all_points_y"`
}

// VIARegionAnnotation is a single region annotation for a particular image in a VIA file.
type VIARegionAnnotation struct {
	Attributes map[string]string `json:"region_attributes"`
	Shape      VIAShape          `json:"shape_attributes"`
}

// VIAAnnotatedFile defines the VIA annotation structure for a single file.
type VIAAnnotatedFile struct {
	Annotations []VIARegionAnnotation `json:"regions"`
	Attributes  map[string]string     `json:"file_attributes"`
	FilePath    string                `json:"filename"`
	Size        int64                 `json:"size"`
}

// VIAOptionsAttribute defines attributes of type "radio" or "dropdown".
type VIAOptionsAttribute struct {
	Type           string            `json:"type"`
	Description    string            `json:"description"`
	Options        map[string]string `json:"options"`
	DefaultOptions map[string]bool   `json:"default_options"`
}

// VIATextAttribute defines attributes of type "text".
type VIATextAttribute struct {
	Type         string `json:"type"`
	Description  string `json:"description"`
	DefaultValue string `json:"default_value"`
}

// VIAAttributes defines the VIA attribute metadata.
type VIAAttributes struct {
	Region map[string]interface{} `json:"region"`
	File   map[string]interface{} `json:"file"`
}

// VIAProject defines the VIA project structure.
type VIAProject struct {
	Attributes    VIAAttributes               `json:"_via_attributes"`
	ImageMetadata map[string]VIAAnnotatedFile `json:"_via_img_metadata"`
	// Must exist for VIA to load the project. Default values will be used.
	Settings struct{} `json:"_via_settings"`
}

const viaLabelAttribute = "Label" // The attribute key used for labels.

// ToVIA converts the annotations to a VIA project with one polygon region per tumor.
func ToVIA(data AnnotatedFiles) VIAProject {
	labelOptions := make(map[string]string, len(AllClasses))
	for _, c := range AllClasses {
		labelOptions[c.DirName()] = c.String()
	}

	project := VIAProject{
		Attributes: VIAAttributes{
			Region: map[string]interface{}{
				viaLabelAttribute: VIAOptionsAttribute{
					Type:           "radio",
					Description:    "Tumor class",
					Options:        labelOptions,
					DefaultOptions: map[string]bool{},
				},
			},
			File: map[string]interface{}{
				PatientIDAttribute: VIATextAttribute{Type: "text", Description: "Patient ID"},
			},
		},
		ImageMetadata: make(map[string]VIAAnnotatedFile, len(data)),
	}

	for _, f := range data {
		vf := VIAAnnotatedFile{
			Annotations: make([]VIARegionAnnotation, 0, len(f.Annotations)),
			Attributes:  make(map[string]string, 1), // Must not be nil as that becomes JSON null.
			FilePath:    f.FilePath,
			Size:        -1,
		}
		for _, a := range f.Annotations {
			shape := VIAShape{
				Name:       "polygon",
				AllPointsX: make([]int32, len(a.Polygon)),
				AllPointsY: make([]int32, len(a.Polygon)),
			}
			for i, p := range a.Polygon {
				shape.AllPointsX[i] = int32(math.Round(p.X))
				shape.AllPointsY[i] = int32(math.Round(p.Y))
			}
			if pid, ok := a.Attributes[PatientIDAttribute].(string); ok {
				vf.Attributes[PatientIDAttribute] = pid
			}
			vf.Annotations = append(vf.Annotations, VIARegionAnnotation{
				Attributes: map[string]string{viaLabelAttribute: a.Label},
				Shape:      shape,
			})
		}

		// VIA keys its metadata by file name and size. The size of an exported image is not known
		// here, so -1 is used as VIA does for remote files.
		project.ImageMetadata[fmt.Sprintf("%s%d", vf.FilePath, vf.Size)] = vf
	}

	return project
}

// WriteVIA writes the VIA project data to outFile.
func WriteVIA(fs afero.Fs, outFile string, data VIAProject) error {
	enc, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs, outFile, enc, 0644); err != nil {
		return errors.Wrapf(err, "cannot write file %q", outFile)
	}
	return nil
}
