package braintumor

// The annotation representation shared by the label format exporters.

import (
	"math"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// PatientIDAttribute is the annotation attribute holding the patient ID. Type string.
const PatientIDAttribute = "PatientID"

// Annotation is a labelled tumor region in an exported image.
type Annotation struct {
	Attributes map[string]interface{} // Additional attributes of this annotation.
	Coords     [4]float64             // Absolute x1, y1, x2, y2 offsets from the top-left corner.
	Label      string                 // The class directory name.
	Polygon    []Landmark             // The tumor border, in the same coordinates as Coords.
}

// Width is the object width from a.Coords.
func (a Annotation) Width() float64 {
	return a.Coords[2] - a.Coords[0]
}

// Height is the object height from a.Coords.
func (a Annotation) Height() float64 {
	return a.Coords[3] - a.Coords[1]
}

// AnnotatedFile lists the annotations of one exported image.
type AnnotatedFile struct {
	Annotations []Annotation
	FilePath    string // The image path, relative to the export directory.
	Width       int
	Height      int
}

// AnnotatedFiles is the annotation metadata for a list of images.
type AnnotatedFiles []AnnotatedFile

// ExportImagePath maps an item path such as "glioma/12.mat" to the path of its exported image,
// "glioma/12.png".
func ExportImagePath(itemPath string) string {
	return strings.TrimSuffix(itemPath, path.Ext(itemPath)) + ".png"
}

// exportMaskPath maps an item path to the path of its exported mask.
func exportMaskPath(itemPath string) string {
	return strings.TrimSuffix(itemPath, path.Ext(itemPath)) + "_mask.png"
}

// AnnotateItem converts an item to an AnnotatedFile with a single annotation. If width and height
// are positive, the coordinates are scaled to an image of that size.
func AnnotateItem(item *Item, width, height int) AnnotatedFile {
	b := item.Image.Bounds()
	sx, sy := 1.0, 1.0
	f := AnnotatedFile{
		FilePath: ExportImagePath(item.Path),
		Width:    b.Dx(),
		Height:   b.Dy(),
	}
	if width > 0 && height > 0 {
		sx = float64(width) / float64(b.Dx())
		sy = float64(height) / float64(b.Dy())
		f.Width, f.Height = width, height
	}

	polygon := make([]Landmark, len(item.Landmarks))
	for i, l := range item.Landmarks {
		polygon[i] = Landmark{X: l.X * sx, Y: l.Y * sy}
	}

	bbox := item.BoundingBox
	f.Annotations = []Annotation{{
		Attributes: map[string]interface{}{PatientIDAttribute: item.PID},
		Coords: [4]float64{
			float64(bbox.XMin) * sx, float64(bbox.YMin) * sy,
			float64(bbox.XMax) * sx, float64(bbox.YMax) * sy,
		},
		Label:   item.Label.DirName(),
		Polygon: polygon,
	}}
	return f
}

// AnnotateDataset decodes every item of d and converts it with AnnotateItem.
func AnnotateDataset(d *Dataset, width, height int) (AnnotatedFiles, error) {
	data := make(AnnotatedFiles, 0, d.Len())
	for i := 0; i < d.Len(); i++ {
		item, err := d.Get(i)
		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}
		data = append(data, AnnotateItem(item, width, height))
	}
	return data, nil
}

// PadBboxes grows every bounding box by the factors scaleX and scaleY around its centre and then
// grows it further (never shrinks it) to the aspect ratio width/height, unless aspectRatio is zero.
// Boxes are clipped to the image.
func (data AnnotatedFiles) PadBboxes(scaleX, scaleY, aspectRatio float64) {
	for fi := range data {
		f := &data[fi]
		for i := range f.Annotations {
			c := &f.Annotations[i].Coords
			w, h := c[2]-c[0], c[3]-c[1]

			dx, dy := (w*scaleX-w)/2, (h*scaleY-h)/2
			w, h = w+2*dx, h+2*dy
			if aspectRatio > 0 {
				if h != 0 && w/h < aspectRatio {
					dx += (h*aspectRatio - w) / 2
				} else if h == 0 || w/h > aspectRatio {
					dy += (w/aspectRatio - h) / 2
				}
			}

			c[0] = math.Max(0, c[0]-dx)
			c[1] = math.Max(0, c[1]-dy)
			c[2] = math.Min(float64(f.Width), c[2]+dx)
			c[3] = math.Min(float64(f.Height), c[3]+dy)
		}
	}
}
