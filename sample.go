package braintumor

// The in-memory representation of a scan record.

import (
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ClassLabel is the tumor class embedded in each record.
type ClassLabel int

// The known tumor classes. The values are the labels stored in the records.
const (
	Meningioma ClassLabel = 1
	Glioma     ClassLabel = 2
	Pituitary  ClassLabel = 3
)

// AllClasses lists the classes in directory listing order.
var AllClasses = []ClassLabel{Meningioma, Glioma, Pituitary}

// Errors returned by sample parsing and bounding box derivation.
var (
	ErrNoLandmarks  = errors.New("no landmarks to derive a bounding box from")
	ErrUnknownLabel = errors.New("unknown class label")
)

// String returns the capitalised class name.
func (c ClassLabel) String() string {
	switch c {
	case Meningioma:
		return "Meningioma"
	case Glioma:
		return "Glioma"
	case Pituitary:
		return "Pituitary"
	}
	return "ClassLabel(" + strconv.Itoa(int(c)) + ")"
}

// DirName is the name of the directory under the data root holding the class's files.
func (c ClassLabel) DirName() string {
	switch c {
	case Meningioma:
		return "meningioma"
	case Glioma:
		return "glioma"
	case Pituitary:
		return "pituitary"
	}
	return ""
}

// Valid reports whether c is one of the three known classes.
func (c ClassLabel) Valid() bool {
	return c >= Meningioma && c <= Pituitary
}

// ParseClassLabel accepts a class directory name, a class name in any case or a numeric label.
func ParseClassLabel(s string) (ClassLabel, error) {
	for _, c := range AllClasses {
		if strings.EqualFold(s, c.DirName()) {
			return c, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && ClassLabel(n).Valid() {
		return ClassLabel(n), nil
	}
	return 0, errors.Wrapf(ErrUnknownLabel, "%q", s)
}

// Landmark is a vertex of the tumor border polygon.
type Landmark struct {
	X float64
	Y float64
}

// BoundingBox is the axis-aligned box enclosing a landmark polygon.
type BoundingBox struct {
	XMin, XMax int
	YMin, YMax int
}

// Width is XMax-XMin.
func (b BoundingBox) Width() int {
	return b.XMax - b.XMin
}

// Height is YMax-YMin.
func (b BoundingBox) Height() int {
	return b.YMax - b.YMin
}

// Rect converts b to an image.Rectangle. The max point is inclusive in b, so it is moved by one.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax+1, b.YMax+1)
}

// BoundingBoxFromLandmarks scans the landmarks once, keeping the running min and max of each
// coordinate. The result is truncated to integers.
func BoundingBoxFromLandmarks(landmarks []Landmark) (BoundingBox, error) {
	if len(landmarks) == 0 {
		return BoundingBox{}, ErrNoLandmarks
	}

	xMin, xMax := landmarks[0].X, landmarks[0].X
	yMin, yMax := landmarks[0].Y, landmarks[0].Y
	for _, l := range landmarks[1:] {
		xMin, xMax = math.Min(l.X, xMin), math.Max(l.X, xMax)
		yMin, yMax = math.Min(l.Y, yMin), math.Max(l.Y, yMax)
	}

	return BoundingBox{
		XMin: int(xMin),
		XMax: int(xMax),
		YMin: int(yMin),
		YMax: int(yMax),
	}, nil
}

// Sample is a single decoded record.
type Sample struct {
	Path      string        // The file the sample was read from.
	Label     ClassLabel    // The tumor class.
	PID       string        // The patient ID.
	Image     *image.Gray16 // The MR slice.
	Landmarks []Landmark    // The tumor border polygon.
	Mask      *image.Gray   // The tumor mask, 255 inside the tumor and 0 elsewhere.
}

// Rows is the number of pixel rows in the image, or 0 if the sample has no image.
func (s *Sample) Rows() int {
	if s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dy()
}

// Item is what a Dataset returns for an index.
type Item struct {
	Path        string // Relative to the dataset root, e.g. "glioma/12.mat".
	Label       ClassLabel
	PID         string
	Image       *image.Gray16
	Landmarks   []Landmark
	Mask        *image.Gray
	BoundingBox BoundingBox
}

// newItem derives the bounding box and wraps the sample.
func newItem(relPath string, s *Sample) (*Item, error) {
	bbox, err := BoundingBoxFromLandmarks(s.Landmarks)
	if err != nil {
		return nil, errors.Wrapf(err, "sample %q", relPath)
	}
	return &Item{
		Path:        relPath,
		Label:       s.Label,
		PID:         s.PID,
		Image:       s.Image,
		Landmarks:   s.Landmarks,
		Mask:        s.Mask,
		BoundingBox: bbox,
	}, nil
}
