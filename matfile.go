package braintumor

// MATLAB v7.3 record decoding. Version 7.3 .mat files are HDF5 files in which a struct is a group
// and every field a dataset.

import (
	"image"
	"math"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/hdf5"
)

// The group and dataset names of a record.
const (
	recordGroup      = "cjdata"
	fieldLabel       = "label"
	fieldPID         = "PID"
	fieldImage       = "image"
	fieldTumorBorder = "tumorBorder"
	fieldTumorMask   = "tumorMask"
)

// ExpectedRows is the image height of a well-formed record. Arrange deletes files with other
// heights.
const ExpectedRows = 512

// SampleReader decodes the record stored at path.
type SampleReader interface {
	ReadSample(path string) (*Sample, error)
}

// MatReader reads records from MATLAB v7.3 files on the local filesystem. It is safe for
// concurrent use.
type MatReader struct{}

// hdf5Mu serialises calls into the HDF5 library, which is not built thread-safe by default.
var hdf5Mu sync.Mutex

// ReadSample implements SampleReader.
func (MatReader) ReadSample(path string) (s *Sample, err error) {
	hdf5Mu.Lock()
	defer hdf5Mu.Unlock()

	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %q", path)
	}
	defer closeWithErrCheck(f, &err)

	g, err := f.OpenGroup(recordGroup)
	if err != nil {
		return nil, errors.Wrapf(err, "no %s group in %q", recordGroup, path)
	}
	defer closeWithErrCheck(g, &err)

	s, err = decodeRecord(g)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode %q", path)
	}
	s.Path = path
	return s, nil
}

// matArray is a 2-D MATLAB array with values widened to float64.
type matArray struct {
	rows, cols int
	values     []float64 // Column-major, as MATLAB stores them.
}

// at returns the element at (row, col).
func (a *matArray) at(row, col int) float64 {
	return a.values[col*a.rows+row]
}

// decodeRecord reads all record fields from g.
func decodeRecord(g *hdf5.Group) (*Sample, error) {
	fields := make(map[string]*matArray, 5)
	for _, name := range []string{fieldLabel, fieldPID, fieldImage, fieldTumorBorder, fieldTumorMask} {
		a, err := readMatArray(g, name)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", name)
		}
		fields[name] = a
	}

	label := fields[fieldLabel]
	if len(label.values) == 0 {
		return nil, errors.New("empty label")
	}
	s := &Sample{Label: ClassLabel(label.values[0])}
	if !s.Label.Valid() {
		return nil, errors.Wrapf(ErrUnknownLabel, "%v", label.values[0])
	}

	pid := make([]rune, 0, len(fields[fieldPID].values))
	for _, v := range fields[fieldPID].values {
		pid = append(pid, rune(v))
	}
	s.PID = string(pid)

	s.Image = grayImage16(fields[fieldImage])
	s.Mask = maskImage(fields[fieldTumorMask])
	s.Landmarks = landmarksFromBorder(fields[fieldTumorBorder].values)

	return s, nil
}

// landmarksFromBorder pairs up the flat [x1 y1 x2 y2 ...] border vector. A trailing odd value is
// dropped.
func landmarksFromBorder(xy []float64) []Landmark {
	landmarks := make([]Landmark, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		landmarks = append(landmarks, Landmark{X: xy[i], Y: xy[i+1]})
	}
	return landmarks
}

// grayImage16 lays out the array as an image with a.rows rows. Values are stored as uint16, which
// reinterprets signed 16-bit pixels the same way the bits are laid out in the file.
func grayImage16(a *matArray) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, a.cols, a.rows))
	for r := 0; r < a.rows; r++ {
		for c := 0; c < a.cols; c++ {
			v := a.at(r, c)
			if v < 0 {
				v += math.MaxUint16 + 1
			}
			i := img.PixOffset(c, r)
			u := uint16(v)
			img.Pix[i] = uint8(u >> 8)
			img.Pix[i+1] = uint8(u)
		}
	}
	return img
}

// maskImage maps non-zero mask values to 255.
func maskImage(a *matArray) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, a.cols, a.rows))
	for r := 0; r < a.rows; r++ {
		for c := 0; c < a.cols; c++ {
			if a.at(r, c) != 0 {
				img.Pix[img.PixOffset(c, r)] = 255
			}
		}
	}
	return img
}

// readMatArray reads the named dataset of g in its stored type and widens it to float64.
//
// HDF5 reports the dimensions of a MATLAB array in reverse order, so an R x C array has the
// dimensions [C R]. Reading it in HDF5 order yields MATLAB's column-major layout.
func readMatArray(g *hdf5.Group, name string) (a *matArray, err error) {
	ds, err := g.OpenDataset(name)
	if err != nil {
		return nil, err
	}
	defer closeWithErrCheck(ds, &err)

	space := ds.Space()
	dims, _, err := space.SimpleExtentDims()
	closeWithErrCheck(space, &err)
	if err != nil {
		return nil, err
	}

	a = &matArray{rows: 1, cols: 1}
	switch len(dims) {
	case 0:
	case 1:
		a.rows = int(dims[0])
	case 2:
		a.cols, a.rows = int(dims[0]), int(dims[1])
	default:
		return nil, errors.Errorf("unsupported rank %d", len(dims))
	}
	n := a.rows * a.cols
	if n == 0 {
		return a, nil
	}

	dtype, err := ds.Datatype()
	if err != nil {
		return nil, err
	}
	class, size := dtype.Class(), dtype.Size()
	closeWithErrCheck(dtype, &err)
	if err != nil {
		return nil, err
	}

	// The buffer must match the stored type, as the dataset is read without conversion.
	a.values = make([]float64, n)
	switch {
	case class == hdf5.T_FLOAT && size == 8:
		err = ds.Read(&a.values)
	case class == hdf5.T_FLOAT && size == 4:
		buf := make([]float32, n)
		if err = ds.Read(&buf); err == nil {
			for i, v := range buf {
				a.values[i] = float64(v)
			}
		}
	case class == hdf5.T_INTEGER && size == 1:
		buf := make([]uint8, n)
		if err = ds.Read(&buf); err == nil {
			for i, v := range buf {
				a.values[i] = float64(v)
			}
		}
	case class == hdf5.T_INTEGER && size == 2:
		buf := make([]uint16, n)
		if err = ds.Read(&buf); err == nil {
			for i, v := range buf {
				a.values[i] = float64(v)
			}
		}
	case class == hdf5.T_INTEGER && size == 4:
		buf := make([]int32, n)
		if err = ds.Read(&buf); err == nil {
			for i, v := range buf {
				a.values[i] = float64(v)
			}
		}
	case class == hdf5.T_INTEGER && size == 8:
		buf := make([]int64, n)
		if err = ds.Read(&buf); err == nil {
			for i, v := range buf {
				a.values[i] = float64(v)
			}
		}
	default:
		return nil, errors.Errorf("unsupported datatype class %v of size %d", class, size)
	}
	if err != nil {
		return nil, err
	}

	return a, nil
}
