package braintumor

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// fakeReader serves samples by file name for files that exist in fs.
type fakeReader struct {
	fs      afero.Fs
	samples map[string]*Sample
}

func newFakeReader(fs afero.Fs) *fakeReader {
	return &fakeReader{fs: fs, samples: make(map[string]*Sample)}
}

func (r *fakeReader) ReadSample(path string) (*Sample, error) {
	if ok, _ := afero.Exists(r.fs, path); !ok {
		return nil, errors.Errorf("%q does not exist", path)
	}
	s, ok := r.samples[filepath.Base(path)]
	if !ok {
		return nil, errors.Errorf("%q is not a record", path)
	}
	c := *s
	c.Path = path
	return &c, nil
}

// add writes an empty file at path and registers s for its name.
func (r *fakeReader) add(t *testing.T, path string, s *Sample) {
	require.NoError(t, r.fs.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, afero.WriteFile(r.fs, path, []byte("mat"), 0644))
	r.samples[filepath.Base(path)] = s
}

// testSample returns a sample with a rows x cols gradient image and a square tumor at (x, y) with
// side length size.
func testSample(label ClassLabel, rows, cols, x, y, size int) *Sample {
	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	mask := image.NewGray(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := img.PixOffset(c, r)
			v := uint16(r*cols + c)
			img.Pix[i], img.Pix[i+1] = uint8(v>>8), uint8(v)
			if c >= x && c <= x+size && r >= y && r <= y+size {
				mask.Pix[mask.PixOffset(c, r)] = 255
			}
		}
	}
	return &Sample{
		Label: label,
		PID:   "100360",
		Image: img,
		Landmarks: []Landmark{
			{X: float64(x), Y: float64(y)},
			{X: float64(x + size), Y: float64(y)},
			{X: float64(x + size), Y: float64(y + size)},
			{X: float64(x), Y: float64(y + size)},
		},
		Mask: mask,
	}
}

// testDataRoot creates an arranged data directory with n items per class at root.
func testDataRoot(t *testing.T, fs afero.Fs, root string, n map[ClassLabel]int) *fakeReader {
	reader := newFakeReader(fs)
	id := 1
	for _, c := range AllClasses {
		require.NoError(t, fs.MkdirAll(filepath.Join(root, c.DirName()), 0755))
		for i := 0; i < n[c]; i++ {
			name := filepath.Join(root, c.DirName(), fmt.Sprintf("%03d.mat", id))
			reader.add(t, name, testSample(c, 16, 16, 2+i%4, 3, 5))
			id++
		}
	}
	return reader
}

// testDataset returns the train view of a data directory with n items per class. For up to six
// items, the train view holds all of them.
func testDataset(t *testing.T, fs afero.Fs, n map[ClassLabel]int) *Dataset {
	return testDatasetFrom(t, fs, testDataRoot(t, fs, "/data", n))
}

// testDatasetFrom returns the train view of the data directory at "/data".
func testDatasetFrom(t *testing.T, fs afero.Fs, reader SampleReader) *Dataset {
	d, err := NewDataset(context.Background(), fs, reader, Options{Root: "/data", Train: true},
		logs.NewTestingLog(t))
	require.NoError(t, err)
	return d
}
