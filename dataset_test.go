package braintumor

import (
	"context"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestSplitIndex(t *testing.T) {
	require.Equal(t, 0, SplitIndex(0, 0.15))
	require.Equal(t, 1, SplitIndex(1, 0.15))
	require.Equal(t, 9, SplitIndex(10, 0.15))
	require.Equal(t, 86, SplitIndex(100, 0.15))
	require.Equal(t, 2605, SplitIndex(3064, 0.15))
	for n := 0; n < 200; n++ {
		for _, f := range []float64{0, 0.1, 0.15, 0.5, 0.99} {
			k := SplitIndex(n, f)
			require.GreaterOrEqual(t, k, 0)
			require.LessOrEqual(t, k, n)
		}
	}
}

func TestDatasetSplit(t *testing.T) {
	log := logs.NewTestingLog(t)
	fs := afero.NewMemMapFs()
	reader := testDataRoot(t, fs, "/data", map[ClassLabel]int{Meningioma: 4, Glioma: 3, Pituitary: 5})

	train, err := NewDataset(context.Background(), fs, reader, Options{Root: "/data", Train: true}, log)
	require.NoError(t, err)
	test, err := NewDataset(context.Background(), fs, reader, Options{Root: "/data"}, log)
	require.NoError(t, err)

	require.Equal(t, SplitIndex(12, DefaultTestFraction), train.Len())
	require.Equal(t, 12, train.Len()+test.Len())

	// The views partition the items, which are ordered by class and then by name.
	all := append(train.Paths(), test.Paths()...)
	require.Equal(t, []string{
		"meningioma/001.mat", "meningioma/002.mat", "meningioma/003.mat", "meningioma/004.mat",
		"glioma/005.mat", "glioma/006.mat", "glioma/007.mat",
		"pituitary/008.mat", "pituitary/009.mat", "pituitary/010.mat", "pituitary/011.mat",
		"pituitary/012.mat",
	}, all)

	// The listing is stable.
	again, err := NewDataset(context.Background(), fs, reader, Options{Root: "/data", Train: true}, log)
	require.NoError(t, err)
	require.Equal(t, train.Paths(), again.Paths())
}

func TestDatasetPituitaryOnly(t *testing.T) {
	log := logs.NewTestingLog(t)
	fs := afero.NewMemMapFs()
	reader := testDataRoot(t, fs, "/data", map[ClassLabel]int{Meningioma: 2, Glioma: 2, Pituitary: 3})

	opts := Options{Root: "/data", Train: true, Classes: []ClassLabel{Pituitary}, TestFraction: 0.5}
	d, err := NewDataset(context.Background(), fs, reader, opts, log)
	require.NoError(t, err)
	require.Equal(t, []string{"pituitary/005.mat", "pituitary/006.mat"}, d.Paths())

	item, err := d.Get(0)
	require.NoError(t, err)
	require.Equal(t, Pituitary, item.Label)
}

func TestDatasetGet(t *testing.T) {
	log := logs.NewTestingLog(t)
	fs := afero.NewMemMapFs()
	reader := testDataRoot(t, fs, "/data", map[ClassLabel]int{Glioma: 2})

	d, err := NewDataset(context.Background(), fs, reader, Options{Root: "/data", Train: true}, log)
	require.NoError(t, err)
	require.Equal(t, 2, d.Len())
	require.Equal(t, "/data", d.Root())

	item, err := d.Get(1)
	require.NoError(t, err)
	require.Equal(t, "glioma/002.mat", item.Path)
	require.Equal(t, Glioma, item.Label)
	require.Equal(t, "100360", item.PID)
	require.Equal(t, BoundingBox{XMin: 3, XMax: 8, YMin: 3, YMax: 8}, item.BoundingBox)
	require.Equal(t, 16, item.Image.Bounds().Dy())

	_, err = d.Get(2)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = d.Get(-1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestDatasetEmptyClassDirs(t *testing.T) {
	log := logs.NewTestingLog(t)
	fs := afero.NewMemMapFs()
	reader := testDataRoot(t, fs, "/data", nil)

	for _, train := range []bool{true, false} {
		d, err := NewDataset(context.Background(), fs, reader, Options{Root: "/data", Train: train}, log)
		require.NoError(t, err)
		require.Zero(t, d.Len())
	}
}

func TestDatasetErrors(t *testing.T) {
	log := logs.NewTestingLog(t)
	fs := afero.NewMemMapFs()
	reader := newFakeReader(fs)

	// Missing class directories.
	_, err := NewDataset(context.Background(), fs, reader, Options{Root: "/data", Train: true}, log)
	require.Error(t, err)

	_, err = NewDataset(context.Background(), fs, reader, Options{Root: "/data", TestFraction: 1}, log)
	require.Error(t, err)
	_, err = NewDataset(context.Background(), fs, reader, Options{Root: "/data", TestFraction: -0.1}, log)
	require.Error(t, err)
}

func TestDatasetItemWithoutLandmarks(t *testing.T) {
	log := logs.NewTestingLog(t)
	fs := afero.NewMemMapFs()
	reader := testDataRoot(t, fs, "/data", map[ClassLabel]int{Meningioma: 1})
	reader.samples["001.mat"].Landmarks = nil

	d, err := NewDataset(context.Background(), fs, reader, Options{Root: "/data", Train: true}, log)
	require.NoError(t, err)
	_, err = d.Get(0)
	require.ErrorIs(t, err, ErrNoLandmarks)
}
