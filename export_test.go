package braintumor

import (
	"image"
	"image/png"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func readPNG(t *testing.T, fs afero.Fs, path string) image.Image {
	f, err := fs.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestExportImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := testDataset(t, fs, map[ClassLabel]int{Meningioma: 3, Glioma: 2, Pituitary: 1})

	require.NoError(t, ExportImages(fs, d, "/out", ImageOptions{}, logs.NewTestingLog(t)))
	for _, p := range d.Paths() {
		img := readPNG(t, fs, "/out/"+ExportImagePath(p))
		require.Equal(t, image.Rect(0, 0, 16, 16), img.Bounds())
		mask := readPNG(t, fs, "/out/"+exportMaskPath(p))
		require.Equal(t, image.Rect(0, 0, 16, 16), mask.Bounds())
	}

	// The gradient peaks at 255, so windowing keeps the values.
	img := readPNG(t, fs, "/out/glioma/004.png").(*image.Gray)
	require.Equal(t, uint8(33), img.GrayAt(1, 2).Y)
	require.Equal(t, uint8(255), img.GrayAt(15, 15).Y)
}

func TestExportImagesResized(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := testDataset(t, fs, map[ClassLabel]int{Glioma: 1})

	opts := ImageOptions{Width: 8, Height: 4, Filter: "linear"}
	require.NoError(t, ExportImages(fs, d, "/out", opts, logs.NewTestingLog(t)))

	img := readPNG(t, fs, "/out/glioma/001.png")
	require.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())
	mask := readPNG(t, fs, "/out/glioma/001_mask.png").(*image.Gray)
	require.Equal(t, image.Rect(0, 0, 8, 4), mask.Bounds())
	for _, v := range mask.Pix {
		require.Contains(t, []uint8{0, 255}, v)
	}
}

func TestExportImagesErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	reader := testDataRoot(t, fs, "/data", map[ClassLabel]int{Glioma: 4})
	reader.samples["003.mat"].Landmarks = nil
	d := testDatasetFrom(t, fs, reader)

	log := logs.NewTestingLog(t)
	require.Error(t, ExportImages(fs, d, "/out", ImageOptions{Filter: "cubic"}, log))
	require.ErrorIs(t, ExportImages(fs, d, "/out", ImageOptions{}, log), ErrNoLandmarks)
}

func TestExportImagesEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := testDataset(t, fs, nil)
	require.NoError(t, ExportImages(fs, d, "/out", ImageOptions{}, logs.NewTestingLog(t)))
}
