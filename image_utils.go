package braintumor

import (
	"bytes"
	"image"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ImageOptions controls how images are prepared for export.
type ImageOptions struct {
	Width, Height int    // The output size; zero for either keeps the source size.
	Filter        string // The resampling filter for images {nearest, box, linear, gaussian, lanczos}.
}

// resampleFilter looks up the named imaging filter. The empty name selects lanczos.
func resampleFilter(name string) (imaging.ResampleFilter, error) {
	switch name {
	case "nearest":
		return imaging.NearestNeighbor, nil
	case "box":
		return imaging.Box, nil
	case "linear":
		return imaging.Linear, nil
	case "gaussian":
		return imaging.Gaussian, nil
	case "", "lanczos":
		return imaging.Lanczos, nil
	}
	return imaging.ResampleFilter{}, errors.Errorf("unknown resampling filter %q", name)
}

// windowImage maps the intensities of img linearly onto [0, 255], with the brightest pixel at 255.
// Images that are entirely black stay black.
func windowImage(img *image.Gray16) *image.Gray {
	b := img.Bounds()
	var maxIntensity uint16
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if v := img.Gray16At(x, y).Y; v > maxIntensity {
				maxIntensity = v
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if maxIntensity == 0 {
		return out
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := float64(img.Gray16At(x, y).Y) / float64(maxIntensity)
			out.Pix[out.PixOffset(x-b.Min.X, y-b.Min.Y)] = uint8(math.Round(255 * v))
		}
	}
	return out
}

// resizeGray resamples img to width x height and returns it as grayscale. A zero width or height
// returns img unchanged.
func resizeGray(img *image.Gray, width, height int, filter imaging.ResampleFilter) *image.Gray {
	if width <= 0 || height <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}

	resized := imaging.Resize(img, width, height, filter)
	out := image.NewGray(resized.Bounds())
	draw.Draw(out, out.Bounds(), resized, resized.Bounds().Min, draw.Src)
	return out
}

// scaleBoundingBox scales bbox from an image of size (srcW, srcH) to one of size (dstW, dstH).
func scaleBoundingBox(bbox BoundingBox, srcW, srcH, dstW, dstH int) BoundingBox {
	sx := float64(dstW) / float64(srcW)
	sy := float64(dstH) / float64(srcH)
	return BoundingBox{
		XMin: int(float64(bbox.XMin) * sx),
		XMax: int(float64(bbox.XMax) * sx),
		YMin: int(float64(bbox.YMin) * sy),
		YMax: int(float64(bbox.YMax) * sy),
	}
}

// preparedItem holds the display images of an item, resized as requested.
type preparedItem struct {
	image       *image.Gray
	mask        *image.Gray
	boundingBox BoundingBox
}

// prepareItem windows and resizes the item image and mask. The mask always uses nearest neighbour
// resampling so that it stays binary.
func prepareItem(item *Item, opts ImageOptions) (preparedItem, error) {
	filter, err := resampleFilter(opts.Filter)
	if err != nil {
		return preparedItem{}, err
	}

	p := preparedItem{
		image:       windowImage(item.Image),
		mask:        item.Mask,
		boundingBox: item.BoundingBox,
	}
	if opts.Width > 0 && opts.Height > 0 {
		b := p.image.Bounds()
		p.image = resizeGray(p.image, opts.Width, opts.Height, filter)
		p.mask = resizeGray(p.mask, opts.Width, opts.Height, imaging.NearestNeighbor)
		p.boundingBox = scaleBoundingBox(p.boundingBox, b.Dx(), b.Dy(), opts.Width, opts.Height)
	}
	return p, nil
}

// encodePNG returns the PNG encoding of img.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// savePNG writes img to path as PNG.
func savePNG(fs afero.Fs, path string, img image.Image) (err error) {
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(f, &err)

	return imaging.Encode(f, img, imaging.PNG)
}
