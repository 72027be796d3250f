package braintumor

// Conversion of images to tensors and the normalisation applied before training.

import (
	"image"
	"image/draw"

	"gonum.org/v1/gonum/mat"
)

// DefaultMean is the intensity offset subtracted from image tensors.
const DefaultMean = 470

// Tensor is a C x H x W array of float64 values. Each channel is an H x W matrix.
type Tensor struct {
	Channels []*mat.Dense
}

// Shape returns the number of channels, rows and columns.
func (t *Tensor) Shape() (c, h, w int) {
	if len(t.Channels) == 0 {
		return 0, 0, 0
	}
	h, w = t.Channels[0].Dims()
	return len(t.Channels), h, w
}

// At returns the value at channel c, row y and column x.
func (t *Tensor) At(c, y, x int) float64 {
	return t.Channels[c].At(y, x)
}

// Clone returns a deep copy of t.
func (t *Tensor) Clone() *Tensor {
	out := &Tensor{Channels: make([]*mat.Dense, len(t.Channels))}
	for i, ch := range t.Channels {
		out.Channels[i] = mat.DenseCopyOf(ch)
	}
	return out
}

// ToTensor converts img to a single channel tensor. 8-bit grayscale values are scaled to [0, 1];
// 16-bit values are kept as they are. Other image types are converted to 16-bit grayscale first.
func ToTensor(img image.Image) *Tensor {
	b := img.Bounds()
	data := make([]float64, b.Dx()*b.Dy())

	switch img := img.(type) {
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				data[y*b.Dx()+x] = float64(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y) / 255
			}
		}
	case *image.Gray16:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				data[y*b.Dx()+x] = float64(img.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		gray := image.NewGray16(b)
		draw.Draw(gray, b, img, b.Min, draw.Src)
		return ToTensor(gray)
	}

	if len(data) == 0 {
		return &Tensor{Channels: []*mat.Dense{}}
	}
	return &Tensor{Channels: []*mat.Dense{mat.NewDense(b.Dy(), b.Dx(), data)}}
}

// Transform maps a tensor to a new tensor.
type Transform func(t *Tensor) *Tensor

// Normalize subtracts mean from every value and, if std is not zero, divides by std.
func Normalize(mean, std float64) Transform {
	return func(t *Tensor) *Tensor {
		out := t.Clone()
		for _, ch := range out.Channels {
			ch.Apply(func(_, _ int, v float64) float64 {
				v -= mean
				if std != 0 {
					v /= std
				}
				return v
			}, ch)
		}
		return out
	}
}

// Compose applies the transforms in order.
func Compose(transforms ...Transform) Transform {
	return func(t *Tensor) *Tensor {
		for _, tr := range transforms {
			t = tr(t)
		}
		return t
	}
}

// MaskDataset yields (image, mask) tensor pairs for segmentation training.
type MaskDataset struct {
	*Dataset
	ImageTransform Transform // Applied to the image tensor. Normalize(DefaultMean, 0) by default.
	MaskTransform  Transform // Applied to the mask tensor. Nil leaves the mask unchanged.
}

// NewMaskDataset wraps d with the default transforms.
func NewMaskDataset(d *Dataset) *MaskDataset {
	return &MaskDataset{
		Dataset:        d,
		ImageTransform: Normalize(DefaultMean, 0),
	}
}

// Get returns the image tensor and the mask tensor (values 0 and 1) of the item at idx.
func (d *MaskDataset) Get(idx int) (img, mask *Tensor, err error) {
	item, err := d.Dataset.Get(idx)
	if err != nil {
		return nil, nil, err
	}

	img = ToTensor(item.Image)
	if d.ImageTransform != nil {
		img = d.ImageTransform(img)
	}
	mask = ToTensor(item.Mask)
	if d.MaskTransform != nil {
		mask = d.MaskTransform(mask)
	}
	return img, mask, nil
}
