package braintumor

// Dataset statistics used to pick normalisation constants and to sanity check bounding boxes.

import (
	"math"

	"github.com/carbocation/runningvariance"
	"github.com/cyclopcam/logs"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// logEveryItems is the number of items between progress messages.
const logEveryItems = 500

// IntensityStat summarises the pixel intensities of a set of images.
type IntensityStat struct {
	runningvariance.RunningStat
	Min float64
	Max float64
}

// NewIntensityStat returns an empty IntensityStat.
func NewIntensityStat() *IntensityStat {
	return &IntensityStat{
		RunningStat: *runningvariance.NewRunningStat(),
		Min:         math.MaxFloat64,
		Max:         -math.MaxFloat64,
	}
}

// Push adds a pixel value.
func (s *IntensityStat) Push(x float64) {
	s.RunningStat.Push(x)
	if x > s.Max {
		s.Max = x
	}
	if x < s.Min {
		s.Min = x
	}
}

// IntensityStats pushes every image pixel of every item of d.
func IntensityStats(d *Dataset, log logs.Log) (*IntensityStat, error) {
	s := NewIntensityStat()
	for i := 0; i < d.Len(); i++ {
		item, err := d.Get(i)
		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}
		img := item.Image
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				s.Push(float64(img.Gray16At(x, y).Y))
			}
		}
		if (i+1)%logEveryItems == 0 {
			log.Infof("Item %d of %d. Running mean: %v, std: %v", i+1, d.Len(), s.Mean(),
				s.StandardDeviation())
		}
	}
	return s, nil
}

// BoxSummary summarises the bounding boxes of one class.
type BoxSummary struct {
	Count        int
	MedianWidth  float64
	MedianHeight float64
	MedianArea   float64
	MeanArea     float64
	MaxArea      float64
}

// SummarizeBoundingBoxes computes per-class bounding box statistics over d. Classes without items
// are absent from the result.
func SummarizeBoundingBoxes(d *Dataset) (map[ClassLabel]BoxSummary, error) {
	widths := make(map[ClassLabel]stats.Float64Data)
	heights := make(map[ClassLabel]stats.Float64Data)
	areas := make(map[ClassLabel]stats.Float64Data)
	for i := 0; i < d.Len(); i++ {
		item, err := d.Get(i)
		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}
		b := item.BoundingBox
		widths[item.Label] = append(widths[item.Label], float64(b.Width()))
		heights[item.Label] = append(heights[item.Label], float64(b.Height()))
		areas[item.Label] = append(areas[item.Label], float64(b.Width()*b.Height()))
	}

	summaries := make(map[ClassLabel]BoxSummary, len(areas))
	for c, a := range areas {
		var s BoxSummary
		var err error
		s.Count = len(a)
		if s.MedianWidth, err = widths[c].Median(); err != nil {
			return nil, err
		}
		if s.MedianHeight, err = heights[c].Median(); err != nil {
			return nil, err
		}
		if s.MedianArea, err = a.Median(); err != nil {
			return nil, err
		}
		if s.MeanArea, err = a.Mean(); err != nil {
			return nil, err
		}
		if s.MaxArea, err = a.Max(); err != nil {
			return nil, err
		}
		summaries[c] = s
	}
	return summaries, nil
}
