package braintumor

// TFRecord export of segmentation and detection examples.

import (
	"fmt"
	"io"
	"math"
	"path"

	"github.com/cyclopcam/logs"
	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
	"github.com/spf13/afero"
)

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// TFRecordOptions controls WriteTFRecord.
type TFRecordOptions struct {
	NumShards int          // The number of shard files; values below 1 write a single file.
	Image     ImageOptions // Resizing of the encoded image and mask.
}

// toTFFeatures builds the feature map for one item, following the feature names of the
// TensorFlow object detection API.
func toTFFeatures(item *Item, opts ImageOptions) (TFFeatureMap, error) {
	p, err := prepareItem(item, opts)
	if err != nil {
		return nil, err
	}
	imgData, err := encodePNG(p.image)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode the image")
	}
	maskData, err := encodePNG(p.mask)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode the mask")
	}

	b := p.image.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())
	filename := path.Base(ExportImagePath(item.Path))

	// Landmarks in normalised coordinates of the source image.
	src := item.Image.Bounds()
	xs := make([]float32, len(item.Landmarks))
	ys := make([]float32, len(item.Landmarks))
	for i, l := range item.Landmarks {
		xs[i] = float32(l.X) / float32(src.Dx())
		ys[i] = float32(l.Y) / float32(src.Dy())
	}

	f := make(TFFeatureMap, 20)
	f["image/height"] = b.Dy()
	f["image/width"] = b.Dx()
	f["image/filename"] = filename
	f["image/source_id"] = item.Path
	f["image/encoded"] = imgData
	f["image/format"] = "png"
	f["image/patient_id"] = item.PID
	f["image/object/bbox/xmin"] = []float32{float32(p.boundingBox.XMin) / w}
	f["image/object/bbox/ymin"] = []float32{float32(p.boundingBox.YMin) / h}
	f["image/object/bbox/xmax"] = []float32{float32(p.boundingBox.XMax) / w}
	f["image/object/bbox/ymax"] = []float32{float32(p.boundingBox.YMax) / h}
	f["image/object/class/text"] = []string{item.Label.DirName()}
	f["image/object/class/label"] = []int64{int64(item.Label)}
	f["image/object/polygon/x"] = xs
	f["image/object/polygon/y"] = ys
	f["image/segmentation/class/encoded"] = maskData
	f["image/segmentation/class/format"] = "png"

	return f, nil
}

// WriteCustomTFRecord works like WriteTFRecord, except that it allows for the TFFeatureMap to be
// customised.
//
// Before generating a tensorflow.Example from each item and writing it to the TFRecord file, the
// item and the feature map are passed to customiseFeature, which may modify the feature map, as
// long as all of its values can be converted to tensorflow.Feature.
func WriteCustomTFRecord(fs afero.Fs, recordFilePath, labelMapPath string, d *Dataset,
	opts TFRecordOptions, log logs.Log, customiseFeature func(item *Item, m TFFeatureMap)) (err error) {

	defer func() {
		if e := recover(); e != nil {
			err = errors.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = 1
	}
	shardSize := int(math.Ceil(float64(d.Len()) / float64(numShards)))

	var shardFile afero.File
	closeShard := func() {
		if shardFile != nil {
			closeWithErrCheck(shardFile, &err)
			shardFile = nil
		}
	}
	defer closeShard()

	written := 0
	for i := 0; i < d.Len(); i++ {
		// Open the next shard file when the current one is full.
		if i%shardSize == 0 {
			closeShard()
			if err != nil {
				return err
			}

			shardPath := recordFilePath
			if numShards > 1 {
				shardPath += fmt.Sprintf("-%05d-of-%05d", i/shardSize, numShards)
			}
			f, err := fs.Create(shardPath)
			if err != nil {
				return errors.Wrapf(err, "failed to create shard at %q", shardPath)
			}
			shardFile = f
		}

		item, err := d.Get(i)
		if err != nil {
			log.Warnf("Skipping item %d: %v", i, err)
			continue
		}
		features, err := toTFFeatures(item, opts.Image)
		if err != nil {
			log.Warnf("Failed to convert %v: %v", item.Path, err)
			continue
		}
		if customiseFeature != nil {
			customiseFeature(item, features)
		}

		if err := writeTFRecordExample(shardFile, example.New(features)); err != nil {
			return errors.Wrapf(err, "failed to write example for %q", item.Path)
		}
		written++
	}

	log.Infof("Wrote %d of %d examples to %v", written, d.Len(), recordFilePath)
	return saveTFRecordLabelMap(fs, labelMapPath)
}

// WriteTFRecord converts the items of d to tensorflow.Examples and writes them to one or more
// TFRecord files at recordFilePath (with suffixes added when there is more than one shard).
//
// The label map of the three classes is written to labelMapPath.
func WriteTFRecord(fs afero.Fs, recordFilePath, labelMapPath string, d *Dataset,
	opts TFRecordOptions, log logs.Log) error {
	return WriteCustomTFRecord(fs, recordFilePath, labelMapPath, d, opts, log, nil)
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// saveTFRecordLabelMap writes the class label map in prototxt format to path. The ids are the
// class labels stored in the records.
func saveTFRecordLabelMap(fs afero.Fs, path string) (err error) {
	if path == "" {
		return nil
	}
	file, err := fs.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create the label map file %q", path)
	}
	defer closeWithErrCheck(file, &err)

	for _, c := range AllClasses {
		if _, err := fmt.Fprintf(file, "item {\n  name: %q\n  id: %d\n}\n", c.DirName(), int(c)); err != nil {
			return errors.Wrapf(err, "failed to write the label map %q", path)
		}
	}
	return nil
}
