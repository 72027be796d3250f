// Downloads, arranges, inspects and exports the figshare brain tumor MRI dataset.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/sensorable/braintumor"
)

// datasetArgs are the arguments shared by the commands that read a dataset view.
type datasetArgs struct {
	root     *string
	test     *bool
	classes  *[]string
	testFrac *float64
}

func addDatasetArgs(cmd *argparse.Command) datasetArgs {
	return datasetArgs{
		root: cmd.String("d", "data", &argparse.Options{Help: "The data directory",
			Default: "./data/"}),
		test: cmd.Flag("", "test", &argparse.Options{Help: "Use the test view instead of the train view",
			Default: false}),
		classes: cmd.StringList("c", "class", &argparse.Options{Help: "A class to include" +
			" {meningioma, glioma, pituitary}; may be repeated, all classes if omitted"}),
		testFrac: cmd.Float("", "test-fraction", &argparse.Options{Help: "The share of items held out" +
			" for the test view, in [0, 1)", Default: braintumor.DefaultTestFraction}),
	}
}

// options validates the arguments and converts them to dataset options.
func (a datasetArgs) options() (braintumor.Options, error) {
	opts := braintumor.Options{
		Root:         filepath.Clean(*a.root),
		Train:        !*a.test,
		TestFraction: *a.testFrac,
	}
	if opts.TestFraction < 0 || opts.TestFraction >= 1 {
		return opts, errors.Errorf("invalid --test-fraction %v, must be in [0, 1)", opts.TestFraction)
	}
	for _, v := range *a.classes {
		c, err := braintumor.ParseClassLabel(v)
		if err != nil {
			return opts, err
		}
		opts.Classes = append(opts.Classes, c)
	}
	return opts, nil
}

func main() {
	log, err := logs.NewLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	parser := argparse.NewParser("braintumor", "Prepare the brain tumor MRI dataset for training")

	downloadCmd := parser.NewCommand("download", "Download, unpack and arrange the dataset if the"+
		" data directory does not exist")
	downloadRoot := downloadCmd.String("d", "data", &argparse.Options{Help: "The data directory",
		Default: "./data/"})
	downloadURL := downloadCmd.String("u", "url", &argparse.Options{Help: "The archive URL",
		Default: braintumor.DefaultURL})

	arrangeCmd := parser.NewCommand("arrange", "Move loose record files into class directories")
	arrangeRoot := arrangeCmd.String("d", "data", &argparse.Options{Help: "The data directory",
		Default: "./data/"})

	infoCmd := parser.NewCommand("info", "Print the contents of dataset items")
	infoArgs := addDatasetArgs(infoCmd)
	infoIndex := infoCmd.Int("i", "index", &argparse.Options{Help: "The item index; all items if" +
		" negative", Default: -1})

	statsCmd := parser.NewCommand("stats", "Compute image intensity and bounding box statistics")
	statsArgs := addDatasetArgs(statsCmd)

	exportCmd := parser.NewCommand("export", "Export a dataset view for a training framework")
	exportArgs := addDatasetArgs(exportCmd)
	exportFormat := exportCmd.Selector("f", "format", []string{"tfrecord", "kitti", "via", "sloth", "png"},
		&argparse.Options{Help: "The output format", Required: true})
	exportOut := exportCmd.String("o", "out", &argparse.Options{Help: "The output file (tfrecord, via," +
		" sloth) or directory (kitti, png)", Required: true})
	exportLabelMap := exportCmd.String("", "label-map", &argparse.Options{Help: "The TFRecord label map" +
		" file path"})
	exportShards := exportCmd.Int("", "num-shards", &argparse.Options{Help: "The number of TFRecord" +
		" shard files", Default: 1})
	exportWidth := exportCmd.Int("", "width", &argparse.Options{Help: "The output image width; zero" +
		" keeps the source size", Default: 0})
	exportHeight := exportCmd.Int("", "height", &argparse.Options{Help: "The output image height; zero" +
		" keeps the source size", Default: 0})
	exportFilter := exportCmd.Selector("", "filter", []string{"nearest", "box", "linear", "gaussian",
		"lanczos"}, &argparse.Options{Help: "The image resampling filter", Default: "lanczos"})
	exportPadX := exportCmd.Float("", "bbox-scale-x", &argparse.Options{Help: "A scale factor for the" +
		" width of all bounding boxes (kitti, via, sloth)", Default: 1.0})
	exportPadY := exportCmd.Float("", "bbox-scale-y", &argparse.Options{Help: "A scale factor for the" +
		" height of all bounding boxes (kitti, via, sloth)", Default: 1.0})
	exportAspect := exportCmd.Float("", "bbox-aspect-ratio", &argparse.Options{Help: "Grow bounding" +
		" boxes to this width/height ratio; zero disables", Default: 0.0})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fs := afero.NewOsFs()
	reader := braintumor.MatReader{}

	switch {
	case downloadCmd.Happened():
		err = braintumor.GetDataIfNeeded(ctx, fs, filepath.Clean(*downloadRoot), *downloadURL, reader, log)

	case arrangeCmd.Happened():
		_, err = braintumor.Arrange(fs, filepath.Clean(*arrangeRoot), reader, log)

	case infoCmd.Happened():
		var d *braintumor.Dataset
		if d, err = openDataset(ctx, fs, reader, infoArgs, log); err == nil {
			err = printInfo(d, *infoIndex)
		}

	case statsCmd.Happened():
		var d *braintumor.Dataset
		if d, err = openDataset(ctx, fs, reader, statsArgs, log); err == nil {
			err = printStats(d, log)
		}

	case exportCmd.Happened():
		if *exportWidth < 0 || *exportHeight < 0 {
			err = errors.New("invalid output image size")
			break
		}
		if *exportPadX <= 0 || *exportPadY <= 0 || *exportAspect < 0 {
			err = errors.New("invalid bounding box scale factor or aspect ratio")
			break
		}
		var d *braintumor.Dataset
		if d, err = openDataset(ctx, fs, reader, exportArgs, log); err != nil {
			break
		}
		imgOpts := braintumor.ImageOptions{Width: *exportWidth, Height: *exportHeight, Filter: *exportFilter}
		out := filepath.Clean(*exportOut)

		switch *exportFormat {
		case "tfrecord":
			labelMap := *exportLabelMap
			if labelMap == "" {
				labelMap = filepath.Join(filepath.Dir(out), "label_map.pbtxt")
			}
			err = braintumor.WriteTFRecord(fs, out, labelMap, d,
				braintumor.TFRecordOptions{NumShards: *exportShards, Image: imgOpts}, log)
		case "png":
			err = braintumor.ExportImages(fs, d, out, imgOpts, log)
		default:
			err = exportAnnotations(fs, d, *exportFormat, out, imgOpts, *exportPadX, *exportPadY,
				*exportAspect, log)
		}
	}

	if err != nil {
		log.Criticalf("%v", err)
		os.Exit(1)
	}
}

// openDataset opens the dataset view selected by args.
func openDataset(ctx context.Context, fs afero.Fs, reader braintumor.SampleReader, args datasetArgs,
	log logs.Log) (*braintumor.Dataset, error) {

	opts, err := args.options()
	if err != nil {
		return nil, err
	}
	d, err := braintumor.NewDataset(ctx, fs, reader, opts, log)
	if err != nil {
		return nil, err
	}
	view := "train"
	if !opts.Train {
		view = "test"
	}
	log.Infof("Opened the %s view of %v with %d items", view, opts.Root, d.Len())
	return d, nil
}

// exportAnnotations writes the bounding boxes and polygons of d in a label format.
func exportAnnotations(fs afero.Fs, d *braintumor.Dataset, format, out string,
	imgOpts braintumor.ImageOptions, scaleX, scaleY, aspectRatio float64, log logs.Log) error {

	data, err := braintumor.AnnotateDataset(d, imgOpts.Width, imgOpts.Height)
	if err != nil {
		return err
	}
	if scaleX != 1 || scaleY != 1 || aspectRatio > 0 {
		data.PadBboxes(scaleX, scaleY, aspectRatio)
	}

	switch format {
	case "kitti":
		if err := fs.MkdirAll(out, 0755); err != nil {
			return err
		}
		err = braintumor.WriteKitti(fs, out, braintumor.ToKitti(data))
	case "via":
		err = braintumor.WriteVIA(fs, out, braintumor.ToVIA(data))
	case "sloth":
		err = braintumor.WriteSloth(fs, out, braintumor.ToSloth(data))
	default:
		err = errors.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return err
	}

	log.Infof("Successfully wrote labels for %d files to %v", len(data), out)
	return nil
}

// printInfo prints a summary line for the item at idx, or for all items if idx is negative.
func printInfo(d *braintumor.Dataset, idx int) error {
	first, last := idx, idx
	if idx < 0 {
		first, last = 0, d.Len()-1
	}
	for i := first; i <= last; i++ {
		item, err := d.Get(i)
		if err != nil {
			return err
		}
		b := item.Image.Bounds()
		bbox := item.BoundingBox
		fmt.Printf("%d\t%s\t%v\tpid=%s\t%dx%d\tlandmarks=%d\tbbox=[%d %d %d %d]\n", i, item.Path,
			item.Label, strings.TrimSpace(item.PID), b.Dx(), b.Dy(), len(item.Landmarks), bbox.XMin,
			bbox.XMax, bbox.YMin, bbox.YMax)
	}
	return nil
}

// printStats prints the intensity and bounding box statistics of d.
func printStats(d *braintumor.Dataset, log logs.Log) error {
	intensity, err := braintumor.IntensityStats(d, log)
	if err != nil {
		return err
	}
	fmt.Println("Intensity:")
	fmt.Println("Min:", intensity.Min)
	fmt.Println("Max:", intensity.Max)
	fmt.Println("Mean:", intensity.Mean())
	fmt.Println("Std:", intensity.StandardDeviation())

	boxes, err := braintumor.SummarizeBoundingBoxes(d)
	if err != nil {
		return err
	}
	classes := make([]braintumor.ClassLabel, 0, len(boxes))
	for c := range boxes {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	fmt.Println("Bounding boxes:")
	for _, c := range classes {
		s := boxes[c]
		fmt.Printf("%v\tn=%d\tmedian %gx%g\tmedian area %g\tmean area %g\tmax area %g\n", c, s.Count,
			s.MedianWidth, s.MedianHeight, s.MedianArea, s.MeanArea, s.MaxArea)
	}
	return nil
}
