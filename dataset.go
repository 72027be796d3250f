package braintumor

// The indexed dataset view used by training code.

import (
	"context"
	"math"
	"path"
	"path/filepath"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// DefaultURL is the figshare article holding the dataset archive.
const DefaultURL = "https://ndownloader.figshare.com/articles/1512427/versions/5"

// DefaultTestFraction is the share of items held out for the test view.
const DefaultTestFraction = 0.15

// ErrIndexOutOfRange is returned by Get for indices outside [0, Len()).
var ErrIndexOutOfRange = errors.New("index out of range")

// Options configures a Dataset.
type Options struct {
	Root         string       // The data directory.
	Train        bool         // Select the train view, or the test view if false.
	Download     bool         // Download and arrange the data if Root does not exist.
	URL          string       // The archive URL. DefaultURL if empty.
	Classes      []ClassLabel // The classes to include. All classes if empty.
	TestFraction float64      // DefaultTestFraction if zero.
}

// Dataset is a train or test view of the arranged data directory. Items are decoded from disk on
// every access.
type Dataset struct {
	fs     afero.Fs
	reader SampleReader
	root   string
	items  []string // Slash separated paths relative to root.
}

// NewDataset lists the class directories of opts.Root and selects the requested split.
//
// Items are ordered by class (meningioma, glioma, pituitary) and by name within a class. The
// train view is the first SplitIndex(n, opts.TestFraction) items and the test view the rest.
func NewDataset(ctx context.Context, fs afero.Fs, reader SampleReader, opts Options,
	log logs.Log) (*Dataset, error) {

	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.TestFraction == 0 {
		opts.TestFraction = DefaultTestFraction
	}
	if opts.TestFraction < 0 || opts.TestFraction >= 1 {
		return nil, errors.Errorf("invalid test fraction %v, must be in [0, 1)", opts.TestFraction)
	}

	if opts.Download {
		if err := GetDataIfNeeded(ctx, fs, opts.Root, opts.URL, reader, log); err != nil {
			return nil, err
		}
	}

	var items []string
	for _, c := range AllClasses {
		if !includesClass(opts.Classes, c) {
			continue
		}
		names, err := filesMatchingInDir(fs, filepath.Join(opts.Root, c.DirName()), nil)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			items = append(items, path.Join(c.DirName(), name))
		}
	}

	k := SplitIndex(len(items), opts.TestFraction)
	if opts.Train {
		items = items[:k]
	} else {
		items = items[k:]
	}

	return &Dataset{
		fs:     fs,
		reader: reader,
		root:   opts.Root,
		items:  items,
	}, nil
}

// includesClass reports whether c is selected by classes, where an empty list selects all.
func includesClass(classes []ClassLabel, c ClassLabel) bool {
	if len(classes) == 0 {
		return true
	}
	for _, v := range classes {
		if v == c {
			return true
		}
	}
	return false
}

// SplitIndex is the size of the train part of n items when frac of them are held out for testing:
// floor((1-frac)*n)+1, capped at n.
func SplitIndex(n int, frac float64) int {
	k := int(math.Floor((1-frac)*float64(n))) + 1
	if k > n {
		k = n
	}
	return k
}

// Len is the number of items in the view.
func (d *Dataset) Len() int {
	return len(d.items)
}

// Paths returns the item paths relative to the data root.
func (d *Dataset) Paths() []string {
	return append([]string(nil), d.items...)
}

// Root is the data directory.
func (d *Dataset) Root() string {
	return d.root
}

// Get decodes the item at idx and derives its bounding box.
func (d *Dataset) Get(idx int) (*Item, error) {
	if idx < 0 || idx >= len(d.items) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "index %d, length %d", idx, len(d.items))
	}

	rel := d.items[idx]
	s, err := d.reader.ReadSample(filepath.Join(d.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	return newItem(rel, s)
}
