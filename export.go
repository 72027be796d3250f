package braintumor

// Concurrent export of item images and masks as PNG files.

import (
	"path/filepath"
	"runtime"
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ExportImages decodes every item of d and writes its windowed image and its mask below outDir,
// at ExportImagePath(item.Path) and "<class>/<name>_mask.png".
//
// Items are processed concurrently. The first error stops the export and is returned.
func ExportImages(fs afero.Fs, d *Dataset, outDir string, opts ImageOptions, log logs.Log) error {
	if _, err := resampleFilter(opts.Filter); err != nil {
		return err
	}
	for _, c := range AllClasses {
		if err := fs.MkdirAll(filepath.Join(outDir, c.DirName()), 0755); err != nil {
			return errors.Wrapf(err, "cannot create the output directory for %v", c)
		}
	}
	log.Infof("Exporting %d images to %v", d.Len(), outDir)

	// Limit the number of goroutines in flight, as each holds decoded images in memory.
	numTasks := 2 * runtime.NumCPU()
	if d.Len() < numTasks {
		numTasks = d.Len()
	}
	workQueue := make(chan int, 2*numTasks)
	done := make(chan struct{})
	errs := make(chan error, 1)
	var once sync.Once
	fail := func(err error) {
		once.Do(func() {
			errs <- err
			close(done)
		})
	}

	var wg sync.WaitGroup
	wg.Add(numTasks)
	for i := 0; i < numTasks; i++ {
		go func() {
			defer wg.Done()
			for idx := range workQueue {
				if err := exportItem(fs, d, idx, outDir, opts); err != nil {
					fail(err)
				}
			}
		}()
	}

	// Feed the work queue until all items are queued or a worker failed.
feed:
	for i := 0; i < d.Len(); i++ {
		select {
		case workQueue <- i:
		case <-done:
			break feed
		}
	}
	close(workQueue)
	wg.Wait()

	select {
	case err := <-errs:
		return err
	default:
	}
	log.Infof("Exported %d images", d.Len())
	return nil
}

// exportItem writes the image and mask of item idx.
func exportItem(fs afero.Fs, d *Dataset, idx int, outDir string, opts ImageOptions) error {
	item, err := d.Get(idx)
	if err != nil {
		return err
	}
	p, err := prepareItem(item, opts)
	if err != nil {
		return err
	}

	imgPath := filepath.Join(outDir, filepath.FromSlash(ExportImagePath(item.Path)))
	if err := savePNG(fs, imgPath, p.image); err != nil {
		return errors.Wrapf(err, "cannot save %q", imgPath)
	}
	maskPath := filepath.Join(outDir, filepath.FromSlash(exportMaskPath(item.Path)))
	if err := savePNG(fs, maskPath, p.mask); err != nil {
		return errors.Wrapf(err, "cannot save %q", maskPath)
	}
	return nil
}
