package braintumor

// Fetching and unpacking of the dataset archive.

import (
	"context"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/dustin/go-humanize"
	"github.com/krolaw/zipstream"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// archiveName is the file the downloaded archive is stored as inside the data directory.
const archiveName = "all_data.zip"

// progressInterval is the number of bytes between download progress messages.
const progressInterval = 64 << 20

// GetDataIfNeeded downloads the archive at url into root, unpacks it and arranges the records, unless
// root already exists.
func GetDataIfNeeded(ctx context.Context, fs afero.Fs, root, url string, reader SampleReader,
	log logs.Log) error {

	if dirExists(fs, root) {
		log.Infof("Data directory %v already exists. If its structure is wrong, remove it and run again",
			root)
		return nil
	}

	if err := fs.MkdirAll(root, 0755); err != nil {
		return errors.Wrapf(err, "cannot create %q", root)
	}

	archivePath := filepath.Join(root, archiveName)
	if err := Download(ctx, fs, url, archivePath, log); err != nil {
		return err
	}

	if _, err := UnzipFile(fs, archivePath, root, log); err != nil {
		return err
	}

	_, err := Arrange(fs, root, reader, log)
	return err
}

// Download streams the body of a GET request for url to dst.
func Download(ctx context.Context, fs afero.Fs, url, dst string, log logs.Log) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "cannot fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("cannot fetch %s: %s", url, resp.Status)
	}

	f, err := fs.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", dst)
	}
	defer closeWithErrCheck(f, &err)

	if resp.ContentLength > 0 {
		log.Infof("Downloading %s (%s) to %v", url, humanize.Bytes(uint64(resp.ContentLength)), dst)
	} else {
		log.Infof("Downloading %s to %v", url, dst)
	}

	pw := &progressWriter{log: log, total: resp.ContentLength}
	n, err := io.Copy(io.MultiWriter(f, pw), resp.Body)
	if err != nil {
		return errors.Wrapf(err, "download of %s failed after %s", url, humanize.Bytes(uint64(n)))
	}

	log.Infof("Downloaded %s", humanize.Bytes(uint64(n)))
	return nil
}

// progressWriter logs the number of bytes written every progressInterval bytes.
type progressWriter struct {
	log     logs.Log
	total   int64 // -1 if unknown.
	written int64
	next    int64
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.written >= w.next {
		if w.total > 0 {
			w.log.Infof("Downloaded %s of %s", humanize.Bytes(uint64(w.written)),
				humanize.Bytes(uint64(w.total)))
		} else if w.next > 0 {
			w.log.Infof("Downloaded %s", humanize.Bytes(uint64(w.written)))
		}
		w.next = w.written + progressInterval
	}
	return len(p), nil
}

// UnzipFile extracts the zip archive at archivePath into dstDir. Zip archives inside the archive
// are extracted into dstDir as well, in place of the archive entry itself.
//
// Returns the number of files written.
func UnzipFile(fs afero.Fs, archivePath, dstDir string, log logs.Log) (n int, err error) {
	f, err := fs.Open(archivePath)
	if err != nil {
		return 0, errors.Wrapf(err, "cannot open %q", archivePath)
	}
	defer closeWithErrCheck(f, &err)

	log.Infof("Unpacking %v", archivePath)
	n, err = unzip(fs, f, dstDir, log)
	if err != nil {
		return n, errors.Wrapf(err, "cannot unpack %q", archivePath)
	}
	log.Infof("Unpacked %d files into %v", n, dstDir)
	return n, nil
}

// unzip reads a zip stream from r and writes its entries below dstDir, recursing into nested
// zip archives.
func unzip(fs afero.Fs, r io.Reader, dstDir string, log logs.Log) (int, error) {
	zr := zipstream.NewReader(r)
	n := 0
	for {
		hdr, err := zr.Next()
		if err == io.EOF {
			return n, nil
		} else if err != nil {
			return n, err
		}

		name := path.Clean(strings.ReplaceAll(hdr.Name, "\\", "/"))
		if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
			return n, errors.Errorf("illegal entry name %q", hdr.Name)
		}

		if hdr.FileInfo().IsDir() {
			if err := fs.MkdirAll(filepath.Join(dstDir, filepath.FromSlash(name)), 0755); err != nil {
				return n, err
			}
			continue
		}

		if strings.EqualFold(path.Ext(name), ".zip") {
			log.Infof("Unpacking nested archive %v", name)
			m, err := unzip(fs, zr, dstDir, log)
			n += m
			if err != nil {
				return n, errors.Wrapf(err, "nested archive %q", name)
			}
			// Skip the central directory of the nested archive.
			if _, err := io.Copy(io.Discard, zr); err != nil {
				return n, errors.Wrapf(err, "nested archive %q", name)
			}
			continue
		}

		if err := writeEntry(fs, zr, filepath.Join(dstDir, filepath.FromSlash(name))); err != nil {
			return n, err
		}
		n++
	}
}

// writeEntry copies r to a new file at dst, creating parent directories.
func writeEntry(fs afero.Fs, r io.Reader, dst string) (err error) {
	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	f, err := fs.Create(dst)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(f, &err)

	_, err = io.Copy(f, r)
	return err
}
