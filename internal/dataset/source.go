package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrNoCSVInArchive is returned when a zip archive holds no .csv entry.
	ErrNoCSVInArchive = errors.New("zip archive contains no csv file")
	// ErrTooLarge is returned when a source exceeds its byte limit.
	ErrTooLarge = errors.New("csv source exceeds size limit")
)

// OpenSource opens a CSV from a local path or an http(s) URL. Zip archives
// are unpacked to their first .csv entry. The returned name is the file name
// to record on the Dataset. A maxBytes <= 0 disables the size limit.
func OpenSource(ctx context.Context, location string, maxBytes int64) (io.ReadCloser, string, error) {
	if u, err := url.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return openURL(ctx, u, maxBytes)
	}

	name := filepath.Base(location)
	if isZip(name) {
		zr, err := zip.OpenReader(location)
		if err != nil {
			return nil, "", err
		}
		rc, entry, err := firstCSV(&zr.Reader)
		if err != nil {
			zr.Close()
			return nil, "", err
		}
		return readCloser{Reader: limit(rc, maxBytes), closers: []io.Closer{rc, zr}}, entry, nil
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, "", err
	}
	return readCloser{Reader: limit(f, maxBytes), closers: []io.Closer{f}}, name, nil
}

func openURL(ctx context.Context, u *url.URL, maxBytes int64) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("bad status: %s", resp.Status)
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		name = "download.csv"
	}
	if !isZip(name) {
		return readCloser{Reader: limit(resp.Body, maxBytes), closers: []io.Closer{resp.Body}}, name, nil
	}

	defer resp.Body.Close()
	buf, err := io.ReadAll(limit(resp.Body, maxBytes))
	if err != nil {
		return nil, "", err
	}
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, "", err
	}
	rc, entry, err := firstCSV(zr)
	if err != nil {
		return nil, "", err
	}
	return readCloser{Reader: limit(rc, maxBytes), closers: []io.Closer{rc}}, entry, nil
}

func firstCSV(zr *zip.Reader) (io.ReadCloser, string, error) {
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, "", err
		}
		return rc, path.Base(f.Name), nil
	}
	return nil, "", ErrNoCSVInArchive
}

func isZip(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".zip")
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func limit(r io.Reader, maxBytes int64) io.Reader {
	if maxBytes <= 0 {
		return r
	}
	return &limitedReader{r: r, remaining: maxBytes}
}

// limitedReader fails with ErrTooLarge instead of truncating.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
