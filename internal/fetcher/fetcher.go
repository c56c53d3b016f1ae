// Package fetcher loads the raw location table from a local file, an
// http(s) or ftp URL, or an s3:// object. Workbooks (.xlsx) are converted to
// table text.
package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ctmap/internal/table"
)

// Fetcher downloads remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Source yields the current table text.
type Source interface {
	Fetch(ctx context.Context) (string, error)
	String() string
}

// Options configures remote sources.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the delay before the first retry.
	Backoff time.Duration
	S3      S3Options
}

// NewSource picks a Source for location: a path or file:// URL, an http(s)
// URL, an ftp URL, or an s3://bucket/key URL.
func NewSource(location string, opts Options) (Source, error) {
	if strings.TrimSpace(location) == "" {
		return nil, eris.New("fetcher: empty table source")
	}

	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) <= 1 {
		// Plain paths, including Windows drive letters.
		return &FileSource{Path: location}, nil
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return &FileSource{Path: u.Path}, nil
	case "http", "https":
		return &RemoteSource{URL: location, Fetcher: NewHTTPFetcher(opts)}, nil
	case "ftp":
		return &RemoteSource{URL: location, Fetcher: NewFTPFetcher(opts)}, nil
	case "s3":
		f, err := NewS3Fetcher(opts)
		if err != nil {
			return nil, err
		}
		return &RemoteSource{URL: location, Fetcher: f}, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}

// FileSource reads the table from disk on every Fetch.
type FileSource struct {
	Path string
}

func (s *FileSource) String() string { return s.Path }

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: read %s", s.Path)
	}
	return decode(s.Path, data)
}

// RemoteSource downloads the table through a Fetcher on every Fetch.
type RemoteSource struct {
	URL     string
	Fetcher Fetcher
}

func (s *RemoteSource) String() string { return s.URL }

// Fetch implements Source.
func (s *RemoteSource) Fetch(ctx context.Context) (string, error) {
	body, err := s.Fetcher.Download(ctx, s.URL)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: download %s", s.URL)
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: read %s", s.URL)
	}

	name := s.URL
	if u, err := url.Parse(s.URL); err == nil {
		name = u.Path
	}
	return decode(name, data)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode turns raw bytes into table text based on the file extension.
func decode(name string, data []byte) (string, error) {
	if strings.EqualFold(path.Ext(name), ".xlsx") {
		locs, err := table.ReadXLSX(data)
		if err != nil {
			return "", eris.Wrapf(err, "fetcher: decode workbook %s", name)
		}
		return table.SerializeTable(locs), nil
	}
	return string(bytes.TrimPrefix(data, utf8BOM)), nil
}
