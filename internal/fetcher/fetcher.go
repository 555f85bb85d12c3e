// Package fetcher reads source tables and boundary files from local paths,
// HTTP(S), or FTP, and decodes CSV, XLSX, and zipped payloads.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher retrieves a remote resource.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Opener resolves a source location to its bytes. Locations without a
// scheme (or with file://) are local paths.
type Opener struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewOpener returns an Opener with default HTTP and FTP fetchers.
func NewOpener(httpOpts HTTPOptions, ftpOpts FTPOptions) *Opener {
	return &Opener{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
	}
}

// Open returns a reader for location. The caller must close it.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch Scheme(location) {
	case "http", "https":
		if o.HTTP == nil {
			return nil, eris.Errorf("fetcher: no http fetcher for %s", location)
		}
		return o.HTTP.Download(ctx, location)
	case "ftp":
		if o.FTP == nil {
			return nil, eris.Errorf("fetcher: no ftp fetcher for %s", location)
		}
		return o.FTP.Download(ctx, location)
	case "file":
		u, err := url.Parse(location)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: parse %s", location)
		}
		return openLocal(u.Path)
	case "":
		return openLocal(location)
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme in %s", location)
	}
}

// ReadAll reads the whole resource at location.
func (o *Opener) ReadAll(ctx context.Context, location string) ([]byte, error) {
	rc, err := o.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", location)
	}
	return data, nil
}

func openLocal(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", path)
	}
	return f, nil
}

// Scheme returns the lower-cased URL scheme of location, or "" for a plain
// path. Windows drive letters are treated as paths.
func Scheme(location string) string {
	i := strings.Index(location, "://")
	if i <= 1 {
		return ""
	}
	return strings.ToLower(location[:i])
}

// Ext returns the lower-cased extension of location, ignoring any query
// string.
func Ext(location string) string {
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Path != "" {
		location = u.Path
	}
	i := strings.LastIndex(location, ".")
	if i < 0 || strings.ContainsAny(location[i:], `/\`) {
		return ""
	}
	return strings.ToLower(location[i:])
}
