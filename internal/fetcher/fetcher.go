// Package fetcher downloads open-data resources over HTTP and FTP.
package fetcher

import (
	"context"
	"io"
	"net/url"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Dispatcher routes downloads by URL scheme: ftp:// goes to the FTP fetcher,
// everything else to the HTTP fetcher.
type Dispatcher struct {
	http Fetcher
	ftp  Fetcher
}

// NewDispatcher creates a Dispatcher over the given scheme fetchers.
func NewDispatcher(httpFetcher, ftpFetcher Fetcher) *Dispatcher {
	return &Dispatcher{http: httpFetcher, ftp: ftpFetcher}
}

// Download fetches the URL with the fetcher matching its scheme.
func (d *Dispatcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}
	if u.Scheme == "ftp" {
		return d.ftp.Download(ctx, rawURL)
	}
	return d.http.Download(ctx, rawURL)
}

// DownloadBytes fetches the URL and reads the whole body. Open-data extracts
// are small enough to hold in memory.
func DownloadBytes(ctx context.Context, f Fetcher, rawURL string) ([]byte, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: read body of %s", rawURL)
	}
	return data, nil
}
