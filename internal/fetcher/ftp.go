package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher downloads resources published behind ftp:// URLs. Some catalog
// entries still point at ministry FTP mirrors.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "fetch: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("fetch: expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", eris.New("fetch: empty path in ftp url")
	}

	return host, path, nil
}

// ftpConnReader closes the FTP response and connection together.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "fetch: close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "fetch: quit ftp connection")
	}
	return nil
}

// Download connects to the FTP server, retrieves the file anonymously, and
// returns a reader that owns the connection.
func (f *FTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	host, path, err := parseFTPURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := ftp.Dial(host, ftp.DialWithContext(ctx), ftp.DialWithTimeout(f.opts.Timeout))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: dial ftp %s", host)
	}

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "fetch: ftp login %s", host)
	}

	resp, err := conn.Retr(path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "fetch: ftp retr %s", path)
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}
