package ingest

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher downloads export drops over FTP. Some agencies still deliver
// nightly opportunity dumps this way.
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

// ftpTarget is a feed URL broken into the pieces an FTP session needs.
// Credentials come from the URL userinfo and default to anonymous.
type ftpTarget struct {
	addr     string
	path     string
	user     string
	password string
}

func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" {
		return ftpTarget{}, eris.New("empty path in ftp url")
	}

	target := ftpTarget{
		addr:     u.Host,
		path:     u.Path,
		user:     "anonymous",
		password: "anonymous@",
	}
	if _, _, splitErr := net.SplitHostPort(target.addr); splitErr != nil {
		target.addr = net.JoinHostPort(target.addr, "21")
	}
	if u.User != nil {
		target.user = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			target.password = pw
		}
	}
	return target, nil
}

// ftpDrop keeps the FTP session open while the drop is being decoded.
// Close releases both the transfer and the control connection.
type ftpDrop struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (d *ftpDrop) Read(p []byte) (int, error) {
	return d.resp.Read(p)
}

func (d *ftpDrop) Close() error {
	respErr := d.resp.Close()
	quitErr := d.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp transfer")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "quit ftp session")
	}
	return nil
}

// Download retrieves the file behind an ftp:// feed URL. The caller must
// close the returned ReadCloser to release the FTP session.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	target, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp: connecting",
		zap.String("addr", target.addr),
		zap.String("path", target.path),
		zap.String("user", target.user),
	)

	conn, err := ftp.Dial(target.addr, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}

	if err := conn.Login(target.user, target.password); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(target.path)
	if err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "ftp retrieve")
	}

	return &ftpDrop{resp: resp, conn: conn}, nil
}
