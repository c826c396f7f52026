package storage

import (
	"bytes"
	"context"
	"net"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPUploader stores artifacts on an FTP server. Each upload opens a
// fresh connection; the processor uploads once per job, so pooling is
// not worth the bookkeeping.
type FTPUploader struct {
	addr     string
	user     string
	password string
	dir      string
	timeout  time.Duration
}

// NewFTPUploader creates an uploader against addr (host or host:port,
// port 21 assumed). Empty credentials fall back to anonymous.
func NewFTPUploader(addr, user, password, dir string) *FTPUploader {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "21")
	}
	if user == "" {
		user = "anonymous"
		password = "anonymous@"
	}
	return &FTPUploader{
		addr:     addr,
		user:     user,
		password: password,
		dir:      dir,
		timeout:  30 * time.Second,
	}
}

// Upload stores content under name in the configured directory. STOR
// overwrites an existing file, so repeat uploads are idempotent.
func (u *FTPUploader) Upload(ctx context.Context, name string, content []byte, _ string) error {
	conn, err := ftp.Dial(u.addr, ftp.DialWithTimeout(u.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return eris.Wrap(err, "storage: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(u.user, u.password); err != nil {
		return eris.Wrap(err, "storage: ftp login")
	}

	remote := name
	if u.dir != "" {
		remote = path.Join(u.dir, name)
	}
	if err := conn.Stor(remote, bytes.NewReader(content)); err != nil {
		return eris.Wrapf(err, "storage: ftp store %s", remote)
	}

	zap.L().Info("uploaded artifact",
		zap.String("name", remote),
		zap.String("host", u.addr),
		zap.Int("bytes", len(content)),
	)
	return nil
}
