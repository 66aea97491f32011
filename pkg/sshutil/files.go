package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/rileyhilliard/keyprov/internal/errors"
)

// ReadResult is the outcome of reading a remote file.
// Found is false when the file does not exist; that is not an error.
type ReadResult struct {
	Content string
	Found   bool
}

// AppendResult reports what AppendFile had to create along the way.
type AppendResult struct {
	CreatedDir  bool
	CreatedFile bool
}

// ReadFile reads a remote file over SFTP. A missing file returns
// Found=false with a nil error; any other failure (permissions, transport)
// is returned as an ErrRemote error.
func (c *Client) ReadFile(ctx context.Context, remotePath string) (ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return ReadResult{}, err
	}

	sc, err := c.SFTP()
	if err != nil {
		return ReadResult{}, err
	}

	f, err := sc.Open(remotePath)
	if err != nil {
		if isNotExist(err) {
			c.log.Debug("%s does not exist on %s", remotePath, c.Host)
			return ReadResult{Found: false}, nil
		}
		return ReadResult{}, errors.WrapWithCode(err, errors.ErrRemote,
			fmt.Sprintf("Couldn't open %s on '%s'", remotePath, c.Host),
			"Check the file's permissions on the remote host")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return ReadResult{}, errors.WrapWithCode(err, errors.ErrRemote,
			fmt.Sprintf("Couldn't read %s on '%s'", remotePath, c.Host),
			"The connection may have dropped. Try again.")
	}

	return ReadResult{Content: string(data), Found: true}, nil
}

// AppendFile appends text to a remote file, creating the parent directory
// and the file if needed. The directory is created with `mkdir -p` run as a
// quoted argument vector and its exit status is checked. New directories get
// mode 0700 and new files 0600, as sshd expects for ~/.ssh.
func (c *Client) AppendFile(ctx context.Context, remotePath, text string) (AppendResult, error) {
	var result AppendResult

	sc, err := c.SFTP()
	if err != nil {
		return result, err
	}

	dir := path.Dir(remotePath)
	// Only a missing directory counts as created; other stat errors are
	// left for mkdir -p to report.
	if _, statErr := sc.Stat(dir); statErr != nil && isNotExist(statErr) {
		result.CreatedDir = true
	}

	_, stderr, code, err := c.Exec(ctx, "mkdir", "-p", "--", dir)
	if err != nil {
		return result, err
	}
	if code != 0 {
		return result, errors.New(errors.ErrRemote,
			fmt.Sprintf("mkdir -p %s failed on '%s' (exit %d)", dir, c.Host, code),
			strings.TrimSpace(string(stderr)))
	}
	if result.CreatedDir {
		if err := sc.Chmod(dir, 0700); err != nil {
			c.log.Warn("couldn't chmod 700 %s: %v", dir, err)
		}
	}

	if _, statErr := sc.Stat(remotePath); statErr != nil {
		if !isNotExist(statErr) {
			return result, errors.WrapWithCode(statErr, errors.ErrRemote,
				fmt.Sprintf("Couldn't stat %s on '%s'", remotePath, c.Host),
				"Check the directory's permissions on the remote host")
		}
		result.CreatedFile = true
	}

	// O_APPEND is not honoured by every SFTP server, so seek to the end instead.
	f, err := sc.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE)
	if err != nil {
		return result, errors.WrapWithCode(err, errors.ErrRemote,
			fmt.Sprintf("Couldn't open %s for writing on '%s'", remotePath, c.Host),
			"Check the file's permissions on the remote host")
	}

	if err := appendTo(f, text); err != nil {
		f.Close()
		return result, errors.WrapWithCode(err, errors.ErrRemote,
			fmt.Sprintf("Couldn't write to %s on '%s'", remotePath, c.Host),
			"The remote disk may be full, or the connection dropped")
	}
	if err := f.Close(); err != nil {
		return result, errors.WrapWithCode(err, errors.ErrRemote,
			fmt.Sprintf("Couldn't finish writing %s on '%s'", remotePath, c.Host),
			"")
	}

	if result.CreatedFile {
		if err := sc.Chmod(remotePath, 0600); err != nil {
			c.log.Warn("couldn't chmod 600 %s: %v", remotePath, err)
		}
	}

	c.log.Debug("appended %d bytes to %s on %s", len(text), remotePath, c.Host)
	return result, nil
}

type seekWriteStater interface {
	io.WriteSeeker
	Stat() (os.FileInfo, error)
}

func appendTo(f seekWriteStater, text string) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if _, err := f.Seek(info.Size(), io.SeekStart); err != nil {
		return err
	}
	_, err = io.WriteString(f, text)
	return err
}

func isNotExist(err error) bool {
	return stderrors.Is(err, os.ErrNotExist) || os.IsNotExist(err)
}
