package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/rileyhilliard/keyprov/internal/errors"
	"golang.org/x/crypto/ssh"
)

// homeCommand prints the login user's home directory. It is a constant
// string: nothing caller-supplied is ever interpolated into it.
const homeCommand = `printf '%s\n' "$HOME"`

// Exec runs argv on the remote host. Every argument is shell-quoted, so
// paths with spaces or metacharacters reach the program verbatim.
// Returns stdout, stderr and the exit code. Exit code is -1 if the command
// couldn't be executed at all; a non-zero exit code with nil error means the
// command ran but failed.
func (c *Client) Exec(ctx context.Context, argv ...string) (stdout, stderr []byte, exitCode int, err error) {
	if len(argv) == 0 {
		return nil, nil, -1, errors.New(errors.ErrExec, "No command given", "")
	}
	return c.run(ctx, shellquote.Join(argv...))
}

// RemoteHome returns the remote user's $HOME. When the shell reports nothing
// it falls back to the SFTP server's working directory, which is the login
// directory on OpenSSH.
func (c *Client) RemoteHome(ctx context.Context) (string, error) {
	stdout, stderr, code, err := c.run(ctx, homeCommand)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", errors.New(errors.ErrRemote,
			fmt.Sprintf("Couldn't determine the home directory on '%s' (exit %d)", c.Host, code),
			strings.TrimSpace(string(stderr)))
	}

	home := strings.TrimSpace(string(stdout))
	if home != "" {
		return home, nil
	}

	c.log.Debug("remote $HOME is empty, asking SFTP for the working directory")
	sc, err := c.SFTP()
	if err != nil {
		return "", err
	}
	wd, err := sc.Getwd()
	if err != nil || wd == "" {
		return "", errors.WrapWithCode(err, errors.ErrRemote,
			fmt.Sprintf("Couldn't determine the home directory on '%s'", c.Host),
			"Check that the account has a home directory")
	}
	return wd, nil
}

// run executes a pre-built command line in a fresh session.
func (c *Client) run(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try again.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	c.log.Debug("exec on %s: %s", c.Address, cmd)

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return nil, nil, -1, errors.WrapWithCode(ctx.Err(), errors.ErrExec,
			fmt.Sprintf("Command interrupted: %s", cmd),
			"")
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if stderrors.As(err, &exitErr) {
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitErr.ExitStatus(), nil
		}
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Failed to execute command: %s", cmd),
			"Check if the command exists on the remote host.")
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), 0, nil
}
