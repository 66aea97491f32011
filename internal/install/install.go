package install

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/rileyhilliard/keyprov/internal/errors"
	"github.com/rileyhilliard/keyprov/internal/logger"
	"github.com/rileyhilliard/keyprov/pkg/sshutil"
)

// Remote is the slice of a connected host that Install needs.
// *sshutil.Client satisfies it, as does the mock in pkg/sshutil/testing.
type Remote interface {
	RemoteHome(ctx context.Context) (string, error)
	ReadFile(ctx context.Context, path string) (sshutil.ReadResult, error)
	AppendFile(ctx context.Context, path, text string) (sshutil.AppendResult, error)
}

// Status is the outcome of an install.
type Status int

const (
	// Installed means the key was appended.
	Installed Status = iota
	// AlreadyPresent means the key was found and nothing was written.
	AlreadyPresent
	// WouldInstall means a dry run found the key missing.
	WouldInstall
)

func (s Status) String() string {
	switch s {
	case Installed:
		return "installed"
	case AlreadyPresent:
		return "already present"
	case WouldInstall:
		return "would install"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Options tunes Install.
type Options struct {
	// DryRun reports what would happen without writing anything.
	DryRun bool
	Logger logger.Logger
}

// Result describes what Install did.
type Result struct {
	Path   string // authorized_keys path on the remote
	Status Status

	// Created reports the directory and file Install had to create.
	Created sshutil.AppendResult
}

// AuthorizedKeysPath returns home/.ssh/authorized_keys using remote (slash)
// separators regardless of the local OS.
func AuthorizedKeysPath(home string) string {
	return strings.TrimRight(home, "/") + "/.ssh/authorized_keys"
}

// Install makes sure publicKey is present in the remote user's
// authorized_keys. The key is matched as a plain substring of the current
// content; when missing it is appended framed by newlines. A missing file
// counts as "key not present". Any other read failure aborts without
// writing, so a transient error never causes a blind append.
func Install(ctx context.Context, remote Remote, publicKey string, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}

	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return Result{}, errors.New(errors.ErrKey,
			"Refusing to install an empty public key",
			"")
	}

	home, err := remote.RemoteHome(ctx)
	if err != nil {
		return Result{}, wrapRemote(err,
			"Couldn't determine the remote home directory",
			"")
	}
	if home == "" {
		return Result{}, errors.New(errors.ErrRemote,
			"Remote home directory is empty",
			"Check that the account has a home directory")
	}

	res := Result{Path: AuthorizedKeysPath(home)}
	log.Debug("checking %s", res.Path)

	current, err := remote.ReadFile(ctx, res.Path)
	if err != nil {
		return res, wrapRemote(err,
			fmt.Sprintf("Couldn't read %s, not touching it", res.Path),
			"Fix the file's permissions on the remote host and run again")
	}

	if current.Found && strings.Contains(current.Content, publicKey) {
		log.Debug("key already present in %s", res.Path)
		res.Status = AlreadyPresent
		return res, nil
	}
	if !current.Found {
		log.Debug("%s does not exist yet", res.Path)
	}

	if opts.DryRun {
		res.Status = WouldInstall
		return res, nil
	}

	created, err := remote.AppendFile(ctx, res.Path, "\n"+publicKey+"\n")
	if err != nil {
		return res, wrapRemote(err,
			fmt.Sprintf("Couldn't append the key to %s", res.Path),
			"Check free space and permissions on the remote host")
	}
	res.Created = created
	res.Status = Installed
	log.Debug("appended key to %s (created dir: %t, created file: %t)", res.Path, created.CreatedDir, created.CreatedFile)

	return res, nil
}

// wrapRemote tags plain errors as ErrRemote. Errors that are already
// structured keep their own message and code.
func wrapRemote(err error, message, suggestion string) error {
	var kpErr *errors.Error
	if stderrors.As(err, &kpErr) {
		return err
	}
	return errors.WrapWithCode(err, errors.ErrRemote, message, suggestion)
}
