package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"github.com/rileyhilliard/keyprov/internal/errors"
	"github.com/rileyhilliard/keyprov/internal/logger"
	"golang.org/x/crypto/ssh"
)

// Options describes one connection attempt.
type Options struct {
	Host     string // hostname, IP, or ~/.ssh/config alias
	User     string
	Password string
	Port     int // 0 means: ~/.ssh/config Port, else 22

	HostKeyPolicy HostKeyPolicy
	KnownHosts    string

	// Timeout bounds TCP connect plus handshake. Zero waits forever.
	Timeout time.Duration

	// SSHConfigPath overrides ~/.ssh/config (tests).
	SSHConfigPath string

	Logger logger.Logger
}

// Client wraps an SSH connection plus a lazily opened SFTP sub-channel.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)

	log logger.Logger

	sftpOnce sync.Once
	sftp     *sftp.Client
	sftpErr  error

	closeOnce sync.Once
	closeErr  error
}

// Dial opens a password-authenticated session to opts.Host.
// Keyboard-interactive auth is offered too, since many servers disable
// plain password auth in its favour.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	auth := []ssh.AuthMethod{
		ssh.Password(opts.Password),
		ssh.KeyboardInteractive(passwordChallenge(opts.Password)),
	}
	return dial(ctx, opts, auth, "password")
}

// passwordChallenge answers a single-prompt keyboard-interactive challenge
// with password. Multi-prompt challenges (OTP, 2FA) are refused rather
// than fed the password twice.
func passwordChallenge(password string) ssh.KeyboardInteractiveChallenge {
	return func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		switch len(questions) {
		case 0:
			return nil, nil
		case 1:
			return []string{password}, nil
		default:
			return nil, fmt.Errorf("server asked %d questions; only a single password prompt is supported", len(questions))
		}
	}
}

// DialWithKey opens a session using the private key at privatePath.
// Used to confirm passwordless login after the key was installed.
func DialWithKey(ctx context.Context, opts Options, privatePath string) (*Client, error) {
	data, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrKey,
			fmt.Sprintf("Can't read private key %s", privatePath),
			"Check the file exists and is readable")
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		var passErr *ssh.PassphraseMissingError
		if stderrors.As(err, &passErr) {
			return nil, errors.WrapWithCode(err, errors.ErrKey,
				fmt.Sprintf("Private key %s is passphrase protected", privatePath),
				"Verify manually: ssh -i "+privatePath+" <host>")
		}
		return nil, errors.WrapWithCode(err, errors.ErrKey,
			fmt.Sprintf("Can't parse private key %s", privatePath),
			"Make sure it's an OpenSSH or PEM private key")
	}

	return dial(ctx, opts, []ssh.AuthMethod{ssh.PublicKeys(signer)}, "publickey")
}

func dial(ctx context.Context, opts Options, auth []ssh.AuthMethod, method string) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}

	settings := resolveSSHSettings(opts)

	hostKeyCallback, err := HostKeyCallback(opts.HostKeyPolicy, opts.KnownHosts)
	if err != nil {
		var kpErr *errors.Error
		if stderrors.As(err, &kpErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't load known_hosts",
			"Check permissions on "+opts.KnownHosts)
	}
	if opts.HostKeyPolicy == HostKeyAcceptAny || opts.HostKeyPolicy == "" {
		log.Debug("host key for %s will not be verified (policy %s)", settings.address(), HostKeyAcceptAny)
	}

	config := &ssh.ClientConfig{
		User:            opts.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.Timeout,
	}

	address := settings.address()
	log.Debug("dialing %s as %s (%s auth)", address, opts.User, method)

	dialer := net.Dialer{Timeout: opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", opts.Host, address),
			suggestionForDialError(err))
	}

	// Bound the handshake by the timeout and by ctx.
	if opts.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(opts.Timeout))
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	stop()
	if err != nil {
		conn.Close()

		var mismatch *HostKeyMismatchError
		if stderrors.As(err, &mismatch) {
			return nil, errors.New(errors.ErrSSH, mismatch.Error(), mismatch.Suggestion())
		}
		var unknown *UnknownHostError
		if stderrors.As(err, &unknown) {
			return nil, errors.New(errors.ErrSSH, unknown.Error(), unknown.Suggestion())
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.WrapWithCode(ctxErr, errors.ErrSSH,
				fmt.Sprintf("Connection to '%s' was cancelled", opts.Host),
				"")
		}

		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", opts.Host),
			suggestionForHandshakeError(err, method))
	}
	_ = conn.SetDeadline(time.Time{})

	log.Debug("connected to %s", address)
	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    opts.Host,
		Address: address,
		log:     log,
	}, nil
}

// SFTP returns the file-transfer sub-channel, opening it on first use.
func (c *Client) SFTP() (*sftp.Client, error) {
	c.sftpOnce.Do(func() {
		c.sftp, c.sftpErr = sftp.NewClient(c.Client)
		if c.sftpErr != nil {
			c.sftpErr = errors.WrapWithCode(c.sftpErr, errors.ErrRemote,
				fmt.Sprintf("Couldn't open SFTP on '%s'", c.Host),
				"Make sure the server has the sftp subsystem enabled")
		}
	})
	return c.sftp, c.sftpErr
}

// Close closes the SFTP sub-channel (if open) and the SSH connection.
// Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.sftp != nil {
			_ = c.sftp.Close()
		}
		if c.Client != nil {
			c.closeErr = c.Client.Close()
		}
		c.log.Debug("closed connection to %s", c.Address)
	})
	return c.closeErr
}

// GetHost returns the original host/alias used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

// sshSettings holds resolved SSH connection parameters.
type sshSettings struct {
	hostname string
	port     string
}

func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSSHSettings applies ~/.ssh/config HostName and Port for the alias.
// An explicit opts.Port always wins over the config file.
func resolveSSHSettings(opts Options) *sshSettings {
	settings := &sshSettings{
		hostname: opts.Host,
		port:     "22",
	}

	entry, ok := LookupHost(opts.SSHConfigPath, opts.Host)
	if ok {
		if entry.Hostname != "" {
			settings.hostname = entry.Hostname
		}
		if entry.Port != "" {
			settings.port = entry.Port
		}
	}

	if opts.Port > 0 {
		settings.port = strconv.Itoa(opts.Port)
	}

	return settings
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that box? Check the port with --port."
	}
	if strings.Contains(errStr, "no such host") {
		return "Can't resolve that hostname. Check the spelling and your DNS."
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error, method string) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		if method == "publickey" {
			return "The server didn't accept the key. Check authorized_keys permissions (700 ~/.ssh, 600 authorized_keys)."
		}
		return "Wrong username or password, or the server has password login disabled."
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Try --host-key-policy accept-new, or connect manually first: ssh <host>"
	}
	if strings.Contains(errStr, "i/o timeout") {
		return "The server stopped responding during the handshake. Try a longer --timeout."
	}
	return "Something went wrong during SSH setup. Try: ssh -v <host>"
}
