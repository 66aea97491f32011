package cli

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/rileyhilliard/keyprov/internal/errors"
	"github.com/rileyhilliard/keyprov/internal/install"
	"github.com/rileyhilliard/keyprov/internal/keys"
	"github.com/rileyhilliard/keyprov/internal/logger"
	"github.com/rileyhilliard/keyprov/internal/ui"
	"github.com/rileyhilliard/keyprov/pkg/sshutil"
)

// SetupOptions holds everything one provisioning run needs.
type SetupOptions struct {
	User string
	Host string
	Port int // 0 means ~/.ssh/config Port, else 22

	Password  string // empty means prompt
	PublicKey string
	KeyBits   int

	Yes    bool // generate a missing key without asking
	DryRun bool
	Verify bool

	HostKeyPolicy sshutil.HostKeyPolicy
	KnownHosts    string
	Timeout       time.Duration
	SSHConfigPath string
}

// Destination returns user@host.
func (o SetupOptions) Destination() string {
	return o.User + "@" + o.Host
}

// remoteSession is a connected host that keys can be installed on.
type remoteSession interface {
	install.Remote
	Close() error
}

// SetupDeps are the side-effecting collaborators of Setup.
type SetupDeps struct {
	Out         io.Writer
	Animate     bool
	Logger      logger.Logger
	Interactive func() bool
	Confirm     func(title, description string) (bool, error)
	Password    func(w io.Writer, prompt string) (string, error)
	Generate    func(ctx context.Context, pair keys.KeyPair, bits int) error
	Dial        func(ctx context.Context, opts sshutil.Options) (remoteSession, error)
	DialWithKey func(ctx context.Context, opts sshutil.Options, privatePath string) (io.Closer, error)
}

// DefaultSetupDeps wires Setup to the terminal, ssh-keygen and real SSH.
func DefaultSetupDeps(out io.Writer, noColor bool) SetupDeps {
	return SetupDeps{
		Out:         out,
		Animate:     ui.IsInteractive() && !ui.ShouldDisableColors(noColor),
		Logger:      logger.NewEnvLogger("[keyprov]"),
		Interactive: ui.IsInteractive,
		Confirm:     ui.Confirm,
		Password:    ui.PromptPassword,
		Generate:    keys.Generate,
		Dial: func(ctx context.Context, opts sshutil.Options) (remoteSession, error) {
			client, err := sshutil.Dial(ctx, opts)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		DialWithKey: func(ctx context.Context, opts sshutil.Options, privatePath string) (io.Closer, error) {
			client, err := sshutil.DialWithKey(ctx, opts, privatePath)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

// Setup installs the local public key on the remote host:
//
//  1. Find the local key, offering to generate one if it's missing
//  2. Validate it (ssh-rsa only) before touching the network
//  3. Connect with the password
//  4. Append the key to authorized_keys unless it's already there
//  5. Optionally log in again with the key to prove it works
func Setup(ctx context.Context, opts SetupOptions, d SetupDeps) error {
	pd := ui.NewPhaseDisplay(d.Out)
	pair := keys.PairFromPublicPath(opts.PublicKey)

	// Step 1: local key
	if !keys.Exists(pair) {
		if err := ensureKey(ctx, pair, opts, d, pd); err != nil {
			return err
		}
	}

	pubKey, err := keys.ReadPublicKey(pair.PublicPath)
	if err != nil {
		return err
	}
	fingerprint, err := keys.ValidatePublicKey(pubKey)
	if err != nil {
		return err
	}
	pd.RenderSuccess(fmt.Sprintf("Using %s", pair.PublicPath))
	pd.RenderSubStatus("key", fingerprint)

	// Step 2: password
	password, err := resolvePassword(opts, d)
	if err != nil {
		return err
	}

	// Step 3: connect
	sshOpts := sshutil.Options{
		Host:          opts.Host,
		User:          opts.User,
		Password:      password,
		Port:          opts.Port,
		HostKeyPolicy: opts.HostKeyPolicy,
		KnownHosts:    opts.KnownHosts,
		Timeout:       opts.Timeout,
		SSHConfigPath: opts.SSHConfigPath,
		Logger:        d.Logger,
	}

	spinner := d.startSpinner(fmt.Sprintf("Connecting to %s", opts.Destination()))
	conn, err := d.Dial(ctx, sshOpts)
	if err != nil {
		spinner.Fail()
		return err
	}
	defer conn.Close()
	spinner.SuccessWith(fmt.Sprintf("Connected to %s", opts.Host))
	if opts.HostKeyPolicy == sshutil.HostKeyAcceptAny {
		pd.RenderSubStatus("host key", "not verified (--host-key-policy accept-any)")
	}

	// Step 4: install
	spinner = d.startSpinner("Checking authorized_keys")
	res, err := install.Install(ctx, conn, pubKey, install.Options{DryRun: opts.DryRun, Logger: d.Logger})
	if err != nil {
		spinner.Fail()
		pd.RenderBlock(keys.ManualInstructions(opts.Destination(), pair.PublicPath, pubKey))
		return err
	}

	switch res.Status {
	case install.AlreadyPresent:
		spinner.SuccessWith(fmt.Sprintf("Key already exists in %s", res.Path))
	case install.WouldInstall:
		spinner.SkipWith(fmt.Sprintf("Would append key to %s (dry run)", res.Path))
	default:
		spinner.SuccessWith(fmt.Sprintf("Key added to %s", res.Path))
		if res.Created.CreatedDir {
			pd.RenderSubStatus("created", path.Dir(res.Path)+" (700)")
		}
		if res.Created.CreatedFile {
			pd.RenderSubStatus("created", res.Path+" (600)")
		}
	}

	// Step 5: verify
	if opts.Verify {
		switch {
		case opts.DryRun:
			pd.RenderSkipped("Passwordless login check", "dry run")
		case !pair.HasPrivate():
			pd.RenderSkipped("Passwordless login check", "no private key next to "+pair.PublicPath)
		default:
			if err := verifyKeyLogin(ctx, sshOpts, pair, d); err != nil {
				return err
			}
		}
	}

	if !opts.DryRun {
		pd.Newline()
		fmt.Fprintf(d.Out, "Try it: %s\n", ui.InfoStyle().Render(sshCommandHint(opts, pair)))
	}
	return nil
}

// ensureKey generates the key pair after confirmation (or --yes).
func ensureKey(ctx context.Context, pair keys.KeyPair, opts SetupOptions, d SetupDeps, pd *ui.PhaseDisplay) error {
	pd.RenderUnchanged(fmt.Sprintf("No public key at %s", pair.PublicPath))

	if opts.DryRun {
		return errors.New(errors.ErrKey,
			fmt.Sprintf("No public key at %s", pair.PublicPath),
			"A dry run doesn't generate keys. Run without --dry-run, or point --public-key at an existing key.")
	}

	if !pair.HasPrivate() {
		return errors.New(errors.ErrKey,
			fmt.Sprintf("No public key at %s", pair.PublicPath),
			"Point --public-key at an existing key, or at a path ending in .pub to generate one there")
	}

	if !opts.Yes {
		if !d.Interactive() {
			return errors.New(errors.ErrKey,
				fmt.Sprintf("No public key at %s", pair.PublicPath),
				"Re-run with --yes to generate one, or point --public-key at an existing key")
		}

		proceed, err := d.Confirm(
			"Generate a new RSA key pair?",
			fmt.Sprintf("%d-bit key at %s with no passphrase", opts.KeyBits, pair.PrivatePath))
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrInput,
				"Failed to get user input",
				"")
		}
		if !proceed {
			return errors.ErrDeclined
		}
	}

	spinner := d.startSpinner("Generating SSH key")
	if err := d.Generate(ctx, pair, opts.KeyBits); err != nil {
		spinner.Fail()
		return err
	}
	spinner.SuccessWith(fmt.Sprintf("Generated key at %s", pair.PrivatePath))
	return nil
}

// resolvePassword returns the configured password or prompts for one.
func resolvePassword(opts SetupOptions, d SetupDeps) (string, error) {
	if opts.Password != "" {
		return opts.Password, nil
	}
	if !d.Interactive() {
		return "", errors.New(errors.ErrInput,
			"No password given",
			"Pass --password or set KEYPROV_PASSWORD")
	}

	password, err := d.Password(d.Out, fmt.Sprintf("%s's password: ", opts.Destination()))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrInput,
			"Couldn't read the password",
			"Pass --password or set KEYPROV_PASSWORD")
	}
	return password, nil
}

// verifyKeyLogin logs in again with the private key only.
func verifyKeyLogin(ctx context.Context, sshOpts sshutil.Options, pair keys.KeyPair, d SetupDeps) error {
	spinner := d.startSpinner("Verifying passwordless login")

	sshOpts.Password = ""
	conn, err := d.DialWithKey(ctx, sshOpts, pair.PrivatePath)
	if err != nil {
		spinner.Fail()
		return err
	}
	_ = conn.Close()

	spinner.SuccessWith("Passwordless login works")
	return nil
}

func sshCommandHint(opts SetupOptions, pair keys.KeyPair) string {
	hint := "ssh"
	if opts.Port != 0 && opts.Port != 22 {
		hint += " -p " + strconv.Itoa(opts.Port)
	}
	if pair.HasPrivate() && pair.PrivatePath != keys.PairFromPublicPath("~/.ssh/id_rsa.pub").PrivatePath {
		hint += " -i " + pair.PrivatePath
	}
	return hint + " " + opts.Destination()
}

func (d SetupDeps) startSpinner(label string) *ui.Spinner {
	s := ui.NewSpinner(label)
	s.SetOutput(d.Out)
	s.SetAnimated(d.Animate)
	s.Start()
	return s
}
