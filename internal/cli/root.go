package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"os/user"
	"strconv"
	"strings"
	"syscall"

	"github.com/rileyhilliard/keyprov/internal/config"
	"github.com/rileyhilliard/keyprov/internal/errors"
	"github.com/rileyhilliard/keyprov/internal/logger"
	"github.com/rileyhilliard/keyprov/internal/ui"
	"github.com/rileyhilliard/keyprov/pkg/sshutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// app carries the parsed flags and swappable collaborators of one invocation.
type app struct {
	cfgFile string
	verbose bool
	noColor bool
	install InstallFlags

	sshConfigPath string
	interactive   func() bool
	pickHost      func([]sshutil.SSHHostEntry) (*sshutil.SSHHostEntry, error)
	setupDeps     func(out io.Writer, noColor bool) SetupDeps
}

func newApp() *app {
	return &app{
		sshConfigPath: sshutil.DefaultSSHConfigPath(),
		interactive:   ui.IsInteractive,
		pickHost:      ui.PickHost,
		setupDeps:     DefaultSetupDeps,
	}
}

// rootCmd builds the command tree. Every call returns fresh commands
// bound to a's flag fields.
func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyprov [flags] user@host",
		Short: "Install your SSH public key on a remote host",
		Long: `keyprov logs in to a remote host with a password and appends your
public key to ~/.ssh/authorized_keys, so later logins don't need one.

Running it again is safe: a key that's already installed is left alone.
If the local key doesn't exist yet, keyprov offers to generate one.

With no destination on an interactive terminal, keyprov lets you pick a
host from ~/.ssh/config.`,
		Example: `  keyprov alice@example.com
  keyprov -p 2222 --verify alice@build-box
  KEYPROV_PASSWORD=... keyprov --yes alice@10.0.0.5
  keyprov --dry-run alice@example.com`,
		Args:              destinationArgs,
		ValidArgsFunction: a.completeHosts,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.SetVerbose(a.verbose)
			if ui.ShouldDisableColors(a.noColor) {
				ui.DisableColors()
			}
			return nil
		},
		RunE: a.runInstall,
	}

	cmd.SetGlobalNormalizationFunc(normalizeFlagName)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return errors.New(errors.ErrInput, err.Error(),
			fmt.Sprintf("Run '%s --help' for usage", c.CommandPath()))
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ~/.config/keyprov/config.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "show debug output")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	AddInstallFlags(cmd, &a.install)

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(a.configCmd())
	cmd.AddCommand(newCompletionCmd())

	return cmd
}

// destinationArgs accepts zero or one positional argument.
func destinationArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return errors.New(errors.ErrInput,
			fmt.Sprintf("Expected one destination, got %d arguments", len(args)),
			"Usage: keyprov [flags] user@host")
	}
	return nil
}

func (a *app) runInstall(cmd *cobra.Command, args []string) error {
	dest := ""
	if len(args) == 1 {
		dest = args[0]
	} else {
		picked, err := a.chooseDestination()
		if err != nil {
			return err
		}
		dest = picked
	}

	// Reject a malformed destination before anything touches disk or network.
	username, host, err := ParseDestination(dest)
	if err != nil {
		return err
	}

	cfg, cfgPath, err := config.LoadOrDefault(a.cfgFile)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		logger.Default().Debug("using config %s", cfgPath)
	}

	opts, err := a.setupOptions(cmd.Flags(), cmd.ErrOrStderr(), cfg, username, host)
	if err != nil {
		return err
	}

	return Setup(cmd.Context(), opts, a.setupDeps(cmd.OutOrStdout(), a.noColor))
}

// chooseDestination shows the ~/.ssh/config host picker.
func (a *app) chooseDestination() (string, error) {
	missing := errors.New(errors.ErrInput,
		"Missing destination",
		"Usage: keyprov [flags] user@host")

	if !a.interactive() {
		return "", missing
	}

	hosts, err := sshutil.ParseSSHConfigFile(a.sshConfigPath)
	if err != nil || len(hosts) == 0 {
		return "", missing
	}

	picked, err := a.pickHost(hosts)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrInput,
			"Host picker failed",
			"Pass the destination as user@host")
	}
	if picked == nil {
		return "", errors.ErrDeclined
	}
	return picked.Destination(currentUsername()), nil
}

// setupOptions merges flags over config/env values. A flag only wins
// when it was given on the command line.
func (a *app) setupOptions(flags *pflag.FlagSet, errOut io.Writer, cfg *config.Config, username, host string) (SetupOptions, error) {
	opts := SetupOptions{
		User:          username,
		Host:          host,
		Password:      cfg.Password,
		PublicKey:     cfg.PublicKey,
		KeyBits:       cfg.KeyBits,
		Yes:           a.install.Yes,
		DryRun:        a.install.DryRun,
		Verify:        a.install.Verify,
		KnownHosts:    config.ExpandTilde(cfg.KnownHosts),
		Timeout:       cfg.Timeout,
		SSHConfigPath: a.sshConfigPath,
	}

	if flags.Changed("password") {
		opts.Password = a.install.Password
		ui.PrintWarning(errOut, "--password is visible to other local users in the process list; KEYPROV_PASSWORD is safer")
	}
	if flags.Changed("public-key") {
		opts.PublicKey = a.install.PublicKey
	}
	if flags.Changed("known-hosts") {
		opts.KnownHosts = config.ExpandTilde(a.install.KnownHosts)
	}

	switch {
	case flags.Changed("port"):
		if err := config.ValidatePort(a.install.Port); err != nil {
			return opts, err
		}
		opts.Port = a.install.Port
	case hasConfiguredPort(a.sshConfigPath, host):
		opts.Port = 0
	default:
		opts.Port = cfg.Port
	}

	policyName := cfg.HostKeyPolicy
	if flags.Changed("host-key-policy") {
		policyName = a.install.HostKeyPolicy
	}
	policy, err := sshutil.ParseHostKeyPolicy(policyName)
	if err != nil {
		return opts, errors.WrapWithCode(err, errors.ErrInput,
			fmt.Sprintf("'%s' isn't a host key policy", policyName),
			"Use one of: "+joinPolicies())
	}
	opts.HostKeyPolicy = policy

	if flags.Changed("timeout") {
		if a.install.Timeout < 0 {
			return opts, errors.New(errors.ErrInput,
				"--timeout can't be negative",
				"Use 0 to wait forever, or something like 15s")
		}
		opts.Timeout = a.install.Timeout
	}

	return opts, nil
}

func hasConfiguredPort(sshConfigPath, host string) bool {
	entry, ok := sshutil.LookupHost(sshConfigPath, host)
	if !ok || entry.Port == "" {
		return false
	}
	_, err := strconv.Atoi(entry.Port)
	return err == nil
}

// completeHosts offers ~/.ssh/config aliases as user@alias.
func (a *app) completeHosts(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	hosts, err := sshutil.ParseSSHConfigFile(a.sshConfigPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	defaultUser := currentUsername()
	var out []string
	for _, h := range hosts {
		dest := h.Destination(defaultUser)
		if strings.HasPrefix(dest, toComplete) {
			out = append(out, dest+"\t"+h.Description())
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func currentUsername() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// Execute runs the CLI and exits with the mapped status code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newApp().run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns its exit status.
func (a *app) run(ctx context.Context, args []string, out, errOut io.Writer) int {
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return errors.ExitOK
	}

	switch {
	case stderrors.Is(err, errors.ErrDeclined):
		fmt.Fprintln(errOut, ui.MutedStyle().Render("Cancelled, nothing was changed."))
	case stderrors.Is(err, context.Canceled):
		fmt.Fprintln(errOut, ui.MutedStyle().Render("Interrupted."))
	default:
		fmt.Fprintln(errOut, strings.TrimRight(err.Error(), "\n"))
	}
	return errors.ExitCode(err)
}
