package cli

import (
	"github.com/rileyhilliard/keyprov/internal/errors"
	"github.com/spf13/cobra"
)

// completionShells lists the shells completion scripts are generated for.
var completionShells = []string{"bash", "zsh", "fish", "powershell"}

// newCompletionCmd generates shell completion scripts for the root command.
func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion scripts for keyprov.

Destinations complete from the hosts in ~/.ssh/config.

Examples:
  # Bash
  keyprov completion bash > /etc/bash_completion.d/keyprov

  # Zsh
  keyprov completion zsh > "${fpath[1]}/_keyprov"

  # Fish
  keyprov completion fish > ~/.config/fish/completions/keyprov.fish`,
		ValidArgs: completionShells,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletion(out)
			default:
				return errors.New(errors.ErrInput,
					"Unknown shell: "+args[0],
					"Supported shells: bash, zsh, fish, powershell")
			}
		},
	}
}
