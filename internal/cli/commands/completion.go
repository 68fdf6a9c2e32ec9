package commands

import (
	"github.com/spf13/cobra"
)

func newCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate a shell completion script for inkwell.

Bash:

  $ source <(inkwell completion bash)

  # Load for every session (Linux):
  $ inkwell completion bash > /etc/bash_completion.d/inkwell

Zsh:

  # Enable completion once if it is not already:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  $ inkwell completion zsh > "${fpath[1]}/_inkwell"

Fish:

  $ inkwell completion fish > ~/.config/fish/completions/inkwell.fish

PowerShell:

  PS> inkwell completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}
