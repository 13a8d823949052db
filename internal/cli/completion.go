package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/psfind/internal/config"
)

// completionCommand generates shell completion scripts.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for psfind.

Bash:
  $ source <(psfind completion bash)

Zsh:
  $ psfind completion zsh > "${fpath[1]}/_psfind"

Fish:
  $ psfind completion fish | source

PowerShell:
  PS> psfind completion powershell | Out-String | Invoke-Expression

Repository names for --repository are completed from the configured
repositories file.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		// Scripts must generate even when the configuration is broken.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(stdout, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(stdout, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(stdout)
			}
		},
	}
}

// completeRepositories offers the configured repository names, described by
// their feed URL. Flag completion runs without PersistentPreRunE, so the
// configuration is loaded here.
func completeRepositories(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var names []string
	for _, r := range cfg.Repositories {
		if strings.HasPrefix(strings.ToLower(r.Name), strings.ToLower(toComplete)) {
			names = append(names, r.Name+"\t"+r.BaseURL)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
