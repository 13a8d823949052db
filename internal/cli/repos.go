package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/psfind/pkg/buildinfo"
	"github.com/matzehuels/psfind/pkg/query"
)

// reposCommand lists the configured repositories.
func (c *CLI) reposCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repos",
		Short: "List configured repositories",
		Long: `List configured repositories.

Repositories come from the TOML file named by PSFIND_REPOSITORIES_FILE, or
default to the PowerShell Gallery. The selected repository is marked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range c.cfg.Repositories {
				printRepository(r, strings.EqualFold(r.Name, c.cfg.Repository))
			}
			return nil
		},
	}
}

func printRepository(r query.Repository, selected bool) {
	title := StyleTitle.Render(r.Name)
	if selected {
		title += StyleDim.Render(" (selected)")
	}
	fmt.Fprintln(stdout, title)
	printKeyValue("url", StyleLink.Render(r.BaseURL))
	protocol := string(r.Protocol)
	if r.Protocol != query.V2 {
		protocol += StyleWarning.Render(" unsupported")
	}
	printKeyValue("protocol", protocol)
}

// versionCommand prints build information.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// Build info needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			printKeyValue("version", buildinfo.Version)
			printKeyValue("commit", buildinfo.Commit)
			printKeyValue("built", buildinfo.Date)
		},
	}
}
