package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/psfind/pkg/errors"
	"github.com/matzehuels/psfind/pkg/find"
	"github.com/matzehuels/psfind/pkg/query"
	"github.com/matzehuels/psfind/pkg/resource"
	"github.com/matzehuels/psfind/pkg/version"
)

// findCommand creates the find command group.
func (c *CLI) findCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find packages in a repository",
		Long: `Find packages in a repository.

Single names resolve the latest version. Names may contain * and ? to list
every matching package. A version spec is either an exact version, a NuGet
range such as [1.0,2.0), or a wildcard such as 2.*.`,
	}

	cmd.AddCommand(c.findNameCommand())
	cmd.AddCommand(c.findTagCommand())
	cmd.AddCommand(c.findTypeCommand())
	cmd.AddCommand(c.findCommandCommand())
	cmd.AddCommand(c.findAllCommand())

	return cmd
}

func (c *CLI) findNameCommand() *cobra.Command {
	var (
		spec       string
		latestOnly bool
		tags       []string
	)

	cmd := &cobra.Command{
		Use:   "name <name>...",
		Short: "Resolve packages by name or wildcard",
		Example: `  psfind find name PowerShellGet
  psfind find name PowerShellGet PSReadLine --version "[2.0,3.0)"
  psfind find name "Az.*" --prerelease`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			common := c.common(tags)
			var reqs []query.Request
			if spec != "" {
				s, err := version.ParseSpec(spec)
				if err != nil {
					return err
				}
				reqs = find.BatchNameAndVersionSpec{Names: args, Spec: s, LatestOnly: latestOnly, Common: common}.Requests()
			} else {
				reqs = find.BatchNameWildcard{Names: args, Common: common}.Requests()
			}
			return c.runBatch(cmd.Context(), args, reqs)
		},
	}

	cmd.Flags().StringVar(&spec, "version", "", "version, range or wildcard to match")
	cmd.Flags().BoolVar(&latestOnly, "latest", false, "with --version, show only the highest matching version")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "only packages carrying these tags")

	return cmd
}

func (c *CLI) findTagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <tag>...",
		Short: "List packages carrying every given tag",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd.Context(), query.ByTags{Common: c.common(args)})
		},
	}
}

func (c *CLI) findTypeCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:       "type <type>",
		Short:     "List packages of a resource type",
		ValidArgs: typeNames(),
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resource.ParseType(args[0])
			if err != nil {
				return err
			}
			common := c.common(nil)
			common.Type = t
			return c.runSearch(cmd.Context(), query.ByResourceType{Common: common, NameFilter: name})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "only ids starting with this prefix")
	return cmd
}

func (c *CLI) findCommandCommand() *cobra.Command {
	var dsc bool

	cmd := &cobra.Command{
		Use:   "command <name>...",
		Short: "List packages exporting commands or DSC resources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			common := c.common(nil)
			common.Type = resource.Command
			if dsc {
				common.Type = resource.DscResource
			}
			return c.runSearch(cmd.Context(), query.ByCommandOrDscNames{Common: common, Names: args})
		},
	}

	cmd.Flags().BoolVar(&dsc, "dsc", false, "treat names as DSC resources")
	return cmd
}

func (c *CLI) findAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "List the latest version of every package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd.Context(), query.AllPackages{Common: c.common(nil)})
		},
	}
}

// =============================================================================
// Execution
// =============================================================================

func (c *CLI) common(tags []string) query.Common {
	return query.Common{IncludePrerelease: c.cfg.Prerelease, Tags: tags}
}

// runSearch performs one search request and prints the result listing.
func (c *CLI) runSearch(ctx context.Context, req query.Request) error {
	repo, err := c.repository()
	if err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(ctx), repo.Name)
	var ds []*resource.Descriptor
	spin(ctx, fmt.Sprintf("Searching %s...", repo.Name), func() {
		ds, err = c.newFinder().Find(ctx, repo, req)
	})
	if err != nil {
		return err
	}

	for _, d := range ds {
		printDescriptor(d)
	}
	if len(ds) == 0 {
		printWarning("no packages found")
	}
	printCount(len(ds), "package")
	prog.done(fmt.Sprintf("Searched for %s", query.Describe(req)))
	return nil
}

// runBatch resolves one request per name and prints each slot in input order.
// It fails if any slot failed.
func (c *CLI) runBatch(ctx context.Context, names []string, reqs []query.Request) error {
	repo, err := c.repository()
	if err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(ctx), repo.Name)
	var results []find.Result
	spin(ctx, batchMessage(len(reqs), repo.Name), func() {
		results = c.newFinder().Batch(ctx, repo, reqs)
	})

	for i, r := range results {
		if r.Err != nil {
			printRecord(names[i], r.Err)
			continue
		}
		if len(r.Descriptors) == 0 {
			printWarning("%s: no packages found", names[i])
		}
		for _, d := range r.Descriptors {
			printDescriptor(d)
		}
	}

	failures := find.Failures(results)
	if err := ctx.Err(); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Resolved %d of %d name(s)", len(results)-len(failures), len(results)))
	if len(failures) > 0 {
		return errors.New(failures[0].Code, "%d of %d name(s) failed", len(failures), len(results))
	}
	return nil
}

func batchMessage(n int, repository string) string {
	return fmt.Sprintf("Resolving %d name(s) in %s...", n, repository)
}

func typeNames() []string {
	types := resource.Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
