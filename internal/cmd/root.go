package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for pitufo
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pitufo [flags] [path]",
		Short: "Normalize every JSON file under a directory in place",
		Long: `pitufo walks a directory tree, finds files with the .json extension
and rewrites each one in a normalized form: indented with two spaces by
default, or compacted with --minify.

Files that cannot be read, parsed or written are reported and skipped;
the rest of the tree is still processed.

Configuration is loaded from .pitufo/config.yaml if present
(or from $PITUFO_CONFIG). CLI flags override configuration file settings.

Examples:
  pitufo ./data                      # Pretty-print every .json file
  pitufo -p ./data --minify          # Compact output
  pitufo ./data --strip-bom -m 2     # Strip BOMs, at most two levels deep
  pitufo ./data --follow --verbose   # Follow symlinks, report every file
  pitufo ./data --dry-run            # List candidates without writing
  pitufo ./data -w 8 --atomic        # 8 workers, temp-file + rename writes
  pitufo ./data --history runs.db    # Record the run in a history database`,
		Version: Version,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runNormalize,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	addRunFlags(cmd)

	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
