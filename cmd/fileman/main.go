package main

import (
	"context"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/studio1767/fileman/internal/logging"
)

func main() {
	app := &app{}

	rootCmd := &cobra.Command{
		Use:   "fileman",
		Short: "Browse a file store and run bulk copy, move and delete operations",
		Long: `fileman works on a local directory tree or on an S3 bucket laid out as one.
Bulk operations count their work first, then stream it with live progress,
and report how many items failed rather than stopping at the first error.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.teardown()
		},
	}

	app.addFlags(rootCmd)

	rootCmd.AddCommand(
		newLsCmd(app),
		newDuCmd(app),
		newCpCmd(app),
		newMvCmd(app),
		newRmCmd(app),
		newRenameCmd(app),
		newMkdirCmd(app),
		newShellCmd(app),
		newJobCmd(app),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var failed *errFailures
		if !errors.As(err, &failed) {
			pterm.Error.Println(err)
		}
		logging.Sync()
		os.Exit(1)
	}
}
