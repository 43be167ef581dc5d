package main

import (
	"fmt"
	"os"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/studio1767/fileman/internal/browser"
	"github.com/studio1767/fileman/internal/fsnode"
	"github.com/studio1767/fileman/internal/ops"
	"github.com/studio1767/fileman/internal/worker"
)

func newLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory, directories first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			root, nodes, err := a.resolve(path)
			if err != nil {
				return err
			}

			b := browser.New(root, nil)
			if nodes[0] != root {
				if err := b.Open(nodes[0]); err != nil {
					return err
				}
			}
			children, err := b.List()
			if err != nil {
				return err
			}
			return printListing(children)
		},
	}
}

func printListing(nodes []fsnode.Node) error {
	data := pterm.TableData{{"Name", "Size", "Type"}}
	for _, n := range nodes {
		if n.IsDirectory() {
			data = append(data, []string{n.Name() + "/", "-", "directory"})
			continue
		}
		size := "?"
		if s := n.Size(); s >= 0 {
			size = humanize.Bytes(uint64(s))
		}
		mime := n.MimeType()
		if mime == "" {
			mime = fsnode.DefaultMimeType
		}
		data = append(data, []string{n.Name(), size, mime})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func newDuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "du path...",
		Short: "Show what copying or deleting the paths would involve",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, nodes, err := a.resolve(args...)
			if err != nil {
				return err
			}

			transfer := ops.ScanTotals(nodes)
			remove := ops.ScanDeleteTotals(nodes)

			data := pterm.TableData{
				{"", "Items", "Bytes"},
				{"copy/move", humanize.Comma(int64(transfer.Items)), humanize.Bytes(uint64(transfer.Bytes))},
				{"delete", humanize.Comma(int64(remove.Items)), humanize.Bytes(uint64(remove.Bytes))},
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}
}

// runOperation starts an operation with a fresh console and reports its
// outcome.
func (a *app) runOperation(start func(*worker.Runner) (*worker.Handle, error)) error {
	out := newConsole(a.quiet)
	defer out.Close()

	handle, err := start(a.newRunner(out))
	if err != nil {
		return err
	}
	outcome := handle.Wait()
	out.Reset()

	return report(outcome)
}

func transferCmd(a *app, move bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		_, nodes, err := a.resolve(args...)
		if err != nil {
			return err
		}
		sources, dest := nodes[:len(nodes)-1], nodes[len(nodes)-1]
		if !dest.IsDirectory() {
			return fsnode.NewErrNotDirectory(args[len(args)-1])
		}

		return a.runOperation(func(r *worker.Runner) (*worker.Handle, error) {
			return r.Transfer(sources, dest, move)
		})
	}
}

func newCpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cp source... destination",
		Short: "Copy files and directories into a directory",
		Args:  cobra.MinimumNArgs(2),
		RunE:  transferCmd(a, false),
	}
}

func newMvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv source... destination",
		Short: "Move files and directories into a directory",
		Long: `Move copies everything first. The sources are only deleted when every
file was copied; after any failure they are all left in place.`,
		Args: cobra.MinimumNArgs(2),
		RunE: transferCmd(a, true),
	}
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm path...",
		Short: "Delete files and directories, with everything below them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, nodes, err := a.resolve(args...)
			if err != nil {
				return err
			}
			return a.runOperation(func(r *worker.Runner) (*worker.Handle, error) {
				return r.Delete(nodes)
			})
		},
	}
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename path name",
		Short: "Rename a file or directory in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, nodes, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			if nodes[0] == root {
				return errors.New("cannot rename the root")
			}

			b := browser.New(root, worker.NewRunner(worker.Config{}))
			if err := b.Rename(nodes[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "renamed %s to %s\n", args[0], strings.TrimSpace(args[1]))
			return nil
		},
	}
}

func newMkdirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir parent name",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, nodes, err := a.resolve(args[0])
			if err != nil {
				return err
			}

			b := browser.New(root, worker.NewRunner(worker.Config{}))
			if nodes[0] != root {
				if err := b.Open(nodes[0]); err != nil {
					return err
				}
			}
			created, err := b.NewFolder(args[1])
			if err != nil {
				return err
			}
			if created != nil {
				fmt.Fprintf(os.Stdout, "created %s\n", created.Name())
			}
			return nil
		},
	}
}
