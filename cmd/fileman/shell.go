package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/studio1767/fileman/internal/browser"
	"github.com/studio1767/fileman/internal/fsnode"
	"github.com/studio1767/fileman/internal/worker"
)

const shellHelp = `commands:
  ls                   list the current directory
  cd <name>            open a directory; "cd .." goes up
  up                   go to the parent directory
  pwd                  show where you are
  copy <name>...       put entries on the clipboard to copy
  cut <name>...        put entries on the clipboard to move
  clip                 show the clipboard
  paste                copy or move the clipboard here
  rm <name>...         delete entries and everything below them
  rename <name> <new>  rename an entry
  mkdir <name>         create a directory
  quit                 leave`

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Browse the store interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.openRoot()
			if err != nil {
				return err
			}

			out := newConsole(a.quiet)
			defer out.Close()

			sh := &shell{
				browser: browser.New(root, a.newRunner(out)),
				out:     out,
			}
			return sh.run(cmd.InOrStdin())
		},
	}
}

type shell struct {
	browser *browser.Browser
	out     *console
}

func (sh *shell) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(os.Stdout, "%s> ", sh.browser.Path())
		if !scanner.Scan() {
			fmt.Fprintln(os.Stdout)
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}

		err := sh.exec(fields[0], fields[1:])
		var failed *errFailures
		if err != nil && !errors.As(err, &failed) {
			pterm.Error.Println(err)
		}
	}
}

func (sh *shell) exec(name string, args []string) error {
	b := sh.browser

	switch name {
	case "help", "?":
		fmt.Println(shellHelp)
	case "ls":
		children, err := b.List()
		if err != nil {
			return err
		}
		return printListing(children)
	case "pwd":
		fmt.Println(b.Path())
	case "up":
		b.Up()
	case "cd":
		if len(args) != 1 {
			return errors.New("usage: cd <name>")
		}
		if args[0] == ".." {
			b.Up()
			return nil
		}
		dir, err := b.Lookup(args[0])
		if err != nil {
			return err
		}
		return b.Open(dir)
	case "copy", "cut":
		nodes, err := sh.lookupAll(args)
		if err != nil {
			return err
		}
		if name == "cut" {
			return b.Cut(nodes)
		}
		return b.Copy(nodes)
	case "clip":
		clip, ok := b.Clipboard()
		if !ok {
			fmt.Println("clipboard is empty")
			return nil
		}
		names := make([]string, len(clip.Nodes))
		for i, n := range clip.Nodes {
			names[i] = n.Name()
		}
		fmt.Printf("%s: %s\n", clip.Mode, strings.Join(names, ", "))
	case "paste":
		handle, err := b.Paste()
		if err != nil {
			return err
		}
		if handle == nil {
			fmt.Println("clipboard is empty")
			return nil
		}
		return sh.wait(handle)
	case "rm":
		nodes, err := sh.lookupAll(args)
		if err != nil {
			return err
		}
		handle, err := b.Delete(nodes)
		if err != nil {
			return err
		}
		return sh.wait(handle)
	case "rename":
		if len(args) != 2 {
			return errors.New("usage: rename <name> <new>")
		}
		node, err := b.Lookup(args[0])
		if err != nil {
			return err
		}
		return b.Rename(node, args[1])
	case "mkdir":
		_, err := b.NewFolder(strings.Join(args, " "))
		return err
	default:
		return errors.Errorf("unknown command %q, try help", name)
	}
	return nil
}

func (sh *shell) lookupAll(names []string) ([]fsnode.Node, error) {
	nodes := make([]fsnode.Node, 0, len(names))
	for _, name := range names {
		n, err := sh.browser.Lookup(name)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (sh *shell) wait(handle *worker.Handle) error {
	outcome := handle.Wait()
	sh.out.Reset()
	return report(outcome)
}
