package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studio1767/fileman/internal/job"
	"github.com/studio1767/fileman/internal/logging"
)

func newJobCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Run saved sequences of copy, move and delete steps",
	}
	cmd.AddCommand(newJobPushCmd(a), newJobRunCmd(a))
	return cmd
}

func newJobPushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push jobfile jobname",
		Short: "Store a new encrypted revision of a job in the bucket",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobfile, jobname := args[0], args[1]

			client, err := a.s3Client()
			if err != nil {
				return err
			}

			source, err := os.Open(jobfile)
			if err != nil {
				return err
			}
			defer source.Close()

			key, err := job.Upload(client, source, jobname)
			if err != nil {
				return err
			}

			fmt.Printf("uploaded to %s\n", key)
			return nil
		},
	}
}

func newJobRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run jobname|jobfile",
		Short: "Run a job from a local file, or the latest revision in the bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := a.loadJob(args[0])
			if err != nil {
				return err
			}

			root, err := a.openRoot()
			if err != nil {
				return err
			}

			out := newConsole(a.quiet)
			defer out.Close()

			outcomes, runErr := job.Run(a.newRunner(out), root, j)
			out.Reset()

			var failed *errFailures
			for _, o := range outcomes {
				if err := report(o); err != nil && failed == nil {
					failed = &errFailures{}
				}
				if failed != nil {
					failed.count += o.Failures()
				}
			}
			if runErr != nil {
				return runErr
			}
			if failed != nil {
				return failed
			}
			return nil
		},
	}
}

// loadJob prefers a local file and falls back to the bucket.
func (a *app) loadJob(name string) (*job.Job, error) {
	if _, err := os.Stat(name); err == nil {
		return job.Load(name)
	}

	client, err := a.s3Client()
	if err != nil {
		return nil, err
	}
	j, key, err := job.Download(client, name)
	if err != nil {
		return nil, err
	}
	logging.L().Info("loaded job", zap.String("job", name), zap.String("key", key))
	pterm.Info.Printfln("running %s (%d steps)", key, len(j.Steps))
	return j, nil
}
