package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactor/pkg/scenario"
)

func runCmd(flags *globalFlags) *cobra.Command {
	var (
		quiet        bool
		takeSnapshot bool
	)

	cmd := &cobra.Command{
		Use:   "run <script.yaml>",
		Short: "Play a scenario script",
		Long: `Build the demo scene, play every step of the script against it
and print each line the scene's effects render.

Examples:
  reactor run demo.yaml
  reactor run demo.yaml --snapshot
  reactor run demo.yaml --journal=reactor.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			sc, err := scenario.ParseFile(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(ctx, flags, "run "+args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			w := out
			if quiet {
				w = nil
			}
			res, err := scenario.Run(ctx, a.rt, sc, w)
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			success(out, "%d steps, %d ticks, %d reaction runs", res.Steps, res.Ticks, res.Runs)
			if len(res.Failures) > 0 {
				warn(out, "%d reaction failures:", len(res.Failures))
				info(out, "%s", strings.Join(res.Failures, "\n  "))
			}
			if a.runID != "" {
				info(out, "Journal run: %s", a.runID)
			}

			if takeSnapshot {
				loc, err := a.export(ctx)
				if err != nil {
					return err
				}
				info(out, "Snapshot: %s", loc)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print scene output")
	cmd.Flags().BoolVar(&takeSnapshot, "snapshot", false, "Export a snapshot after the script")

	return cmd
}

func snapshotCmd(flags *globalFlags) *cobra.Command {
	var (
		dir    string
		bucket string
	)

	cmd := &cobra.Command{
		Use:   "snapshot <script.yaml>",
		Short: "Play a script and export the resulting tree",
		Long: `Play a scenario script without printing the scene output, then
export the ownership tree as JSON to the snapshot directory and, when a
bucket is configured, to S3.

Examples:
  reactor snapshot demo.yaml
  reactor snapshot demo.yaml --dir=out
  REACTOR_S3_BUCKET=my-bucket reactor snapshot demo.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			sc, err := scenario.ParseFile(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(ctx, flags, "snapshot "+args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if dir != "" {
				a.cfg.Snapshot.Dir = dir
			}
			if bucket != "" {
				a.cfg.Snapshot.S3.Bucket = bucket
			}

			if _, err := scenario.Run(ctx, a.rt, sc, nil); err != nil {
				return err
			}
			loc, err := a.export(ctx)
			if err != nil {
				return err
			}
			for _, l := range strings.Split(loc, ",") {
				success(out, "Wrote %s", l)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Snapshot directory (overrides snapshot.dir)")
	cmd.Flags().StringVar(&bucket, "s3-bucket", "", "S3 bucket (overrides snapshot.s3.bucket)")

	return cmd
}
