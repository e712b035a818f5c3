package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/journal"
)

func journalCmd(flags *globalFlags) *cobra.Command {
	var (
		run    string
		writes int
	)

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled runs and their drain passes",
		Long: `List the runs recorded in the SQLite journal, or the drain passes
and writes of one run.

Examples:
  reactor journal --journal=reactor.db
  reactor journal --journal=reactor.db --run=<id> --writes=20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cfg.Journal.Path == "" {
				return errors.New("R301").
					WithDetail("No journal path configured").
					WithSuggestion("Pass --journal or set REACTOR_JOURNAL_PATH")
			}

			j, err := journal.OpenReader(ctx, cfg.Journal.Path)
			if err != nil {
				return errors.New("R301").Wrap(err)
			}
			defer j.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer tw.Flush()

			if run == "" {
				runs, err := j.Runs(ctx)
				if err != nil {
					return errors.New("R301").Wrap(err)
				}
				fmt.Fprintln(tw, "RUN\tSTARTED\tLABEL")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Label)
				}
				return nil
			}

			drains, err := j.Drains(ctx, run)
			if err != nil {
				return errors.New("R301").Wrap(err)
			}
			fmt.Fprintln(tw, "PASS\tRUNS\tSKIPPED\tREMAINING\tFAILURES\tDURATION\tERROR")
			for _, d := range drains {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
					d.Pass, d.Runs, d.Skipped, d.Remaining, d.Failures, d.Duration, d.Error)
			}

			if writes != 0 {
				ws, err := j.Writes(ctx, run, writes)
				if err != nil {
					return errors.New("R301").Wrap(err)
				}
				fmt.Fprintln(tw)
				fmt.Fprintln(tw, "KEY\tVERSION\tVALUE")
				for _, w := range ws {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", w.Key, w.Version, w.Value)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&run, "run", "r", "", "Show drain passes of this run")
	cmd.Flags().IntVarP(&writes, "writes", "w", 0, "Also show this many writes of the run (-1 for all)")

	return cmd
}
