package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List analysis runs stored in PostgreSQL",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		pg, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer pg.Close()

		runs, err := pg.RecentRuns(historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No stored runs")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(out, "%s  %-30s %7s rows  ghost %-4d flooding %-4d (%s)\n",
				r.RunID[:8], r.Source, humanize.Comma(int64(r.CleanRows)),
				r.GhostCount, r.FloodingCount, humanize.Time(r.GeneratedAt))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to show")
}
