package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"timemachine/internal/catalog"
)

var recordingsCmd = &cobra.Command{
	Use:   "recordings",
	Short: "List replayable recordings in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := catalog.Open(dbConfig(cfg))
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		recs, err := catalog.NewStore(db).List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list recordings: %w", err)
		}
		return printRecordings(cmd.OutOrStdout(), recs)
	},
}

func printRecordings(w io.Writer, recs []catalog.Recording) error {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No complete recordings found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFREQ (MHz)\tMODE\tRATE\tDURATION\tCREATED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%s\t%d\t%s\t%s\n",
			r.ID,
			r.Name,
			float64(r.Frequency)/1e6,
			r.Mode,
			r.SampleRate,
			(time.Duration(r.DurationMs) * time.Millisecond).String(),
			r.CreatedAt.Format(time.DateTime),
		)
	}
	return tw.Flush()
}
