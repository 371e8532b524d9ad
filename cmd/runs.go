package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ticker-linker/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect linking history",
	Long:  "Commands for summarizing stored articles and ticker links.",
}

// -- runs stats --

var runsStatsSince time.Duration

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize link volume over a window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		since := time.Now().UTC().Add(-runsStatsSince)
		stats, err := st.LinkStats(ctx, since)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatLinkStats(stats)
		return nil
	},
}

// -- runs links --

var (
	runsLinksTicker string
	runsLinksLimit  int
)

var runsLinksCmd = &cobra.Command{
	Use:   "links",
	Short: "List stored ticker links",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		links, err := st.ListLinks(ctx, store.LinkFilter{
			Ticker: runsLinksTicker,
			Limit:  runsLinksLimit,
		})
		if err != nil {
			return eris.Wrap(err, "runs links")
		}
		if len(links) == 0 {
			fmt.Fprintln(os.Stderr, "No links found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ARTICLE\tTICKER\tCONFIDENCE\tMATCHED\tCREATED")
		for _, l := range links {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%v\t%s\n",
				l.ArticleID, l.Ticker, l.Confidence, l.MatchedTerms,
				l.CreatedAt.Format(time.RFC3339),
			)
		}
		return w.Flush()
	},
}

func formatLinkStats(stats *store.LinkStats) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Since:\t%s\n", stats.Since.Format(time.RFC3339))
	fmt.Fprintf(w, "Articles:\t%d\n", stats.Articles)
	fmt.Fprintf(w, "Articles linked:\t%d\n", stats.ArticlesLinked)
	fmt.Fprintf(w, "Links:\t%d\n", stats.Links)
	w.Flush() //nolint:errcheck

	if len(stats.TopTickers) == 0 {
		return
	}
	fmt.Println("\nTop tickers:")
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, tc := range stats.TopTickers {
		fmt.Fprintf(w, "  %s\t%d\n", tc.Ticker, tc.Links)
	}
	w.Flush() //nolint:errcheck
}

func init() {
	runsStatsCmd.Flags().DurationVar(&runsStatsSince, "since", 24*time.Hour, "stats window")
	runsLinksCmd.Flags().StringVar(&runsLinksTicker, "ticker", "", "filter by ticker symbol")
	runsLinksCmd.Flags().IntVar(&runsLinksLimit, "limit", 50, "max links to list")

	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsLinksCmd)
	rootCmd.AddCommand(runsCmd)
}
