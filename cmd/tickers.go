package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ticker-linker/internal/linker"
	"github.com/sells-group/ticker-linker/internal/model"
)

var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "Manage the ticker universe",
	Long:  "Commands for importing and inspecting the set of tracked ticker symbols.",
}

// -- tickers import --

var tickersImportCSVPath string

var tickersImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import ticker symbols from CSV",
	Long:  "Reads a CSV with columns symbol,display_name and upserts it into the store. Ambiguity tiers are derived from the symbol text.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		tickers, err := readTickerCSV(tickersImportCSVPath)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		n, err := st.UpsertTickers(ctx, tickers)
		if err != nil {
			return eris.Wrap(err, "tickers import")
		}

		zap.L().Info("ticker import complete",
			zap.Int("upserted", n),
			zap.String("csv", tickersImportCSVPath),
		)
		return nil
	},
}

// -- tickers list --

var tickersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked ticker symbols",
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

		tickers, err := st.ListTickers(ctx)
		if err != nil {
			return eris.Wrap(err, "tickers list")
		}
		if len(tickers) == 0 {
			fmt.Fprintln(os.Stderr, "No tickers imported.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tNAME\tTIER")
		for _, t := range tickers {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.Symbol, t.DisplayName, t.Tier)
		}
		return w.Flush()
	},
}

// readTickerCSV parses symbol,display_name rows. A header row is detected
// by a non-ticker first cell and skipped.
func readTickerCSV(path string) ([]model.TickerSymbol, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open ticker csv")
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var tickers []model.TickerSymbol
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read ticker csv")
		}
		if len(record) == 0 {
			continue
		}

		symbol := strings.ToUpper(strings.TrimSpace(record[0]))
		if symbol == "" || strings.EqualFold(symbol, "symbol") {
			continue
		}

		t := model.TickerSymbol{Symbol: symbol, Tier: linker.ClassifyTier(symbol)}
		if len(record) > 1 {
			t.DisplayName = strings.TrimSpace(record[1])
		}
		tickers = append(tickers, t)
	}

	if len(tickers) == 0 {
		return nil, eris.Errorf("no tickers found in %s", path)
	}
	return tickers, nil
}

func init() {
	tickersImportCmd.Flags().StringVar(&tickersImportCSVPath, "csv", "", "path to CSV file (required)")
	_ = tickersImportCmd.MarkFlagRequired("csv")

	tickersCmd.AddCommand(tickersImportCmd)
	tickersCmd.AddCommand(tickersListCmd)
	rootCmd.AddCommand(tickersCmd)
}
