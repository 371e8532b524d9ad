package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/ticker-linker/internal/linker"
	"github.com/sells-group/ticker-linker/internal/model"
	"github.com/sells-group/ticker-linker/internal/scrape"
	"github.com/sells-group/ticker-linker/internal/store"
)

var (
	linkInputPath string
	linkFromStore bool
	linkSource    string
	linkLimit     int
	linkDryRun    bool
	linkNoFetch   bool
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Resolve ticker mentions in a batch of documents",
	Long:  "Runs the linking pipeline over documents from a JSON file or the store, and persists the resulting ticker links.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if linkInputPath == "" && !linkFromStore {
			return eris.New("either --input or --from-store is required")
		}

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
			return eris.Wrap(err, "load ticker universe")
		}
		index, err := linker.BuildAliasIndex(tickers)
		if err != nil {
			return err
		}

		docs, err := loadLinkDocs(ctx, st)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Fprintln(os.Stderr, "No documents to link.")
			return nil
		}

		pipeline := linker.NewPipeline(index, initFetcher(), linker.Config{
			MinConfidence:  cfg.Linker.MinConfidence,
			BatchWorkers:   cfg.Linker.BatchWorkers,
			SocialTextCap:  cfg.Linker.SocialTextCap,
			ArticleTextCap: cfg.Linker.ArticleTextCap,
		})

		start := time.Now()
		results, err := pipeline.LinkBatch(ctx, docs)
		if err != nil {
			return eris.Wrap(err, "link batch")
		}

		linked := 0
		for _, r := range results {
			if len(r.Links) > 0 {
				linked++
			}
			if linkDryRun {
				continue
			}
			if err := st.ReplaceLinks(ctx, r.ArticleID, r.Links); err != nil {
				return eris.Wrap(err, "persist links")
			}
		}

		stats := pipeline.Stats()
		zap.L().Info("link batch complete",
			zap.Int("documents", len(docs)),
			zap.Int("documents_linked", linked),
			zap.Int64("links_emitted", stats.LinksEmitted),
			zap.Int64("candidates_seen", stats.CandidatesSeen),
			zap.Int64("candidates_admitted", stats.CandidatesAdmitted),
			zap.Int64("sub_threshold_dropped", stats.SubThresholdDropped),
			zap.Int64("slow_pass_runs", stats.SlowPassRuns),
			zap.Int64("fetch_failures", stats.FetchFailures),
			zap.Bool("dry_run", linkDryRun),
			zap.Duration("elapsed", time.Since(start)),
		)

		if linkDryRun {
			return printLinkResults(results)
		}
		return nil
	},
}

// loadLinkDocs reads the batch from --input JSON or from stored articles.
// Documents read from a file are also saved so their links have a parent
// row.
func loadLinkDocs(ctx context.Context, st store.Store) ([]model.ArticleText, error) {
	if linkFromStore {
		return st.ListArticles(ctx, store.ArticleFilter{
			Source:   model.ArticleSource(linkSource),
			Unlinked: true,
			Limit:    linkLimit,
		})
	}

	data, err := os.ReadFile(linkInputPath)
	if err != nil {
		return nil, eris.Wrap(err, "read input file")
	}
	var docs []model.ArticleText
	switch strings.ToLower(filepath.Ext(linkInputPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &docs)
	default:
		err = json.Unmarshal(data, &docs)
	}
	if err != nil {
		return nil, eris.Wrap(err, "parse input file")
	}
	ensureDocIDs(docs)

	if !linkDryRun {
		if _, err := st.SaveArticles(ctx, docs); err != nil {
			return nil, eris.Wrap(err, "save input articles")
		}
	}
	return docs, nil
}

// ensureDocIDs assigns generated IDs to documents that arrived without
// one, so their links have a key to persist under.
func ensureDocIDs(docs []model.ArticleText) {
	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = uuid.NewString()
		}
	}
}

// initFetcher builds the slow-pass content fetcher, or nil when fetching
// is disabled.
func initFetcher() linker.Fetcher {
	if linkNoFetch {
		return nil
	}
	scraper := scrape.NewScraper(scrape.Options{
		Timeout:          time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
		MaxContentLength: cfg.Scrape.MaxContentLength,
		PerHostRPS:       cfg.Scrape.PerHostRPS,
		MaxAttempts:      cfg.Scrape.MaxAttempts,
		BlockedHosts:     cfg.Scrape.BlockedHosts,
	})
	return scrape.NewPool(scraper, cfg.Scrape.Workers)
}

func printLinkResults(results []model.ArticleLinks) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func init() {
	linkCmd.Flags().StringVar(&linkInputPath, "input", "", "path to JSON file of documents")
	linkCmd.Flags().BoolVar(&linkFromStore, "from-store", false, "link unlinked articles from the store")
	linkCmd.Flags().StringVar(&linkSource, "source", "", "restrict --from-store to one source")
	linkCmd.Flags().IntVar(&linkLimit, "limit", 0, "max documents to link (0 = all)")
	linkCmd.Flags().BoolVar(&linkDryRun, "dry-run", false, "print links instead of persisting them")
	linkCmd.Flags().BoolVar(&linkNoFetch, "no-fetch", false, "disable slow-pass URL fetching")
	rootCmd.AddCommand(linkCmd)
}
