package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ticker-linker/internal/linker"
	"github.com/sells-group/ticker-linker/internal/model"
	"github.com/sells-group/ticker-linker/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the linking HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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

		pipeline := linker.NewPipeline(index, initFetcher(), linker.Config{
			MinConfidence:  cfg.Linker.MinConfidence,
			BatchWorkers:   cfg.Linker.BatchWorkers,
			SocialTextCap:  cfg.Linker.SocialTextCap,
			ArticleTextCap: cfg.Linker.ArticleTextCap,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(pipeline, st),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(pipeline *linker.Pipeline, st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/link", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Documents []model.ArticleText `json:"documents"`
			Persist   bool                `json:"persist"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if len(body.Documents) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "documents is required"})
			return
		}
		ensureDocIDs(body.Documents)

		start := time.Now()
		results, err := pipeline.LinkBatch(req.Context(), body.Documents)
		if err != nil {
			zap.L().Error("link request failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "link batch failed"})
			return
		}

		if body.Persist {
			if _, err := st.SaveArticles(req.Context(), body.Documents); err != nil {
				zap.L().Error("persist articles failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "persist failed"})
				return
			}
			for _, res := range results {
				if err := st.ReplaceLinks(req.Context(), res.ArticleID, res.Links); err != nil {
					zap.L().Error("persist links failed",
						zap.String("article_id", res.ArticleID),
						zap.Error(err),
					)
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "persist failed"})
					return
				}
			}
		}

		zap.L().Info("link request complete",
			zap.Int("documents", len(body.Documents)),
			zap.Bool("persist", body.Persist),
			zap.Duration("elapsed", time.Since(start)),
		)
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	})

	r.Get("/v1/metrics", func(w http.ResponseWriter, req *http.Request) {
		stats, err := st.LinkStats(req.Context(), time.Now().UTC().Add(-24*time.Hour))
		if err != nil {
			zap.L().Error("metrics query failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "metrics failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"batch": pipeline.Stats(),
			"store": stats,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
