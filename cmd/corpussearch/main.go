package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/adrianmoreno/corpussearch/internal/httpapi"
	"github.com/adrianmoreno/corpussearch/internal/ingest"
	"github.com/adrianmoreno/corpussearch/internal/lexicon"
	"github.com/adrianmoreno/corpussearch/internal/query"
	"github.com/adrianmoreno/corpussearch/internal/repository"
)

// setupLogger configures the default slog logger based on debug mode,
// following cmd/sift's setupLogger.
func setupLogger(debug bool) *slog.Logger {
	level := slog.LevelError
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// openRepo opens the Badger-backed repository at dbDir, creating it if
// absent.
func openRepo(dbDir string) (repository.Repository, error) {
	repo, err := repository.OpenBadger(dbDir)
	if err != nil {
		return nil, fmt.Errorf("open repository at %q: %w", dbDir, err)
	}
	return repo, nil
}

func openLexicon(stopwordsPath string) (*lexicon.Lexicon, error) {
	if stopwordsPath == "" {
		return lexicon.NewFromWords(nil), nil
	}
	lex, err := lexicon.New(stopwordsPath)
	if err != nil {
		return nil, fmt.Errorf("load stopwords: %w", err)
	}
	return lex, nil
}

var rootCmd = &cobra.Command{
	Use:   "corpussearch",
	Short: "A small-scale offline web search engine",
	Long: `corpussearch ingests a static HTML corpus (bookkeeping.json plus one
HTML file per entry), builds an inverted index with TF-IDF scoring and
link-graph authority, and serves free-text search over the result.

Examples:
  corpussearch index ./WEBPAGES_RAW --db ./corpus.db
  corpussearch serve --db ./corpus.db --addr :8080`,
}

var indexCmd = &cobra.Command{
	Use:   "index <corpus-dir>",
	Short: "Build the inverted index from a corpus directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		dbDir, _ := cmd.Flags().GetString("db")
		stopwordsPath, _ := cmd.Flags().GetString("stopwords")

		logger := setupLogger(debug)

		lex, err := openLexicon(stopwordsPath)
		if err != nil {
			return fmt.Errorf("index failed: %w", err)
		}
		lexicon.Preload()

		repo, err := openRepo(dbDir)
		if err != nil {
			return fmt.Errorf("index failed: %w", err)
		}
		defer repo.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		summary, err := ingest.Run(ctx, ingest.Options{
			CorpusDir: args[0],
			Repo:      repo,
			Lexicon:   lex,
			Logger:    logger,
			Progress:  os.Stderr,
		})
		if err != nil {
			return fmt.Errorf("index failed: %w", err)
		}

		fmt.Printf("indexed %d/%d documents (%d errors), ranked %d documents\n",
			summary.DocumentsIndexed, summary.DocumentsTotal, summary.DocumentErrors, summary.DocumentsRanked)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query HTTP endpoint over a built index",
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		dbDir, _ := cmd.Flags().GetString("db")
		addr, _ := cmd.Flags().GetString("addr")
		stopwordsPath, _ := cmd.Flags().GetString("stopwords")

		logger := setupLogger(debug)

		lex, err := openLexicon(stopwordsPath)
		if err != nil {
			return fmt.Errorf("serve failed: %w", err)
		}
		lexicon.Preload()

		repo, err := openRepo(dbDir)
		if err != nil {
			return fmt.Errorf("serve failed: %w", err)
		}
		defer repo.Close()

		engine := query.New(repo, lex)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := engine.Preload(ctx); err != nil {
			return fmt.Errorf("preload query engine: %w", err)
		}

		router := httpapi.NewRouter(engine, logger)
		srv := &http.Server{Addr: addr, Handler: router}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		logger.Info("serving", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("db", "./corpussearch.db", "Path to the repository's on-disk database directory")
	rootCmd.PersistentFlags().String("stopwords", "", "Path to a stopwords file (one word per line); empty uses no stopwords")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "Enable debug logging")

	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
