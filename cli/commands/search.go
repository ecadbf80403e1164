package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petal-labs/oaikit/cli/config"
	"github.com/petal-labs/oaikit/core"
	"github.com/petal-labs/oaikit/providers/openai"
	"github.com/petal-labs/oaikit/search"
)

func (a *App) newSearchCommand() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Hybrid keyword and semantic search over local documents",
		Long: `Index local text into a SQLite database and query it by fusing
keyword and embedding rankings.

Examples:
  oaikit search index notes/*.md
  oaikit search index --lines faq.txt
  oaikit search query "how do I rotate keys" -k 5`,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "index database (default from config, else ~/.oaikit/search.db)")
	cmd.AddCommand(
		a.newSearchIndexCommand(&dbPath),
		a.newSearchQueryCommand(&dbPath),
		a.newSearchRemoveCommand(&dbPath),
	)
	return cmd
}

// openSearch opens the store and returns a searcher with stored documents
// loaded. The caller closes the store.
func (a *App) openSearch(ctx context.Context, dbPath string) (*search.Hybrid, *search.Store, error) {
	if dbPath == "" {
		dbPath = a.cfg.Search.DBPath
	}
	if dbPath == "" {
		dbPath = config.DefaultSearchDBPath()
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, nil, validationErr("create index directory: %w", err)
		}
	}
	store, err := search.OpenStore(dbPath)
	if err != nil {
		return nil, nil, validationErr("%w", err)
	}

	model, err := a.modelOr(core.ModelID(a.cfg.Search.EmbeddingModel), openai.ModelTextEmbedding3Small)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	p, err := a.directProvider()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	h := search.NewHybrid(p, model, search.WithStore(store), search.WithSearchLogger(a.log()))
	n, err := h.Load(ctx)
	if err != nil {
		store.Close()
		return nil, nil, validationErr("load index: %w", err)
	}
	a.log().Debug("search index loaded", zap.String("db", dbPath), zap.String("model", string(model)), zap.Int("documents", n))
	return h, store, nil
}

func (a *App) newSearchIndexCommand(dbPath *string) *cobra.Command {
	var lines bool
	cmd := &cobra.Command{
		Use:   "index <path>...",
		Short: "Add files to the index",
		Long: `Add files to the index. Each file is one document with its path as ID,
or with --lines one document per non-blank line ("-" reads stdin).
Documents whose ID is already indexed are replaced.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := a.searchDocuments(args, lines)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				return validationErr("nothing to index")
			}
			h, store, err := a.openSearch(cmd.Context(), *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := h.Index(cmd.Context(), docs...); err != nil {
				return providerErr(err)
			}
			if a.jsonOutput {
				return a.printJSON(map[string]int{"indexed": len(docs), "total": h.Len()})
			}
			fmt.Fprintf(a.stdout, "indexed %d documents (%d total)\n", len(docs), h.Len())
			return nil
		},
	}
	cmd.Flags().BoolVar(&lines, "lines", false, "one document per line")
	return cmd
}

func (a *App) searchDocuments(paths []string, lines bool) ([]search.Document, error) {
	var docs []search.Document
	for _, path := range paths {
		if lines {
			ls, err := a.readLines(path)
			if err != nil {
				return nil, err
			}
			for i, l := range ls {
				docs = append(docs, search.Document{
					ID:       fmt.Sprintf("%s:%d", path, i+1),
					Text:     l,
					Metadata: map[string]string{"source": path},
				})
			}
			continue
		}
		if path == "-" {
			return nil, validationErr(`"-" requires --lines`)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, validationErr("read %s: %w", path, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			a.log().Debug("skipping empty file", zap.String("path", path))
			continue
		}
		docs = append(docs, search.Document{
			ID:       path,
			Text:     text,
			Metadata: map[string]string{"source": path},
		})
	}
	return docs, nil
}

func (a *App) newSearchQueryCommand(dbPath *string) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Query the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, store, err := a.openSearch(cmd.Context(), *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			hits, err := h.Query(cmd.Context(), args[0], k)
			if err != nil {
				return providerErr(err)
			}
			if a.jsonOutput {
				if hits == nil {
					hits = []search.Hit{}
				}
				return a.printJSON(hits)
			}
			if len(hits) == 0 {
				fmt.Fprintln(a.stdout, "no results")
				return nil
			}
			tw := a.table()
			fmt.Fprintln(tw, "RANK\tSCORE\tKW\tVEC\tID\tTEXT")
			for i, hit := range hits {
				fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\t%s\t%s\n", i+1, hit.Score,
					rank(hit.KeywordRank), rank(hit.VectorRank), hit.ID, truncate(oneLine(hit.Text), 60))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 10, "number of results")
	return cmd
}

func (a *App) newSearchRemoveCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove documents from the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, store, err := a.openSearch(cmd.Context(), *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := h.Remove(cmd.Context(), args...); err != nil {
				return validationErr("%w", err)
			}
			fmt.Fprintf(a.stdout, "%d documents left\n", h.Len())
			return nil
		},
	}
}

func rank(r int) string {
	if r == 0 {
		return "-"
	}
	return fmt.Sprint(r)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
