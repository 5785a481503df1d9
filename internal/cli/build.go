package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/internal/indexing"
	"github.com/diwan-editor/docsearch/internal/logger"
	"github.com/diwan-editor/docsearch/internal/searchindex"
	"github.com/diwan-editor/docsearch/internal/source"
)

type buildOptions struct {
	output      string
	asJSON      bool
	name        string
	splitLevel  int
	workers     int
	boolean     string
	noExpand    bool
	limit       int
	teaserWords int
	watch       bool
}

// NewCmdBuild returns the command generating a search index from a
// documentation directory.
func NewCmdBuild(v *viper.Viper) *cobra.Command {
	opts := buildOptions{}

	cmd := &cobra.Command{
		Use:   "build <dir> [-o searchindex.js] [--json]",
		Short: "Generate a search index from markdown and HTML chapters.",
		Long: heredoc.Doc(`
			Splits every chapter under <dir> into one document per heading and
			writes the index documentation sites load for client-side search.

			Chapters and their order come from SUMMARY.md when <dir> has one,
			otherwise every .md and .html file is a chapter, in path order.

			  docsearch build ./book/src -o book/searchindex.js
			  docsearch build ./book/src -o searchindex.json
			  docsearch build ./docs --bool AND --no-expand --limit 10
			  docsearch build ./book/src -o book/searchindex.js --watch
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// flag or DOCSEARCH_BUILD_WORKERS
			opts.workers = v.GetInt("build.workers")
			return runBuild(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "searchindex.js", "File to write the index to.")
	flags.BoolVar(&opts.asJSON, "json", false, "Write bare JSON instead of the searchindex.js wrapper (default for .json outputs).")
	flags.StringVar(&opts.name, "name", "", "Index name recorded in logs (defaults to the directory name).")
	flags.IntVar(&opts.splitLevel, "split-level", source.DefaultSplitLevel, "Deepest heading level that starts a new document.")
	flags.IntVar(&opts.workers, "workers", runtime.NumCPU(), "Parallel parsing and analysis workers.")
	flags.StringVar(&opts.boolean, "bool", config.BoolOR, "Default combination of query terms, OR or AND.")
	flags.BoolVar(&opts.noExpand, "no-expand", false, "Do not match indexed words that merely start with a query term.")
	flags.IntVar(&opts.limit, "limit", 30, "Maximum number of results shown by the site.")
	flags.IntVar(&opts.teaserWords, "teaser-words", 30, "Words per result teaser.")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "Rebuild whenever a chapter changes, until interrupted.")
	_ = v.BindPFlag("build.workers", flags.Lookup("workers"))

	return cmd
}

func runBuild(cmd *cobra.Command, dir string, opts buildOptions) error {
	if err := buildOnce(cmd, dir, opts); err != nil || !opts.watch {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := source.NewWatcher(dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	defer watcher.Close()

	log := logger.WithComponent("cli")
	fmt.Fprintln(cmd.OutOrStdout(), "watching "+dir)
	err = watcher.Run(ctx, func(paths []string) error {
		log.Info("chapters changed", "paths", paths)
		// a broken chapter should not end the watch
		if err := buildOnce(cmd, dir, opts); err != nil {
			log.Error("rebuild failed", "error", err)
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func buildOnce(cmd *cobra.Command, dir string, opts buildOptions) error {
	ctx := cmd.Context()
	log := logger.WithComponent("cli")
	start := time.Now()

	name := opts.name
	if name == "" {
		name = filepath.Base(filepath.Clean(dir))
	}
	settings := config.DefaultIndexSettings(name)
	settings.Search.Bool = strings.ToUpper(opts.boolean)
	settings.Search.Expand = !opts.noExpand
	settings.Results.LimitResults = opts.limit
	settings.Results.TeaserWordCount = opts.teaserWords

	loader := source.NewLoader()
	loader.SplitLevel = opts.splitLevel
	loader.Workers = opts.workers
	docs, err := loader.LoadDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("loading %s: %w", dir, err)
	}

	bulk := indexing.DefaultBulkIndexingConfig()
	bulk.WorkerCount = opts.workers
	bulk.ProgressCallback = func(processed, total int, message string) {
		log.Debug("indexing", "processed", processed, "total", total, "message", message)
	}
	idx, err := indexing.BuildIndex(ctx, settings, docs, bulk)
	if err != nil {
		return err
	}

	asJS := !opts.asJSON && !strings.EqualFold(filepath.Ext(opts.output), ".json")
	if err := searchindex.WriteFile(opts.output, idx, asJS); err != nil {
		return err
	}

	stats := idx.Stats()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("docsearch build"))
	fmt.Fprintln(out, labelStyle.Render("output")+opts.output)
	fmt.Fprintln(out, labelStyle.Render("documents")+fmt.Sprint(stats.Documents))
	for _, field := range idx.Inverted.Fields {
		fmt.Fprintln(out, labelStyle.Render(field+" tokens")+fmt.Sprint(stats.TokensPerField[field]))
	}
	fmt.Fprintln(out, labelStyle.Render("took")+time.Since(start).Round(time.Millisecond).String())
	return nil
}
