package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/internal/search"
	"github.com/diwan-editor/docsearch/internal/searchindex"
	"github.com/diwan-editor/docsearch/services"
)

type queryOptions struct {
	limit       int
	and         bool
	noExpand    bool
	fields      []string
	teaserWords int
	asJSON      bool
}

// NewCmdQuery returns the command searching a generated index file.
func NewCmdQuery() *cobra.Command {
	opts := queryOptions{}

	cmd := &cobra.Command{
		Use:   "query <searchindex.js|searchindex.json> <terms...>",
		Short: "Search a generated index the way the site does.",
		Long: heredoc.Doc(`
			Runs a query against an index file with the options stored in it.
			Flags override the stored options for this query only.

			  docsearch query book/searchindex.js rust
			  docsearch query book/searchindex.js rust editor --and
			  docsearch query book/searchindex.js vim --fields title --json
		`),
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], args[1:], opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of hits (default: the index's limit_results).")
	flags.BoolVar(&opts.and, "and", false, "Require every term to match.")
	flags.BoolVar(&opts.noExpand, "no-expand", false, "Match whole words only.")
	flags.StringSliceVar(&opts.fields, "fields", nil, "Search only these fields.")
	flags.IntVar(&opts.teaserWords, "teaser-words", 0, "Words per teaser (default: the index's teaser_word_count).")
	flags.BoolVar(&opts.asJSON, "json", false, "Print the raw search result as JSON.")

	return cmd
}

func runQuery(cmd *cobra.Command, path string, terms []string, opts queryOptions) error {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx, err := searchindex.ReadFile(name, path)
	if err != nil {
		return err
	}
	svc, err := search.NewService(idx)
	if err != nil {
		return err
	}

	query := services.SearchQuery{
		QueryString:     strings.Join(terms, " "),
		Limit:           opts.limit,
		TeaserWordCount: opts.teaserWords,
	}
	if opts.and {
		query.Bool = config.BoolAND
	}
	if opts.noExpand {
		expand := false
		query.Expand = &expand
	}
	if len(opts.fields) > 0 {
		query.Fields = make(map[string]services.FieldQuery, len(opts.fields))
		for _, f := range opts.fields {
			query.Fields[f] = services.FieldQuery{}
		}
	}

	result, err := svc.Search(cmd.Context(), query)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d of %d results for %q", len(result.Hits), result.Total, query.QueryString)))
	for i, hit := range result.Hits {
		fmt.Fprintf(out, "%2d. %s %s\n", i+1, hit.Document.Title, scoreStyle.Render(fmt.Sprintf("(%.4f)", hit.Score)))
		if hit.Document.Breadcrumbs != "" {
			fmt.Fprintln(out, "    "+crumbStyle.Render(hit.Document.Breadcrumbs))
		}
		if hit.Document.URL != "" {
			fmt.Fprintln(out, "    "+urlStyle.Render(hit.Document.URL))
		}
		if hit.Teaser != "" {
			fmt.Fprintln(out, teaserStyle.Render(renderTeaser(hit.Teaser)))
		}
	}
	return nil
}
