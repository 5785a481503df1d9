package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/index"
	"github.com/diwan-editor/docsearch/internal/searchindex"
)

type inspectOptions struct {
	field  string
	prefix string
	asJSON bool
}

// tokenInfo is one line of the token listing.
type tokenInfo struct {
	Token string   `json:"token"`
	DF    int      `json:"df"`
	Refs  []string `json:"refs"`
}

// NewCmdInspect returns the command summarising an index file.
func NewCmdInspect() *cobra.Command {
	opts := inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <searchindex.js|searchindex.json>",
		Short: "Show the settings, documents and tokens of an index.",
		Long: heredoc.Doc(`
			Prints the options stored in an index and its document and token
			counts. With --field, lists the tokens of that field together with
			their document frequency and the documents they occur in.

			  docsearch inspect book/searchindex.js
			  docsearch inspect book/searchindex.js --field title
			  docsearch inspect book/searchindex.js --field body --prefix edit
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.field, "field", "", "List the tokens of this field.")
	flags.StringVar(&opts.prefix, "prefix", "", "Only list tokens starting with this prefix.")
	flags.BoolVar(&opts.asJSON, "json", false, "Print as JSON.")

	return cmd
}

func runInspect(cmd *cobra.Command, path string, opts inspectOptions) error {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx, err := searchindex.ReadFile(name, path)
	if err != nil {
		return err
	}

	var tokens []tokenInfo
	if opts.field != "" {
		trie := idx.Inverted.Field(opts.field)
		if trie == nil {
			return fmt.Errorf("index has no field %q (fields: %s)", opts.field, strings.Join(idx.Inverted.Fields, ", "))
		}
		tokens = listTokens(trie, opts.prefix)
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if opts.field != "" {
			return enc.Encode(tokens)
		}
		return enc.Encode(struct {
			Stats    searchindex.Stats    `json:"stats"`
			Settings config.IndexSettings `json:"settings"`
			URLs     []string             `json:"doc_urls"`
		}{idx.Stats(), idx.Settings, idx.DocURLs()})
	}

	if opts.field != "" {
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d tokens in %s", len(tokens), opts.field)))
		for _, t := range tokens {
			fmt.Fprintf(out, "%-24s df=%-3d %s\n", t.Token, t.DF, strings.Join(t.Refs, ","))
		}
		return nil
	}

	stats := idx.Stats()
	fmt.Fprintln(out, titleStyle.Render(path))
	fmt.Fprintln(out, labelStyle.Render("version")+idx.Version)
	fmt.Fprintln(out, labelStyle.Render("documents")+fmt.Sprint(stats.Documents))
	fmt.Fprintln(out, labelStyle.Render("pipeline")+strings.Join(stats.Pipeline, ", "))
	fmt.Fprintln(out, labelStyle.Render("bool")+stats.Bool)
	fmt.Fprintln(out, labelStyle.Render("expand")+fmt.Sprint(stats.Expand))
	fmt.Fprintln(out, labelStyle.Render("limit")+fmt.Sprint(idx.Settings.Results.LimitResults))
	fmt.Fprintln(out, labelStyle.Render("teaser words")+fmt.Sprint(idx.Settings.Results.TeaserWordCount))
	for _, field := range idx.Inverted.Fields {
		fmt.Fprintln(out, labelStyle.Render(field)+
			fmt.Sprintf("%d tokens, boost %g", stats.TokensPerField[field], idx.Settings.Boost(field)))
	}
	for _, doc := range idx.Documents.Ordered() {
		fmt.Fprintf(out, "%4s  %s\n", doc.Ref(), crumbStyle.Render(doc.Breadcrumbs))
	}
	return nil
}

func listTokens(trie *index.Trie, prefix string) []tokenInfo {
	var tokens []tokenInfo
	for _, token := range trie.Expand(prefix) {
		posting, _ := trie.Get(token)
		tokens = append(tokens, tokenInfo{Token: token, DF: len(posting), Refs: posting.Refs()})
	}
	return tokens
}
