// Package cli implements the docsearch command line.
package cli

import (
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/diwan-editor/docsearch/internal/logger"
)

// Version is set at build time.
var Version = "dev"

// NewCmdRoot returns the docsearch command with every subcommand attached.
// Flags are bound to v, which also reads DOCSEARCH_* environment variables.
func NewCmdRoot(v *viper.Viper) *cobra.Command {
	v.SetEnvPrefix("DOCSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Build, inspect and serve documentation search indexes.",
		Long: heredoc.Doc(`
			docsearch generates the searchindex.js file documentation sites load
			for client-side search, and answers queries against it.

			  docsearch build ./book/src -o book/searchindex.js
			  docsearch query book/searchindex.js rust editor
			  docsearch serve --config docsearch.yaml
		`),
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetupWriter(cmd.ErrOrStderr(), v.GetString("logging.level"), v.GetString("logging.format"))
		},
	}

	cmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error).")
	cmd.PersistentFlags().String("log-format", "text", "Log format (text or json).")
	_ = v.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))

	cmd.AddCommand(
		NewCmdBuild(v),
		NewCmdQuery(),
		NewCmdInspect(),
		NewCmdServe(v),
	)
	return cmd
}
