package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"clausewise/internal/app"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect and search the reference law corpus",
}

var corpusFile string

var corpusListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List corpus entries, from --file when given",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipBootstrap: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		entries := app.BuiltinCorpus()
		path := corpusFile
		if path == "" {
			path = cfg.Corpus.Path
		}
		if path != "" {
			var err error
			if entries, err = app.LoadCorpusEntries(path); err != nil {
				return err
			}
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s (%s)\n", e.ID, e.Title, e.Source)
		}
		return nil
	},
}

var corpusSearchTopK int

var corpusSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the corpus by similarity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := current.QA.SearchCorpus(cmd.Context(), args[0], corpusSearchTopK)
		if err != nil {
			return err
		}
		return printJSON(cmd, sources)
	},
}

func init() {
	corpusListCmd.Flags().StringVar(&corpusFile, "file", "", "TOML corpus file to validate and list")
	corpusSearchCmd.Flags().IntVarP(&corpusSearchTopK, "top", "k", 3, "number of results")
	corpusCmd.AddCommand(corpusListCmd, corpusSearchCmd)
	rootCmd.AddCommand(corpusCmd)
}
