package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var showSources bool

var askCmd = &cobra.Command{
	Use:   "ask [document-id] [question]",
	Short: "Ask a question about an indexed document",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		answer, err := current.QA.Ask(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if showSources {
			return printJSON(cmd, answer)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, answer.Exchange.Answer)
		fmt.Fprintf(out, "\nconfidence: %.2f  citations: %s\n",
			answer.Exchange.Confidence, strings.Join(answer.Exchange.CitationList(), ", "))
		return nil
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [document-id]",
	Short: "List suggested questions for a classified document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		questions, err := current.QA.SuggestedQuestions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, q := range questions {
			fmt.Fprintln(cmd.OutOrStdout(), q)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [document-id]",
	Short: "Show earlier questions and answers, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := current.QA.History(cmd.Context(), args[0], 0)
		if err != nil {
			return err
		}
		return printJSON(cmd, history)
	},
}

func init() {
	askCmd.Flags().BoolVar(&showSources, "sources", false, "print the full answer with retrieved sources as JSON")
	rootCmd.AddCommand(askCmd, suggestCmd, historyCmd)
}
