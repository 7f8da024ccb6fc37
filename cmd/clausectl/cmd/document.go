package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"clausewise/internal/app"
	"clausewise/internal/model"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file-path]",
	Short: "Upload a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := upload(cmd, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, doc)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file-path]",
	Short: "Upload a document, run the whole pipeline and print the analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := upload(cmd, args[0])
		if err != nil {
			return err
		}
		if _, err := current.Coordinator.Process(cmd.Context(), doc.ID); err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
		view, err := current.Coordinator.Analysis(cmd.Context(), doc.ID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "document:  %s (%s)\n", view.DocumentID, view.FileName)
		fmt.Fprintf(out, "type:      %s\n", view.DocumentType)
		if view.Summary != nil {
			fmt.Fprintf(out, "risk:      %s\n\n%s\n\n", view.Summary.OverallRisk, view.Summary.Summary)
			for _, f := range view.Summary.KeyFindings.Data() {
				fmt.Fprintf(out, "  * %s\n", f)
			}
		}
		fmt.Fprintln(out)
		for _, c := range view.Clauses {
			fmt.Fprintf(out, "%-4s %-6s %s\n", c.ClauseID, c.RiskLevel, c.ClauseType.Label())
		}
		fmt.Fprintf(out, "\n%s\n", view.Disclaimer)
		return nil
	},
}

func upload(cmd *cobra.Command, path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return current.Coordinator.Upload(cmd.Context(), app.UploadInput{
		FileName: filepath.Base(path),
		Data:     data,
	})
}

var processCmd = &cobra.Command{
	Use:   "process [document-id]",
	Short: "Run every remaining stage of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := current.Coordinator.Process(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, doc)
	},
}

var advanceCmd = &cobra.Command{
	Use:   "advance [document-id] [stage]",
	Short: "Run a single stage",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, err := model.ParseStage(args[1])
		if err != nil {
			return err
		}
		doc, err := current.Coordinator.Advance(cmd.Context(), args[0], stage)
		if err != nil {
			return err
		}
		return printJSON(cmd, doc)
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry [document-id]",
	Short: "Rerun the stage a failed document stopped at",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := current.Coordinator.Retry(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, doc)
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex [document-id]",
	Short: "Rebuild the embeddings of a ready document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := current.Coordinator.Reindex(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, doc)
	},
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess [document-id] [from-stage]",
	Short: "Discard artifacts from a stage on and run the pipeline again",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := model.ParseStage(args[1])
		if err != nil {
			return err
		}
		doc, err := current.Coordinator.Reprocess(cmd.Context(), args[0], from)
		if err != nil {
			return err
		}
		return printJSON(cmd, doc)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [document-id]",
	Short: "Show the stage of a document, or list documents when no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			docs, err := current.Coordinator.ListDocuments(cmd.Context(), 50, 0)
			if err != nil {
				return err
			}
			return printJSON(cmd, docs)
		}
		status, err := current.Coordinator.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, status)
	},
}

var analysisCmd = &cobra.Command{
	Use:   "analysis [document-id]",
	Short: "Print clauses, risks and the summary of an analyzed document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := current.Coordinator.Analysis(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, view)
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd, analyzeCmd, processCmd, advanceCmd, retryCmd, reindexCmd, reprocessCmd, statusCmd, analysisCmd)
}
