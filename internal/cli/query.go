package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var queryText string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask a question against the indexed documents",
	Long: `Ask a single question against the current vector index and print
the grounded answer.

Examples:
  docrag query -q "list all passenger names"
  docrag query -q "when does the booking expire"`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "question", "q", "", "question to ask (required)")
	queryCmd.MarkFlagRequired("question")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	manager, err := newIndexManager(cfg, embedder)
	if err != nil {
		return err
	}
	defer manager.Close()

	processor := newQueryProcessor(cfg, manager)

	result, err := processor.Answer(context.Background(), queryText, nil)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if result.Rejected {
		color.Yellow("%s", result.Answer)
		return nil
	}

	color.Cyan("Q: %s", queryText)
	fmt.Println(result.Answer)
	return nil
}
