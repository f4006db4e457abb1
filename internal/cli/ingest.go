package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract, chunk and index all documents",
	Long: `Run the full ingestion pipeline over the configured document directory:
extract text from every PDF, TXT and DOCX file (with OCR fallback for
scanned PDFs), chunk it into passages, and rebuild the vector index.

The index is rebuilt from scratch on every run.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	if err := cfg.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create data directories: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	manager, err := newIndexManager(cfg, embedder)
	if err != nil {
		return err
	}
	defer manager.Close()

	ingestor, err := newIngestor(cfg, manager)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	ingestor.Progress = func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan]Chunking[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	fmt.Printf("Ingesting documents from %s...\n", cfg.Paths.DocumentDir)

	count, err := ingestor.Ingest()
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Passages indexed: %d\n", count)
	fmt.Printf("  Index stored at:  %s\n", cfg.Paths.IndexPath)
	return nil
}
