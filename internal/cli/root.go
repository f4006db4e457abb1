package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"docrag/config"
)

var (
	cfgFile string
	cfg     *config.Config
	workDir string
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Document Q&A - ingest documents and answer questions grounded in them",
	Long: `docrag ingests PDF, TXT and DOCX documents into a persistent vector
index and answers questions grounded strictly in the indexed content.

Example usage:
  docrag ingest                      # Extract, chunk and index all documents
  docrag query -q "list all tickets" # Ask a question against the index
  docrag serve                       # Run the websocket Q&A server`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if workDir == "" {
			workDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(workDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, err := log.ParseLevel(cfg.Logging.Level); err == nil {
			log.SetLevel(level)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "d", "", "working directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}
