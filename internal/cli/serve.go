package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket Q&A server",
	Long: `Serve the document Q&A session protocol over a websocket endpoint.
Clients upload documents and ask questions over a single persistent
connection; each upload triggers a full re-ingestion of the document
directory.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

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

	srv := server.New(cfg, ingestor, newQueryProcessor(cfg, manager), manager)
	return srv.ListenAndServe()
}
