package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Rebuild the contract knowledge base",
	Long: `Clears the knowledge base, then chunks and embeds every contract
document (.md, .txt) found in the contract directory.

With --watch, stays running and re-indexes whenever a contract changes.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "watch the contract directory and re-index on change")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	kb, err := openKnowledgeBase(cfg)
	if err != nil {
		return err
	}
	defer kb.Close()

	ctx, cancel := signalContext()
	defer cancel()

	indexer := newIndexer(cfg, kb)
	n, err := indexer.Reindex(ctx)
	if err != nil {
		return err
	}

	if dir, ok := indexer.ResolveDir(); ok {
		fmt.Printf("Indexed %d contract chunks from %s\n", n, dir)
	} else {
		fmt.Println("No contract directory found; knowledge base is empty.")
	}

	if !ingestWatch {
		return nil
	}

	logger.Info("watching for contract changes", zap.Strings("dirs", cfg.Data.ContractDirs))
	fmt.Println("Watching for contract changes. Ctrl-C to stop.")
	if err := indexer.Watch(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
