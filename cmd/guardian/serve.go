package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"guardian/internal/audit"
	"guardian/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interactive audit dashboard",
	Long: `Serves the dashboard and the audit WebSocket.

Connect to ws://<addr>/ws and send the text message "run" to audit the
next transaction; progress events stream back as JSON frames. Each
connection cycles through the transaction CSV independently.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	// Index contracts at boot when the knowledge base is empty; an
	// existing index is reused as-is.
	indexer := newIndexer(cfg, kb)
	if count, err := kb.Count(); err == nil && count == 0 {
		if n, err := indexer.Reindex(ctx); err != nil {
			logger.Warn("contract indexing failed", zap.Error(err))
		} else {
			logger.Info("contract knowledge base built", zap.Int("chunks", n))
		}
	}

	if cfg.Data.WatchContracts {
		go func() {
			if err := indexer.Watch(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("contract watcher stopped", zap.Error(err))
			}
		}()
	}

	auditor, err := buildAuditor(cfg, kb)
	if err != nil {
		return err
	}

	source := transactionSource(cfg)
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(addr, cfg.Server.StaticDir, func() *audit.Session {
		return audit.NewSession(source, auditor)
	})

	logger.Info("guardian serving",
		zap.String("addr", addr),
		zap.String("static", cfg.Server.StaticDir))
	return srv.Run(ctx)
}
