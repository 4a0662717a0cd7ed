// guardian audits vendor invoices against contract terms. It serves an
// interactive audit dashboard over WebSocket, runs batch audits from the
// terminal, and maintains the contract knowledge base the audits draw on.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"guardian/internal/audit"
	"guardian/internal/config"
	"guardian/internal/embedding"
	"guardian/internal/ingest"
	"guardian/internal/invoice"
	"guardian/internal/logging"
	"guardian/internal/oracle"
	"guardian/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	promptPack string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Commercial Guardian - AI invoice auditor",
	Long: `Commercial Guardian audits vendor invoices against contract terms.

Contracts are chunked, embedded, and stored in a local knowledge base.
Each audit retrieves the most relevant clauses, asks the judgment oracle
for a ruling, and routes the invoice: approve on an explicit APPROVE,
dispute on everything else.

Commands:
  serve   Run the interactive dashboard and WebSocket audit stream
  audit   Audit every transaction in the CSV and print a report
  ingest  Rebuild the contract knowledge base from disk`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := logging.Initialize("."); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "guardian.json", "path to config file")
	rootCmd.PersistentFlags().StringVar(&promptPack, "prompts", "", "path to a YAML prompt template pack")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(ingestCmd)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// loadConfig loads and validates the configuration file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openKnowledgeBase opens the contract store and attaches the embedding
// engine when one is configured.
func openKnowledgeBase(cfg *config.Config) (*store.ContractStore, error) {
	s, err := store.NewContractStore(cfg.Data.KnowledgeBase)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}

	engine, err := embedding.NewEngine(embedding.Config{
		Provider: cfg.Embedding.Provider,
		Endpoint: cfg.Embedding.BaseURL,
		Model:    cfg.Embedding.Model,
		APIKey:   cfg.Embedding.APIKey,
	})
	if err != nil {
		logger.Warn("embedding engine unavailable, retrieval degrades to keyword search", zap.Error(err))
	} else {
		s.SetEmbeddingEngine(engine)
		logger.Info("embedding engine ready", zap.String("engine", engine.Name()))
	}

	return s, nil
}

// buildAuditor assembles the audit pipeline from configuration.
func buildAuditor(cfg *config.Config, kb *store.ContractStore) (*audit.Auditor, error) {
	o, err := oracle.New(oracle.Config{
		Provider: cfg.Oracle.Provider,
		Model:    cfg.Oracle.Model,
		BaseURL:  cfg.Oracle.BaseURL,
		APIKey:   cfg.Oracle.APIKey,
		Timeout:  cfg.Oracle.Timeout,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("judgment oracle ready", zap.String("oracle", o.Name()))

	templates := audit.DefaultTemplates()
	if promptPack != "" {
		templates, err = audit.LoadTemplates(promptPack)
		if err != nil {
			return nil, err
		}
	}
	composer, err := audit.NewComposer(templates)
	if err != nil {
		return nil, err
	}

	var searcher audit.SimilaritySearcher
	if kb != nil {
		searcher = kb
	}
	retriever := audit.NewRetriever(searcher, cfg.Audit.TopK)

	return audit.NewAuditor(o, retriever, composer).WithPace(cfg.GetPace()), nil
}

// transactionSource builds the CSV-backed transaction source.
func transactionSource(cfg *config.Config) invoice.Source {
	return &invoice.CSVSource{Paths: cfg.Data.TransactionPaths}
}

// newIndexer builds the contract indexer from configuration.
func newIndexer(cfg *config.Config, kb *store.ContractStore) *ingest.Indexer {
	return ingest.NewIndexer(kb, cfg.Data.ContractDirs, cfg.Audit.ChunkSize)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
