package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/resumatch/internal/metrics"
	ingestuc "github.com/kailas-cloud/resumatch/internal/usecase/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a JSONL or CSV company file into the corpus",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("file")
		workers, _ := cmd.Flags().GetInt("workers")
		formatName, _ := cmd.Flags().GetString("format")

		format, err := ingestFormat(formatName, path)
		if err != nil {
			return err
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		metrics.Register()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := buildComponents(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer c.close()

		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()

		opts := ingestuc.Options{Workers: cfg.Ingest.Workers, LogEvery: cfg.Ingest.LogEvery, Format: format}
		if workers > 0 {
			opts.Workers = workers
		}

		svc := ingestuc.New(c.embedder, c.companies, opts, logger)
		summary, err := svc.Run(ctx, f)
		if encErr := printJSON(cmd, summary); encErr != nil {
			return encErr
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringP("file", "f", "", "company file: JSONL with one company per line, or CSV with a header row")
	ingestCmd.Flags().String("format", "", "input format, jsonl or csv (default from the file extension)")
	ingestCmd.Flags().IntP("workers", "w", 0, "concurrent embed+upsert workers (default from config)")
	_ = ingestCmd.MarkFlagRequired("file")
}

// ingestFormat resolves the --format flag, falling back to the file extension.
func ingestFormat(name, path string) (ingestuc.Format, error) {
	if name == "" && strings.EqualFold(filepath.Ext(path), ".csv") {
		return ingestuc.FormatCSV, nil
	}
	return ingestuc.ParseFormat(name)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
