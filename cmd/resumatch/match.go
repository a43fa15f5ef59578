package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/resumatch/internal/domain/access"
	"github.com/kailas-cloud/resumatch/internal/domain/match/filter"
	"github.com/kailas-cloud/resumatch/internal/extract"
	chiTransport "github.com/kailas-cloud/resumatch/internal/transport/chi"
	matchuc "github.com/kailas-cloud/resumatch/internal/usecase/match"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a local resume file against the corpus and print the ranking",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("file")
		rawFilters, _ := cmd.Flags().GetString("filters")
		authenticated, _ := cmd.Flags().GetBool("authenticated")

		// Fail on a bad filter before any database or provider call.
		if _, err := filter.Parse([]byte(rawFilters)); err != nil {
			return err
		}

		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		text, err := extract.Extract(data, "")
		if err != nil {
			return err
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		c, err := buildComponents(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer c.close()

		policy, err := access.NewPolicy(cfg.Access.AnonymousLimit, cfg.Access.AuthenticatedLimit)
		if err != nil {
			return err
		}

		out, err := matchuc.New(c.embedder, c.companies, policy, logger).Match(ctx, matchuc.Request{
			Text:          text,
			RawFilters:    []byte(rawFilters),
			Authenticated: authenticated,
			Subject:       "cli",
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, chiTransport.NewMatchResponse(out))
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("file", "f", "", "resume file (PDF, DOCX or plain text)")
	matchCmd.Flags().String("filters", "", `JSON filter object, e.g. {"industry":["fintech"],"minSimilarity":0.3}`)
	matchCmd.Flags().Bool("authenticated", false, "use the authenticated result tier")
	_ = matchCmd.MarkFlagRequired("file")
}
