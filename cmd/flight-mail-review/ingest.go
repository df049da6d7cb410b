package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"flight-mail-review-go/internal/app"
	"flight-mail-review-go/internal/display"
	"flight-mail-review-go/internal/fetcher"
)

var ingestDir string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Pull once from the mailbox and store new candidates",
	Long:  "Fetches from the configured mailbox source, or from a directory of .eml files with --dir, and ingests the flight confirmation candidates.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		var source fetcher.EmailFetcher = a.Fetcher
		if ingestDir != "" {
			source = fetcher.NewEMLDirFetcher(ingestDir)
			defer source.Close()
		}
		if source == nil {
			return fmt.Errorf("no mailbox source configured; set mailbox.source or pass --dir")
		}

		emails, err := source.FetchNewEmails(cmd.Context())
		a.Metrics.ObserveFetch(err)
		if err != nil {
			return fmt.Errorf("fetch emails: %w", err)
		}

		result, err := a.Review.IngestEmails(cmd.Context(), emails)
		if err != nil {
			return fmt.Errorf("ingest emails: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		display.IngestResult(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "Directory of .eml files to ingest instead of the configured source")
	rootCmd.AddCommand(ingestCmd)
}
