package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bibscout/internal/adapters/authors"
	"bibscout/internal/adapters/catalog"
	"bibscout/internal/adapters/export"
	"bibscout/internal/config"
	"bibscout/internal/core/service"
)

// newScoutCmd builds the scout command: resolve every author against the
// search API, reconcile against the catalog, append what is new.
func newScoutCmd() *cobra.Command {
	var authorsPath, csvPath, extra string

	cmd := &cobra.Command{
		Use:   "scout",
		Short: "Resolve authors against the search API and append new works to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			log := newLogger(cfg.LogLevel)
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			identities, err := authors.Load(authorsPath)
			if err != nil {
				return err
			}
			if len(identities) == 0 {
				return fmt.Errorf("no author identities found in %s", authorsPath)
			}

			store, err := catalog.Open(cfg.CatalogPath)
			if err != nil {
				return err
			}
			defer store.Close()

			index, err := store.Index(ctx)
			if err != nil {
				return err
			}

			src := service.CreateWorkSource(cfg, log)
			resolver := service.NewResolver(src, cfg, log)
			worker := service.NewWorker(resolver, index, cfg, log)

			report := worker.Run(ctx, identities)

			if err := store.Append(ctx, report.NewWorks); err != nil {
				return err
			}

			if csvPath != "" && len(report.NewWorks) > 0 {
				f, err := os.Create(csvPath)
				if err != nil {
					return fmt.Errorf("failed to create CSV file: %w", err)
				}
				writer := export.NewWriter("Google Books", extra)
				if err := writer.Write(f, report.NewWorks); err != nil {
					f.Close()
					return fmt.Errorf("failed to write CSV: %w", err)
				}
				if err := f.Close(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, ar := range report.Authors {
				switch {
				case ar.Err != nil:
					fmt.Fprintf(out, "FAILED   %s: %v\n", ar.Author.Primary(), ar.Err)
				case !ar.Complete:
					fmt.Fprintf(out, "PARTIAL  %s: %d works (%d new, %d requests) - %s\n",
						ar.Author.Primary(), ar.Found, ar.New, ar.Requests, ar.Reason)
				default:
					fmt.Fprintf(out, "COMPLETE %s: %d works (%d new, %d requests)\n",
						ar.Author.Primary(), ar.Found, ar.New, ar.Requests)
				}
			}
			fmt.Fprintf(out, "%d complete, %d partial, %d failed; %d new works appended\n",
				report.Complete, report.Partial, report.Failed, len(report.NewWorks))
			return nil
		},
	}

	cmd.Flags().StringVar(&authorsPath, "authors", "", "SPARQL results JSON file with author identities (required)")
	_ = cmd.MarkFlagRequired("authors")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write the new works to a Zotero CSV file")
	cmd.Flags().StringVar(&extra, "extra", "", "value for the Zotero Extra column")
	return cmd
}
