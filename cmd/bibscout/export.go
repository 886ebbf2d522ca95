package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"bibscout/internal/adapters/catalog"
	"bibscout/internal/adapters/export"
	"bibscout/internal/config"
	"bibscout/internal/core/domain/models"
)

// newExportCmd builds the export command: dump the whole catalog as a
// Zotero-importable CSV.
func newExportCmd() *cobra.Command {
	var outPath, extra string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog as Zotero-importable CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, err := catalog.Open(cfg.CatalogPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.All(cmd.Context())
			if err != nil {
				return err
			}

			works := make([]models.NewWork, 0, len(entries))
			for _, e := range entries {
				works = append(works, models.NewWork{
					WorkCandidate: models.WorkCandidate{
						ID:           e.SourceID,
						Title:        e.Title,
						Authors:      []string{e.Author},
						URL:          e.URL,
						Downloadable: e.Downloadable,
					},
					Key: e.Key,
				})
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create CSV file: %w", err)
				}
				defer f.Close()
				w = f
			}

			writer := export.NewWriter("Google Books", extra)
			return writer.Write(w, works)
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "output file (default stdout)")
	cmd.Flags().StringVar(&extra, "extra", "", "value for the Zotero Extra column")
	return cmd
}
