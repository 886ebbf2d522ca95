package authors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"bibscout/internal/core/domain/models"
)

// The knowledge base hands us a standard SPARQL JSON results document:
// results.bindings[] with authorLabel, and optionally authorAltLabel
// (variant names concatenated with "|"), viaf and date_of_death. Query
// construction and execution stay with the collaborator; this only parses
// its output.

type bindingValue struct {
	Value string `json:"value"`
}

type resultsDoc struct {
	Results struct {
		Bindings []map[string]bindingValue `json:"bindings"`
	} `json:"results"`
}

// Load reads author identities from a SPARQL results file.
func Load(path string) ([]models.AuthorIdentity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open authors file: %w", err)
	}
	defer f.Close()

	identities, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse authors file %s: %w", path, err)
	}
	return identities, nil
}

// Parse decodes a SPARQL JSON results document into author identities.
// Bindings without a usable authorLabel are skipped.
func Parse(r io.Reader) ([]models.AuthorIdentity, error) {
	var doc resultsDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	identities := make([]models.AuthorIdentity, 0, len(doc.Results.Bindings))
	for _, b := range doc.Results.Bindings {
		label := strings.TrimSpace(b["authorLabel"].Value)
		if label == "" {
			continue
		}

		names := []string{label}
		for _, alt := range strings.Split(b["authorAltLabel"].Value, "|") {
			alt = strings.TrimSpace(alt)
			if alt != "" && alt != label {
				names = append(names, alt)
			}
		}

		identities = append(identities, models.AuthorIdentity{
			Names:     names,
			VIAF:      strings.TrimSpace(b["viaf"].Value),
			DeathDate: strings.TrimSpace(b["date_of_death"].Value),
		})
	}
	return identities, nil
}
