package service

import (
	"bibscout/internal/core/domain/models"
	"bibscout/internal/core/domain/ports"
)

// Reconcile filters resolved candidates against the catalog index and
// returns only works not already present, in accumulation order. It is a
// pure filter: the index is never mutated, appending the records to the
// store is the caller's responsibility. Duplicate keys within one call are
// suppressed so the caller can append the output blindly.
func Reconcile(candidates []models.WorkCandidate, index ports.CatalogIndex) []models.NewWork {
	var out []models.NewWork
	emitted := make(map[string]struct{})

	for _, c := range candidates {
		key := models.WorkKey(c.Title, c.PrimaryAuthor())
		if index.Has(key) {
			continue
		}
		if _, dup := emitted[key]; dup {
			continue
		}
		emitted[key] = struct{}{}
		out = append(out, models.NewWork{WorkCandidate: c, Key: key})
	}
	return out
}
