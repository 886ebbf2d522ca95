package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"bibscout/internal/config"
	"bibscout/internal/core/domain/models"
	"bibscout/internal/core/domain/ports"
)

// AuthorReport is the per-author line of the final run report.
type AuthorReport struct {
	Author   models.AuthorIdentity `json:"author"`
	Found    int                   `json:"found"`
	New      int                   `json:"new"`
	Requests int                   `json:"requests"`
	Complete bool                  `json:"complete"`
	Reason   string                `json:"reason,omitempty"`
	Err      error                 `json:"-"`
}

// Report summarizes one batch run: which authors resolved completely,
// which partially and why, and which failed outright.
type Report struct {
	Authors  []AuthorReport   `json:"authors"`
	NewWorks []models.NewWork `json:"new_works"`
	Complete int              `json:"complete"`
	Partial  int              `json:"partial"`
	Failed   int              `json:"failed"`
}

// Worker resolves a batch of authors concurrently and reconciles each
// author's works against the catalog index. Resolutions are independent;
// the index stays read-only for the whole run and accumulated new works
// are handed back for the caller to append in a single pass.
type Worker struct {
	resolver    *Resolver
	index       ports.CatalogIndex
	concurrency int
	authorDelay time.Duration
	log         *zap.SugaredLogger
}

func NewWorker(resolver *Resolver, index ports.CatalogIndex, cfg *config.Config, log *zap.SugaredLogger) *Worker {
	return &Worker{
		resolver:    resolver,
		index:       index,
		concurrency: cfg.Concurrency,
		authorDelay: time.Duration(cfg.AuthorDelayMS) * time.Millisecond,
		log:         log,
	}
}

// Run resolves and reconciles every author. A hard API failure aborts only
// that author's resolution; the batch continues.
func (w *Worker) Run(ctx context.Context, authors []models.AuthorIdentity) *Report {
	w.log.Infow("starting batch resolution",
		"authors", len(authors), "concurrency", w.concurrency, "catalog_entries", w.index.Len())

	reports := make([]AuthorReport, len(authors))
	newWorks := make([][]models.NewWork, len(authors))

	var wg sync.WaitGroup
	sem := make(chan struct{}, w.concurrency)

	for i, author := range authors {
		wg.Add(1)
		sem <- struct{}{} // acquire

		// Politeness delay: stagger the starts.
		if w.authorDelay > 0 {
			time.Sleep(w.authorDelay)
		}

		go func(i int, author models.AuthorIdentity) {
			defer wg.Done()
			defer func() { <-sem }() // release

			res, err := w.resolver.Resolve(ctx, author)
			fresh := Reconcile(res.Works, w.index)

			reports[i] = AuthorReport{
				Author:   author,
				Found:    len(res.Works),
				New:      len(fresh),
				Requests: res.Requests,
				Complete: res.Complete,
				Reason:   res.Reason,
				Err:      err,
			}
			newWorks[i] = fresh

			switch {
			case err != nil:
				w.log.Errorw("author failed", "author", author.Primary(), "err", err)
			case !res.Complete:
				w.log.Warnw("author resolved partially",
					"author", author.Primary(), "reason", res.Reason,
					"found", len(res.Works), "new", len(fresh), "requests", res.Requests)
			default:
				w.log.Infow("author resolved",
					"author", author.Primary(),
					"found", len(res.Works), "new", len(fresh), "requests", res.Requests)
			}
		}(i, author)
	}

	wg.Wait()

	report := &Report{Authors: reports}

	// Flatten in author order and dedup by key across authors: co-authored
	// works surface in several resolutions but must be appended once.
	emitted := make(map[string]struct{})
	for _, works := range newWorks {
		for _, nw := range works {
			if _, dup := emitted[nw.Key]; dup {
				continue
			}
			emitted[nw.Key] = struct{}{}
			report.NewWorks = append(report.NewWorks, nw)
		}
	}

	for _, ar := range report.Authors {
		switch {
		case ar.Err != nil:
			report.Failed++
		case !ar.Complete:
			report.Partial++
		default:
			report.Complete++
		}
	}

	w.log.Infow("batch complete",
		"complete", report.Complete, "partial", report.Partial, "failed", report.Failed,
		"new_works", len(report.NewWorks))
	return report
}
