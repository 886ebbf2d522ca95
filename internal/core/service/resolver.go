package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"bibscout/internal/config"
	"bibscout/internal/core/domain/models"
	"bibscout/internal/core/domain/ports"
)

// Resolver retrieves the complete deduplicated work set for one author
// despite the search API's unreliable signals: the reported total is an
// arbitrary placeholder while pages are still full, pages silently
// truncate near the tail, and requests whose offset overshoots the true
// total fail outright. Termination is therefore driven by empty-page
// observations; the reported total is consulted only to decide whether an
// empty page means "done" or "overshot the tail, shrink and retry".
type Resolver struct {
	src         ports.WorkSource
	pageSize    int
	maxRequests int
	pageDelay   time.Duration
	strategy    string
	log         *zap.SugaredLogger
}

func NewResolver(src ports.WorkSource, cfg *config.Config, log *zap.SugaredLogger) *Resolver {
	return &Resolver{
		src:         src,
		pageSize:    cfg.PageSize,
		maxRequests: cfg.MaxRequests,
		pageDelay:   time.Duration(cfg.PageDelayMS) * time.Millisecond,
		strategy:    cfg.QueryStrategy,
		log:         log,
	}
}

// Resolve runs the retrieval state machine for one author. The returned
// error is non-nil only for a hard API failure; every boundary condition
// of the API is absorbed into the Resolution's completeness flag. The
// partial work set accumulated before an early termination is always
// returned.
func (r *Resolver) Resolve(ctx context.Context, author models.AuthorIdentity) (models.Resolution, error) {
	if r.strategy == config.StrategyPerVariant && len(author.Names) > 1 {
		return r.resolvePerVariant(ctx, author)
	}
	return r.resolveOne(ctx, author)
}

// resolvePerVariant runs a full resolution per name variant and unions the
// results by volume ID. The union is complete only if every pass was.
func (r *Resolver) resolvePerVariant(ctx context.Context, author models.AuthorIdentity) (models.Resolution, error) {
	res := models.Resolution{Author: author, Complete: true}
	seen := make(map[string]struct{})

	for _, name := range author.Names {
		variant := models.AuthorIdentity{Names: []string{name}, VIAF: author.VIAF, DeathDate: author.DeathDate}
		vr, err := r.resolveOne(ctx, variant)
		res.Requests += vr.Requests
		for _, w := range vr.Works {
			if _, dup := seen[w.ID]; dup {
				continue
			}
			seen[w.ID] = struct{}{}
			res.Works = append(res.Works, w)
		}
		if err != nil {
			res.Complete = false
			res.Reason = vr.Reason
			return res, err
		}
		if !vr.Complete {
			res.Complete = false
			if res.Reason == "" {
				res.Reason = vr.Reason
			}
		}
	}
	return res, nil
}

func (r *Resolver) resolveOne(ctx context.Context, author models.AuthorIdentity) (models.Resolution, error) {
	var (
		works         []models.WorkCandidate
		seen          = make(map[string]struct{})
		offset        int
		requests      int
		pageSize      = r.pageSize
		lastTotal     = -1 // most recent reported total; -1 until observed
		retriedOffset = -1 // offset at which the single shrink-retry happened
	)

	done := func(complete bool, reason string) models.Resolution {
		return models.Resolution{
			Author:   author,
			Works:    works,
			Complete: complete,
			Reason:   reason,
			Requests: requests,
		}
	}

	for {
		if ctx.Err() != nil {
			return done(false, models.ReasonCanceled), nil
		}
		if requests >= r.maxRequests {
			r.log.Warnw("request ceiling reached, treating result as possibly incomplete",
				"author", author.Primary(), "requests", requests)
			return done(false, models.ReasonRequestCeiling), nil
		}
		if requests > 0 && r.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return done(false, models.ReasonCanceled), nil
			case <-time.After(r.pageDelay):
			}
		}

		page, err := r.src.FetchPage(ctx, author, offset, pageSize)
		requests++

		if err != nil {
			var hard *models.HardAPIError
			if errors.As(err, &hard) {
				r.log.Errorw("hard API failure, aborting author",
					"author", author.Primary(), "offset", offset, "status", hard.StatusCode)
				res := done(false, err.Error())
				return res, err
			}
			// Context cancellation surfaces from the adapter as its error.
			return done(false, models.ReasonCanceled), nil
		}

		if !page.OK {
			// The call failed outright. This is the expected boundary
			// condition when the offset overshoots the true total, so try
			// the same shrink-and-retry as for an empty page; a repeat
			// failure ends resolution with degraded output.
			if retriedOffset == offset || lastTotal <= offset {
				return done(false, models.ReasonTransientFailure), nil
			}
			pageSize = lastTotal - offset
			retriedOffset = offset
			r.log.Debugw("fetch failed near tail, retrying with shrunk page",
				"author", author.Primary(), "offset", offset, "pageSize", pageSize)
			continue
		}

		lastTotal = page.ReportedTotal

		if len(page.Items) == 0 {
			if page.ReportedTotal <= offset {
				// Truly exhausted. Includes the zero-result author whose
				// very first page is empty with total 0.
				return done(true, ""), nil
			}
			if retriedOffset == offset {
				// Second empty page at the same offset after shrinking:
				// the API cannot satisfy any request here. Exhausted.
				return done(true, ""), nil
			}
			shrunk := page.ReportedTotal - offset
			if shrunk <= 0 {
				return done(true, ""), nil
			}
			pageSize = shrunk
			retriedOffset = offset
			r.log.Debugw("empty page with remaining total, retrying with shrunk page",
				"author", author.Primary(), "offset", offset, "pageSize", pageSize)
			continue
		}

		for _, item := range page.Items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			works = append(works, item)
		}

		// Advance by the actual item count: the API returns short pages
		// mid-sequence, and a short non-empty page is not a termination
		// signal.
		offset += len(page.Items)
	}
}
