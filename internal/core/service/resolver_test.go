package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bibscout/internal/config"
	"bibscout/internal/core/domain/models"
	"bibscout/internal/core/service"
)

// fakeSource is a deterministic scripted fetcher keyed by author name,
// offset and page size. Requests without a scripted response get a true
// empty page (total 0), i.e. exhaustion.
type fakeSource struct {
	mu    sync.Mutex
	pages map[string]models.FetchPage
	errs  map[string]error
	calls []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages: make(map[string]models.FetchPage),
		errs:  make(map[string]error),
	}
}

func callKey(name string, offset, pageSize int) string {
	return fmt.Sprintf("%s|%d|%d", name, offset, pageSize)
}

func (f *fakeSource) set(name string, offset, pageSize int, page models.FetchPage) {
	f.pages[callKey(name, offset, pageSize)] = page
}

func (f *fakeSource) setErr(name string, offset, pageSize int, err error) {
	f.errs[callKey(name, offset, pageSize)] = err
}

func (f *fakeSource) FetchPage(ctx context.Context, author models.AuthorIdentity, offset, pageSize int) (models.FetchPage, error) {
	key := callKey(author.Primary(), offset, pageSize)

	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if err, ok := f.errs[key]; ok {
		return models.FetchPage{}, err
	}
	if page, ok := f.pages[key]; ok {
		return page, nil
	}
	return models.FetchPage{OK: true}, nil
}

func makeWorks(start, n int) []models.WorkCandidate {
	works := make([]models.WorkCandidate, 0, n)
	for i := start; i < start+n; i++ {
		works = append(works, models.WorkCandidate{
			ID:      fmt.Sprintf("vol-%03d", i),
			Title:   fmt.Sprintf("Obras completas %d", i),
			Authors: []string{"Teresa de la Parra"},
		})
	}
	return works
}

func testConfig() *config.Config {
	return &config.Config{
		PageSize:      20,
		MaxRequests:   50,
		PageDelayMS:   0,
		QueryStrategy: config.StrategyCombined,
	}
}

func newTestResolver(src *fakeSource, cfg *config.Config) *service.Resolver {
	return service.NewResolver(src, cfg, zap.NewNop().Sugar())
}

var testAuthor = models.AuthorIdentity{Names: []string{"Teresa de la Parra"}, VIAF: "66479011"}

func TestResolver_ExhaustsPagesAndDeduplicates(t *testing.T) {
	src := newFakeSource()
	pageOne := makeWorks(0, 20)
	pageTwo := makeWorks(20, 20)
	// The second page repeats two volumes from the first.
	pageTwo[0] = pageOne[3]
	pageTwo[1] = pageOne[7]

	src.set("Teresa de la Parra", 0, 20, models.FetchPage{Items: pageOne, ReportedTotal: 412, OK: true})
	src.set("Teresa de la Parra", 20, 20, models.FetchPage{Items: pageTwo, ReportedTotal: 412, OK: true})
	src.set("Teresa de la Parra", 40, 20, models.FetchPage{ReportedTotal: 38, OK: true})

	res, err := newTestResolver(src, testConfig()).Resolve(context.Background(), testAuthor)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Empty(t, res.Reason)
	assert.Len(t, res.Works, 38)
	assert.Equal(t, 3, res.Requests)

	seen := make(map[string]int)
	for _, w := range res.Works {
		seen[w.ID]++
	}
	for id, n := range seen {
		assert.Equalf(t, 1, n, "volume %s accumulated %d times", id, n)
	}
}

func TestResolver_ShrinkRetryAtTail(t *testing.T) {
	src := newFakeSource()
	src.set("Teresa de la Parra", 0, 20, models.FetchPage{Items: makeWorks(0, 20), ReportedTotal: 2000, OK: true})
	src.set("Teresa de la Parra", 20, 20, models.FetchPage{Items: makeWorks(20, 20), ReportedTotal: 2000, OK: true})
	src.set("Teresa de la Parra", 40, 20, models.FetchPage{Items: makeWorks(40, 20), ReportedTotal: 2000, OK: true})
	// Empty page near the tail: the true remaining count is smaller than
	// the requested page size.
	src.set("Teresa de la Parra", 60, 20, models.FetchPage{ReportedTotal: 65, OK: true})
	src.set("Teresa de la Parra", 60, 5, models.FetchPage{Items: makeWorks(60, 5), ReportedTotal: 65, OK: true})
	src.set("Teresa de la Parra", 65, 5, models.FetchPage{ReportedTotal: 65, OK: true})

	res, err := newTestResolver(src, testConfig()).Resolve(context.Background(), testAuthor)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Len(t, res.Works, 65)
	assert.Contains(t, src.calls, callKey("Teresa de la Parra", 60, 5))
}

func TestResolver_Idempotent(t *testing.T) {
	src := newFakeSource()
	src.set("Teresa de la Parra", 0, 20, models.FetchPage{Items: makeWorks(0, 20), ReportedTotal: 23, OK: true})
	src.set("Teresa de la Parra", 20, 20, models.FetchPage{ReportedTotal: 23, OK: true})
	src.set("Teresa de la Parra", 20, 3, models.FetchPage{Items: makeWorks(20, 3), ReportedTotal: 23, OK: true})
	src.set("Teresa de la Parra", 23, 3, models.FetchPage{ReportedTotal: 23, OK: true})

	r := newTestResolver(src, testConfig())

	first, err := r.Resolve(context.Background(), testAuthor)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), testAuthor)
	require.NoError(t, err)

	assert.Equal(t, first.Works, second.Works)
	assert.True(t, first.Complete)
	assert.True(t, second.Complete)
}

func TestResolver_HardFailurePropagates(t *testing.T) {
	src := newFakeSource()
	src.set("Teresa de la Parra", 0, 20, models.FetchPage{Items: makeWorks(0, 20), ReportedTotal: 100, OK: true})
	src.setErr("Teresa de la Parra", 20, 20, &models.HardAPIError{StatusCode: 403, Body: "rate limit exceeded"})

	res, err := newTestResolver(src, testConfig()).Resolve(context.Background(), testAuthor)
	require.Error(t, err)

	var hard *models.HardAPIError
	require.ErrorAs(t, err, &hard)
	assert.Equal(t, 403, hard.StatusCode)

	// Never silently converted to a complete result; the partial set is
	// still handed back.
	assert.False(t, res.Complete)
	assert.Len(t, res.Works, 20)
}

func TestResolver_EmptyFirstPageIsCompleteWithZeroWorks(t *testing.T) {
	src := newFakeSource()
	src.set("Teresa de la Parra", 0, 20, models.FetchPage{ReportedTotal: 0, OK: true})

	res, err := newTestResolver(src, testConfig()).Resolve(context.Background(), testAuthor)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Empty(t, res.Works)
	assert.Equal(t, 1, res.Requests)
}

func TestResolver_PartialPageIsNotTermination(t *testing.T) {
	src := newFakeSource()
	src.set("Teresa de la Parra", 0, 20, models.FetchPage{Items: makeWorks(0, 7), ReportedTotal: 9, OK: true})
	src.set("Teresa de la Parra", 7, 20, models.FetchPage{Items: makeWorks(7, 2), ReportedTotal: 9, OK: true})
	src.set("Teresa de la Parra", 9, 20, models.FetchPage{ReportedTotal: 9, OK: true})

	res, err := newTestResolver(src, testConfig()).Resolve(context.Background(), testAuthor)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Len(t, res.Works, 9)
	assert.Equal(t, 3, res.Requests)
}

func TestResolver_RequestCeiling(t *testing.T) {
	src := newFakeSource()
	for offset := 0; offset < 200; offset += 20 {
		src.set("Teresa de la Parra", offset, 20, models.FetchPage{Items: makeWorks(offset, 20), ReportedTotal: 9999, OK: true})
	}

	cfg := testConfig()
	cfg.MaxRequests = 3

	res, err := newTestResolver(src, cfg).Resolve(context.Background(), testAuthor)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, models.ReasonRequestCeiling, res.Reason)
	assert.Len(t, res.Works, 60)
	assert.Equal(t, 3, res.Requests)
}

func TestResolver_RepeatedTransientFailureIsIncomplete(t *testing.T) {
	src := newFakeSource()
	src.set("Teresa de la Parra", 0, 20, models.FetchPage{Items: makeWorks(0, 20), ReportedTotal: 25, OK: true})
	src.set("Teresa de la Parra", 20, 20, models.FetchPage{OK: false})
	src.set("Teresa de la Parra", 20, 5, models.FetchPage{OK: false})

	res, err := newTestResolver(src, testConfig()).Resolve(context.Background(), testAuthor)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, models.ReasonTransientFailure, res.Reason)
	assert.Len(t, res.Works, 20)
	assert.Contains(t, src.calls, callKey("Teresa de la Parra", 20, 5))
}

func TestResolver_TransientFailureWithoutUsableTotal(t *testing.T) {
	src := newFakeSource()
	src.set("Teresa de la Parra", 0, 20, models.FetchPage{OK: false})

	res, err := newTestResolver(src, testConfig()).Resolve(context.Background(), testAuthor)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, models.ReasonTransientFailure, res.Reason)
	assert.Empty(t, res.Works)
	assert.Equal(t, 1, res.Requests)
}

func TestResolver_SecondEmptyPageAfterShrinkIsExhausted(t *testing.T) {
	src := newFakeSource()
	src.set("Teresa de la Parra", 0, 20, models.FetchPage{Items: makeWorks(0, 20), ReportedTotal: 30, OK: true})
	src.set("Teresa de la Parra", 20, 20, models.FetchPage{ReportedTotal: 30, OK: true})
	src.set("Teresa de la Parra", 20, 10, models.FetchPage{ReportedTotal: 30, OK: true})

	res, err := newTestResolver(src, testConfig()).Resolve(context.Background(), testAuthor)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Len(t, res.Works, 20)
}

func TestResolver_CancellationYieldsPartialResult(t *testing.T) {
	src := newFakeSource()
	src.set("Teresa de la Parra", 0, 20, models.FetchPage{Items: makeWorks(0, 20), ReportedTotal: 100, OK: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestResolver(src, testConfig()).Resolve(ctx, testAuthor)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, models.ReasonCanceled, res.Reason)
	assert.Empty(t, res.Works)
	assert.Equal(t, 0, res.Requests)
}

func TestResolver_PerVariantUnion(t *testing.T) {
	src := newFakeSource()
	// Variant one finds volumes 0-9, variant two overlaps on 5-9 and adds
	// 10-14. The union must carry each volume once.
	src.set("Teresa de la Parra", 0, 20, models.FetchPage{Items: makeWorks(0, 10), ReportedTotal: 10, OK: true})
	src.set("Teresa de la Parra", 10, 20, models.FetchPage{ReportedTotal: 10, OK: true})
	src.set("Ana Teresa Parra Sanojo", 0, 20, models.FetchPage{Items: makeWorks(5, 10), ReportedTotal: 10, OK: true})
	src.set("Ana Teresa Parra Sanojo", 10, 20, models.FetchPage{ReportedTotal: 10, OK: true})

	cfg := testConfig()
	cfg.QueryStrategy = config.StrategyPerVariant

	author := models.AuthorIdentity{Names: []string{"Teresa de la Parra", "Ana Teresa Parra Sanojo"}}
	res, err := newTestResolver(src, cfg).Resolve(context.Background(), author)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Len(t, res.Works, 15)
	assert.Equal(t, 4, res.Requests)
}
