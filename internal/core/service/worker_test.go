package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bibscout/internal/config"
	"bibscout/internal/core/domain/models"
	"bibscout/internal/core/service"
)

func TestWorker_Run(t *testing.T) {
	src := newFakeSource()

	// Author one: two works, one already cataloged.
	src.set("Teresa de la Parra", 0, 20, models.FetchPage{Items: []models.WorkCandidate{
		{ID: "v1", Title: "Ifigenia", Authors: []string{"Teresa de la Parra"}},
		{ID: "v2", Title: "Memorias de Mamá Blanca", Authors: []string{"Teresa de la Parra"}},
	}, ReportedTotal: 2, OK: true})
	src.set("Teresa de la Parra", 2, 20, models.FetchPage{ReportedTotal: 2, OK: true})

	// Author two: hard failure straight away.
	src.setErr("Rufino Blanco Fombona", 0, 20, &models.HardAPIError{StatusCode: 401})

	// Author three: transient failure at the first page, resolves partial.
	src.set("Andrés Bello", 0, 20, models.FetchPage{OK: false})

	index := indexOf(models.WorkCandidate{Title: "Ifigenia", Authors: []string{"Teresa de la Parra"}})

	cfg := testConfig()
	cfg.Concurrency = 2

	resolver := service.NewResolver(src, cfg, zap.NewNop().Sugar())
	worker := service.NewWorker(resolver, index, cfg, zap.NewNop().Sugar())

	authors := []models.AuthorIdentity{
		{Names: []string{"Teresa de la Parra"}},
		{Names: []string{"Rufino Blanco Fombona"}},
		{Names: []string{"Andrés Bello"}},
	}

	report := worker.Run(context.Background(), authors)
	require.Len(t, report.Authors, 3)

	assert.Equal(t, 1, report.Complete)
	assert.Equal(t, 1, report.Partial)
	assert.Equal(t, 1, report.Failed)

	// Report lines stay in author order regardless of goroutine scheduling.
	assert.Equal(t, "Teresa de la Parra", report.Authors[0].Author.Primary())
	assert.True(t, report.Authors[0].Complete)
	assert.Equal(t, 2, report.Authors[0].Found)
	assert.Equal(t, 1, report.Authors[0].New)

	assert.Error(t, report.Authors[1].Err)
	assert.False(t, report.Authors[2].Complete)
	assert.Equal(t, models.ReasonTransientFailure, report.Authors[2].Reason)

	require.Len(t, report.NewWorks, 1)
	assert.Equal(t, "v2", report.NewWorks[0].ID)
}

func TestWorker_DeduplicatesCoauthoredWorksAcrossAuthors(t *testing.T) {
	src := newFakeSource()

	shared := models.WorkCandidate{ID: "v9", Title: "Epistolario", Authors: []string{"Simón Bolívar", "Andrés Bello"}}

	src.set("Simón Bolívar", 0, 20, models.FetchPage{Items: []models.WorkCandidate{shared}, ReportedTotal: 1, OK: true})
	src.set("Simón Bolívar", 1, 20, models.FetchPage{ReportedTotal: 1, OK: true})
	src.set("Andrés Bello", 0, 20, models.FetchPage{Items: []models.WorkCandidate{shared}, ReportedTotal: 1, OK: true})
	src.set("Andrés Bello", 1, 20, models.FetchPage{ReportedTotal: 1, OK: true})

	cfg := testConfig()
	cfg.Concurrency = 1

	resolver := service.NewResolver(src, cfg, zap.NewNop().Sugar())
	worker := service.NewWorker(resolver, mapIndex{}, cfg, zap.NewNop().Sugar())

	report := worker.Run(context.Background(), []models.AuthorIdentity{
		{Names: []string{"Simón Bolívar"}},
		{Names: []string{"Andrés Bello"}},
	})

	assert.Equal(t, 2, report.Complete)
	require.Len(t, report.NewWorks, 1)
	assert.Equal(t, "v9", report.NewWorks[0].ID)
}

func TestWorker_NoAuthors(t *testing.T) {
	cfg := testConfig()
	resolver := service.NewResolver(newFakeSource(), cfg, zap.NewNop().Sugar())
	worker := service.NewWorker(resolver, mapIndex{}, cfg, zap.NewNop().Sugar())

	report := worker.Run(context.Background(), nil)
	assert.Empty(t, report.Authors)
	assert.Empty(t, report.NewWorks)
}

func TestCreateWorkSource_DefaultsToGoogleBooks(t *testing.T) {
	cfg := &config.Config{SourceType: "something-else", APIBaseURL: "http://localhost", HTTPTimeoutSec: 5}
	src := service.CreateWorkSource(cfg, zap.NewNop().Sugar())
	assert.NotNil(t, src)
}
