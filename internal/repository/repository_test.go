package repository

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/sumo-flow-backend/internal/database"
	"github.com/jengzang/sumo-flow-backend/internal/models"
	"github.com/jengzang/sumo-flow-backend/internal/testutil"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")}, testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPipelineRunLifecycle(t *testing.T) {
	repo := NewPipelineRunRepository(openDB(t))

	run := &models.PipelineRun{Trigger: models.RunTriggerAPI, ParamsJSON: `{"threshold":90}`}
	require.NoError(t, repo.Create(run))
	require.NotZero(t, run.ID)

	require.NoError(t, repo.MarkRunning(run.ID))
	require.NoError(t, repo.UpdateProgress(run.ID, "map", 35))

	got, err := repo.GetByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, got.Status)
	assert.Equal(t, "map", got.CurrentStage)
	assert.Equal(t, 35, got.ProgressPercent)
	assert.Equal(t, models.RunTriggerAPI, got.Trigger)
	assert.NotZero(t, got.StartTime)

	got.InputRows, got.LinkedRows, got.UnresolvedRoad = 10, 7, 1
	got.ResultSummary = `{"edge_count":3}`
	require.NoError(t, repo.MarkCompleted(got))

	done, err := repo.GetByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, done.Status)
	assert.Equal(t, 100, done.ProgressPercent)
	assert.Equal(t, 7, done.LinkedRows)
	assert.Equal(t, 1, done.UnresolvedRoad)
	assert.Equal(t, `{"edge_count":3}`, done.ResultSummary)
}

func TestPipelineRunNotFound(t *testing.T) {
	repo := NewPipelineRunRepository(openDB(t))
	_, err := repo.GetByID(42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPipelineRunListAndFailures(t *testing.T) {
	repo := NewPipelineRunRepository(openDB(t))

	var ids []int64
	for i := 0; i < 3; i++ {
		run := &models.PipelineRun{Trigger: models.RunTriggerScheduler}
		require.NoError(t, repo.Create(run))
		ids = append(ids, run.ID)
	}
	require.NoError(t, repo.MarkFailed(ids[0], "link stage: no rows"))
	require.NoError(t, repo.MarkRunning(ids[1]))

	all, err := repo.List("", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)

	failed, err := repo.List(models.RunStatusFailed, 10, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "link stage: no rows", failed[0].ErrorMessage)

	n, err := repo.FailInterrupted()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	failed, err = repo.List(models.RunStatusFailed, 10, 0)
	require.NoError(t, err)
	assert.Len(t, failed, 3)
}

func TestRoadNameUpsert(t *testing.T) {
	repo := NewRoadNameRepository(openDB(t))

	require.NoError(t, repo.Upsert([]models.RoadNameEntry{
		{RoadName: "Via Roma", GeoPoint: "1,1", EdgeID: "e1", Method: models.MatchMethodName, Distance: 4.5},
		{RoadName: "Via Emilia", GeoPoint: "2,2"},
	}))

	total, unresolved, err := repo.Counts()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, unresolved)

	// a later run that failed to resolve Via Roma keeps the known edge
	require.NoError(t, repo.Upsert([]models.RoadNameEntry{
		{RoadName: "Via Roma", GeoPoint: "1,1", SourceRow: 9},
		{RoadName: "Via Emilia", GeoPoint: "2,2", EdgeID: "e2", Method: models.MatchMethodBackfill},
	}))

	all, err := repo.List(false, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "e1", all[0].EdgeID)
	assert.Equal(t, 9, all[0].SourceRow)
	assert.InDelta(t, 4.5, all[0].Distance, 1e-9)
	assert.Equal(t, "e2", all[1].EdgeID)

	open, err := repo.List(true, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, open)
}
