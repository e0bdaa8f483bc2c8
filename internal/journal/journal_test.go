package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/notestation-importer/internal/entities"
)

func setupJournal(t *testing.T) *Journal {
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_StartAndCompleteRun(t *testing.T) {
	j := setupJournal(t)

	run, err := j.StartRun("/tmp/export.ns3", "Imports")
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, entities.RunStatusRunning, run.Status)

	counters := entities.RunCounters{Notebooks: 1, Sections: 2, Notes: 5, TagsLinked: 3, ResourcesReused: 1}
	require.NoError(t, j.CompleteRun(run.ID, entities.RunStatusCompleted, counters, nil))

	stored, err := j.Run(run.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RunStatusCompleted, stored.Status)
	assert.Equal(t, counters, stored.Counters)
	assert.Equal(t, "Imports", stored.InsertionPoint)
	require.NotNil(t, stored.CompletedAt)
	assert.Empty(t, stored.Error)
}

func TestJournal_CompleteRunRecordsError(t *testing.T) {
	j := setupJournal(t)
	run, err := j.StartRun("a.ns3", "x")
	require.NoError(t, err)

	require.NoError(t, j.CompleteRun(run.ID, entities.RunStatusFailed, entities.RunCounters{Notes: 1}, errors.New("store went away")))

	stored, err := j.Run(run.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RunStatusFailed, stored.Status)
	assert.Equal(t, "store went away", stored.Error)
}

func TestJournal_CompleteUnknownRun(t *testing.T) {
	j := setupJournal(t)

	err := j.CompleteRun("nope", entities.RunStatusCompleted, entities.RunCounters{}, nil)
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = j.Run("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestJournal_EventsInRecordOrder(t *testing.T) {
	j := setupJournal(t)
	run, err := j.StartRun("a.ns3", "x")
	require.NoError(t, err)
	other, err := j.StartRun("b.ns3", "x")
	require.NoError(t, err)

	kinds := []entities.EventKind{entities.EventFolder, entities.EventNote, entities.EventTagLink, entities.EventNote}
	for i, kind := range kinds {
		require.NoError(t, j.RecordEvent(&entities.ImportEvent{RunID: run.ID, Kind: kind, Title: string(rune('a' + i))}))
	}
	require.NoError(t, j.RecordEvent(&entities.ImportEvent{RunID: other.ID, Kind: entities.EventWarning}))

	events, err := j.Events(run.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	for i, e := range events {
		assert.Equal(t, kinds[i], e.Kind)
		assert.False(t, e.CreatedAt.IsZero())
	}

	counts, err := j.EventCounts(run.ID)
	require.NoError(t, err)
	assert.Equal(t, map[entities.EventKind]int{
		entities.EventFolder:  1,
		entities.EventNote:    2,
		entities.EventTagLink: 1,
	}, counts)
}

func TestJournal_RecentRunsNewestFirst(t *testing.T) {
	j := setupJournal(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		run := &entities.ImportRun{ID: string(rune('a'+i)) + "-run", Status: entities.RunStatusCompleted, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, j.db.Create(run).Error)
	}

	runs, err := j.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c-run", runs[0].ID)
	assert.Equal(t, "b-run", runs[1].ID)
}

func TestJournal_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	run, err := j.StartRun("a.ns3", "x")
	require.NoError(t, err)
	require.NoError(t, j.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.RecentRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}
