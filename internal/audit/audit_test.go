package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Baaaki/stockroom/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTrail(t *testing.T) *Trail {
	require.NoError(t, logger.Init(false))

	trail, err := NewTrail(filepath.Join(t.TempDir(), "audit.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = trail.Close() })

	return trail
}

func entryAt(id string, ts time.Time) Entry {
	return Entry{
		ID:        id,
		Actor:     "admin",
		Action:    "item.create",
		Entity:    "item",
		EntityID:  "item-" + id,
		Timestamp: ts,
	}
}

func TestTrail_AppendAndReadAll(t *testing.T) {
	trail := newTestTrail(t)
	now := time.Now()

	require.NoError(t, trail.Append(entryAt("1", now)))
	require.NoError(t, trail.Append(entryAt("2", now.Add(time.Second))))

	entries, err := trail.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].ID)
	assert.Equal(t, "2", entries[1].ID)
	assert.Equal(t, "admin", entries[0].Actor)
}

func TestTrail_ReadAllEmpty(t *testing.T) {
	trail := newTestTrail(t)

	entries, err := trail.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTrail_PruneDropsOldEntries(t *testing.T) {
	trail := newTestTrail(t)
	now := time.Now()

	require.NoError(t, trail.Append(entryAt("old", now.Add(-48*time.Hour))))
	require.NoError(t, trail.Append(entryAt("recent", now)))

	require.NoError(t, trail.Prune(now.Add(-24*time.Hour)))

	entries, err := trail.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "recent", entries[0].ID)
}

func TestTrail_AppendAfterPrune(t *testing.T) {
	// Prune swaps the underlying file; later appends must land in the
	// new one.
	trail := newTestTrail(t)
	now := time.Now()

	require.NoError(t, trail.Append(entryAt("old", now.Add(-48*time.Hour))))
	require.NoError(t, trail.Prune(now.Add(-24*time.Hour)))
	require.NoError(t, trail.Append(entryAt("after", now)))

	entries, err := trail.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "after", entries[0].ID)
}

func TestTrail_SurvivesReopen(t *testing.T) {
	require.NoError(t, logger.Init(false))
	path := filepath.Join(t.TempDir(), "audit.log")

	trail, err := NewTrail(path)
	require.NoError(t, err)
	require.NoError(t, trail.Append(entryAt("1", time.Now())))
	require.NoError(t, trail.Close())

	reopened, err := NewTrail(path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0].ID)
}
