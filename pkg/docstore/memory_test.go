package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryInsertAndGetCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	id, err := store.Insert(ctx, CollectionJobs, Document{
		"customerName": "Acme",
		"requests":     map[string]any{"status": "Scheduled"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := store.Get(ctx, CollectionJobs, id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID())
	assert.Equal(t, "Scheduled", doc.String("requests.status"))

	doc.Map("requests")["status"] = "mutated"
	again, err := store.Get(ctx, CollectionJobs, id)
	require.NoError(t, err)
	assert.Equal(t, "Scheduled", again.String("requests.status"))
}

func TestMemoryGetMissing(t *testing.T) {
	_, err := NewMemory().Get(context.Background(), CollectionJobs, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryFindNilMatchesMissingOrNull(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	_, err := store.Insert(ctx, CollectionTimeEntries, Document{IDField: "open", "employeeId": "e1", "clockOut": nil})
	require.NoError(t, err)
	_, err = store.Insert(ctx, CollectionTimeEntries, Document{IDField: "missing", "employeeId": "e1"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, CollectionTimeEntries, Document{IDField: "closed", "employeeId": "e1", "clockOut": time.Now()})
	require.NoError(t, err)

	docs, err := store.Find(ctx, CollectionTimeEntries, Filter{"employeeId": "e1", "clockOut": nil}, FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "open", docs[0].ID())
	assert.Equal(t, "missing", docs[1].ID())

	limited, err := store.Find(ctx, CollectionTimeEntries, nil, FindOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemoryUpdateDottedPaths(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	_, err := store.Insert(ctx, CollectionLicensePlates, Document{
		IDField:           "p1",
		"plateNum":        "ABC123",
		"available":       false,
		"currentDriverId": "e1",
	})
	require.NoError(t, err)

	err = store.Update(ctx, CollectionLicensePlates, "p1", Update{
		Set:   map[string]any{"available": true, "rescheduleRequest.reason": "rain"},
		Unset: []string{"currentDriverId", "not.there"},
	})
	require.NoError(t, err)

	doc, err := store.Get(ctx, CollectionLicensePlates, "p1")
	require.NoError(t, err)
	assert.Equal(t, true, *doc.Bool("available"))
	assert.False(t, doc.Has("currentDriverId"))
	assert.Equal(t, "rain", doc.String("rescheduleRequest.reason"))
}

func TestMemoryUpdatePrecondition(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	_, err := store.Insert(ctx, CollectionLicensePlates, Document{IDField: "p1", "available": true})
	require.NoError(t, err)

	guard := Filter{"available": true, "currentDriverId": nil}
	require.NoError(t, store.Update(ctx, CollectionLicensePlates, "p1", Update{
		Set:          map[string]any{"available": false, "currentDriverId": "e1"},
		Precondition: guard,
	}))

	err = store.Update(ctx, CollectionLicensePlates, "p1", Update{
		Set:          map[string]any{"currentDriverId": "e2"},
		Precondition: guard,
	})
	assert.True(t, errors.Is(err, ErrPreconditionFailed))

	doc, err := store.Get(ctx, CollectionLicensePlates, "p1")
	require.NoError(t, err)
	assert.Equal(t, "e1", doc.String("currentDriverId"))

	err = store.Update(ctx, CollectionLicensePlates, "missing", Update{Set: map[string]any{"a": 1}})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryRejectsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	_, err := store.Insert(ctx, CollectionTeams, Document{IDField: "t1"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, CollectionTeams, Document{IDField: "t1"})
	assert.Error(t, err)
}
