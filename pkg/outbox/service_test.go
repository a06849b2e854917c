package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/qualitysquare/fieldops-backend/pkg/db"
	"github.com/qualitysquare/fieldops-backend/pkg/db/models"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.OutboxEvent{}, &models.OutboxDLQ{}))
	return conn
}

func TestRecordStoresEnvelope(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(dbpkg.NewWithConn(conn), repo, nil)

	err := svc.Record(context.Background(), DomainEvent{
		EventType:     enums.EventPlateAssigned,
		AggregateType: enums.AggregateLicensePlate,
		AggregateID:   "plate-1",
		Actor:         &ActorRef{EmployeeID: "emp-1", Role: "employee"},
		Data:          map[string]string{"plate_num": "ABC123"},
	})
	require.NoError(t, err)

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "plate-1", rows[0].AggregateID)

	var env PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &env))
	assert.Equal(t, currentEnvelopeVersion, env.Version)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "emp-1", env.Actor.EmployeeID)
	assert.JSONEq(t, `{"plate_num":"ABC123"}`, string(env.Data))
}

func TestEmitRejectsInvalidEvents(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(dbpkg.NewWithConn(conn), NewRepository(conn), nil)

	err := svc.Record(context.Background(), DomainEvent{
		EventType:     enums.OutboxEventType("nope"),
		AggregateType: enums.AggregateJob,
		AggregateID:   "job-1",
	})
	assert.Error(t, err)

	err = svc.Record(context.Background(), DomainEvent{
		EventType:     enums.EventJobStatusChanged,
		AggregateType: enums.AggregateJob,
	})
	assert.Error(t, err)

	assert.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(dbpkg.NewWithConn(conn), repo, nil)
	ctx := context.Background()

	for _, id := range []string{"job-1", "job-2"} {
		require.NoError(t, svc.Record(ctx, DomainEvent{
			EventType:     enums.EventJobStatusChanged,
			AggregateType: enums.AggregateJob,
			AggregateID:   id,
			Data:          map[string]string{"job_id": id},
		}))
	}

	var rows []models.OutboxEvent
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		rows, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New("transient")))

	remaining, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, 1, remaining[0].AttemptCount)
	require.NotNil(t, remaining[0].LastError)
	assert.Equal(t, "transient", *remaining[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(conn, remaining[0].ID, errors.New("gave up")))
	remaining, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestFetchSkipsRowsAtMaxAttempts(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	require.NoError(t, repo.Insert(conn, models.OutboxEvent{
		EventType:     enums.EventClockedIn,
		AggregateType: enums.AggregateTimeEntry,
		AggregateID:   "entry-1",
		Payload:       json.RawMessage(`{}`),
		AttemptCount:  3,
	}))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDLQRepositoryRoundTrip(t *testing.T) {
	conn := newTestDB(t)
	dlq := NewDLQRepository(conn)
	ctx := context.Background()

	long := make([]byte, maxDLQErrorLen+50)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	event := models.OutboxEvent{}
	require.NoError(t, event.BeforeCreate(nil))

	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     enums.EventPlateReleased,
		AggregateType: enums.AggregateLicensePlate,
		AggregateID:   "plate-9",
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &msg,
	}))

	found, err := dlq.FindByEventID(ctx, event.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, *found.ErrorMessage, maxDLQErrorLen)

	rows, err := dlq.ListForAggregate(ctx, enums.AggregateLicensePlate, "plate-9", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDeletePublishedBeforeScopesToAggregate(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	old := cutoff.Add(-48 * time.Hour)
	recent := cutoff.Add(time.Hour)

	rows := []models.OutboxEvent{
		{AggregateType: enums.AggregateJob, AggregateID: "job-old", CreatedAt: old, PublishedAt: &old},
		{AggregateType: enums.AggregateJob, AggregateID: "job-recent", CreatedAt: old, PublishedAt: &recent},
		{AggregateType: enums.AggregateJob, AggregateID: "job-gave-up", CreatedAt: old, AttemptCount: 10},
		{AggregateType: enums.AggregateJob, AggregateID: "job-retrying", CreatedAt: old, AttemptCount: 2},
		{AggregateType: enums.AggregateTimeEntry, AggregateID: "entry-old", CreatedAt: old, PublishedAt: &old},
	}
	for _, row := range rows {
		row.EventType = enums.EventJobStatusChanged
		row.Payload = json.RawMessage(`{}`)
		require.NoError(t, repo.Insert(conn, row))
	}

	deleted, err := repo.DeletePublishedBefore(ctx, conn, enums.AggregateJob, cutoff, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var left []models.OutboxEvent
	require.NoError(t, conn.Order("aggregate_id").Find(&left).Error)
	ids := make([]string, 0, len(left))
	for _, row := range left {
		ids = append(ids, row.AggregateID)
	}
	assert.Equal(t, []string{"entry-old", "job-recent", "job-retrying"}, ids)

	_, err = repo.DeletePublishedBefore(ctx, nil, enums.AggregateJob, cutoff, 10)
	assert.Error(t, err)
}

func TestDeleteFailedBeforeScopesToAggregate(t *testing.T) {
	conn := newTestDB(t)
	dlq := NewDLQRepository(conn)
	ctx := context.Background()
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	letters := []models.OutboxDLQ{
		{AggregateType: enums.AggregateLicensePlate, AggregateID: "plate-old", FailedAt: cutoff.Add(-time.Hour)},
		{AggregateType: enums.AggregateLicensePlate, AggregateID: "plate-new", FailedAt: cutoff.Add(time.Hour)},
		{AggregateType: enums.AggregateJob, AggregateID: "job-old", FailedAt: cutoff.Add(-time.Hour)},
	}
	for _, letter := range letters {
		letter.EventID = uuid.New()
		letter.EventType = enums.EventPlateAssigned
		letter.Payload = json.RawMessage(`{}`)
		letter.ErrorReason = enums.OutboxDLQReasonNonRetryable
		require.NoError(t, dlq.InsertTx(conn, letter))
	}

	deleted, err := dlq.DeleteFailedBefore(ctx, conn, enums.AggregateLicensePlate, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := dlq.ListForAggregate(ctx, enums.AggregateLicensePlate, "plate-new", 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
	jobs, err := dlq.ListForAggregate(ctx, enums.AggregateJob, "job-old", 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}
