package docstore

import (
	"context"
	"errors"
)

// Collection names shared with the mobile clients.
const (
	CollectionJobs          = "jobs"
	CollectionTeams         = "teams"
	CollectionEmployees     = "employees"
	CollectionTimeEntries   = "timeEntries"
	CollectionLicensePlates = "LicensePlate"
)

// IDField is the document identifier key.
const IDField = "_id"

var (
	ErrNotFound           = errors.New("document not found")
	ErrPreconditionFailed = errors.New("document precondition failed")
)

// Filter matches documents by dotted field path. A nil value matches a field
// that is null or absent.
type Filter map[string]any

// FindOptions bounds a scan. Zero Limit means no limit.
type FindOptions struct {
	Limit int64
}

// Update is a partial write. Set and Unset use dotted paths so nested maps are
// patched in place. Precondition is evaluated atomically with the write; when it
// no longer matches, Update returns ErrPreconditionFailed and nothing changes.
type Update struct {
	Set          map[string]any
	Unset        []string
	Precondition Filter
}

// IsEmpty reports whether the update would not change anything.
func (u Update) IsEmpty() bool {
	return len(u.Set) == 0 && len(u.Unset) == 0
}

// Store is the document database holding jobs, teams, employees, time entries
// and license plates.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error)
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	Update(ctx context.Context, collection, id string, update Update) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
