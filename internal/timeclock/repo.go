package timeclock

import (
	"context"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
)

// Repository reads and writes the timeEntries collection.
type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// FindOpen returns the employee's entries that have no clock-out yet.
func (r *Repository) FindOpen(ctx context.Context, employeeID string) ([]docstore.Document, error) {
	return r.store.Find(ctx, docstore.CollectionTimeEntries, docstore.Filter{
		fieldEmployeeID: employeeID,
		fieldClockOut:   nil,
	}, docstore.FindOptions{})
}

// FindAllOpen returns every open entry.
func (r *Repository) FindAllOpen(ctx context.Context) ([]docstore.Document, error) {
	return r.store.Find(ctx, docstore.CollectionTimeEntries, docstore.Filter{fieldClockOut: nil}, docstore.FindOptions{})
}

func (r *Repository) FindByEmployee(ctx context.Context, employeeID string) ([]docstore.Document, error) {
	return r.store.Find(ctx, docstore.CollectionTimeEntries, docstore.Filter{fieldEmployeeID: employeeID}, docstore.FindOptions{})
}

// List returns up to limit entries in store order.
func (r *Repository) List(ctx context.Context, limit int64) ([]docstore.Document, error) {
	return r.store.Find(ctx, docstore.CollectionTimeEntries, nil, docstore.FindOptions{Limit: limit})
}

func (r *Repository) Insert(ctx context.Context, doc docstore.Document) (string, error) {
	return r.store.Insert(ctx, docstore.CollectionTimeEntries, doc)
}

func (r *Repository) Update(ctx context.Context, id string, update docstore.Update) error {
	return r.store.Update(ctx, docstore.CollectionTimeEntries, id, update)
}
