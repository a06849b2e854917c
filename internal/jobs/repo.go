package jobs

import (
	"context"
	"errors"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
)

// Repository reads and patches job documents.
type Repository struct {
	store docstore.Store
}

// NewRepository binds the jobs collection of store.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// FindByID returns the raw job document. Missing jobs yield docstore.ErrNotFound.
func (r *Repository) FindByID(ctx context.Context, id string) (docstore.Document, error) {
	return r.store.Get(ctx, docstore.CollectionJobs, id)
}

// Scan returns up to limit job documents in store order.
func (r *Repository) Scan(ctx context.Context, limit int) ([]docstore.Document, error) {
	opts := docstore.FindOptions{}
	if limit > 0 {
		opts.Limit = int64(limit)
	}
	return r.store.Find(ctx, docstore.CollectionJobs, nil, opts)
}

// Update applies a partial write; a lost precondition yields
// docstore.ErrPreconditionFailed.
func (r *Repository) Update(ctx context.Context, id string, update docstore.Update) error {
	if update.IsEmpty() {
		return errors.New("empty job update")
	}
	return r.store.Update(ctx, docstore.CollectionJobs, id, update)
}
