package employees

import (
	"context"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
)

// Repository reads the employees collection.
type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) List(ctx context.Context) ([]docstore.Document, error) {
	return r.store.Find(ctx, docstore.CollectionEmployees, nil, docstore.FindOptions{})
}

func (r *Repository) FindByID(ctx context.Context, id string) (docstore.Document, error) {
	return r.store.Get(ctx, docstore.CollectionEmployees, id)
}
