package teams

import (
	"context"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
)

// Repository reads the teams collection.
type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// List returns every team document.
func (r *Repository) List(ctx context.Context) ([]docstore.Document, error) {
	return r.store.Find(ctx, docstore.CollectionTeams, nil, docstore.FindOptions{})
}
