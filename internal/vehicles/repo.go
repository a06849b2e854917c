package vehicles

import (
	"context"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
)

// Repository reads and patches license plate documents.
type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) List(ctx context.Context) ([]docstore.Document, error) {
	return r.store.Find(ctx, docstore.CollectionLicensePlates, nil, docstore.FindOptions{})
}

func (r *Repository) FindByID(ctx context.Context, id string) (docstore.Document, error) {
	return r.store.Get(ctx, docstore.CollectionLicensePlates, id)
}

// FindByDriver returns plates whose current driver is employeeID.
func (r *Repository) FindByDriver(ctx context.Context, employeeID string) ([]docstore.Document, error) {
	return r.store.Find(ctx, docstore.CollectionLicensePlates, docstore.Filter{fieldCurrentDriverID: employeeID}, docstore.FindOptions{})
}

func (r *Repository) FindByPlateNum(ctx context.Context, plateNum string) ([]docstore.Document, error) {
	return r.store.Find(ctx, docstore.CollectionLicensePlates, docstore.Filter{fieldPlateNum: plateNum}, docstore.FindOptions{Limit: 1})
}

func (r *Repository) Insert(ctx context.Context, doc docstore.Document) (string, error) {
	return r.store.Insert(ctx, docstore.CollectionLicensePlates, doc)
}

func (r *Repository) Update(ctx context.Context, id string, update docstore.Update) error {
	return r.store.Update(ctx, docstore.CollectionLicensePlates, id, update)
}
