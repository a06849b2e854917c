package employees

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
)

type employeesRepository interface {
	List(ctx context.Context) ([]docstore.Document, error)
	FindByID(ctx context.Context, id string) (docstore.Document, error)
}

// Service exposes the employee roster.
type Service interface {
	ListActive(ctx context.Context) ([]Employee, error)
	Get(ctx context.Context, id string) (*Employee, error)
	NamesByID(ctx context.Context) (map[string]string, error)
}

type service struct {
	repo employeesRepository
}

func NewService(repo employeesRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("employees repository required")
	}
	return &service{repo: repo}, nil
}

// ListActive returns active employees sorted by name. A missing status counts
// as active.
func (s *service) ListActive(ctx context.Context) ([]Employee, error) {
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Employee, 0, len(all))
	for _, e := range all {
		if e.Status.IsActive() {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *service) Get(ctx context.Context, id string) (*Employee, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee id is required")
	}
	raw, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, docstore.TypedError(err, "employee not found")
	}
	employee := decodeEmployee(raw)
	return &employee, nil
}

// NamesByID maps every employee id, active or not, to its name.
func (s *service) NamesByID(ctx context.Context) (map[string]string, error) {
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(all))
	for _, e := range all {
		out[e.ID] = e.Name
	}
	return out, nil
}

func (s *service) list(ctx context.Context) ([]Employee, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, docstore.TypedError(err, "employees not found")
	}
	out := make([]Employee, 0, len(docs))
	for _, doc := range docs {
		out = append(out, decodeEmployee(doc))
	}
	return out, nil
}
