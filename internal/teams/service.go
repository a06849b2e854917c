package teams

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
	"github.com/qualitysquare/fieldops-backend/pkg/redis"
)

const membershipCacheKind = "team_memberships"

type teamsRepository interface {
	List(ctx context.Context) ([]docstore.Document, error)
}

type jsonCache interface {
	CacheKey(kind string, parts ...string) string
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Service answers team listings and membership lookups.
type Service interface {
	List(ctx context.Context) ([]Team, error)
	MembershipsFor(ctx context.Context, employeeID string) ([]Membership, error)
	TeamIDsFor(ctx context.Context, employeeID string) ([]string, error)
}

type service struct {
	repo  teamsRepository
	cache jsonCache
	ttl   time.Duration
	logg  *logger.Logger
}

// NewService builds the team service. A nil cache disables membership caching.
func NewService(repo teamsRepository, cache jsonCache, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("teams repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cache != nil && ttl <= 0 {
		return nil, fmt.Errorf("team cache ttl must be positive")
	}
	return &service{repo: repo, cache: cache, ttl: ttl, logg: logg}, nil
}

func (s *service) List(ctx context.Context) ([]Team, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, docstore.TypedError(err, "teams not found")
	}
	out := make([]Team, 0, len(docs))
	for _, doc := range docs {
		out = append(out, decodeTeam(doc))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// MembershipsFor scans every team for the employee. Results are cached per
// employee for the configured TTL; cache failures fall back to the store.
func (s *service) MembershipsFor(ctx context.Context, employeeID string) ([]Membership, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee identity missing")
	}

	var key string
	if s.cache != nil {
		key = s.cache.CacheKey(membershipCacheKind, employeeID)
		var cached []Membership
		err := s.cache.GetJSON(ctx, key, &cached)
		switch {
		case err == nil:
			return cached, nil
		case !errors.Is(err, redis.ErrCacheMiss):
			s.logg.Error(s.logg.WithEmployeeID(ctx, employeeID), "team membership cache read failed", err)
		}
	}

	teams, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Membership, 0)
	for _, team := range teams {
		if !team.HasMember(employeeID) {
			continue
		}
		out = append(out, Membership{
			TeamID:      team.ID,
			TeamName:    team.Name,
			MemberNames: team.MemberNames(),
		})
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, out, s.ttl); err != nil {
			s.logg.Error(s.logg.WithEmployeeID(ctx, employeeID), "team membership cache write failed", err)
		}
	}
	return out, nil
}

func (s *service) TeamIDsFor(ctx context.Context, employeeID string) ([]string, error) {
	memberships, err := s.MembershipsFor(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.TeamID)
	}
	return ids, nil
}
