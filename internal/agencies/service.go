package agencies

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/topsevenstore/checkout-api/pkg/config"
	"github.com/topsevenstore/checkout-api/pkg/content"
	pkgerrors "github.com/topsevenstore/checkout-api/pkg/errors"
	"github.com/topsevenstore/checkout-api/pkg/logger"
	"github.com/topsevenstore/checkout-api/pkg/redis"
	"github.com/topsevenstore/checkout-api/pkg/types"
)

// contentAPI is the slice of the backend client the directory loader needs.
type contentAPI interface {
	ListAgencies(ctx context.Context, page, pageSize int) (*content.AgencyPage, error)
}

// Service serves the pickup agency directory, refreshing from the content
// backend only when the cached copy has gone stale.
type Service interface {
	Directory(ctx context.Context) ([]types.Agency, error)
}

type cachePayload struct {
	FetchedAt time.Time      `json:"fetched_at"`
	Agencies  []types.Agency `json:"agencies"`
}

type service struct {
	api      contentAPI
	kv       redis.KV
	logg     *logger.Logger
	pageSize int
	ttl      time.Duration
	now      func() time.Time

	// Serializes refreshes so concurrent cache misses trigger one fetch.
	refreshMu sync.Mutex
}

// NewService builds the agency directory loader.
func NewService(api contentAPI, kv redis.KV, cfg config.ContentConfig, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("content client required")
	}
	if kv == nil {
		return nil, fmt.Errorf("cache storage required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	pageSize := cfg.AgencyPageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	ttl := cfg.AgencyCacheTTL
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}

	return &service{
		api:      api,
		kv:       kv,
		logg:     logg,
		pageSize: pageSize,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Directory returns the full agency list, cache-first.
func (s *service) Directory(ctx context.Context) ([]types.Agency, error) {
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have refreshed while we waited on the lock.
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}

	agencies, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	s.storeCache(ctx, agencies)
	return agencies, nil
}

func (s *service) fromCache(ctx context.Context) ([]types.Agency, bool) {
	raw, err := s.kv.Get(ctx, redis.AgencyCacheKey())
	if err != nil {
		if !redis.IsNil(err) {
			s.logg.Warn(ctx, fmt.Sprintf("agency cache read failed: %v", err))
		}
		return nil, false
	}

	var payload cachePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("agency cache corrupted, refetching: %v", err))
		return nil, false
	}
	if s.now().Sub(payload.FetchedAt) > s.ttl {
		return nil, false
	}
	return payload.Agencies, true
}

func (s *service) storeCache(ctx context.Context, agencies []types.Agency) {
	payload, err := json.Marshal(cachePayload{FetchedAt: s.now(), Agencies: agencies})
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("agency cache encode failed: %v", err))
		return
	}
	// Freshness is judged on fetched_at, so no key TTL is needed; a stale
	// entry still short-circuits the read path until overwritten.
	if err := s.kv.Set(ctx, redis.AgencyCacheKey(), string(payload), 0); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("agency cache write failed: %v", err))
	}
}

// fetchAll walks every page of the backend directory. Any page failing
// aborts the whole refresh so a partial directory is never cached.
func (s *service) fetchAll(ctx context.Context) ([]types.Agency, error) {
	var agencies []types.Agency

	page := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "agency refresh canceled")
		}

		resp, err := s.api.ListAgencies(ctx, page, s.pageSize)
		if err != nil {
			return nil, err
		}

		for _, raw := range resp.Data {
			agencies = append(agencies, normalizeAgency(raw))
		}

		if page >= resp.Meta.Pagination.PageCount {
			break
		}
		page++
	}

	s.logg.Info(ctx, fmt.Sprintf("agency directory refreshed, %d agencies", len(agencies)))
	return agencies, nil
}
