package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/topsevenstore/checkout-api/pkg/errors"
	"github.com/topsevenstore/checkout-api/pkg/logger"
	"github.com/topsevenstore/checkout-api/pkg/redis"
	"github.com/topsevenstore/checkout-api/pkg/types"
)

// Snapshot is the cart contents plus the derived total at one point in time.
type Snapshot struct {
	Items []types.CartItem `json:"items"`
	Total decimal.Decimal  `json:"total"`
}

// Subscriber receives the new snapshot after every mutation of a session's
// cart. Consumers unsubscribe with the function returned by Subscribe.
type Subscriber func(Snapshot)

// Service owns the shopper's cart: one entry per product id, insertion
// order preserved, contents durable across sessions.
type Service interface {
	AddItem(ctx context.Context, sessionID string, item types.CartItem) (*Snapshot, *types.Notice, error)
	RemoveItem(ctx context.Context, sessionID string, productID int64) (*Snapshot, *types.Notice, error)
	RemoveAll(ctx context.Context, sessionID string) error
	Snapshot(ctx context.Context, sessionID string) (*Snapshot, error)
	Subscribe(sessionID string, fn Subscriber) func()
}

type service struct {
	kv   redis.KV
	logg *logger.Logger

	mu          sync.Mutex
	nextSubID   int
	subscribers map[string]map[int]Subscriber
}

// NewService builds a cart service backed by the provided key/value store.
func NewService(kv redis.KV, logg *logger.Logger) (Service, error) {
	if kv == nil {
		return nil, fmt.Errorf("cart storage required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		kv:          kv,
		logg:        logg,
		subscribers: map[string]map[int]Subscriber{},
	}, nil
}

func (s *service) AddItem(ctx context.Context, sessionID string, item types.CartItem) (*Snapshot, *types.Notice, error) {
	if sessionID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if item.EffectivePrice().IsNegative() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "item discount exceeds its price")
	}

	items, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	for _, existing := range items {
		if existing.ProductID == item.ProductID {
			// Duplicate adds are a no-op; the shopper just gets told.
			snap := buildSnapshot(items)
			return &snap, &types.Notice{
				Title:       "El producto ya existe en el carrito.",
				Destructive: true,
			}, nil
		}
	}

	items = append(items, item)
	if err := s.persist(ctx, sessionID, items); err != nil {
		return nil, nil, err
	}

	snap := buildSnapshot(items)
	s.notify(sessionID, snap)
	return &snap, &types.Notice{Title: "Producto añadido al carrito 🛒"}, nil
}

func (s *service) RemoveItem(ctx context.Context, sessionID string, productID int64) (*Snapshot, *types.Notice, error) {
	if sessionID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	items, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	kept := items[:0]
	for _, existing := range items {
		if existing.ProductID != productID {
			kept = append(kept, existing)
		}
	}

	if err := s.persist(ctx, sessionID, kept); err != nil {
		return nil, nil, err
	}

	snap := buildSnapshot(kept)
	s.notify(sessionID, snap)
	return &snap, &types.Notice{Title: "Producto eliminado del carrito 🛒"}, nil
}

func (s *service) RemoveAll(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if err := s.kv.Del(ctx, redis.CartKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	s.logg.Info(s.logg.WithSessionID(ctx, sessionID), "cart emptied")
	s.notify(sessionID, buildSnapshot(nil))
	return nil
}

func (s *service) Snapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	items, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snap := buildSnapshot(items)
	return &snap, nil
}

// Subscribe registers fn for a session's cart changes. The returned
// function removes the registration and is safe to call more than once.
func (s *service) Subscribe(sessionID string, fn Subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribers[sessionID] == nil {
		s.subscribers[sessionID] = map[int]Subscriber{}
	}
	s.nextSubID++
	id := s.nextSubID
	s.subscribers[sessionID][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if subs, ok := s.subscribers[sessionID]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(s.subscribers, sessionID)
			}
		}
	}
}

func (s *service) notify(sessionID string, snap Snapshot) {
	s.mu.Lock()
	subs := make([]Subscriber, 0, len(s.subscribers[sessionID]))
	for _, fn := range s.subscribers[sessionID] {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *service) load(ctx context.Context, sessionID string) ([]types.CartItem, error) {
	raw, err := s.kv.Get(ctx, redis.CartKey(sessionID))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	var items []types.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode stored cart")
	}
	return items, nil
}

func (s *service) persist(ctx context.Context, sessionID string, items []types.CartItem) error {
	if len(items) == 0 {
		if err := s.kv.Del(ctx, redis.CartKey(sessionID)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	// No TTL: the cart survives reloads and restarts until cleared.
	if err := s.kv.Set(ctx, redis.CartKey(sessionID), string(payload), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	return nil
}

func buildSnapshot(items []types.CartItem) Snapshot {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.EffectivePrice())
	}
	return Snapshot{Items: items, Total: total}
}
