package cart

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/topsevenstore/checkout-api/pkg/errors"
	"github.com/topsevenstore/checkout-api/pkg/logger"
	"github.com/topsevenstore/checkout-api/pkg/redis"
	"github.com/topsevenstore/checkout-api/pkg/types"
)

type fakeKV struct {
	data   map[string]string
	setErr error
	getErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value.(string)
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func newTestService(t *testing.T, kv redis.KV) Service {
	t.Helper()
	svc, err := NewService(kv, logger.New(logger.Options{Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func item(id int64, price string) types.CartItem {
	return types.CartItem{
		ProductID: id,
		Name:      "Producto",
		Price:     decimal.RequireFromString(price),
	}
}

func TestAddItemPersistsAndNotifies(t *testing.T) {
	kv := newFakeKV()
	svc := newTestService(t, kv)
	ctx := context.Background()

	var seen []Snapshot
	unsubscribe := svc.Subscribe("sess-1", func(snap Snapshot) {
		seen = append(seen, snap)
	})
	defer unsubscribe()

	snap, notice, err := svc.AddItem(ctx, "sess-1", item(7, "49.90"))
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if notice == nil || notice.Destructive {
		t.Fatalf("expected success notice, got %+v", notice)
	}
	if len(snap.Items) != 1 || snap.Items[0].ProductID != 7 {
		t.Fatalf("unexpected snapshot items: %+v", snap.Items)
	}
	if _, ok := kv.data[redis.CartKey("sess-1")]; !ok {
		t.Fatal("expected cart persisted")
	}
	if len(seen) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(seen))
	}
}

func TestAddItemDuplicateIsNoOp(t *testing.T) {
	kv := newFakeKV()
	svc := newTestService(t, kv)
	ctx := context.Background()

	if _, _, err := svc.AddItem(ctx, "sess-1", item(7, "49.90")); err != nil {
		t.Fatalf("first AddItem: %v", err)
	}

	duplicate := item(7, "10.00")
	duplicate.Name = "Otro nombre"
	snap, notice, err := svc.AddItem(ctx, "sess-1", duplicate)
	if err != nil {
		t.Fatalf("duplicate AddItem: %v", err)
	}
	if notice == nil || !notice.Destructive {
		t.Fatalf("expected destructive notice, got %+v", notice)
	}
	if len(snap.Items) != 1 || snap.Items[0].Name != "Producto" {
		t.Fatalf("duplicate add must not mutate the cart: %+v", snap.Items)
	}
}

func TestAddItemRejectsNegativeEffectivePrice(t *testing.T) {
	svc := newTestService(t, newFakeKV())

	bad := item(3, "10.00")
	discount := decimal.RequireFromString("12.00")
	bad.Discount = &discount

	_, _, err := svc.AddItem(context.Background(), "sess-1", bad)
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRemoveItemDropsOnlyMatching(t *testing.T) {
	kv := newFakeKV()
	svc := newTestService(t, kv)
	ctx := context.Background()

	for _, it := range []types.CartItem{item(1, "10.00"), item(2, "20.00"), item(3, "30.00")} {
		if _, _, err := svc.AddItem(ctx, "sess-1", it); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}

	snap, notice, err := svc.RemoveItem(ctx, "sess-1", 2)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if notice == nil {
		t.Fatal("expected removal notice")
	}
	if len(snap.Items) != 2 || snap.Items[0].ProductID != 1 || snap.Items[1].ProductID != 3 {
		t.Fatalf("unexpected remaining items: %+v", snap.Items)
	}
}

func TestRemoveItemMissingIDKeepsCart(t *testing.T) {
	kv := newFakeKV()
	svc := newTestService(t, kv)
	ctx := context.Background()

	if _, _, err := svc.AddItem(ctx, "sess-1", item(1, "10.00")); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	snap, _, err := svc.RemoveItem(ctx, "sess-1", 99)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(snap.Items) != 1 {
		t.Fatalf("expected cart untouched, got %+v", snap.Items)
	}
}

func TestRemoveAllClearsKey(t *testing.T) {
	kv := newFakeKV()
	svc := newTestService(t, kv)
	ctx := context.Background()

	if _, _, err := svc.AddItem(ctx, "sess-1", item(1, "10.00")); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := svc.RemoveAll(ctx, "sess-1"); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, ok := kv.data[redis.CartKey("sess-1")]; ok {
		t.Fatal("expected cart key deleted")
	}

	snap, err := svc.Snapshot(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Items) != 0 || !snap.Total.IsZero() {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestSnapshotTotalUsesDiscountedPrices(t *testing.T) {
	kv := newFakeKV()
	svc := newTestService(t, kv)
	ctx := context.Background()

	discounted := item(1, "100.00")
	discount := decimal.RequireFromString("15.50")
	discounted.Discount = &discount

	if _, _, err := svc.AddItem(ctx, "sess-1", discounted); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, _, err := svc.AddItem(ctx, "sess-1", item(2, "0.10")); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	snap, err := svc.Snapshot(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if want := decimal.RequireFromString("84.60"); !snap.Total.Equal(want) {
		t.Fatalf("total = %s, want %s", snap.Total, want)
	}
}

func TestSnapshotsAreIsolatedPerSession(t *testing.T) {
	kv := newFakeKV()
	svc := newTestService(t, kv)
	ctx := context.Background()

	if _, _, err := svc.AddItem(ctx, "sess-a", item(1, "10.00")); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	snap, err := svc.Snapshot(ctx, "sess-b")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Items) != 0 {
		t.Fatalf("expected empty cart for other session, got %+v", snap.Items)
	}
}

func TestUnsubscribeStopsNotificationsAndIsIdempotent(t *testing.T) {
	kv := newFakeKV()
	svc := newTestService(t, kv)
	ctx := context.Background()

	calls := 0
	unsubscribe := svc.Subscribe("sess-1", func(Snapshot) { calls++ })

	if _, _, err := svc.AddItem(ctx, "sess-1", item(1, "10.00")); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	unsubscribe()
	unsubscribe()
	if _, _, err := svc.AddItem(ctx, "sess-1", item(2, "20.00")); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", calls)
	}
}

func TestStorageFailureSurfacesDependencyError(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("connection refused")
	svc := newTestService(t, kv)

	_, _, err := svc.AddItem(context.Background(), "sess-1", item(1, "10.00"))
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
