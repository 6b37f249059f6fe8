package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/topsevenstore/checkout-api/api/middleware"
	"github.com/topsevenstore/checkout-api/internal/cart"
	"github.com/topsevenstore/checkout-api/pkg/logger"
)

type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string]string{}} }

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	value, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key] = value.(string)
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newCartService(t *testing.T) cart.Service {
	t.Helper()
	svc, err := cart.NewService(newFakeKV(), testLogger())
	if err != nil {
		t.Fatalf("cart.NewService: %v", err)
	}
	return svc
}

func withSession(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithSessionID(req.Context(), "sess-test"))
}

func TestCartAddReturnsSnapshotAndNotice(t *testing.T) {
	handler := CartAdd(newCartService(t), testLogger())

	body := `{"id":7,"name":"Producto","price":49.90}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.Items[0].ProductID != 7 {
		t.Fatalf("unexpected items: %+v", envelope.Data.Items)
	}
	if want := decimal.RequireFromString("49.9"); !envelope.Data.Total.Equal(want) {
		t.Fatalf("total = %s, want %s", envelope.Data.Total, want)
	}
	if envelope.Data.Notice == nil || envelope.Data.Notice.Destructive {
		t.Fatalf("expected success notice, got %+v", envelope.Data.Notice)
	}
}

func TestCartAddDuplicateKeepsDestructiveNotice(t *testing.T) {
	svc := newCartService(t)
	handler := CartAdd(svc, testLogger())

	body := `{"id":7,"name":"Producto","price":49.90}`
	for i := 0; i < 2; i++ {
		req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)))
		resp := httptest.NewRecorder()
		handler(resp, req)

		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
		if i == 1 {
			var envelope struct {
				Data cartResponse `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if envelope.Data.Notice == nil || !envelope.Data.Notice.Destructive {
				t.Fatalf("expected destructive notice on duplicate, got %+v", envelope.Data.Notice)
			}
			if len(envelope.Data.Items) != 1 {
				t.Fatalf("duplicate add must not grow the cart: %+v", envelope.Data.Items)
			}
		}
	}
}

func TestCartAddRejectsMalformedBody(t *testing.T) {
	handler := CartAdd(newCartService(t), testLogger())

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"name":"x"`)))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCartRemoveParsesPathParam(t *testing.T) {
	svc := newCartService(t)
	addHandler := CartAdd(svc, testLogger())
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items",
		strings.NewReader(`{"id":7,"name":"Producto","price":49.90}`)))
	addHandler(httptest.NewRecorder(), req)

	r := chi.NewRouter()
	r.Delete("/api/v1/cart/items/{productID}", CartRemove(svc, testLogger()))

	del := withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/7", nil))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, del)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", envelope.Data.Items)
	}
}

func TestCartRemoveRejectsNonNumericID(t *testing.T) {
	r := chi.NewRouter()
	r.Delete("/api/v1/cart/items/{productID}", CartRemove(newCartService(t), testLogger()))

	req := withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/abc", nil))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCartFetchEmptyCart(t *testing.T) {
	handler := CartFetch(newCartService(t), testLogger())

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Items == nil || len(envelope.Data.Items) != 0 {
		t.Fatalf("expected empty item array, got %#v", envelope.Data.Items)
	}
	if !envelope.Data.Total.IsZero() {
		t.Fatalf("empty cart total = %s", envelope.Data.Total)
	}
}
