package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeIdempotencyStore struct {
	claimFn    func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error)
	completeFn func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	releaseFn  func(ctx context.Context, key string) error
}

func (f *fakeIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	if f.claimFn != nil {
		return f.claimFn(ctx, key, ttl)
	}
	return true, nil, nil
}

func (f *fakeIdempotencyStore) Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if f.completeFn != nil {
		return f.completeFn(ctx, key, response, ttl)
	}
	return nil
}

func (f *fakeIdempotencyStore) Release(ctx context.Context, key string) error {
	if f.releaseFn != nil {
		return f.releaseFn(ctx, key)
	}
	return nil
}

func idempotentRequest(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", bytes.NewBufferString(`{}`))
	req.Header.Set(IdempotencyKeyHeader, key)
	return req.WithContext(WithUserID(req.Context(), "alice"))
}

func TestIdempotencyMiddleware_StoreErrors(t *testing.T) {
	var called bool
	store := &fakeIdempotencyStore{
		claimFn: func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
			return false, nil, context.DeadlineExceeded
		},
	}
	mw := NewIdempotencyMiddleware(store, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, idempotentRequest("key-err"))

	if called {
		t.Fatalf("handler should not be called when store errors")
	}
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_CompletesSuccessfulResponses(t *testing.T) {
	var (
		claimedKey string
		stored     []byte
	)
	store := &fakeIdempotencyStore{
		claimFn: func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
			claimedKey = key
			return true, nil, nil
		},
		completeFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) error {
			stored = response
			return nil
		},
	}
	mw := NewIdempotencyMiddleware(store, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"e1"}`))
	})).ServeHTTP(rr, idempotentRequest("k1"))

	if claimedKey != "alice:/api/v1/entries:k1" {
		t.Fatalf("expected key scoped to caller and path, got %q", claimedKey)
	}
	if string(stored) != `{"id":"e1"}` {
		t.Fatalf("expected response to be stored, got %s", stored)
	}
}

func TestIdempotencyMiddleware_ReleasesFailedResponses(t *testing.T) {
	var completed, released bool
	store := &fakeIdempotencyStore{
		completeFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) error {
			completed = true
			return nil
		},
		releaseFn: func(ctx context.Context, key string) error {
			released = true
			return nil
		},
	}
	mw := NewIdempotencyMiddleware(store, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})).ServeHTTP(rr, idempotentRequest("k2"))

	if completed || !released {
		t.Fatalf("expected failed response to release the key, completed=%v released=%v", completed, released)
	}
}

func TestIdempotencyMiddleware_ReplaysCachedResponse(t *testing.T) {
	store := &fakeIdempotencyStore{
		claimFn: func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
			return false, []byte(`{"id":"e1"}`), nil
		},
	}
	mw := NewIdempotencyMiddleware(store, zerolog.Nop())

	var called bool
	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, idempotentRequest("k3"))

	if called {
		t.Fatalf("handler must not run on replay")
	}
	if rr.Header().Get("X-Idempotency-Replay") != "true" || rr.Body.String() != `{"id":"e1"}` {
		t.Fatalf("unexpected replay: headers=%v body=%s", rr.Header(), rr.Body.String())
	}
}

func TestIdempotencyMiddleware_InFlightConflict(t *testing.T) {
	store := &fakeIdempotencyStore{
		claimFn: func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
			return false, nil, nil
		},
	}
	mw := NewIdempotencyMiddleware(store, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rr, idempotentRequest("k4"))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_SkipsWithoutKey(t *testing.T) {
	store := &fakeIdempotencyStore{
		claimFn: func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
			t.Fatal("store must not be consulted")
			return false, nil, nil
		},
	}
	mw := NewIdempotencyMiddleware(store, zerolog.Nop())

	var called bool
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", nil)
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatalf("handler should run when no key is sent")
	}
}
