package users

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mirkobrombin/go-redisdemo/v1/cache"
	warperrors "github.com/mirkobrombin/go-redisdemo/v1/errors"
)

type memStore struct {
	mu     sync.Mutex
	next   int64
	rows   map[int64]User
	gets   atomic.Int64
	getErr error

	// afterGet runs once a row has been read, outside the lock.
	afterGet func()
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[int64]User)}
}

func (m *memStore) Get(ctx context.Context, id int64) (User, bool, error) {
	m.gets.Add(1)
	if m.getErr != nil {
		return User{}, false, m.getErr
	}
	m.mu.Lock()
	u, ok := m.rows[id]
	hook := m.afterGet
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return u, ok, nil
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			return u, true, nil
		}
	}
	return User{}, false, nil
}

func (m *memStore) Create(ctx context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	u.ID = m.next
	m.rows[u.ID] = u
	return u, nil
}

func (m *memStore) Update(ctx context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[u.ID]; !ok {
		return User{}, warperrors.ErrNotFound
	}
	m.rows[u.ID] = u
	return u, nil
}

func (m *memStore) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

func TestCreateThenGet(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, UserCreate{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Ada" || got.Email != "ada@example.com" {
		t.Fatalf("unexpected user %+v", got)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	if _, err := svc.Create(ctx, UserCreate{Name: "A", Email: "same@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, UserCreate{Name: "B", Email: "same@example.com"}); !errors.Is(err, warperrors.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	cases := []struct {
		name string
		in   UserCreate
	}{
		{"missing name", UserCreate{Email: "a@example.com"}},
		{"missing email", UserCreate{Name: "A"}},
		{"malformed email", UserCreate{Name: "A", Email: "not-an-email"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.in)
			if !errors.Is(err, warperrors.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	svc := NewService(newMemStore())
	if _, err := svc.Get(context.Background(), 99); !errors.Is(err, warperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetPropagatesStoreErrors(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("db down")
	svc := NewService(store)
	if _, err := svc.Get(context.Background(), 1); err == nil || errors.Is(err, warperrors.ErrNotFound) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestGetUsesCache(t *testing.T) {
	store := newMemStore()
	c, err := cache.NewRistretto[User]()
	if err != nil {
		t.Fatalf("ristretto: %v", err)
	}
	defer c.Close()
	svc := NewService(store, WithCache(c, time.Minute))
	ctx := context.Background()

	u, err := svc.Create(ctx, UserCreate{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Get(ctx, u.ID); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if n := store.gets.Load(); n != 1 {
		t.Fatalf("expected one store lookup, got %d", n)
	}

	if _, err := svc.Update(ctx, u.ID, UserUpdate{Name: "Grace"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := svc.Get(ctx, u.ID)
	if err != nil || got.Name != "Grace" {
		t.Fatalf("expected fresh value after update, got %+v err %v", got, err)
	}
}

func TestGetDoesNotCacheDeletedUser(t *testing.T) {
	store := newMemStore()
	c, err := cache.NewRistretto[User]()
	if err != nil {
		t.Fatalf("ristretto: %v", err)
	}
	defer c.Close()
	svc := NewService(store, WithCache(c, time.Minute))
	ctx := context.Background()

	u, err := svc.Create(ctx, UserCreate{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The delete lands between the store read and the cache fill.
	var fired atomic.Bool
	store.mu.Lock()
	store.afterGet = func() {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		if _, err := svc.Delete(ctx, u.ID); err != nil {
			t.Errorf("delete: %v", err)
		}
	}
	store.mu.Unlock()

	if _, err := svc.Get(ctx, u.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := svc.Get(ctx, u.ID); !errors.Is(err, warperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUpdateKeepsEmptyFields(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	u, err := svc.Create(ctx, UserCreate{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.Update(ctx, u.ID, UserUpdate{Email: "lovelace@example.com"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Ada" || got.Email != "lovelace@example.com" {
		t.Fatalf("unexpected user %+v", got)
	}
}

func TestUpdateEmailConflict(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	a, _ := svc.Create(ctx, UserCreate{Name: "A", Email: "a@example.com"})
	if _, err := svc.Create(ctx, UserCreate{Name: "B", Email: "b@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Update(ctx, a.ID, UserUpdate{Email: "b@example.com"}); !errors.Is(err, warperrors.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := svc.Update(ctx, 404, UserUpdate{Name: "x"}); !errors.Is(err, warperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	u, _ := svc.Create(ctx, UserCreate{Name: "A", Email: "a@example.com"})
	deleted, err := svc.Delete(ctx, u.ID)
	if err != nil || deleted != u {
		t.Fatalf("delete: %+v err %v", deleted, err)
	}
	if _, err := svc.Delete(ctx, u.ID); !errors.Is(err, warperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
