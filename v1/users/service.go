package users

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/mirkobrombin/go-redisdemo/v1/cache"
	warperrors "github.com/mirkobrombin/go-redisdemo/v1/errors"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-redisdemo/v1/users")

const defaultCacheTTL = time.Minute

// Service applies user rules on top of a Store.
type Service struct {
	store    Store
	cache    cache.Cache[User]
	cacheTTL time.Duration
	validate *validator.Validate
	group    singleflight.Group

	// gen counts invalidations. A lookup only fills the cache when no
	// write invalidated it while the store read was in flight.
	mu  sync.Mutex
	gen uint64
}

// Option configures a Service.
type Option func(*Service)

// WithCache puts c in front of the store for Get. Writes invalidate it.
func WithCache(c cache.Cache[User], ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewService returns a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cacheTTL: defaultCacheTTL,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cacheKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

// ValidationError reports a payload rejected by the validator.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid user: " + e.Err.Error() }

func (e *ValidationError) Unwrap() error { return warperrors.ErrInvalidArgument }

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// Create registers a new user. It fails with errors.ErrEmailTaken when the
// email already belongs to a user.
func (s *Service) Create(ctx context.Context, in UserCreate) (User, error) {
	ctx, span := tracer.Start(ctx, "Service.Create")
	defer span.End()

	if err := s.check(in); err != nil {
		return User{}, err
	}
	if _, found, err := s.store.GetByEmail(ctx, in.Email); err != nil {
		return User{}, err
	} else if found {
		return User{}, warperrors.ErrEmailTaken
	}
	u, err := s.store.Create(ctx, User{Name: in.Name, Email: in.Email})
	if err != nil {
		span.RecordError(err)
		return User{}, err
	}
	span.SetAttributes(attribute.Int64("redisdemo.user.id", u.ID))
	return u, nil
}

// Get returns the user with id or errors.ErrNotFound. Concurrent misses for
// the same id share one store lookup.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	ctx, span := tracer.Start(ctx, "Service.Get", trace.WithAttributes(attribute.Int64("redisdemo.user.id", id)))
	defer span.End()

	key := cacheKey(id)
	if s.cache != nil {
		if u, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			span.SetAttributes(attribute.String("redisdemo.cache.result", "hit"))
			return u, nil
		}
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		gen := s.generation()
		u, found, err := s.store.Get(ctx, id)
		if err != nil {
			return User{}, err
		}
		if !found {
			return User{}, warperrors.ErrNotFound
		}
		s.fill(ctx, key, u, gen)
		return u, nil
	})
	if err != nil {
		return User{}, err
	}
	return v.(User), nil
}

// Update changes the fields set in in. Moving to an email owned by another
// user fails with errors.ErrEmailTaken.
func (s *Service) Update(ctx context.Context, id int64, in UserUpdate) (User, error) {
	ctx, span := tracer.Start(ctx, "Service.Update", trace.WithAttributes(attribute.Int64("redisdemo.user.id", id)))
	defer span.End()

	if err := s.check(in); err != nil {
		return User{}, err
	}
	u, found, err := s.store.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !found {
		return User{}, warperrors.ErrNotFound
	}
	if in.Name != "" {
		u.Name = in.Name
	}
	if in.Email != "" && in.Email != u.Email {
		other, taken, err := s.store.GetByEmail(ctx, in.Email)
		if err != nil {
			return User{}, err
		}
		if taken && other.ID != id {
			return User{}, warperrors.ErrEmailTaken
		}
		u.Email = in.Email
	}
	u, err = s.store.Update(ctx, u)
	if err != nil {
		return User{}, err
	}
	s.invalidate(ctx, id)
	return u, nil
}

// Delete removes the user with id and returns it.
func (s *Service) Delete(ctx context.Context, id int64) (User, error) {
	ctx, span := tracer.Start(ctx, "Service.Delete", trace.WithAttributes(attribute.Int64("redisdemo.user.id", id)))
	defer span.End()

	u, found, err := s.store.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !found {
		return User{}, warperrors.ErrNotFound
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return User{}, err
	}
	s.invalidate(ctx, id)
	if !deleted {
		return User{}, fmt.Errorf("user %d: %w", id, warperrors.ErrNotFound)
	}
	return u, nil
}

func (s *Service) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// fill caches u unless an invalidation happened after gen was read.
func (s *Service) fill(ctx context.Context, key string, u User, gen uint64) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	_ = s.cache.Set(ctx, key, u, s.cacheTTL)
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	_ = s.cache.Invalidate(ctx, cacheKey(id))
}
