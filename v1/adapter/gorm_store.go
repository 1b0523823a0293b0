package adapter

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	warperrors "github.com/mirkobrombin/go-redisdemo/v1/errors"
	"github.com/mirkobrombin/go-redisdemo/v1/users"
)

const (
	defaultGormTableName = "users"
	defaultGormOpTimeout = 5 * time.Second
)

// gormUser is the row model of the users table.
type gormUser struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"size:255;not null;index"`
	Email string `gorm:"size:255;not null;uniqueIndex"`
}

func (gormUser) TableName() string { return defaultGormTableName }

func (r gormUser) user() users.User {
	return users.User{ID: r.ID, Name: r.Name, Email: r.Email}
}

// GormUserStore implements users.Store using a GORM backend.
type GormUserStore struct {
	db        *gorm.DB
	tableName string
	timeout   time.Duration
}

// GormOption configures a GormUserStore.
type GormOption func(*gormStoreOptions)

type gormStoreOptions struct {
	tableName string
	timeout   time.Duration
}

// WithGormTableName sets the table name for the GormUserStore.
func WithGormTableName(name string) GormOption {
	return func(o *gormStoreOptions) {
		o.tableName = name
	}
}

// WithGormTimeout sets the operation timeout for GORM calls.
func WithGormTimeout(d time.Duration) GormOption {
	return func(o *gormStoreOptions) {
		o.timeout = d
	}
}

// NewGormUserStore returns a new GormUserStore using the provided GORM DB
// connection. Call Migrate before first use on an empty database.
func NewGormUserStore(db *gorm.DB, opts ...GormOption) *GormUserStore {
	o := gormStoreOptions{
		tableName: defaultGormTableName,
		timeout:   defaultGormOpTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &GormUserStore{
		db:        db,
		tableName: o.tableName,
		timeout:   o.timeout,
	}
}

// Migrate creates or updates the users table and its indexes.
func (s *GormUserStore) Migrate(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return mapErr(s.db.WithContext(cctx).Table(s.tableName).AutoMigrate(&gormUser{}))
}

func (s *GormUserStore) table(ctx context.Context) (*gorm.DB, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, mapErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(cctx).Table(s.tableName), cancel, nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return warperrors.ErrTimeout
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return warperrors.ErrEmailTaken
	default:
		return err
	}
}

func (s *GormUserStore) first(ctx context.Context, query string, arg any) (users.User, bool, error) {
	tx, cancel, err := s.table(ctx)
	if err != nil {
		return users.User{}, false, err
	}
	defer cancel()

	var row gormUser
	err = tx.Where(query, arg).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return users.User{}, false, nil
	}
	if err != nil {
		return users.User{}, false, mapErr(err)
	}
	return row.user(), true, nil
}

// Get implements users.Store.Get.
func (s *GormUserStore) Get(ctx context.Context, id int64) (users.User, bool, error) {
	return s.first(ctx, "id = ?", id)
}

// GetByEmail implements users.Store.GetByEmail.
func (s *GormUserStore) GetByEmail(ctx context.Context, email string) (users.User, bool, error) {
	return s.first(ctx, "email = ?", email)
}

// Create implements users.Store.Create.
func (s *GormUserStore) Create(ctx context.Context, u users.User) (users.User, error) {
	tx, cancel, err := s.table(ctx)
	if err != nil {
		return users.User{}, err
	}
	defer cancel()

	row := gormUser{Name: u.Name, Email: u.Email}
	if err := tx.Create(&row).Error; err != nil {
		return users.User{}, mapErr(err)
	}
	return row.user(), nil
}

// Update implements users.Store.Update.
func (s *GormUserStore) Update(ctx context.Context, u users.User) (users.User, error) {
	tx, cancel, err := s.table(ctx)
	if err != nil {
		return users.User{}, err
	}
	defer cancel()

	res := tx.Where("id = ?", u.ID).Updates(map[string]any{"name": u.Name, "email": u.Email})
	if res.Error != nil {
		return users.User{}, mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return users.User{}, warperrors.ErrNotFound
	}
	return u, nil
}

// Delete implements users.Store.Delete.
func (s *GormUserStore) Delete(ctx context.Context, id int64) (bool, error) {
	tx, cancel, err := s.table(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()

	res := tx.Where("id = ?", id).Delete(&gormUser{})
	if res.Error != nil {
		return false, mapErr(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Ping checks that the database answers.
func (s *GormUserStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return mapErr(sqlDB.PingContext(cctx))
}
