// Package gormstore implements store.Store on Postgres through GORM.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"classhub/internal/models"
	"classhub/internal/store"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to Postgres with driver error translation enabled.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates every table the API uses.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(models.All()...)
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithTx runs fn inside a transaction bound to ctx.
func (s *Store) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// translate maps driver errors onto the store sentinels.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case isUniqueViolation(err):
		return store.ErrDuplicate
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func page(q *gorm.DB, p store.Page) *gorm.DB {
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	return q
}

func like(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

// list counts the filtered query before applying the page window.
func list[T any](q *gorm.DB, p store.Page, order string, op string) ([]T, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translate(op, err)
	}
	out := []T{}
	if err := page(q, p).Order(order).Find(&out).Error; err != nil {
		return nil, 0, translate(op, err)
	}
	return out, total, nil
}

// deleteByID reports ErrNotFound when nothing was removed.
func deleteByID(ctx context.Context, db *gorm.DB, model any, id uint, op string) error {
	res := db.WithContext(ctx).Delete(model, id)
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func getByID[T any](ctx context.Context, db *gorm.DB, id uint, op string) (T, error) {
	var out T
	if err := db.WithContext(ctx).First(&out, id).Error; err != nil {
		return out, translate(op, err)
	}
	return out, nil
}

// save updates every column of an existing row.
func save(ctx context.Context, db *gorm.DB, model any, id uint, op string) error {
	res := db.WithContext(ctx).Model(model).Where("id = ?", id).Select("*").Omit("id", "created_at").Updates(model)
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
