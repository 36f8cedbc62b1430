// Package store is the gorm persistence layer. Every tenant scoped write
// carries the partner ID in its WHERE clause, on top of the ownership check
// done by the caller inside the same transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-partners/internal/errs"
	"gorm.io/gorm"
)

// ErrStale is returned when a guarded update matched no row because the
// record changed since it was read.
var ErrStale = fmt.Errorf("%w: record changed concurrently", errs.ErrConflict)

var errRecordNotFound = gorm.ErrRecordNotFound

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

// Transaction runs fn with a Store bound to a single database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

func (p Page) offset() int { return (p.Page - 1) * p.Limit }

// Normalized returns the page with defaults applied.
func (p Page) Normalized() Page { return p.normalize() }

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// wrap maps gorm errors onto the shared taxonomy.
func wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", msg, errs.ErrNotFound)
	case isDuplicate(err):
		return fmt.Errorf("%s: %w", msg, errs.ErrConflict)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Drivers opened without TranslateError.
	s := err.Error()
	return strings.Contains(s, "UNIQUE constraint failed") || strings.Contains(s, "duplicate key value")
}

func likePattern(q string) string {
	return "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
}
