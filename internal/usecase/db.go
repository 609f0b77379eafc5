package usecase

import (
	"context"

	"gorm.io/gorm"
)

// dbConn is the database surface the usecases touch: a plain session for
// reads and a transaction scope for transitions. Repositories receive the
// handle per call, so a fake conn can hand them a nil *gorm.DB.
type dbConn interface {
	Session(ctx context.Context) *gorm.DB
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormConn struct {
	db *gorm.DB
}

func (c gormConn) Session(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx)
}

func (c gormConn) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.db.WithContext(ctx).Transaction(fn)
}
