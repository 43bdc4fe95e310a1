package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by domain repositories to share connection handling.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx, or the raw connection when ctx is nil.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bound reports the connection this Base was built with.
func (b Base) Bound() *gorm.DB {
	return b.db
}

// WithTx returns a Base bound to tx so writes join the caller's transaction.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}
