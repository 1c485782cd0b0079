// Package option holds composable query modifiers for pkg/repository.
package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

// WithSortBy orders by a column. direction is asc or desc, anything else
// falls back to asc.
func WithSortBy(column, direction string) QueryOption {
	dir := "ASC"
	if strings.EqualFold(direction, "desc") {
		dir = "DESC"
	}
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order(fmt.Sprintf("%s %s", column, dir))
	})
}

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}
