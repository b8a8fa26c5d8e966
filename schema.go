package auth

import (
	"context"

	"github.com/uptrace/bun"
)

// CreateSchema creates every table owned by this package if missing
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return internalError(err, "failed to create schema")
		}
	}
	return nil
}
