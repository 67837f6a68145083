package db

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/livetv/internal/logger"
	"gorm.io/gorm"
)

// WithTransaction runs fn inside a transaction, committing on nil and rolling back otherwise
func (db *DB) WithTransaction(ctx context.Context, fn func(*gorm.DB) error) error {
	err := db.DB.WithContext(ctx).Transaction(fn)
	if err != nil {
		logger.Log.Debug().Err(err).Msg("Catalog transaction rolled back")
		return fmt.Errorf("transaction error: %w", err)
	}
	return nil
}
