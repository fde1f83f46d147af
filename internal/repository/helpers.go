package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-popup-ledger/internal/apperror"
)

// forUpdate adds a row lock on engines that support it; SQLite ignores it.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// notFound maps gorm's sentinel onto the domain kind and leaves every other
// error untouched.
func notFound(err error, op, what string, key any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(op, "%s %v not found", what, key)
	}
	return err
}
