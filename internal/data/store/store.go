// Package store is the contract between provisioning and the document store.
package store

import (
	"context"

	apperrors "mongoprov/internal/errors"
	"mongoprov/internal/schema"
)

// IndexInfo describes an index as the store reports it.
type IndexInfo struct {
	Name   string
	Keys   []schema.KeyField
	Unique bool
}

// Matches reports whether the index has the spec's key pattern and uniqueness.
func (i IndexInfo) Matches(spec schema.IndexSpec) bool {
	return spec.SameKeys(i.Keys) && i.Unique == spec.Unique
}

// Store is the administrative surface of a document database.
//
// Errors are *apperrors.AppError values with one of the codes
// CodeStoreUnavailable, CodeNamespaceExists, CodeDuplicateValues,
// CodeIndexConflict or CodeDatabaseGeneric.
type Store interface {
	// Database returns the name of the database the store is bound to.
	Database() string
	Ping(ctx context.Context) error
	CollectionNames(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, name string) error
	// Indexes lists the indexes of a collection; a missing collection has none.
	Indexes(ctx context.Context, collection string) ([]IndexInfo, error)
	// CreateIndex builds the index and returns its name.
	CreateIndex(ctx context.Context, collection string, spec schema.IndexSpec) (string, error)
	Close(ctx context.Context) error
}

const module = "store"

func unavailable(operation string, err error) *apperrors.AppError {
	return apperrors.NetworkError(apperrors.CodeStoreUnavailable, "document store is unreachable", err).
		WithModule(module).
		WithOperation(operation)
}

func namespaceExists(operation, collection string, err error) *apperrors.AppError {
	return apperrors.DatabaseError(apperrors.CodeNamespaceExists, "collection already exists", err).
		WithModule(module).
		WithOperation(operation).
		WithField("collection", collection)
}

func duplicateValues(operation, collection string, spec schema.IndexSpec, err error) *apperrors.AppError {
	return apperrors.DatabaseError(apperrors.CodeDuplicateValues,
		"existing documents hold duplicate values for a unique index; remove the duplicates and rerun", err).
		WithModule(module).
		WithOperation(operation).
		WithFields(apperrors.Metadata{
			"collection": collection,
			"index":      spec.IndexName(),
			"keys":       spec.KeyPattern(),
		})
}

func indexConflict(operation, collection string, spec schema.IndexSpec, err error) *apperrors.AppError {
	return apperrors.DatabaseError(apperrors.CodeIndexConflict,
		"an index with the same name or keys but different options already exists", err).
		WithModule(module).
		WithOperation(operation).
		WithFields(apperrors.Metadata{
			"collection": collection,
			"index":      spec.IndexName(),
			"keys":       spec.KeyPattern(),
		})
}

func storeFailure(operation, message string, err error) *apperrors.AppError {
	return apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, message, err).
		WithModule(module).
		WithOperation(operation)
}
