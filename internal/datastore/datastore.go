// Package datastore defines the opaque document-collection store contract.
//
// The store is a collection-scoped CRUD + filtered query backend. It assigns
// the system fields (_id, _createdAt, _updatedAt) itself; callers never set
// them. Failures carry a short backend code string which the repository
// layer translates into the application error model; nothing above the
// repository ever sees a raw store error.
//
// Two implementations exist: a PostgreSQL/JSONB one for production and an
// in-memory one for tests.
package datastore

import (
	"context"
	"fmt"
	"time"
)

// System field keys present on every stored document.
const (
	FieldID        = "_id"
	FieldCreatedAt = "_createdAt"
	FieldUpdatedAt = "_updatedAt"
	FieldOwner     = "_owner"
)

// Backend error codes. The repository maps these to domain error codes.
const (
	CodeCollectionNotFound = "COLLECTION_NOT_FOUND"
	CodeItemNotFound       = "ITEM_NOT_FOUND"
	CodeItemAlreadyExists  = "ITEM_ALREADY_EXISTS"
	CodeItemTooLarge       = "ITEM_TOO_LARGE"
	CodeInvalidItem        = "INVALID_ITEM"
	CodeFieldInvalid       = "FIELD_INVALID"
	CodeInvalidQuery       = "INVALID_QUERY"
	CodeQueryTimeout       = "QUERY_TIMEOUT"
	CodeInvalidPagination  = "INVALID_PAGINATION"
	CodeQuotaExceeded      = "QUOTA_EXCEEDED"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeVersionMismatch    = "VERSION_MISMATCH"
	CodeReferenceBroken    = "REFERENCE_BROKEN"
	CodeExternalConnection = "EXTERNAL_CONNECTION"
	CodeMultilingualField  = "MULTILINGUAL_FIELD"
	CodeHookFailed         = "HOOK_FAILED"
	CodeUnknown            = "UNKNOWN"
)

// AccessMode is the capability a store handle was constructed with. It is
// always passed explicitly, never assumed from ambient state, so test
// doubles can simulate both trusted and untrusted callers.
type AccessMode int

const (
	// AccessTrusted allows reads and writes. Authorization is the caller's
	// responsibility above the repository layer.
	AccessTrusted AccessMode = iota
	// AccessReadOnly refuses every mutation with CodePermissionDenied.
	AccessReadOnly
)

// Error is a store failure carrying a short backend code and the location
// (collection, operation, item) it occurred at.
type Error struct {
	Code       string
	Collection string
	Op         string
	ItemID     string
	Err        error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("datastore: %s %s: %s", e.Op, e.Collection, e.Code)
	if e.ItemID != "" {
		s += " (item " + e.ItemID + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the backend code from err, or CodeUnknown.
func CodeOf(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeUnknown
}

// Document is one stored record: user fields plus the system fields.
type Document map[string]any

// ID returns the store-assigned document id, if present.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// CreatedAt returns the store-assigned creation time, if present.
func (d Document) CreatedAt() time.Time {
	t, _ := d[FieldCreatedAt].(time.Time)
	return t
}

// UpdatedAt returns the store-assigned last-update time, if present.
func (d Document) UpdatedAt() time.Time {
	t, _ := d[FieldUpdatedAt].(time.Time)
	return t
}

// QueryResult holds one page of query matches. Total is only meaningful
// when the query requested a total count.
type QueryResult struct {
	Items    []Document
	Total    int64
	HasTotal bool
}

// CollectionOption configures a collection when it is ensured.
type CollectionOption func(*CollectionConfig)

// CollectionConfig is the declarative collection setup.
type CollectionConfig struct {
	UniqueFields []string
}

// UniqueField declares a field whose values must be unique across the
// collection, enforced by the store itself (not by read-then-write checks).
func UniqueField(field string) CollectionOption {
	return func(c *CollectionConfig) {
		c.UniqueFields = append(c.UniqueFields, field)
	}
}

// UpdateOption configures a single update call.
type UpdateOption func(*UpdateConfig)

// UpdateConfig holds update preconditions.
type UpdateConfig struct {
	ExpectVersion *int
}

// IfVersion makes the update a compare-and-swap: it only matches a document
// whose "version" field equals n, failing with CodeVersionMismatch when the
// document exists at a different version.
func IfVersion(n int) UpdateOption {
	return func(c *UpdateConfig) {
		c.ExpectVersion = &n
	}
}

// Store is the document store contract.
type Store interface {
	// EnsureCollection creates the named collection (and its unique-field
	// constraints) if it does not exist. Idempotent.
	EnsureCollection(ctx context.Context, name string, opts ...CollectionOption) error

	// Insert stores a new document, assigning _id, _createdAt, _updatedAt.
	Insert(ctx context.Context, collection string, fields map[string]any) (Document, error)

	// Get fetches one document by id. Missing items fail with
	// CodeItemNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Update merge-patches fields into an existing document and refreshes
	// _updatedAt. Missing items fail with CodeItemNotFound.
	Update(ctx context.Context, collection, id string, fields map[string]any, opts ...UpdateOption) (Document, error)

	// Remove hard-deletes a document and returns it.
	Remove(ctx context.Context, collection, id string) (Document, error)

	// Query runs a filtered query against the collection.
	Query(ctx context.Context, collection string, q *Query) (QueryResult, error)

	// Count returns the number of documents matching the query filters.
	Count(ctx context.Context, collection string, q *Query) (int64, error)
}
