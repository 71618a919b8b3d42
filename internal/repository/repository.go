// Package repository provides the typed CRUD + query layer over the
// document store.
//
// Repository[T] binds one collection to an entity type via a Codec and is
// the single error-translation boundary: every store failure leaving this
// package is an *apperr.Error with a data-layer category, a mapped code and
// a severity. The repositories perform no per-call authorization: they are
// constructed with an explicitly trusted store handle, and callers above
// them own authorization.
package repository

import (
	"context"

	"github.com/partnerdesk/partnerdesk/internal/apperr"
	"github.com/partnerdesk/partnerdesk/internal/datastore"
)

// Codec converts between an entity and its stored document. ToDoc must not
// emit system fields; FromDoc receives them populated by the store.
type Codec[T any] struct {
	FromDoc func(datastore.Document) (T, error)
	ToDoc   func(T) map[string]any
}

// ListOptions carries store-level options for unfiltered listings.
type ListOptions struct {
	Limit      int
	Skip       int
	Consistent bool
	SortField  string
	Descending bool
}

// Repository is a generic typed CRUD + query abstraction over one named
// collection.
type Repository[T any] struct {
	store      datastore.Store
	collection string
	codec      Codec[T]
}

// New creates a repository bound to a collection.
func New[T any](store datastore.Store, collection string, codec Codec[T]) *Repository[T] {
	return &Repository[T]{store: store, collection: collection, codec: codec}
}

// Collection returns the bound collection name.
func (r *Repository[T]) Collection() string {
	return r.collection
}

// Create inserts a new entity. The store assigns id and timestamps; a
// caller-supplied id is rejected.
func (r *Repository[T]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	fields := r.codec.ToDoc(item)
	for _, sys := range []string{datastore.FieldID, datastore.FieldCreatedAt, datastore.FieldUpdatedAt} {
		if _, present := fields[sys]; present {
			return zero, apperr.Newf(apperr.CategoryValidation, "system field %s must not be supplied on create", sys).
				WithLayer(apperr.LayerRepository)
		}
	}

	doc, err := r.store.Insert(ctx, r.collection, fields)
	if err != nil {
		return zero, translate(err, r.collection, "create", "")
	}
	return r.decode(doc, "create")
}

// FindByID returns the entity, or nil when the store reports not-found.
// Not-found on a direct by-id fetch is a valid non-error outcome.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	doc, err := r.store.Get(ctx, r.collection, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, translate(err, r.collection, "findById", id)
	}
	item, err := r.decode(doc, "findById")
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindAll returns an unfiltered listing respecting only store-level options.
func (r *Repository[T]) FindAll(ctx context.Context, opts ListOptions) ([]T, error) {
	q := datastore.NewQuery().Limit(opts.Limit).Skip(opts.Skip)
	if opts.Consistent {
		q.Consistent()
	}
	if opts.SortField != "" {
		if opts.Descending {
			q.Descending(opts.SortField)
		} else {
			q.Ascending(opts.SortField)
		}
	}
	return r.query(ctx, q, "findAll")
}

// Update merge-patches fields into the entity with the given id. A missing
// entity is an error here, unlike FindByID: not-found discovered
// mid-operation always propagates.
func (r *Repository[T]) Update(ctx context.Context, id string, fields map[string]any, opts ...datastore.UpdateOption) (T, error) {
	var zero T
	if id == "" {
		return zero, apperr.New(apperr.CategoryValidation, "update requires an id").
			WithLayer(apperr.LayerRepository)
	}
	doc, err := r.store.Update(ctx, r.collection, id, fields, opts...)
	if err != nil {
		return zero, translate(err, r.collection, "update", id)
	}
	return r.decode(doc, "update")
}

// Remove hard-deletes the entity and returns the deleted record.
func (r *Repository[T]) Remove(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := r.store.Remove(ctx, r.collection, id)
	if err != nil {
		return zero, translate(err, r.collection, "remove", id)
	}
	return r.decode(doc, "remove")
}

// FindByField returns all entities whose field equals value.
func (r *Repository[T]) FindByField(ctx context.Context, field string, value any) ([]T, error) {
	return r.query(ctx, datastore.NewQuery().Eq(field, value), "findByField")
}

// FindOneByField returns the first entity whose field equals value, or nil.
func (r *Repository[T]) FindOneByField(ctx context.Context, field string, value any) (*T, error) {
	items, err := r.query(ctx, datastore.NewQuery().Eq(field, value).Limit(1), "findOneByField")
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// Count returns the number of entities in the collection.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	n, err := r.store.Count(ctx, r.collection, datastore.NewQuery())
	if err != nil {
		return 0, translate(err, r.collection, "count", "")
	}
	return n, nil
}

// CountByField returns the number of entities whose field equals value.
func (r *Repository[T]) CountByField(ctx context.Context, field string, value any) (int64, error) {
	n, err := r.store.Count(ctx, r.collection, datastore.NewQuery().Eq(field, value))
	if err != nil {
		return 0, translate(err, r.collection, "countByField", "")
	}
	return n, nil
}

// FindByQuery runs a caller-composed query.
func (r *Repository[T]) FindByQuery(ctx context.Context, q *datastore.Query, method string) ([]T, error) {
	return r.query(ctx, q, method)
}

func (r *Repository[T]) query(ctx context.Context, q *datastore.Query, method string) ([]T, error) {
	result, err := r.store.Query(ctx, r.collection, q)
	if err != nil {
		return nil, translate(err, r.collection, method, "")
	}
	items := make([]T, 0, len(result.Items))
	for _, doc := range result.Items {
		item, err := r.decode(doc, method)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository[T]) decode(doc datastore.Document, method string) (T, error) {
	item, err := r.codec.FromDoc(doc)
	if err != nil {
		var zero T
		return zero, apperr.Wrap(err, apperr.CategoryDataLayer, "decoding stored document").
			WithCode(CodeInvalidItem).
			WithLayer(apperr.LayerRepository).
			WithContext("collection", r.collection).
			WithContext("method", method)
	}
	return item, nil
}
