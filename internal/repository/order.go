package repository

import (
	"context"
	"encoding/json"

	"github.com/partnerdesk/partnerdesk/internal/datastore"
	"github.com/partnerdesk/partnerdesk/internal/domain"
)

// OrderCollection is the purchase order collection name.
const OrderCollection = "purchase_orders"

// OrderFilter contains options for filtering and paginating order lists.
type OrderFilter struct {
	PartnerID string
	Status    *domain.OrderStatus
	Limit     int
	Skip      int
}

// PurchaseOrderRepository provides purchase order persistence on top of the
// generic repository, including compare-and-swap status updates keyed on the
// version field.
type PurchaseOrderRepository struct {
	*Repository[domain.PurchaseOrder]
}

var orderCodec = Codec[domain.PurchaseOrder]{
	FromDoc: func(doc datastore.Document) (domain.PurchaseOrder, error) {
		return domain.PurchaseOrder{
			ID:                   doc.ID(),
			Identifier:           docString(doc, "identifier"),
			PartnerID:            docString(doc, "partnerId"),
			Status:               domain.OrderStatus(docString(doc, "status")),
			OrderID:              docString(doc, "orderId"),
			DraftOrderID:         docString(doc, "draftOrderId"),
			CalculatedDraftOrder: docRaw(doc, "calculatedDraftOrder"),
			Version:              docInt(doc, "version"),
			Owner:                docString(doc, datastore.FieldOwner),
			CreatedAt:            docTime(doc[datastore.FieldCreatedAt]),
			UpdatedAt:            docTime(doc[datastore.FieldUpdatedAt]),
		}, nil
	},
	ToDoc: func(o domain.PurchaseOrder) map[string]any {
		fields := map[string]any{
			"identifier":   o.Identifier,
			"partnerId":    o.PartnerID,
			"status":       string(o.Status),
			"orderId":      o.OrderID,
			"draftOrderId": o.DraftOrderID,
			"version":      o.Version,
		}
		if len(o.CalculatedDraftOrder) > 0 {
			fields["calculatedDraftOrder"] = json.RawMessage(o.CalculatedDraftOrder)
		}
		if o.Owner != "" {
			fields[datastore.FieldOwner] = o.Owner
		}
		return fields
	},
}

// NewPurchaseOrderRepository creates the order repository and ensures its
// collection.
func NewPurchaseOrderRepository(ctx context.Context, store datastore.Store) (*PurchaseOrderRepository, error) {
	if err := store.EnsureCollection(ctx, OrderCollection); err != nil {
		return nil, translate(err, OrderCollection, "ensureCollection", "")
	}
	return &PurchaseOrderRepository{Repository: New(store, OrderCollection, orderCodec)}, nil
}

// SaveContent writes the full mutable field set of an existing order with a
// version precondition, bumping the version on success.
func (r *PurchaseOrderRepository) SaveContent(ctx context.Context, o *domain.PurchaseOrder) (domain.PurchaseOrder, error) {
	fields := orderCodec.ToDoc(*o)
	fields["version"] = o.Version + 1
	return r.Update(ctx, o.ID, fields, datastore.IfVersion(o.Version))
}

// UpdateStatus moves the order identified by id to the target status using
// compare-and-swap on version. The transition must already be validated by
// the caller; a stale version surfaces as a data-layer conflict.
func (r *PurchaseOrderRepository) UpdateStatus(ctx context.Context, id string, to domain.OrderStatus, version int) (domain.PurchaseOrder, error) {
	fields := map[string]any{
		"status":  string(to),
		"version": version + 1,
	}
	return r.Update(ctx, id, fields, datastore.IfVersion(version))
}

// FindByPartner lists all orders belonging to a partner.
func (r *PurchaseOrderRepository) FindByPartner(ctx context.Context, partnerID string) ([]domain.PurchaseOrder, error) {
	q := datastore.NewQuery().Eq("partnerId", partnerID).Descending(datastore.FieldCreatedAt)
	return r.FindByQuery(ctx, q, "findByPartner")
}

// FindByStatus lists all orders in a given status.
func (r *PurchaseOrderRepository) FindByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.PurchaseOrder, error) {
	return r.FindByField(ctx, "status", string(status))
}

// Search lists orders matching the filter, newest first.
func (r *PurchaseOrderRepository) Search(ctx context.Context, filter OrderFilter) ([]domain.PurchaseOrder, error) {
	q := datastore.NewQuery().Descending(datastore.FieldCreatedAt).Limit(filter.Limit).Skip(filter.Skip)
	if filter.PartnerID != "" {
		q.Eq("partnerId", filter.PartnerID)
	}
	if filter.Status != nil {
		q.Eq("status", string(*filter.Status))
	}
	return r.FindByQuery(ctx, q, "search")
}
