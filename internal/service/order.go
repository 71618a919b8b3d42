package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/partnerdesk/partnerdesk/internal/apperr"
	"github.com/partnerdesk/partnerdesk/internal/domain"
	"github.com/partnerdesk/partnerdesk/internal/event"
	"github.com/partnerdesk/partnerdesk/internal/repository"
	"github.com/partnerdesk/partnerdesk/internal/validate"
)

// PurchaseOrderService handles purchase-order business operations.
type PurchaseOrderService struct {
	orders    *repository.PurchaseOrderRepository
	partners  *repository.PartnerRepository
	publisher event.Publisher
}

func NewPurchaseOrderService(
	orders *repository.PurchaseOrderRepository,
	partners *repository.PartnerRepository,
	publisher event.Publisher,
) *PurchaseOrderService {
	return &PurchaseOrderService{
		orders:    orders,
		partners:  partners,
		publisher: publisher,
	}
}

// CreateOrderInput is the raw input for opening a purchase order.
type CreateOrderInput struct {
	PartnerID            string `validate:"required"`
	Identifier           string `validate:"omitempty,max=64"`
	CalculatedDraftOrder json.RawMessage
	Owner                string
}

// Normalize trims the text fields before validation.
func (in *CreateOrderInput) Normalize() {
	in.PartnerID = strings.TrimSpace(in.PartnerID)
	in.Identifier = strings.TrimSpace(in.Identifier)
}

// Create validates input, checks the owning partner's order eligibility and
// stores a new draft order at version 1.
func (s *PurchaseOrderService) Create(ctx context.Context, input CreateOrderInput) (*domain.PurchaseOrder, error) {
	input, err := validate.MustValidate(input, "purchase order")
	if err != nil {
		return nil, err
	}

	partner, err := s.partners.FindByID(ctx, input.PartnerID)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, apperr.Newf(apperr.CategoryNotFound, "partner %s does not exist", input.PartnerID).
			WithSeverity(apperr.SeverityLow).
			WithUser("The referenced partner does not exist.").
			WithLayer(apperr.LayerService)
	}
	if !partner.CanCreateOrders() {
		return nil, apperr.Newf(apperr.CategoryBusinessRule, "partner %s may not create orders", partner.ID).
			WithCode(CodeOrdersNotAllowed).
			WithUser("This partner is not eligible to place orders.").
			WithLayer(apperr.LayerService).
			WithContext("partnerStatus", string(partner.Status))
	}

	o := domain.PurchaseOrder{
		Identifier:           input.Identifier,
		PartnerID:            input.PartnerID,
		CalculatedDraftOrder: input.CalculatedDraftOrder,
		Owner:                input.Owner,
	}
	o.Normalize()
	if err := o.Validate(); err != nil {
		return nil, validationError(err, "purchase order")
	}

	created, err := s.orders.Create(ctx, o)
	if err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, domain.NewEvent(domain.EventOrderCreated, created.ID, map[string]any{
		"partnerId": created.PartnerID,
	}))

	return &created, nil
}

// Get returns an order, or nil when it does not exist.
func (s *PurchaseOrderService) Get(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	return s.orders.FindByID(ctx, id)
}

// List returns orders matching the filter, newest first.
func (s *PurchaseOrderService) List(ctx context.Context, filter repository.OrderFilter) ([]domain.PurchaseOrder, error) {
	return s.orders.Search(ctx, filter)
}

// ListByPartner returns all orders belonging to a partner.
func (s *PurchaseOrderService) ListByPartner(ctx context.Context, partnerID string) ([]domain.PurchaseOrder, error) {
	return s.orders.FindByPartner(ctx, partnerID)
}

// UpdateOrderInput is a partial content update; nil fields are unchanged.
type UpdateOrderInput struct {
	Identifier           *string
	OrderID              *string
	DraftOrderID         *string
	CalculatedDraftOrder json.RawMessage
}

// Update applies a content edit to a draft order. Orders past draft refuse
// content edits; the write is a compare-and-swap on the order version.
func (s *PurchaseOrderService) Update(ctx context.Context, id string, input UpdateOrderInput) (*domain.PurchaseOrder, error) {
	o, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Editable() {
		return nil, apperr.Newf(apperr.CategoryBusinessRule, "order %s is %s and no longer editable", id, o.Status).
			WithCode(CodeOrderNotEditable).
			WithUser("Only draft orders can be edited.").
			WithLayer(apperr.LayerService)
	}

	if input.Identifier != nil {
		o.Identifier = strings.TrimSpace(*input.Identifier)
	}
	if input.OrderID != nil {
		o.OrderID = *input.OrderID
	}
	if input.DraftOrderID != nil {
		o.DraftOrderID = *input.DraftOrderID
	}
	if len(input.CalculatedDraftOrder) > 0 {
		o.CalculatedDraftOrder = input.CalculatedDraftOrder
	}

	if err := o.Validate(); err != nil {
		return nil, validationError(err, "purchase order")
	}

	updated, err := s.orders.SaveContent(ctx, o)
	if err != nil {
		return nil, notFoundAsError(err, "purchase order", id)
	}

	_ = s.publisher.Publish(ctx, domain.NewEvent(domain.EventOrderUpdated, updated.ID, nil))

	return &updated, nil
}

// ChangeStatus moves an order along a legal transition edge with
// compare-and-swap on version. A version of 0 means "the version just
// read", for callers that did not track one.
func (s *PurchaseOrderService) ChangeStatus(ctx context.Context, id string, target domain.OrderStatus, version int) (*domain.PurchaseOrder, error) {
	o, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}

	from := o.Status
	if !target.Valid() {
		return nil, validationError(domain.ValidationError{Field: "status", Message: "invalid status"}, "status")
	}
	if !from.CanTransitionTo(target) {
		return nil, transitionError(domain.ErrInvalidTransition, string(from), string(target))
	}

	if version <= 0 {
		version = o.Version
	}

	updated, err := s.orders.UpdateStatus(ctx, id, target, version)
	if err != nil {
		return nil, notFoundAsError(err, "purchase order", id)
	}

	_ = s.publisher.Publish(ctx, domain.OrderStatusChangedEvent(&updated, from))

	return &updated, nil
}

// Submit moves a draft order into the approval workflow.
func (s *PurchaseOrderService) Submit(ctx context.Context, id string, version int) (*domain.PurchaseOrder, error) {
	return s.ChangeStatus(ctx, id, domain.OrderStatusSubmitted, version)
}

// Approve finishes the workflow positively. Only legal from under_review.
func (s *PurchaseOrderService) Approve(ctx context.Context, id string, version int) (*domain.PurchaseOrder, error) {
	return s.ChangeStatus(ctx, id, domain.OrderStatusApproved, version)
}

// Reject finishes the workflow negatively.
func (s *PurchaseOrderService) Reject(ctx context.Context, id string, version int) (*domain.PurchaseOrder, error) {
	return s.ChangeStatus(ctx, id, domain.OrderStatusRejected, version)
}

// Delete hard-deletes an order.
func (s *PurchaseOrderService) Delete(ctx context.Context, id string) error {
	removed, err := s.orders.Remove(ctx, id)
	if err != nil {
		return notFoundAsError(err, "purchase order", id)
	}

	_ = s.publisher.Publish(ctx, domain.NewEvent(domain.EventOrderDeleted, removed.ID, map[string]any{
		"partnerId": removed.PartnerID,
	}))

	return nil
}

func (s *PurchaseOrderService) mustGet(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.Newf(apperr.CategoryNotFound, "purchase order %s does not exist", id).
			WithSeverity(apperr.SeverityLow).
			WithUser("Purchase order not found.").
			WithLayer(apperr.LayerService)
	}
	return o, nil
}
