package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// OrderStatus represents the approval-workflow state of a purchase order.
type OrderStatus string

const (
	OrderStatusDraft                 OrderStatus = "draft"
	OrderStatusSubmitted             OrderStatus = "submitted"
	OrderStatusUnderReview           OrderStatus = "under_review"
	OrderStatusModificationRequested OrderStatus = "modification_requested"
	OrderStatusApproved              OrderStatus = "approved"
	OrderStatusRejected              OrderStatus = "rejected"
)

// DefaultOrderStatus is the status of a freshly created purchase order.
const DefaultOrderStatus = OrderStatusDraft

// orderTransitions is the legal-transition table. Approved and rejected
// have no outgoing edges and are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:                 {OrderStatusSubmitted},
	OrderStatusSubmitted:             {OrderStatusUnderReview, OrderStatusRejected},
	OrderStatusUnderReview:           {OrderStatusModificationRequested, OrderStatusApproved, OrderStatusRejected},
	OrderStatusModificationRequested: {OrderStatusDraft, OrderStatusSubmitted},
	OrderStatusApproved:              {},
	OrderStatusRejected:              {},
}

var orderStatusNames = map[OrderStatus]string{
	OrderStatusDraft:                 "Draft",
	OrderStatusSubmitted:             "Submitted",
	OrderStatusUnderReview:           "Under Review",
	OrderStatusModificationRequested: "Modification Requested",
	OrderStatusApproved:              "Approved",
	OrderStatusRejected:              "Rejected",
}

// Valid returns true if the OrderStatus is recognized.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransitionTo validates allowed status transitions.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	return slices.Contains(orderTransitions[s], target)
}

// Transitions returns the legal successor statuses. Unknown statuses have
// none.
func (s OrderStatus) Transitions() []OrderStatus {
	return slices.Clone(orderTransitions[s])
}

// Terminal reports whether the status has no outgoing edges.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

// Editable reports whether order content may still be changed. Only drafts
// are editable.
func (s OrderStatus) Editable() bool {
	return s == OrderStatusDraft
}

// DisplayName returns the human-readable status label. Unknown statuses
// fall back to the raw value.
func (s OrderStatus) DisplayName() string {
	if name, ok := orderStatusNames[s]; ok {
		return name
	}
	return string(s)
}

// PurchaseOrder is a procurement request tied to a Partner, progressing
// through an approval workflow. CalculatedDraftOrder is an externally
// computed snapshot and is never recomputed locally. Version backs
// compare-and-swap updates at the repository layer.
type PurchaseOrder struct {
	ID                   string
	Identifier           string
	PartnerID            string
	Status               OrderStatus
	OrderID              string
	DraftOrderID         string
	CalculatedDraftOrder json.RawMessage
	Version              int
	Owner                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Normalize trims text fields and applies defaults.
func (o *PurchaseOrder) Normalize() {
	o.Identifier = strings.TrimSpace(o.Identifier)
	o.PartnerID = strings.TrimSpace(o.PartnerID)
	if o.Status == "" {
		o.Status = DefaultOrderStatus
	}
	if o.Version == 0 {
		o.Version = 1
	}
}

// Validate checks the purchase order fields.
func (o *PurchaseOrder) Validate() error {
	var errs ValidationErrors

	if o.PartnerID == "" {
		errs = append(errs, ValidationError{Field: "partnerId", Message: "required"})
	}

	if !o.Status.Valid() {
		errs = append(errs, ValidationError{Field: "status", Message: "invalid status"})
	}

	if o.Version < 0 {
		errs = append(errs, ValidationError{Field: "version", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ChangeStatus moves the order to newStatus if the transition is legal.
func (o *PurchaseOrder) ChangeStatus(newStatus OrderStatus) error {
	if !newStatus.Valid() {
		return ValidationError{Field: "status", Message: "invalid status"}
	}
	if !o.Status.CanTransitionTo(newStatus) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, newStatus)
	}
	o.Status = newStatus
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Editable reports whether order content may still be changed.
func (o *PurchaseOrder) Editable() bool {
	return o.Status.Editable()
}
