package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func allOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusDraft,
		OrderStatusSubmitted,
		OrderStatusUnderReview,
		OrderStatusModificationRequested,
		OrderStatusApproved,
		OrderStatusRejected,
	}
}

func TestOrderStatusValid(t *testing.T) {
	for _, s := range allOrderStatuses() {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []OrderStatus{"", "open", "Draft", "cancelled"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusDraft:                 {OrderStatusSubmitted},
		OrderStatusSubmitted:             {OrderStatusUnderReview, OrderStatusRejected},
		OrderStatusUnderReview:           {OrderStatusModificationRequested, OrderStatusApproved, OrderStatusRejected},
		OrderStatusModificationRequested: {OrderStatusDraft, OrderStatusSubmitted},
		OrderStatusApproved:              {},
		OrderStatusRejected:              {},
	}

	// Check every (from, to) pair against the table, so no edge exists
	// that the table does not name.
	for _, from := range allOrderStatuses() {
		for _, to := range allOrderStatuses() {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("CanTransitionTo(%q -> %q) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, s := range allOrderStatuses() {
		want := s == OrderStatusApproved || s == OrderStatusRejected
		if got := s.Terminal(); got != want {
			t.Errorf("Terminal(%q) = %v, want %v", s, got, want)
		}
	}
	// Unknown statuses are not terminal, they are invalid.
	if OrderStatus("bogus").Terminal() {
		t.Error("unknown status must not report terminal")
	}
}

func TestOrderStatusEditable(t *testing.T) {
	for _, s := range allOrderStatuses() {
		want := s == OrderStatusDraft
		if got := s.Editable(); got != want {
			t.Errorf("Editable(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestOrderStatusDisplayName(t *testing.T) {
	if got := OrderStatusUnderReview.DisplayName(); got != "Under Review" {
		t.Errorf("DisplayName = %q, want %q", got, "Under Review")
	}
	if got := OrderStatus("weird").DisplayName(); got != "weird" {
		t.Errorf("unknown status DisplayName = %q, want raw value", got)
	}
}

func TestPurchaseOrderNormalizeDefaults(t *testing.T) {
	o := PurchaseOrder{PartnerID: "  p-1  ", Identifier: " PO-7 "}
	o.Normalize()

	if o.PartnerID != "p-1" {
		t.Errorf("PartnerID = %q, want trimmed", o.PartnerID)
	}
	if o.Identifier != "PO-7" {
		t.Errorf("Identifier = %q, want trimmed", o.Identifier)
	}
	if o.Status != OrderStatusDraft {
		t.Errorf("Status = %q, want default draft", o.Status)
	}
	if o.Version != 1 {
		t.Errorf("Version = %d, want 1", o.Version)
	}

	// Existing version survives normalization.
	o2 := PurchaseOrder{PartnerID: "p-1", Version: 3, Status: OrderStatusSubmitted}
	o2.Normalize()
	if o2.Version != 3 {
		t.Errorf("Version = %d, want 3", o2.Version)
	}
	if o2.Status != OrderStatusSubmitted {
		t.Errorf("Status = %q, want submitted", o2.Status)
	}
}

func TestPurchaseOrderValidate(t *testing.T) {
	valid := PurchaseOrder{
		PartnerID:            "p-1",
		Status:               OrderStatusDraft,
		Version:              1,
		CalculatedDraftOrder: json.RawMessage(`{"total":42}`),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := valid
	missing.PartnerID = ""
	err := missing.Validate()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if _, ok := verrs.FieldMap()["partnerId"]; !ok {
		t.Errorf("expected error keyed by partnerId, got %v", verrs.FieldMap())
	}

	badStatus := valid
	badStatus.Status = "cancelled"
	if err := badStatus.Validate(); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestPurchaseOrderChangeStatus(t *testing.T) {
	o := PurchaseOrder{PartnerID: "p-1", Status: OrderStatusDraft, Version: 1}
	if err := o.ChangeStatus(OrderStatusSubmitted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != OrderStatusSubmitted {
		t.Errorf("Status = %q, want submitted", o.Status)
	}

	err := o.ChangeStatus(OrderStatusApproved)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if o.Status != OrderStatusSubmitted {
		t.Errorf("status changed on failed transition: %q", o.Status)
	}
}

func TestPurchaseOrderReworkCycle(t *testing.T) {
	// draft -> submitted -> under_review -> modification_requested -> draft
	o := PurchaseOrder{PartnerID: "p-1", Status: OrderStatusDraft, Version: 1}
	steps := []OrderStatus{
		OrderStatusSubmitted,
		OrderStatusUnderReview,
		OrderStatusModificationRequested,
		OrderStatusDraft,
	}
	for _, next := range steps {
		if err := o.ChangeStatus(next); err != nil {
			t.Fatalf("transition to %q failed: %v", next, err)
		}
	}
	if !o.Editable() {
		t.Error("order back in draft must be editable again")
	}
}
