package domain

import (
	"errors"
	"testing"
)

func TestPartnerStatusValid(t *testing.T) {
	valid := []PartnerStatus{PartnerStatusPending, PartnerStatusActive, PartnerStatusInactive}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []PartnerStatus{"", "deleted", "Active", "PENDING"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestPartnerStatusTransitions(t *testing.T) {
	tests := []struct {
		from    PartnerStatus
		to      PartnerStatus
		allowed bool
	}{
		{PartnerStatusPending, PartnerStatusActive, true},
		{PartnerStatusPending, PartnerStatusInactive, true},
		{PartnerStatusActive, PartnerStatusInactive, true},
		{PartnerStatusInactive, PartnerStatusActive, true},
		{PartnerStatusActive, PartnerStatusPending, false},
		{PartnerStatusInactive, PartnerStatusPending, false},
		{PartnerStatusActive, PartnerStatusActive, false},
		{PartnerStatusPending, PartnerStatusPending, false},
		{PartnerStatus("deleted"), PartnerStatusActive, false},
		{PartnerStatusActive, PartnerStatus("deleted"), false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("CanTransitionTo(%q -> %q) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestPartnerStatusTransitionsUnknownHasNone(t *testing.T) {
	if got := PartnerStatus("bogus").Transitions(); len(got) != 0 {
		t.Errorf("expected no transitions for unknown status, got %v", got)
	}
}

func TestPartnerStatusDisplayName(t *testing.T) {
	if got := PartnerStatusActive.DisplayName(); got != "Active" {
		t.Errorf("DisplayName = %q, want %q", got, "Active")
	}
	if got := PartnerStatus("weird").DisplayName(); got != "weird" {
		t.Errorf("unknown status DisplayName = %q, want raw value", got)
	}
}

func TestPartnerNormalizeDefaults(t *testing.T) {
	p := Partner{MemberID: "  m-1  ", CompanyName: " Acme GmbH "}
	p.Normalize()

	if p.MemberID != "m-1" {
		t.Errorf("MemberID = %q, want trimmed", p.MemberID)
	}
	if p.CompanyName != "Acme GmbH" {
		t.Errorf("CompanyName = %q, want trimmed", p.CompanyName)
	}
	if p.Status != PartnerStatusPending {
		t.Errorf("Status = %q, want default pending", p.Status)
	}

	// An explicit status survives normalization.
	p2 := Partner{MemberID: "m-2", CompanyName: "Beta", Status: PartnerStatusActive}
	p2.Normalize()
	if p2.Status != PartnerStatusActive {
		t.Errorf("Status = %q, want active", p2.Status)
	}
}

func TestPartnerValidate(t *testing.T) {
	valid := Partner{MemberID: "m-1", CompanyName: "Acme", Status: PartnerStatusActive, GlobalDiscountPercentage: 25}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Partner)
		field   string
	}{
		{"missing memberId", func(p *Partner) { p.MemberID = "" }, "memberId"},
		{"missing companyName", func(p *Partner) { p.CompanyName = "" }, "companyName"},
		{"short companyName", func(p *Partner) { p.CompanyName = "A" }, "companyName"},
		{"unknown status", func(p *Partner) { p.Status = "deleted" }, "status"},
		{"negative discount", func(p *Partner) { p.GlobalDiscountPercentage = -1 }, "globalDiscountPercentage"},
		{"discount over 100", func(p *Partner) { p.GlobalDiscountPercentage = 101 }, "globalDiscountPercentage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			if _, ok := verrs.FieldMap()[tt.field]; !ok {
				t.Errorf("expected error keyed by %q, got %v", tt.field, verrs.FieldMap())
			}
		})
	}
}

func TestPartnerChangeStatus(t *testing.T) {
	p := Partner{MemberID: "m-1", CompanyName: "Acme", Status: PartnerStatusPending}
	if err := p.ChangeStatus(PartnerStatusActive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != PartnerStatusActive {
		t.Errorf("Status = %q, want active", p.Status)
	}

	err := p.ChangeStatus(PartnerStatusPending)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if p.Status != PartnerStatusActive {
		t.Errorf("status changed on failed transition: %q", p.Status)
	}
}

func TestPartnerDeactivateIdempotent(t *testing.T) {
	p := Partner{MemberID: "m-1", CompanyName: "Acme", Status: PartnerStatusInactive}
	if err := p.Deactivate(); err != nil {
		t.Fatalf("deactivating an inactive partner should be a no-op, got %v", err)
	}
	if p.Status != PartnerStatusInactive {
		t.Errorf("Status = %q, want inactive", p.Status)
	}

	p.Status = PartnerStatusActive
	if err := p.Deactivate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != PartnerStatusInactive {
		t.Errorf("Status = %q, want inactive", p.Status)
	}
}

func TestPartnerCanCreateOrders(t *testing.T) {
	tests := []struct {
		name     string
		partner  Partner
		expected bool
	}{
		{"active with discount", Partner{Status: PartnerStatusActive, GlobalDiscountPercentage: 10}, true},
		{"active zero discount", Partner{Status: PartnerStatusActive}, true},
		{"pending", Partner{Status: PartnerStatusPending, GlobalDiscountPercentage: 10}, false},
		{"inactive", Partner{Status: PartnerStatusInactive, GlobalDiscountPercentage: 10}, false},
		{"active negative discount", Partner{Status: PartnerStatusActive, GlobalDiscountPercentage: -5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.partner.CanCreateOrders(); got != tt.expected {
				t.Errorf("CanCreateOrders() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPartnerDiscountedPrice(t *testing.T) {
	tests := []struct {
		name     string
		partner  Partner
		price    float64
		expected float64
	}{
		{"25 percent off", Partner{Status: PartnerStatusActive, GlobalDiscountPercentage: 25}, 100, 75},
		{"zero discount", Partner{Status: PartnerStatusActive, GlobalDiscountPercentage: 0}, 100, 100},
		{"full discount", Partner{Status: PartnerStatusActive, GlobalDiscountPercentage: 100}, 100, 0},
		{"inactive ignores discount", Partner{Status: PartnerStatusInactive, GlobalDiscountPercentage: 25}, 100, 100},
		{"pending ignores discount", Partner{Status: PartnerStatusPending, GlobalDiscountPercentage: 25}, 100, 100},
		{"out-of-range discount ignored", Partner{Status: PartnerStatusActive, GlobalDiscountPercentage: 150}, 100, 100},
		{"negative discount ignored", Partner{Status: PartnerStatusActive, GlobalDiscountPercentage: -10}, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.partner.DiscountedPrice(tt.price); got != tt.expected {
				t.Errorf("DiscountedPrice(%v) = %v, want %v", tt.price, got, tt.expected)
			}
		})
	}
}

func TestPartnerView(t *testing.T) {
	p := Partner{CompanyName: "Acme", Status: PartnerStatusActive, GlobalDiscountPercentage: 12.5}
	view := p.View()
	if view.DiscountDisplay != "12.5%" {
		t.Errorf("DiscountDisplay = %q, want %q", view.DiscountDisplay, "12.5%")
	}
	if view.StatusDisplay != "Active" {
		t.Errorf("StatusDisplay = %q, want %q", view.StatusDisplay, "Active")
	}

	p.GlobalDiscountPercentage = 20
	if got := p.View().DiscountDisplay; got != "20%" {
		t.Errorf("DiscountDisplay = %q, want %q", got, "20%")
	}
}
