package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// PartnerStatus represents the lifecycle state of a wholesale partner
// account.
type PartnerStatus string

const (
	PartnerStatusPending  PartnerStatus = "pending"
	PartnerStatusActive   PartnerStatus = "active"
	PartnerStatusInactive PartnerStatus = "inactive"
)

// DefaultPartnerStatus is applied when a new partner is created without an
// explicit status. Freshly onboarded accounts await approval.
const DefaultPartnerStatus = PartnerStatusPending

// partnerTransitions is the legal-transition table. A status missing from
// the map has no outgoing edges.
var partnerTransitions = map[PartnerStatus][]PartnerStatus{
	PartnerStatusPending:  {PartnerStatusActive, PartnerStatusInactive},
	PartnerStatusActive:   {PartnerStatusInactive},
	PartnerStatusInactive: {PartnerStatusActive},
}

var partnerStatusNames = map[PartnerStatus]string{
	PartnerStatusPending:  "Pending",
	PartnerStatusActive:   "Active",
	PartnerStatusInactive: "Inactive",
}

// Valid returns true if the PartnerStatus is recognized.
func (s PartnerStatus) Valid() bool {
	switch s {
	case PartnerStatusPending, PartnerStatusActive, PartnerStatusInactive:
		return true
	}
	return false
}

// CanTransitionTo validates allowed status transitions.
func (s PartnerStatus) CanTransitionTo(target PartnerStatus) bool {
	return slices.Contains(partnerTransitions[s], target)
}

// Transitions returns the legal successor statuses. Unknown statuses have
// none.
func (s PartnerStatus) Transitions() []PartnerStatus {
	return slices.Clone(partnerTransitions[s])
}

// DisplayName returns the human-readable status label. Unknown statuses
// fall back to the raw value rather than erroring.
func (s PartnerStatus) DisplayName() string {
	if name, ok := partnerStatusNames[s]; ok {
		return name
	}
	return string(s)
}

// Partner is a wholesale-customer account with a discount rate and
// lifecycle status. ID, CreatedAt and UpdatedAt are assigned by the store.
type Partner struct {
	ID                       string
	MemberID                 string
	CompanyName              string
	Status                   PartnerStatus
	GlobalDiscountPercentage float64
	CatalogID                string
	Owner                    string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Normalize trims text fields and applies defaults. Called before Validate
// on any inbound partner data.
func (p *Partner) Normalize() {
	p.MemberID = strings.TrimSpace(p.MemberID)
	p.CompanyName = strings.TrimSpace(p.CompanyName)
	p.CatalogID = strings.TrimSpace(p.CatalogID)
	if p.Status == "" {
		p.Status = DefaultPartnerStatus
	}
}

// Validate checks the partner fields.
func (p *Partner) Validate() error {
	var errs ValidationErrors

	if p.MemberID == "" {
		errs = append(errs, ValidationError{Field: "memberId", Message: "required"})
	}

	if p.CompanyName == "" {
		errs = append(errs, ValidationError{Field: "companyName", Message: "required"})
	} else if len(p.CompanyName) < 2 || len(p.CompanyName) > 255 {
		errs = append(errs, ValidationError{Field: "companyName", Message: "must be 2-255 characters"})
	}

	if !p.Status.Valid() {
		errs = append(errs, ValidationError{Field: "status", Message: "invalid status"})
	}

	if p.GlobalDiscountPercentage < 0 || p.GlobalDiscountPercentage > 100 {
		errs = append(errs, ValidationError{Field: "globalDiscountPercentage", Message: "must be between 0 and 100"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ChangeStatus moves the partner to newStatus if the transition is legal.
func (p *Partner) ChangeStatus(newStatus PartnerStatus) error {
	if !newStatus.Valid() {
		return ValidationError{Field: "status", Message: "invalid status"}
	}
	if !p.Status.CanTransitionTo(newStatus) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, newStatus)
	}
	p.Status = newStatus
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Deactivate is a convenience for moving an account to inactive.
func (p *Partner) Deactivate() error {
	if p.Status == PartnerStatusInactive {
		return nil // Already inactive, idempotent
	}
	return p.ChangeStatus(PartnerStatusInactive)
}

// IsActive reports whether the partner may participate in trade.
func (p *Partner) IsActive() bool {
	return p.Status == PartnerStatusActive
}

// CanCreateOrders reports whether purchase orders may be opened for this
// partner: it must be active and carry a usable discount rate.
func (p *Partner) CanCreateOrders() bool {
	return p.IsActive() && p.GlobalDiscountPercentage >= 0
}

// DiscountedPrice applies the partner's global discount to originalPrice.
// Inactive partners and out-of-range discounts yield the original price
// unchanged. No rounding is applied; that is the caller's concern.
func (p *Partner) DiscountedPrice(originalPrice float64) float64 {
	if !p.IsActive() {
		return originalPrice
	}
	d := p.GlobalDiscountPercentage
	if d <= 0 || d > 100 {
		return originalPrice
	}
	return originalPrice * (1 - d/100)
}

// PartnerView is a Partner decorated with display-ready fields.
type PartnerView struct {
	Partner
	DiscountDisplay string
	StatusDisplay   string
}

// View formats the partner for display.
func (p *Partner) View() PartnerView {
	return PartnerView{
		Partner:         *p,
		DiscountDisplay: fmt.Sprintf("%g%%", p.GlobalDiscountPercentage),
		StatusDisplay:   p.Status.DisplayName(),
	}
}
