// Package service contains the business logic layer.
// Services validate raw input, enforce status-transition legality and
// uniqueness constraints, orchestrate repositories, and publish events.
// They do not know about HTTP or transport details.
package service

import (
	"context"
	"strings"

	"github.com/partnerdesk/partnerdesk/internal/apperr"
	"github.com/partnerdesk/partnerdesk/internal/domain"
	"github.com/partnerdesk/partnerdesk/internal/event"
	"github.com/partnerdesk/partnerdesk/internal/member"
	"github.com/partnerdesk/partnerdesk/internal/repository"
	"github.com/partnerdesk/partnerdesk/internal/validate"
)

// PartnerService handles partner-related business operations.
type PartnerService struct {
	partners  *repository.PartnerRepository
	members   member.Client
	publisher event.Publisher
}

func NewPartnerService(
	partners *repository.PartnerRepository,
	members member.Client,
	publisher event.Publisher,
) *PartnerService {
	return &PartnerService{
		partners:  partners,
		members:   members,
		publisher: publisher,
	}
}

// CreatePartnerInput is the raw input for creating a partner.
type CreatePartnerInput struct {
	MemberID                 string               `validate:"required"`
	CompanyName              string               `validate:"required,min=2,max=255"`
	Status                   domain.PartnerStatus `validate:"omitempty,oneof=pending active inactive"`
	GlobalDiscountPercentage float64              `validate:"gte=0,lte=100"`
	CatalogID                string
	Owner                    string
}

// Normalize trims the text fields before validation.
func (in *CreatePartnerInput) Normalize() {
	in.MemberID = strings.TrimSpace(in.MemberID)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.CatalogID = strings.TrimSpace(in.CatalogID)
}

// Create validates input, enforces memberId uniqueness and stores a new
// partner. The store's unique index is the authoritative guard against the
// pre-check race.
func (s *PartnerService) Create(ctx context.Context, input CreatePartnerInput) (*domain.Partner, error) {
	input, err := validate.MustValidate(input, "partner")
	if err != nil {
		return nil, err
	}

	p := domain.Partner{
		MemberID:                 input.MemberID,
		CompanyName:              input.CompanyName,
		Status:                   input.Status,
		GlobalDiscountPercentage: input.GlobalDiscountPercentage,
		CatalogID:                input.CatalogID,
		Owner:                    input.Owner,
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, validationError(err, "partner")
	}

	taken, err := s.partners.MemberIDTaken(ctx, p.MemberID, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, duplicateMemberError(p.MemberID)
	}

	created, err := s.partners.Create(ctx, p)
	if err != nil {
		if apperr.RootCode(err) == repository.CodeDuplicateItem {
			return nil, duplicateMemberError(p.MemberID)
		}
		return nil, err
	}

	_ = s.publisher.Publish(ctx, domain.NewEvent(domain.EventPartnerCreated, created.ID, map[string]any{
		"memberId": created.MemberID,
	}))

	return &created, nil
}

// Get returns a partner, or nil when it does not exist.
func (s *PartnerService) Get(ctx context.Context, id string) (*domain.Partner, error) {
	return s.partners.FindByID(ctx, id)
}

// GetByMember returns the partner referencing a member, or nil.
func (s *PartnerService) GetByMember(ctx context.Context, memberID string) (*domain.Partner, error) {
	return s.partners.FindByMemberID(ctx, memberID)
}

// List returns partners matching the filter.
func (s *PartnerService) List(ctx context.Context, filter repository.PartnerFilter) ([]domain.Partner, error) {
	return s.partners.Search(ctx, filter)
}

// UpdatePartnerInput is a partial update; nil fields are left unchanged.
// MemberID is immutable once set.
type UpdatePartnerInput struct {
	CompanyName              *string
	GlobalDiscountPercentage *float64
	CatalogID                *string
}

// Update applies a partial update to an existing partner.
func (s *PartnerService) Update(ctx context.Context, id string, input UpdatePartnerInput) (*domain.Partner, error) {
	p, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.CompanyName != nil {
		p.CompanyName = strings.TrimSpace(*input.CompanyName)
	}
	if input.GlobalDiscountPercentage != nil {
		p.GlobalDiscountPercentage = *input.GlobalDiscountPercentage
	}
	if input.CatalogID != nil {
		p.CatalogID = strings.TrimSpace(*input.CatalogID)
	}

	if err := p.Validate(); err != nil {
		return nil, validationError(err, "partner")
	}

	updated, err := s.partners.Save(ctx, p)
	if err != nil {
		return nil, notFoundAsError(err, "partner", id)
	}

	_ = s.publisher.Publish(ctx, domain.NewEvent(domain.EventPartnerUpdated, updated.ID, nil))

	return &updated, nil
}

// ChangeStatus moves a partner along a legal transition edge. Illegal
// transitions are caller-visible business-rule errors, never silent no-ops.
func (s *PartnerService) ChangeStatus(ctx context.Context, id string, target domain.PartnerStatus) (*domain.Partner, error) {
	p, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}

	from := p.Status
	if err := p.ChangeStatus(target); err != nil {
		return nil, transitionError(err, string(from), string(target))
	}

	updated, err := s.partners.Save(ctx, p)
	if err != nil {
		return nil, notFoundAsError(err, "partner", id)
	}

	_ = s.publisher.Publish(ctx, domain.PartnerStatusChangedEvent(&updated, from))

	return &updated, nil
}

// Deactivate is a convenience that moves a partner to inactive.
func (s *PartnerService) Deactivate(ctx context.Context, id string) (*domain.Partner, error) {
	p, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == domain.PartnerStatusInactive {
		return p, nil
	}
	return s.ChangeStatus(ctx, id, domain.PartnerStatusInactive)
}

// Delete hard-deletes a partner.
func (s *PartnerService) Delete(ctx context.Context, id string) error {
	removed, err := s.partners.Remove(ctx, id)
	if err != nil {
		return notFoundAsError(err, "partner", id)
	}

	_ = s.publisher.Publish(ctx, domain.NewEvent(domain.EventPartnerDeleted, removed.ID, nil))

	return nil
}

// StatusCounts returns the partner count per status.
func (s *PartnerService) StatusCounts(ctx context.Context) (map[domain.PartnerStatus]int64, error) {
	return s.partners.CountByStatus(ctx)
}

// ResolveMemberName resolves the partner's member reference to a display
// name, falling back to the raw member id when the member is unknown.
func (s *PartnerService) ResolveMemberName(ctx context.Context, p *domain.Partner) (string, error) {
	m, err := s.members.GetMember(ctx, p.MemberID)
	if err != nil {
		return "", err
	}
	if m == nil {
		return p.MemberID, nil
	}
	return m.DisplayName(), nil
}

func (s *PartnerService) mustGet(ctx context.Context, id string) (*domain.Partner, error) {
	p, err := s.partners.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.Newf(apperr.CategoryNotFound, "partner %s does not exist", id).
			WithSeverity(apperr.SeverityLow).
			WithUser("Partner not found.").
			WithLayer(apperr.LayerService)
	}
	return p, nil
}
