package repository

import (
	"context"
	"sync"

	"github.com/partnerdesk/partnerdesk/internal/datastore"
	"github.com/partnerdesk/partnerdesk/internal/domain"
)

// PartnerCollection is the partner collection name. The memberId field is
// unique at the store level; the service layer additionally pre-checks it
// for a friendlier error.
const PartnerCollection = "partners"

// PartnerFilter contains options for filtering and paginating partner lists.
type PartnerFilter struct {
	Status *domain.PartnerStatus
	Search string // substring match on companyName
	Limit  int
	Skip   int
}

// PartnerRepository provides partner persistence on top of the generic
// repository.
type PartnerRepository struct {
	*Repository[domain.Partner]
}

var partnerCodec = Codec[domain.Partner]{
	FromDoc: func(doc datastore.Document) (domain.Partner, error) {
		return domain.Partner{
			ID:                       doc.ID(),
			MemberID:                 docString(doc, "memberId"),
			CompanyName:              docString(doc, "companyName"),
			Status:                   domain.PartnerStatus(docString(doc, "status")),
			GlobalDiscountPercentage: docFloat(doc, "globalDiscountPercentage"),
			CatalogID:                docString(doc, "catalogId"),
			Owner:                    docString(doc, datastore.FieldOwner),
			CreatedAt:                docTime(doc[datastore.FieldCreatedAt]),
			UpdatedAt:                docTime(doc[datastore.FieldUpdatedAt]),
		}, nil
	},
	ToDoc: func(p domain.Partner) map[string]any {
		fields := map[string]any{
			"memberId":                 p.MemberID,
			"companyName":              p.CompanyName,
			"status":                   string(p.Status),
			"globalDiscountPercentage": p.GlobalDiscountPercentage,
			"catalogId":                p.CatalogID,
		}
		if p.Owner != "" {
			fields[datastore.FieldOwner] = p.Owner
		}
		return fields
	},
}

// NewPartnerRepository creates the partner repository and ensures its
// collection, including the memberId unique constraint.
func NewPartnerRepository(ctx context.Context, store datastore.Store) (*PartnerRepository, error) {
	if err := store.EnsureCollection(ctx, PartnerCollection, datastore.UniqueField("memberId")); err != nil {
		return nil, translate(err, PartnerCollection, "ensureCollection", "")
	}
	return &PartnerRepository{Repository: New(store, PartnerCollection, partnerCodec)}, nil
}

// Save writes the full mutable field set of an existing partner.
func (r *PartnerRepository) Save(ctx context.Context, p *domain.Partner) (domain.Partner, error) {
	return r.Update(ctx, p.ID, partnerCodec.ToDoc(*p))
}

// FindByMemberID returns the partner referencing the member, or nil.
func (r *PartnerRepository) FindByMemberID(ctx context.Context, memberID string) (*domain.Partner, error) {
	return r.FindOneByField(ctx, "memberId", memberID)
}

// MemberIDTaken reports whether any partner other than exceptID already
// references the member. This is a pre-check for friendly errors; the
// store's unique index is the authoritative guard.
func (r *PartnerRepository) MemberIDTaken(ctx context.Context, memberID, exceptID string) (bool, error) {
	existing, err := r.FindByMemberID(ctx, memberID)
	if err != nil {
		return false, err
	}
	return existing != nil && existing.ID != exceptID, nil
}

// Search lists partners by status and company-name substring.
func (r *PartnerRepository) Search(ctx context.Context, filter PartnerFilter) ([]domain.Partner, error) {
	q := datastore.NewQuery().Ascending("companyName").Limit(filter.Limit).Skip(filter.Skip)
	if filter.Status != nil {
		q.Eq("status", string(*filter.Status))
	}
	if filter.Search != "" {
		q.Contains("companyName", filter.Search)
	}
	return r.FindByQuery(ctx, q, "search")
}

// CountByStatus issues one count per status concurrently and awaits all.
func (r *PartnerRepository) CountByStatus(ctx context.Context) (map[domain.PartnerStatus]int64, error) {
	statuses := []domain.PartnerStatus{
		domain.PartnerStatusPending,
		domain.PartnerStatusActive,
		domain.PartnerStatusInactive,
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		counts = make(map[domain.PartnerStatus]int64, len(statuses))
		errs   = make([]error, len(statuses))
	)
	for i, status := range statuses {
		wg.Add(1)
		go func(i int, status domain.PartnerStatus) {
			defer wg.Done()
			n, err := r.CountByField(ctx, "status", string(status))
			if err != nil {
				errs[i] = err
				return
			}
			mu.Lock()
			counts[status] = n
			mu.Unlock()
		}(i, status)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return counts, nil
}
