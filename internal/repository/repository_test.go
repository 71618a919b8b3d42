package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/partnerdesk/partnerdesk/internal/apperr"
	"github.com/partnerdesk/partnerdesk/internal/datastore"
	"github.com/partnerdesk/partnerdesk/internal/domain"
)

func newPartnerRepo(t *testing.T) (*PartnerRepository, *datastore.Memory) {
	t.Helper()
	store := datastore.NewMemory(datastore.AccessTrusted)
	repo, err := NewPartnerRepository(context.Background(), store)
	if err != nil {
		t.Fatalf("new partner repository: %v", err)
	}
	return repo, store
}

func newOrderRepo(t *testing.T) (*PurchaseOrderRepository, *datastore.Memory) {
	t.Helper()
	store := datastore.NewMemory(datastore.AccessTrusted)
	repo, err := NewPurchaseOrderRepository(context.Background(), store)
	if err != nil {
		t.Fatalf("new order repository: %v", err)
	}
	return repo, store
}

func testPartner(memberID, company string) domain.Partner {
	return domain.Partner{
		MemberID:                 memberID,
		CompanyName:              company,
		Status:                   domain.PartnerStatusActive,
		GlobalDiscountPercentage: 10,
	}
}

func TestPartnerRepositoryCreateAndFind(t *testing.T) {
	repo, _ := newPartnerRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, testPartner("m-1", "Acme"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Error("expected store-assigned id")
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected store-assigned timestamps")
	}

	found, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("findById: %v", err)
	}
	if found == nil {
		t.Fatal("expected partner")
	}
	if found.MemberID != "m-1" || found.CompanyName != "Acme" || found.Status != domain.PartnerStatusActive {
		t.Errorf("round trip mismatch: %+v", found)
	}
	if found.GlobalDiscountPercentage != 10 {
		t.Errorf("discount = %v", found.GlobalDiscountPercentage)
	}
}

func TestPartnerRepositoryFindByIDMissing(t *testing.T) {
	repo, _ := newPartnerRepo(t)

	found, err := repo.FindByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("missing id must not be an error, got %v", err)
	}
	if found != nil {
		t.Errorf("found = %+v, want nil", found)
	}
}

func TestPartnerRepositoryDuplicateMemberID(t *testing.T) {
	repo, _ := newPartnerRepo(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, testPartner("m-1", "Acme")); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := repo.Create(ctx, testPartner("m-1", "Other"))
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	e := apperr.From(err)
	if e.Category != apperr.CategoryDataLayer || e.Code != CodeDuplicateItem {
		t.Errorf("category/code = %q/%q", e.Category, e.Code)
	}
}

func TestPartnerRepositoryMemberIDTaken(t *testing.T) {
	repo, _ := newPartnerRepo(t)
	ctx := context.Background()

	created, _ := repo.Create(ctx, testPartner("m-1", "Acme"))

	taken, err := repo.MemberIDTaken(ctx, "m-1", "")
	if err != nil || !taken {
		t.Errorf("MemberIDTaken = %v, %v; want true, nil", taken, err)
	}
	// The owning partner itself is excluded.
	taken, err = repo.MemberIDTaken(ctx, "m-1", created.ID)
	if err != nil || taken {
		t.Errorf("MemberIDTaken(except self) = %v, %v; want false, nil", taken, err)
	}
	taken, err = repo.MemberIDTaken(ctx, "m-2", "")
	if err != nil || taken {
		t.Errorf("MemberIDTaken(free) = %v, %v; want false, nil", taken, err)
	}
}

func TestPartnerRepositorySearch(t *testing.T) {
	repo, _ := newPartnerRepo(t)
	ctx := context.Background()

	inactive := domain.PartnerStatusInactive
	seed := []domain.Partner{
		testPartner("m-1", "Zeta Wholesale"),
		testPartner("m-2", "Acme Trading"),
		{MemberID: "m-3", CompanyName: "Acme Retail", Status: inactive},
	}
	for _, p := range seed {
		if _, err := repo.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := repo.Search(ctx, PartnerFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d partners", len(all))
	}
	// Sorted by company name.
	if all[0].CompanyName != "Acme Retail" || all[2].CompanyName != "Zeta Wholesale" {
		t.Errorf("order = %q .. %q", all[0].CompanyName, all[2].CompanyName)
	}

	active := domain.PartnerStatusActive
	byStatus, _ := repo.Search(ctx, PartnerFilter{Status: &active})
	if len(byStatus) != 2 {
		t.Errorf("active partners = %d, want 2", len(byStatus))
	}

	byName, _ := repo.Search(ctx, PartnerFilter{Search: "acme"})
	if len(byName) != 2 {
		t.Errorf("acme partners = %d, want 2", len(byName))
	}

	both, _ := repo.Search(ctx, PartnerFilter{Status: &inactive, Search: "acme"})
	if len(both) != 1 || both[0].MemberID != "m-3" {
		t.Errorf("combined filter = %+v", both)
	}
}

func TestPartnerRepositoryCountByStatus(t *testing.T) {
	repo, _ := newPartnerRepo(t)
	ctx := context.Background()

	seed := []domain.Partner{
		testPartner("m-1", "One"),
		testPartner("m-2", "Two"),
		{MemberID: "m-3", CompanyName: "Three", Status: domain.PartnerStatusPending},
	}
	for _, p := range seed {
		if _, err := repo.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("countByStatus: %v", err)
	}
	if counts[domain.PartnerStatusActive] != 2 {
		t.Errorf("active = %d, want 2", counts[domain.PartnerStatusActive])
	}
	if counts[domain.PartnerStatusPending] != 1 {
		t.Errorf("pending = %d, want 1", counts[domain.PartnerStatusPending])
	}
	if counts[domain.PartnerStatusInactive] != 0 {
		t.Errorf("inactive = %d, want 0", counts[domain.PartnerStatusInactive])
	}
}

func TestPartnerRepositorySaveRoundTrip(t *testing.T) {
	repo, _ := newPartnerRepo(t)
	ctx := context.Background()

	created, _ := repo.Create(ctx, testPartner("m-1", "Acme"))
	created.CompanyName = "Acme International"
	created.GlobalDiscountPercentage = 25

	updated, err := repo.Save(ctx, &created)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if updated.CompanyName != "Acme International" || updated.GlobalDiscountPercentage != 25 {
		t.Errorf("updated = %+v", updated)
	}
}

func TestPartnerRepositoryTranslatesInjectedFailures(t *testing.T) {
	repo, store := newPartnerRepo(t)

	store.FailNext("insert", datastore.CodeQuotaExceeded)
	_, err := repo.Create(context.Background(), testPartner("m-1", "Acme"))
	e := apperr.From(err)
	if e == nil {
		t.Fatal("expected translated error")
	}
	if e.Code != CodeQuotaExceeded || e.Severity != apperr.SeverityHigh {
		t.Errorf("code/severity = %q/%q", e.Code, e.Severity)
	}
}

func testOrder(partnerID string) domain.PurchaseOrder {
	o := domain.PurchaseOrder{
		PartnerID:            partnerID,
		Identifier:           "PO-1",
		CalculatedDraftOrder: json.RawMessage(`{"total":42,"lines":[{"sku":"X","qty":2}]}`),
	}
	o.Normalize()
	return o
}

func TestOrderRepositoryRoundTrip(t *testing.T) {
	repo, _ := newOrderRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, testOrder("p-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != domain.OrderStatusDraft || created.Version != 1 {
		t.Errorf("created = %+v", created)
	}

	found, err := repo.FindByID(ctx, created.ID)
	if err != nil || found == nil {
		t.Fatalf("findById: %v, %v", found, err)
	}
	// The snapshot comes back byte-comparable after JSON normalization.
	var snap map[string]any
	if err := json.Unmarshal(found.CalculatedDraftOrder, &snap); err != nil {
		t.Fatalf("snapshot not valid JSON: %v", err)
	}
	if snap["total"] != float64(42) {
		t.Errorf("snapshot total = %v", snap["total"])
	}
}

func TestOrderRepositoryUpdateStatusCAS(t *testing.T) {
	repo, _ := newOrderRepo(t)
	ctx := context.Background()

	created, _ := repo.Create(ctx, testOrder("p-1"))

	updated, err := repo.UpdateStatus(ctx, created.ID, domain.OrderStatusSubmitted, created.Version)
	if err != nil {
		t.Fatalf("updateStatus: %v", err)
	}
	if updated.Status != domain.OrderStatusSubmitted {
		t.Errorf("status = %q", updated.Status)
	}
	if updated.Version != created.Version+1 {
		t.Errorf("version = %d, want %d", updated.Version, created.Version+1)
	}

	// Replaying with the stale version must fail as a conflict.
	_, err = repo.UpdateStatus(ctx, created.ID, domain.OrderStatusUnderReview, created.Version)
	e := apperr.From(err)
	if e == nil {
		t.Fatal("expected conflict error")
	}
	if e.Code != CodeConflict || e.Severity != apperr.SeverityHigh {
		t.Errorf("code/severity = %q/%q", e.Code, e.Severity)
	}
}

func TestOrderRepositorySaveContentBumpsVersion(t *testing.T) {
	repo, _ := newOrderRepo(t)
	ctx := context.Background()

	created, _ := repo.Create(ctx, testOrder("p-1"))
	created.Identifier = "PO-1-rev2"

	updated, err := repo.SaveContent(ctx, &created)
	if err != nil {
		t.Fatalf("saveContent: %v", err)
	}
	if updated.Identifier != "PO-1-rev2" {
		t.Errorf("identifier = %q", updated.Identifier)
	}
	if updated.Version != created.Version+1 {
		t.Errorf("version = %d, want %d", updated.Version, created.Version+1)
	}

	// A second write from the same stale struct conflicts.
	if _, err := repo.SaveContent(ctx, &created); apperr.From(err) == nil {
		t.Error("expected conflict on stale version")
	}
}

func TestOrderRepositoryFindByPartner(t *testing.T) {
	repo, _ := newOrderRepo(t)
	ctx := context.Background()

	for _, pid := range []string{"p-1", "p-2", "p-1"} {
		if _, err := repo.Create(ctx, testOrder(pid)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	orders, err := repo.FindByPartner(ctx, "p-1")
	if err != nil {
		t.Fatalf("findByPartner: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("orders = %d, want 2", len(orders))
	}
	for _, o := range orders {
		if o.PartnerID != "p-1" {
			t.Errorf("partnerId = %q", o.PartnerID)
		}
	}
}

func TestOrderRepositoryFindByStatus(t *testing.T) {
	repo, _ := newOrderRepo(t)
	ctx := context.Background()

	first, _ := repo.Create(ctx, testOrder("p-1"))
	if _, err := repo.Create(ctx, testOrder("p-2")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, first.ID, domain.OrderStatusSubmitted, first.Version); err != nil {
		t.Fatalf("updateStatus: %v", err)
	}

	drafts, err := repo.FindByStatus(ctx, domain.OrderStatusDraft)
	if err != nil {
		t.Fatalf("findByStatus: %v", err)
	}
	if len(drafts) != 1 {
		t.Errorf("drafts = %d, want 1", len(drafts))
	}
	submitted, _ := repo.FindByStatus(ctx, domain.OrderStatusSubmitted)
	if len(submitted) != 1 || submitted[0].ID != first.ID {
		t.Errorf("submitted = %+v", submitted)
	}
}
