package delivery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/config"
	"github.com/ataa-platform/ataa_backend/internal/service/beneficiary"
	"github.com/ataa-platform/ataa_backend/internal/service/delivery"
	"github.com/ataa-platform/ataa_backend/internal/service/organization"
	"github.com/ataa-platform/ataa_backend/internal/service/protection"
	"github.com/ataa-platform/ataa_backend/internal/store/memory"
)

type harness struct {
	svc         *delivery.Service
	beneficiary uuid.UUID
	org         uuid.UUID
	staff       uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.Authentication.EncryptionKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

	bens, err := beneficiary.NewService(memory.NewBeneficiaryStore(), cfg)
	if err != nil {
		t.Fatalf("beneficiary service: %v", err)
	}
	orgs := organization.NewService(memory.NewOrganizationStore())
	svc := delivery.NewService(memory.NewDeliveryStore(), bens, orgs)

	actor := protection.Actor{UserID: uuid.Must(uuid.NewV7()), Role: "case_manager"}
	ben, err := bens.Create(ctx, actor, beneficiary.CreateRequest{
		FirstName: "Layla", LastName: "Haddad", Phone: "0599876543",
	})
	if err != nil {
		t.Fatalf("create beneficiary: %v", err)
	}
	org, err := orgs.Create(ctx, organization.CreateRequest{
		Name: "Relief Works", LicenseNumber: "RW-7741", ContactPhone: "0592000000",
	})
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}

	return &harness{svc: svc, beneficiary: ben.ID, org: org.ID, staff: actor.UserID}
}

func (h *harness) schedule(t *testing.T) *delivery.Delivery {
	t.Helper()
	d, err := h.svc.Create(context.Background(), delivery.CreateRequest{
		BeneficiaryID: h.beneficiary,
		OrgID:         h.org,
		AidType:       delivery.AidFood,
		Quantity:      10,
		Unit:          "parcel",
		ScheduledFor:  time.Now().Add(24 * time.Hour),
		CreatedBy:     h.staff,
	})
	if err != nil {
		t.Fatalf("schedule delivery: %v", err)
	}
	return d
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.Create(ctx, delivery.CreateRequest{
		BeneficiaryID: h.beneficiary, OrgID: h.org, AidType: "magic", Quantity: 1,
	}); err == nil {
		t.Fatal("unknown aid type accepted")
	}
	if _, err := h.svc.Create(ctx, delivery.CreateRequest{
		BeneficiaryID: h.beneficiary, OrgID: h.org, AidType: delivery.AidFood, Quantity: 0,
	}); err == nil {
		t.Fatal("zero quantity accepted")
	}
	if _, err := h.svc.Create(ctx, delivery.CreateRequest{
		BeneficiaryID: uuid.Must(uuid.NewV7()), OrgID: h.org, AidType: delivery.AidFood, Quantity: 1,
	}); !errors.Is(err, beneficiary.ErrNotFound) {
		t.Fatalf("err = %v, want beneficiary.ErrNotFound", err)
	}
	if _, err := h.svc.Create(ctx, delivery.CreateRequest{
		BeneficiaryID: h.beneficiary, OrgID: uuid.Must(uuid.NewV7()), AidType: delivery.AidFood, Quantity: 1,
	}); !errors.Is(err, organization.ErrNotFound) {
		t.Fatalf("err = %v, want organization.ErrNotFound", err)
	}
}

func TestStatusMachine(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d := h.schedule(t)
	if d.Status != delivery.StatusScheduled {
		t.Fatalf("status = %q, want scheduled", d.Status)
	}

	d, err := h.svc.Transition(ctx, d.ID, delivery.StatusInTransit)
	if err != nil {
		t.Fatalf("to in transit: %v", err)
	}
	d, err = h.svc.Transition(ctx, d.ID, delivery.StatusDelivered)
	if err != nil {
		t.Fatalf("to delivered: %v", err)
	}
	if d.DeliveredAt == nil {
		t.Fatal("DeliveredAt not stamped")
	}

	// Delivered is terminal.
	if _, err := h.svc.Transition(ctx, d.ID, delivery.StatusCancelled); !errors.Is(err, delivery.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestTransitionRejectsBackwardsMove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d := h.schedule(t)
	d, err := h.svc.Transition(ctx, d.ID, delivery.StatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := h.svc.Transition(ctx, d.ID, delivery.StatusInTransit); !errors.Is(err, delivery.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestListByBeneficiaryAndOrg(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.schedule(t)
	second := h.schedule(t)

	byBen, err := h.svc.ListByBeneficiary(ctx, h.beneficiary, 0, 0)
	if err != nil {
		t.Fatalf("list by beneficiary: %v", err)
	}
	if len(byBen) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(byBen))
	}

	byOrg, err := h.svc.ListByOrg(ctx, h.org, 0, 0)
	if err != nil {
		t.Fatalf("list by org: %v", err)
	}
	if len(byOrg) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(byOrg))
	}

	seen := map[uuid.UUID]bool{}
	for _, d := range byOrg {
		seen[d.ID] = true
	}
	if !seen[first.ID] || !seen[second.ID] {
		t.Fatal("listing missed a delivery")
	}
}
