package beneficiary_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/config"
	"github.com/ataa-platform/ataa_backend/internal/service/beneficiary"
	"github.com/ataa-platform/ataa_backend/internal/service/challenge"
	"github.com/ataa-platform/ataa_backend/internal/service/protection"
	"github.com/ataa-platform/ataa_backend/internal/store/memory"
	"github.com/ataa-platform/ataa_backend/pkg/util/otp"
)

const testEncKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

type recordingSink struct {
	codes []string
}

func (s *recordingSink) SendCode(_ context.Context, _, code string) error {
	s.codes = append(s.codes, code)
	return nil
}

type harness struct {
	svc   *beneficiary.Service
	prot  *protection.Service
	store *memory.BeneficiaryStore
	sink  *recordingSink
	actor protection.Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{}
	cfg.Authentication.EncryptionKey = testEncKey
	cfg.Protection = config.ProtectionConfig{
		Fields: map[string]config.FieldRuleConfig{
			beneficiary.FieldNationalID:  {Level: 1, RequiresOTP: true, RequiresApproval: true},
			beneficiary.FieldPhoneNumber: {Level: 2, RequiresOTP: true},
			beneficiary.FieldBankAccount: {Level: 2, RequiresOTP: true},
			beneficiary.FieldAddress:     {Level: 3},
		},
		RoleClearance: map[string]int{
			"admin":        1,
			"case_manager": 2,
			"volunteer":    3,
		},
	}

	policy, err := protection.NewPolicy(cfg.Protection)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	sink := &recordingSink{}
	challenges, err := challenge.New(challenge.NewMemoryStore(), sink, otp.DefaultConfig())
	if err != nil {
		t.Fatalf("challenge service: %v", err)
	}

	store := memory.NewBeneficiaryStore()
	svc, err := beneficiary.NewService(store, cfg)
	if err != nil {
		t.Fatalf("beneficiary service: %v", err)
	}
	prot := protection.NewService(policy, challenges, protection.NewMemoryQueue(), svc)
	svc.BindProtection(prot)

	return &harness{
		svc:   svc,
		prot:  prot,
		store: store,
		sink:  sink,
		actor: protection.Actor{
			UserID: uuid.Must(uuid.NewV7()),
			Role:   "case_manager",
			Phone:  "0591234567",
		},
	}
}

func (h *harness) create(t *testing.T) *beneficiary.View {
	t.Helper()
	v, err := h.svc.Create(context.Background(), h.actor, beneficiary.CreateRequest{
		FirstName:   "Layla",
		LastName:    "Haddad",
		Phone:       "0599876543",
		NationalID:  "900123456",
		BankAccount: "PS12PALS0000000000123456789",
		Address:     "Rafah",
		FamilySize:  6,
	})
	if err != nil {
		t.Fatalf("create beneficiary: %v", err)
	}
	return v
}

func TestCreateMasksSensitiveFields(t *testing.T) {
	h := newHarness(t)
	v := h.create(t)

	if v.NationalIDMasked != "******456" {
		t.Fatalf("masked national ID = %q, want ******456", v.NationalIDMasked)
	}
	if !v.BankAccountSet {
		t.Fatal("bank account flag not set")
	}

	// The stored record must not carry plaintext.
	raw, err := h.store.GetByID(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("load raw record: %v", err)
	}
	if raw.NationalID == nil || strings.Contains(*raw.NationalID, "900123456") {
		t.Fatal("national ID stored in the clear")
	}
	if raw.BankAccount == nil || strings.Contains(*raw.BankAccount, "PS12PALS") {
		t.Fatal("bank account stored in the clear")
	}
}

func TestCreateRejectsDuplicateNationalID(t *testing.T) {
	h := newHarness(t)
	h.create(t)

	_, err := h.svc.Create(context.Background(), h.actor, beneficiary.CreateRequest{
		FirstName:  "Omar",
		LastName:   "Haddad",
		Phone:      "0597000001",
		NationalID: "900123456",
	})
	if !errors.Is(err, beneficiary.ErrDuplicateNationalID) {
		t.Fatalf("err = %v, want ErrDuplicateNationalID", err)
	}
}

func TestFindByNationalID(t *testing.T) {
	h := newHarness(t)
	v := h.create(t)

	found, err := h.svc.FindByNationalID(context.Background(), "900123456")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != v.ID {
		t.Fatalf("found %s, want %s", found.ID, v.ID)
	}

	if _, err := h.svc.FindByNationalID(context.Background(), "111111111"); !errors.Is(err, beneficiary.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateOpenFields(t *testing.T) {
	h := newHarness(t)
	v := h.create(t)

	updated, err := h.svc.Update(context.Background(), h.actor, v.ID, beneficiary.UpdateRequest{
		Fields: map[string]string{
			beneficiary.FieldNotes:      "moved in with relatives",
			beneficiary.FieldFamilySize: "7",
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Notes != "moved in with relatives" || updated.FamilySize != 7 {
		t.Fatalf("update not applied: %+v", updated)
	}
}

func TestUpdateRejectsGatedFields(t *testing.T) {
	h := newHarness(t)
	v := h.create(t)

	_, err := h.svc.Update(context.Background(), h.actor, v.ID, beneficiary.UpdateRequest{
		Fields: map[string]string{beneficiary.FieldPhoneNumber: "0597000002"},
	})
	if !errors.Is(err, beneficiary.ErrFieldProtected) {
		t.Fatalf("err = %v, want ErrFieldProtected", err)
	}
}

func TestUpdateDeniesAboveClearance(t *testing.T) {
	h := newHarness(t)
	v := h.create(t)

	volunteer := protection.Actor{UserID: uuid.Must(uuid.NewV7()), Role: "volunteer", Phone: "0597000003"}
	_, err := h.svc.Update(context.Background(), volunteer, v.ID, beneficiary.UpdateRequest{
		Fields: map[string]string{beneficiary.FieldPhoneNumber: "0597000002"},
	})
	var denied *protection.DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want DeniedError", err)
	}
}

func TestEditFieldOTPFlow(t *testing.T) {
	h := newHarness(t)
	v := h.create(t)
	ctx := context.Background()

	out, err := h.svc.EditField(ctx, h.actor, v.ID, beneficiary.FieldPhoneNumber, "0597000002")
	if err != nil {
		t.Fatalf("edit field: %v", err)
	}
	if out.Decision != protection.RequireOTP || out.SessionID == nil {
		t.Fatalf("outcome = %+v, want RequireOTP with session", out)
	}

	// Nothing is written before the code clears.
	before, _ := h.svc.Get(ctx, v.ID)
	if before.Phone != "0599876543" {
		t.Fatal("edit applied before verification")
	}

	sess, err := h.prot.Session(*out.SessionID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	res, err := sess.Submit(ctx, h.sink.codes[len(h.sink.codes)-1])
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Verified || !res.Committed {
		t.Fatalf("submit result = %+v, want verified and committed", res)
	}

	after, _ := h.svc.Get(ctx, v.ID)
	if after.Phone != "0597000002" {
		t.Fatalf("phone = %q, want the new number", after.Phone)
	}
}

func TestEditFieldApprovalFlow(t *testing.T) {
	h := newHarness(t)
	v := h.create(t)
	ctx := context.Background()

	admin := protection.Actor{UserID: uuid.Must(uuid.NewV7()), Role: "admin", Phone: "0597000004"}
	out, err := h.svc.EditField(ctx, admin, v.ID, beneficiary.FieldNationalID, "900654321")
	if err != nil {
		t.Fatalf("edit field: %v", err)
	}
	if out.Decision != protection.RequireApproval || out.Queued == nil {
		t.Fatalf("outcome = %+v, want RequireApproval", out)
	}

	approver := protection.Actor{UserID: uuid.Must(uuid.NewV7()), Role: "admin"}
	if _, err := h.prot.Approve(ctx, out.Queued.ID, approver); err != nil {
		t.Fatalf("approve: %v", err)
	}

	found, err := h.svc.FindByNationalID(ctx, "900654321")
	if err != nil {
		t.Fatalf("find by new national ID: %v", err)
	}
	if found.ID != v.ID {
		t.Fatal("approved change did not land on the record")
	}
}

func TestEditFieldValidatesValue(t *testing.T) {
	h := newHarness(t)
	v := h.create(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		field string
		value string
		want  error
	}{
		{"bad phone", beneficiary.FieldPhoneNumber, "not-a-phone", beneficiary.ErrInvalidPhone},
		{"bad national id", beneficiary.FieldNationalID, "12", beneficiary.ErrInvalidNationalID},
		{"unknown field", "shoe_size", "44", beneficiary.ErrUnknownField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.svc.EditField(ctx, h.actor, v.ID, tc.field, tc.value); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDeleteHidesRecord(t *testing.T) {
	h := newHarness(t)
	v := h.create(t)
	ctx := context.Background()

	if err := h.svc.Delete(ctx, v.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := h.svc.Get(ctx, v.ID); !errors.Is(err, beneficiary.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
}
