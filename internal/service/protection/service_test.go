package protection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/internal/service/challenge"
	"github.com/ataa-platform/ataa_backend/pkg/util/otp"
)

type recordingSink struct {
	mu    sync.Mutex
	codes []string
	fail  bool
}

func (r *recordingSink) SendCode(_ context.Context, _ string, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("gateway down")
	}
	r.codes = append(r.codes, code)
	return nil
}

func (r *recordingSink) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.codes) == 0 {
		return ""
	}
	return r.codes[len(r.codes)-1]
}

func (r *recordingSink) sent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	svc     *Service
	sink    *recordingSink
	applier *fakeApplier
	clock   *clock
	actor   Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clk := newClock()
	sink := &recordingSink{}
	applier := &fakeApplier{}
	challenges, err := challenge.New(challenge.NewMemoryStore(), sink, otp.DefaultConfig(),
		challenge.WithClock(clk.Now))
	if err != nil {
		t.Fatalf("challenge.New: %v", err)
	}
	svc := NewService(testPolicy(t), challenges, NewMemoryQueue(), applier,
		WithServiceClock(clk.Now))
	return &harness{
		svc:     svc,
		sink:    sink,
		applier: applier,
		clock:   clk,
		actor: Actor{
			UserID:   uuid.New(),
			UserType: "staff",
			Role:     "case_manager",
			Phone:    "0591234567",
		},
	}
}

func TestEvaluateEditAllowAppliesImmediately(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out, err := h.svc.EvaluateEdit(ctx, h.actor, uuid.New(), "nickname", "Abu Salem", true)
	if err != nil {
		t.Fatalf("EvaluateEdit: %v", err)
	}
	if out.Decision != Allow {
		t.Fatalf("decision = %v, want Allow", out.Decision)
	}
	if h.applier.count() != 1 {
		t.Fatalf("applied %d changes, want 1", h.applier.count())
	}
	if h.sink.sent() != 0 {
		t.Fatal("open edit must not issue a challenge")
	}
}

func TestEvaluateEditDenyIsAnOutcome(t *testing.T) {
	h := newHarness(t)
	h.actor.Role = "volunteer"

	out, err := h.svc.EvaluateEdit(context.Background(), h.actor, uuid.New(), "phone_number", "0599000000", true)
	if err != nil {
		t.Fatalf("denial must not be a transport error, got %v", err)
	}
	if out.Decision != Deny {
		t.Fatalf("decision = %v, want Deny", out.Decision)
	}
	if out.Reason == "" {
		t.Fatal("denial must carry a reason naming the required level")
	}
	if h.applier.count() != 0 {
		t.Fatal("denied edit must not mutate anything")
	}
}

func TestEvaluateEditApprovalPath(t *testing.T) {
	h := newHarness(t)
	h.actor.Role = "admin"
	ctx := context.Background()
	recordID := uuid.New()

	out, err := h.svc.EvaluateEdit(ctx, h.actor, recordID, "national_id", "900123456", true)
	if err != nil {
		t.Fatalf("EvaluateEdit: %v", err)
	}
	if out.Decision != RequireApproval {
		t.Fatalf("decision = %v, want RequireApproval", out.Decision)
	}
	if out.Queued == nil || out.Queued.Status != StatusPending {
		t.Fatalf("queued = %+v", out.Queued)
	}
	if h.applier.count() != 0 {
		t.Fatal("approval path must not apply synchronously")
	}

	pending, err := h.svc.ListPendingApprovals(ctx)
	if err != nil {
		t.Fatalf("ListPendingApprovals: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending approvals = %d, want 1", len(pending))
	}

	approver := Actor{UserID: uuid.New(), Role: "admin"}
	decided, err := h.svc.Approve(ctx, out.Queued.ID, approver)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if decided.Status != StatusApproved || decided.DecidedBy == nil {
		t.Fatalf("decided = %+v", decided)
	}
	if h.applier.count() != 1 {
		t.Fatal("approval must apply the change")
	}

	if _, err := h.svc.Approve(ctx, out.Queued.ID, approver); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("second approve err = %v, want ErrAlreadyDecided", err)
	}
}

func TestRejectDoesNotApply(t *testing.T) {
	h := newHarness(t)
	h.actor.Role = "admin"
	ctx := context.Background()

	out, err := h.svc.EvaluateEdit(ctx, h.actor, uuid.New(), "national_id", "900123456", true)
	if err != nil {
		t.Fatalf("EvaluateEdit: %v", err)
	}
	decided, err := h.svc.Reject(ctx, out.Queued.ID, Actor{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if decided.Status != StatusRejected {
		t.Fatalf("status = %s", decided.Status)
	}
	if h.applier.count() != 0 {
		t.Fatal("rejected change must never be applied")
	}
}

func TestOTPRoundHappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	recordID := uuid.New()

	out, err := h.svc.EvaluateEdit(ctx, h.actor, recordID, "phone_number", "0599000000", true)
	if err != nil {
		t.Fatalf("EvaluateEdit: %v", err)
	}
	if out.Decision != RequireOTP || out.SessionID == nil {
		t.Fatalf("outcome = %+v", out)
	}
	if h.applier.count() != 0 {
		t.Fatal("value must be held, not applied, before verification")
	}
	if h.sink.sent() != 1 {
		t.Fatalf("sent %d codes, want 1", h.sink.sent())
	}

	sess, err := h.svc.Session(*out.SessionID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess.State() != StateSent {
		t.Fatalf("state = %v, want sent", sess.State())
	}

	res, err := sess.Submit(ctx, h.sink.last())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Verified || !res.Committed {
		t.Fatalf("result = %+v", res)
	}
	if h.applier.count() != 1 {
		t.Fatal("verified change must be applied")
	}
	change := h.applier.applied[0]
	if change.Field != "phone_number" || change.ProposedValue != "0599000000" || change.TargetRecordID != recordID {
		t.Fatalf("applied change = %+v", change)
	}
}

func TestOTPRoundWrongCodeChargesAttempt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out, err := h.svc.EvaluateEdit(ctx, h.actor, uuid.New(), "phone_number", "0599000000", true)
	if err != nil {
		t.Fatalf("EvaluateEdit: %v", err)
	}
	sess, _ := h.svc.Session(*out.SessionID)

	wrong := "000000"
	if wrong == h.sink.last() {
		wrong = "000001"
	}
	res, err := sess.Submit(ctx, wrong)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Verified || res.Message == "" {
		t.Fatalf("result = %+v", res)
	}

	// The realm of guesses is bounded: after three misses the round is dead
	// even for the right code.
	for i := 0; i < 2; i++ {
		if _, err := sess.Submit(ctx, wrong); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	res, err = sess.Submit(ctx, h.sink.last())
	if err != nil {
		t.Fatalf("Submit after exhaustion: %v", err)
	}
	if res.Verified || !res.Exhausted {
		t.Fatalf("result = %+v, want exhausted", res)
	}
	if h.applier.count() != 0 {
		t.Fatal("nothing may be applied after exhaustion")
	}
}

func TestOTPRoundIncompleteInputIsFree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out, _ := h.svc.EvaluateEdit(ctx, h.actor, uuid.New(), "phone_number", "0599000000", true)
	sess, _ := h.svc.Session(*out.SessionID)

	// Burn nothing on short or non-numeric input, even many times over.
	for i := 0; i < 5; i++ {
		res, err := sess.Submit(ctx, "12a")
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if res.Verified || res.Exhausted {
			t.Fatalf("result = %+v", res)
		}
	}
	res, err := sess.Submit(ctx, h.sink.last())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Verified {
		t.Fatal("correct code must still verify after incomplete inputs")
	}
}

func TestOTPRoundResend(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out, _ := h.svc.EvaluateEdit(ctx, h.actor, uuid.New(), "phone_number", "0599000000", true)
	sess, _ := h.svc.Session(*out.SessionID)

	if sess.CanResend() {
		t.Fatal("resend must be locked while the countdown runs")
	}
	if _, err := sess.Resend(ctx); !errors.Is(err, ErrResendNotReady) {
		t.Fatalf("early resend err = %v, want ErrResendNotReady", err)
	}

	firstCode := h.sink.last()
	h.clock.Advance(601 * time.Second)
	if !sess.CanResend() {
		t.Fatal("resend must unlock once the countdown elapses")
	}
	if sess.SecondsRemaining() != 0 {
		t.Fatalf("SecondsRemaining = %d after expiry", sess.SecondsRemaining())
	}

	if _, err := sess.Resend(ctx); err != nil {
		t.Fatalf("Resend: %v", err)
	}
	if h.sink.sent() != 2 {
		t.Fatalf("sent %d codes, want 2", h.sink.sent())
	}

	// The superseded code is dead even if it happens to differ.
	if firstCode != h.sink.last() {
		res, err := sess.Submit(ctx, firstCode)
		if err != nil {
			t.Fatalf("Submit old code: %v", err)
		}
		if res.Verified {
			t.Fatal("superseded code must not verify")
		}
	}
	res, err := sess.Submit(ctx, h.sink.last())
	if err != nil {
		t.Fatalf("Submit new code: %v", err)
	}
	if !res.Verified {
		t.Fatal("fresh code must verify")
	}
}

func TestOTPRoundSingleFlightPerRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	recordID := uuid.New()

	if _, err := h.svc.EvaluateEdit(ctx, h.actor, recordID, "phone_number", "0599000000", true); err != nil {
		t.Fatalf("first EvaluateEdit: %v", err)
	}
	if _, err := h.svc.EvaluateEdit(ctx, h.actor, recordID, "phone_number", "0599111111", true); !errors.Is(err, ErrEditInFlight) {
		t.Fatalf("second EvaluateEdit err = %v, want ErrEditInFlight", err)
	}

	// A different record is its own slot.
	if _, err := h.svc.EvaluateEdit(ctx, h.actor, uuid.New(), "phone_number", "0599111111", true); err != nil {
		t.Fatalf("other record EvaluateEdit: %v", err)
	}
}

func TestOTPRoundSlotFreedAfterVerify(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	recordID := uuid.New()

	out, _ := h.svc.EvaluateEdit(ctx, h.actor, recordID, "phone_number", "0599000000", true)
	sess, _ := h.svc.Session(*out.SessionID)
	if _, err := sess.Submit(ctx, h.sink.last()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := h.svc.EvaluateEdit(ctx, h.actor, recordID, "phone_number", "0599111111", true); err != nil {
		t.Fatalf("slot must free after a verified round: %v", err)
	}
}

func TestCloseSessionDiscardsPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	recordID := uuid.New()

	out, _ := h.svc.EvaluateEdit(ctx, h.actor, recordID, "phone_number", "0599000000", true)
	if err := h.svc.CloseSession(*out.SessionID); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	if _, err := h.svc.Session(*out.SessionID); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Session after close err = %v, want ErrSessionClosed", err)
	}
	if h.applier.count() != 0 {
		t.Fatal("closed session must not apply")
	}

	// The slot is free again.
	if _, err := h.svc.EvaluateEdit(ctx, h.actor, recordID, "phone_number", "0599111111", true); err != nil {
		t.Fatalf("EvaluateEdit after close: %v", err)
	}
}

func TestCloseSessionUnknownID(t *testing.T) {
	h := newHarness(t)
	if err := h.svc.CloseSession(uuid.New()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("CloseSession err = %v, want ErrSessionClosed", err)
	}
}

func TestSubmitRetriesCommitAfterApplyFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	recordID := uuid.New()

	out, _ := h.svc.EvaluateEdit(ctx, h.actor, recordID, "phone_number", "0599000000", true)
	sess, _ := h.svc.Session(*out.SessionID)

	h.applier.fail = true
	if _, err := sess.Submit(ctx, h.sink.last()); err == nil {
		t.Fatal("Submit must surface the apply failure")
	}
	if sess.State() == StateVerified {
		t.Fatal("session must stay open while the change is unapplied")
	}

	// The code is spent server-side; the retry must commit without it being
	// rejected as already verified.
	h.applier.fail = false
	res, err := sess.Submit(ctx, h.sink.last())
	if err != nil {
		t.Fatalf("Submit retry: %v", err)
	}
	if !res.Verified || !res.Committed {
		t.Fatalf("result = %+v", res)
	}
	if h.applier.count() != 1 {
		t.Fatalf("applied %d changes, want 1", h.applier.count())
	}
	change := h.applier.applied[0]
	if change.Field != "phone_number" || change.ProposedValue != "0599000000" || change.TargetRecordID != recordID {
		t.Fatalf("applied change = %+v", change)
	}
}

func TestDeliveryFailureKeepsSessionForRetry(t *testing.T) {
	h := newHarness(t)
	h.sink.fail = true
	ctx := context.Background()

	out, err := h.svc.EvaluateEdit(ctx, h.actor, uuid.New(), "phone_number", "0599000000", true)
	if err != nil {
		t.Fatalf("EvaluateEdit: %v", err)
	}
	if !out.DeliveryFailed || out.SessionID == nil {
		t.Fatalf("outcome = %+v, want delivery failure with live session", out)
	}

	sess, err := h.svc.Session(*out.SessionID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if !sess.CanResend() {
		t.Fatal("delivery failure must unlock resend immediately")
	}

	h.sink.fail = false
	if _, err := sess.Resend(ctx); err != nil {
		t.Fatalf("Resend: %v", err)
	}
	res, err := sess.Submit(ctx, h.sink.last())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Verified {
		t.Fatal("round must complete after a successful retry")
	}
}

func TestResolveExposesPolicy(t *testing.T) {
	h := newHarness(t)
	res := h.svc.Resolve("national_id", "case_manager")
	if res.CanEdit {
		t.Fatal("case_manager must not clear level 1")
	}
	res = h.svc.Resolve("nickname", "case_manager")
	if !res.CanEdit || res.RequiresOTP {
		t.Fatalf("resolution = %+v", res)
	}
}
