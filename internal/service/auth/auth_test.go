package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ataa-platform/ataa_backend/config"
	"github.com/ataa-platform/ataa_backend/internal/service/challenge"
	"github.com/ataa-platform/ataa_backend/internal/service/user"
	"github.com/ataa-platform/ataa_backend/internal/store/memory"
	pasetotoken "github.com/ataa-platform/ataa_backend/pkg/paseto"
	"github.com/ataa-platform/ataa_backend/pkg/util/otp"
)

const (
	testEncKey   = "6368616e676520746869732070617373776f726420746f206120736563726574"
	testPhone    = "0591234567"
	testPassword = "correct-horse-battery"
)

type recordingSink struct {
	codes []string
	fail  bool
}

func (s *recordingSink) SendCode(_ context.Context, _, code string) error {
	if s.fail {
		return errors.New("gateway unreachable")
	}
	s.codes = append(s.codes, code)
	return nil
}

func (s *recordingSink) lastCode(t *testing.T) string {
	t.Helper()
	if len(s.codes) == 0 {
		t.Fatal("no code was delivered")
	}
	return s.codes[len(s.codes)-1]
}

type harness struct {
	svc   Service
	users *memory.UserStore
	sink  *recordingSink
	rdb   *goredis.Client
	mr    *miniredis.Miniredis
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{}
	cfg.Authentication.EncryptionKey = testEncKey
	cfg.Authentication.Paseto = config.PasetoConfig{
		Mode:             "local",
		LocalKeyHex:      "707172737475767778797a7b7c7d7e7f808182838485868788898a8b8c8d8e8f",
		Issuer:           "ataa-test",
		Audience:         "ataa-clients",
		AccessTTLMinutes: 15,
		RefreshTTLDays:   30,
	}

	mgr, err := pasetotoken.NewPasetoManager(cfg)
	if err != nil {
		t.Fatalf("paseto manager: %v", err)
	}

	sink := &recordingSink{}
	challenges, err := challenge.New(challenge.NewMemoryStore(), sink, otp.DefaultConfig())
	if err != nil {
		t.Fatalf("challenge service: %v", err)
	}

	users := memory.NewUserStore()
	svc, err := New(users, challenges, rdb, mgr, cfg)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	challenges.BindPhoneVerifier(svc)

	return &harness{svc: svc, users: users, sink: sink, rdb: rdb, mr: mr}
}

// registerAndVerify takes a fresh account through the signup challenge.
func (h *harness) registerAndVerify(t *testing.T) *AuthTokens {
	t.Helper()
	ctx := context.Background()

	err := h.svc.Register(ctx, RegisterRequest{
		Phone:      testPhone,
		Password:   testPassword,
		FirstName:  "Amal",
		LastName:   "Nasser",
		Role:       "case_manager",
		NationalID: "123456789",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	tokens, err := h.svc.VerifyOTP(ctx, VerifyOTPRequest{Phone: testPhone, Code: h.sink.lastCode(t)})
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	return tokens
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  RegisterRequest
		want error
	}{
		{"bad phone", RegisterRequest{Phone: "12345", Password: testPassword}, ErrInvalidPhone},
		{"short password", RegisterRequest{Phone: testPhone, Password: "short"}, ErrPasswordTooShort},
		{"bad national id", RegisterRequest{Phone: testPhone, Password: testPassword, NationalID: "12ab"}, ErrInvalidNationalID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := h.svc.Register(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRegisterEncryptsNationalID(t *testing.T) {
	h := newHarness(t)
	h.registerAndVerify(t)

	u, err := h.users.GetByPhone(context.Background(), testPhone)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.NationalID == nil || *u.NationalID == "123456789" {
		t.Fatal("national ID stored in the clear")
	}
	if u.NationalIDHash == nil {
		t.Fatal("national ID hash not stored")
	}
	if strings.Contains(*u.NationalID, "123456789") {
		t.Fatal("ciphertext leaks the plaintext")
	}
}

func TestRegisterDuplicatePhone(t *testing.T) {
	h := newHarness(t)
	h.registerAndVerify(t)

	err := h.svc.Register(context.Background(), RegisterRequest{
		Phone:    testPhone,
		Password: testPassword,
	})
	if !errors.Is(err, ErrPhoneAlreadyExists) {
		t.Fatalf("err = %v, want ErrPhoneAlreadyExists", err)
	}
}

func TestRegisterDuplicateNationalID(t *testing.T) {
	h := newHarness(t)
	h.registerAndVerify(t)

	err := h.svc.Register(context.Background(), RegisterRequest{
		Phone:      "0599876543",
		Password:   testPassword,
		NationalID: "123456789",
	})
	if !errors.Is(err, ErrNationalIDExists) {
		t.Fatalf("err = %v, want ErrNationalIDExists", err)
	}
}

func TestRegisterSurvivesDeliveryFailure(t *testing.T) {
	h := newHarness(t)
	h.sink.fail = true

	err := h.svc.Register(context.Background(), RegisterRequest{
		Phone:    testPhone,
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("register with failed delivery: %v", err)
	}
}

func TestVerifyOTPWrongCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.svc.Register(ctx, RegisterRequest{Phone: testPhone, Password: testPassword}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := h.svc.VerifyOTP(ctx, VerifyOTPRequest{Phone: testPhone, Code: "000000"}); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("err = %v, want ErrOTPInvalid", err)
	}

	// The right code still works after one miss.
	if _, err := h.svc.VerifyOTP(ctx, VerifyOTPRequest{Phone: testPhone, Code: h.sink.lastCode(t)}); err != nil {
		t.Fatalf("verify with correct code: %v", err)
	}
}

func TestVerifyOTPExhaustsAttempts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.svc.Register(ctx, RegisterRequest{Phone: testPhone, Password: testPassword}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := h.svc.VerifyOTP(ctx, VerifyOTPRequest{Phone: testPhone, Code: "000000"}); err == nil {
			t.Fatal("wrong code accepted")
		}
	}
	_, err := h.svc.VerifyOTP(ctx, VerifyOTPRequest{Phone: testPhone, Code: h.sink.lastCode(t)})
	if !errors.Is(err, ErrOTPMaxAttempts) {
		t.Fatalf("err = %v, want ErrOTPMaxAttempts", err)
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.registerAndVerify(t)
	ctx := context.Background()

	tokens, err := h.svc.Login(ctx, LoginRequest{Phone: testPhone, Password: testPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("tokens missing")
	}

	// National ID is an alternate login handle.
	if _, err := h.svc.Login(ctx, LoginRequest{NationalID: "123456789", Password: testPassword}); err != nil {
		t.Fatalf("login by national ID: %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.registerAndVerify(t)

	_, err := h.svc.Login(context.Background(), LoginRequest{Phone: testPhone, Password: "not-it-at-all"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginRequiresVerifiedPhone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.svc.Register(ctx, RegisterRequest{Phone: testPhone, Password: testPassword}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := h.svc.Login(ctx, LoginRequest{Phone: testPhone, Password: testPassword})
	if !errors.Is(err, ErrPhoneNotVerified) {
		t.Fatalf("err = %v, want ErrPhoneNotVerified", err)
	}
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	h := newHarness(t)
	h.registerAndVerify(t)
	ctx := context.Background()

	for i := 0; i < maxLoginAttempts; i++ {
		if _, err := h.svc.Login(ctx, LoginRequest{Phone: testPhone, Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}

	// Even the right password bounces while locked.
	_, err := h.svc.Login(ctx, LoginRequest{Phone: testPhone, Password: testPassword})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("err = %v, want ErrAccountLocked", err)
	}
}

func TestLoginSuspendedAccount(t *testing.T) {
	h := newHarness(t)
	h.registerAndVerify(t)
	ctx := context.Background()

	u, err := h.users.GetByPhone(ctx, testPhone)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	u.Status = user.StatusSuspended
	if err := h.users.Update(ctx, u); err != nil {
		t.Fatalf("update user: %v", err)
	}

	if _, err := h.svc.Login(ctx, LoginRequest{Phone: testPhone, Password: testPassword}); !errors.Is(err, ErrAccountSuspended) {
		t.Fatalf("err = %v, want ErrAccountSuspended", err)
	}
}

func TestRefreshTokens(t *testing.T) {
	h := newHarness(t)
	tokens := h.registerAndVerify(t)
	ctx := context.Background()

	refreshed, err := h.svc.RefreshTokens(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Fatal("no access token issued")
	}
	if refreshed.RefreshToken != tokens.RefreshToken {
		t.Fatal("refresh token should be reused until logout")
	}

	// Access tokens are not refresh tokens.
	if _, err := h.svc.RefreshTokens(ctx, tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestRefreshAfterLogout(t *testing.T) {
	h := newHarness(t)
	tokens := h.registerAndVerify(t)
	ctx := context.Background()

	sessionID := currentSessionID(t, h)
	if err := h.svc.Logout(ctx, sessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := h.svc.RefreshTokens(ctx, tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestPasswordReset(t *testing.T) {
	h := newHarness(t)
	h.registerAndVerify(t)
	ctx := context.Background()

	if err := h.svc.RequestPasswordReset(ctx, testPhone); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	err := h.svc.ResetPassword(ctx, ResetPasswordRequest{
		Phone:       testPhone,
		Code:        h.sink.lastCode(t),
		NewPassword: "a-brand-new-secret",
	})
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}

	if _, err := h.svc.Login(ctx, LoginRequest{Phone: testPhone, Password: testPassword}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("old password still accepted")
	}
	if _, err := h.svc.Login(ctx, LoginRequest{Phone: testPhone, Password: "a-brand-new-secret"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestPasswordResetUnknownPhoneIsSilent(t *testing.T) {
	h := newHarness(t)

	if err := h.svc.RequestPasswordReset(context.Background(), "0599999999"); err != nil {
		t.Fatalf("err = %v, want nil for unknown phone", err)
	}
	if len(h.sink.codes) != 0 {
		t.Fatal("no code should be sent for an unknown phone")
	}
}

func TestSessionTTLAdvancesWithRefresh(t *testing.T) {
	h := newHarness(t)
	tokens := h.registerAndVerify(t)
	ctx := context.Background()

	// Burn most of the session TTL, then refresh; the session must survive
	// past its original deadline.
	h.mr.FastForward(29 * 24 * time.Hour)
	if _, err := h.svc.RefreshTokens(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("refresh near expiry: %v", err)
	}
	h.mr.FastForward(29 * 24 * time.Hour)
	if _, err := h.svc.RefreshTokens(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("refresh after extension: %v", err)
	}
}

// currentSessionID reads the single live session out of Redis.
func currentSessionID(t *testing.T, h *harness) uuid.UUID {
	t.Helper()
	keys := h.mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected one session key, got %v", keys)
	}
	id, err := uuid.Parse(strings.TrimPrefix(keys[0], "session:"))
	if err != nil {
		t.Fatalf("parse session key %q: %v", keys[0], err)
	}
	return id
}
