package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/config"
	"github.com/ataa-platform/ataa_backend/internal/api/http/middleware"
	"github.com/ataa-platform/ataa_backend/internal/service/beneficiary"
	"github.com/ataa-platform/ataa_backend/internal/service/protection"
	"github.com/ataa-platform/ataa_backend/internal/service/user"
	pasetotoken "github.com/ataa-platform/ataa_backend/pkg/paseto"
)

type BeneficiaryHandler struct {
	svc   *beneficiary.Service
	prot  *protection.Service
	users user.Store
	cfg   *config.Config
}

func NewBeneficiaryHandler(svc *beneficiary.Service, prot *protection.Service, users user.Store, cfg *config.Config) *BeneficiaryHandler {
	return &BeneficiaryHandler{svc: svc, prot: prot, users: users, cfg: cfg}
}

// actor resolves the acting user from token claims. The phone comes from the
// account record so the OTP always goes to the number on file, not anything
// client-supplied.
func (h *BeneficiaryHandler) actor(c fiber.Ctx) (protection.Actor, error) {
	claims, valid := pasetotoken.ClaimsFromFiber(c)
	if !valid {
		return protection.Actor{}, fiber.ErrUnauthorized
	}
	u, err := h.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		return protection.Actor{}, fiber.ErrUnauthorized
	}
	return protection.Actor{
		UserID:   u.ID,
		UserType: u.UserType,
		Role:     u.Role,
		Phone:    u.Phone,
	}, nil
}

// POST /api/v1/beneficiaries
func (h *BeneficiaryHandler) Create(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}

	var body struct {
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		Phone       string `json:"phone"`
		NationalID  string `json:"national_id"`
		BankAccount string `json:"bank_account"`
		Address     string `json:"address"`
		FamilySize  int    `json:"family_size"`
		Notes       string `json:"notes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	v, err := h.svc.Create(c.Context(), actor, beneficiary.CreateRequest{
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		Phone:       body.Phone,
		NationalID:  body.NationalID,
		BankAccount: body.BankAccount,
		Address:     body.Address,
		FamilySize:  body.FamilySize,
		Notes:       body.Notes,
	})
	if err != nil {
		return mapBeneficiaryError(c, err)
	}
	return created(c, v)
}

// GET /api/v1/beneficiaries
func (h *BeneficiaryHandler) List(c fiber.Ctx) error {
	var q struct {
		Limit  int `query:"limit"`
		Offset int `query:"offset"`
	}
	_ = c.Bind().Query(&q)

	views, err := h.svc.List(c.Context(), q.Limit, q.Offset)
	if err != nil {
		return mapBeneficiaryError(c, err)
	}
	return ok(c, views)
}

// GET /api/v1/beneficiaries/lookup?national_id=XXXXXXXXX
func (h *BeneficiaryHandler) Lookup(c fiber.Ctx) error {
	rawID := c.Query("national_id")
	if rawID == "" {
		return badRequest(c, "national_id query parameter is required")
	}
	v, err := h.svc.FindByNationalID(c.Context(), rawID)
	if err != nil {
		return mapBeneficiaryError(c, err)
	}
	return ok(c, v)
}

// GET /api/v1/beneficiaries/:id
func (h *BeneficiaryHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid beneficiary id")
	}
	v, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return mapBeneficiaryError(c, err)
	}
	return ok(c, v)
}

// PATCH /api/v1/beneficiaries/:id
func (h *BeneficiaryHandler) Update(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid beneficiary id")
	}

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(body.Fields) == 0 {
		return badRequest(c, "fields is required")
	}

	v, err := h.svc.Update(c.Context(), actor, id, beneficiary.UpdateRequest{Fields: body.Fields})
	if err != nil {
		return mapBeneficiaryError(c, err)
	}
	return ok(c, v)
}

// DELETE /api/v1/beneficiaries/:id
func (h *BeneficiaryHandler) Delete(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid beneficiary id")
	}
	if err := h.svc.Delete(c.Context(), id); err != nil {
		return mapBeneficiaryError(c, err)
	}
	return noContent(c)
}

// ---------------------------------------------------------------------------
// Protected field edits
// ---------------------------------------------------------------------------

// POST /api/v1/beneficiaries/:id/field-edits
func (h *BeneficiaryHandler) StartFieldEdit(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid beneficiary id")
	}

	var body struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Field == "" {
		return badRequest(c, "field is required")
	}

	out, err := h.svc.EditField(c.Context(), actor, id, body.Field, body.Value)
	if err != nil {
		return mapBeneficiaryError(c, err)
	}

	if meta, found := middleware.RequestMetaFromFiber(c); found {
		slog.Info("protected field edit started",
			"request_id", meta.RequestID,
			"client_ip", meta.ClientIP,
			"record_id", id,
			"field", body.Field,
			"decision", out.Decision.String(),
		)
	}

	resp := fiber.Map{"decision": out.Decision.String()}
	switch out.Decision {
	case protection.Deny:
		resp["reason"] = out.Reason
	case protection.RequireApproval:
		resp["queued"] = out.Queued
	case protection.RequireOTP:
		resp["session_id"] = out.SessionID
		resp["delivery_failed"] = out.DeliveryFailed
		if out.Challenge != nil {
			resp["expires_at"] = out.Challenge.ExpiresAt
			if h.devCodeExposure() {
				resp["debug_code"] = out.Challenge.Code
			}
		}
	}
	return ok(c, resp)
}

// GET /api/v1/field-edits/:sid
func (h *BeneficiaryHandler) FieldEditStatus(c fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return mapProtectionError(c, err)
	}
	return ok(c, fiber.Map{
		"state":             sess.State().String(),
		"seconds_remaining": sess.SecondsRemaining(),
		"can_resend":        sess.CanResend(),
	})
}

// POST /api/v1/field-edits/:sid/verify
func (h *BeneficiaryHandler) VerifyFieldEdit(c fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return mapProtectionError(c, err)
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := sess.Submit(c.Context(), body.Code)
	if err != nil {
		return mapProtectionError(c, err)
	}
	return ok(c, res)
}

// POST /api/v1/field-edits/:sid/resend
func (h *BeneficiaryHandler) ResendFieldEdit(c fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return mapProtectionError(c, err)
	}

	res, err := sess.Resend(c.Context())
	if err != nil {
		return mapProtectionError(c, err)
	}

	resp := fiber.Map{"message": "code sent"}
	if res != nil {
		resp["expires_at"] = res.ExpiresAt
		if h.devCodeExposure() {
			resp["debug_code"] = res.Code
		}
	}
	return ok(c, resp)
}

// DELETE /api/v1/field-edits/:sid
func (h *BeneficiaryHandler) CancelFieldEdit(c fiber.Ctx) error {
	sid, err := uuid.Parse(c.Params("sid"))
	if err != nil {
		return badRequest(c, "invalid session id")
	}
	if err := h.prot.CloseSession(sid); err != nil {
		return mapProtectionError(c, err)
	}
	return noContent(c)
}

func (h *BeneficiaryHandler) session(c fiber.Ctx) (*protection.Session, error) {
	sid, err := uuid.Parse(c.Params("sid"))
	if err != nil {
		return nil, errBadSessionID
	}
	return h.prot.Session(sid)
}

// devCodeExposure reports whether raw codes may be echoed in responses: only
// when SMS delivery is off and the server is not in production.
func (h *BeneficiaryHandler) devCodeExposure() bool {
	return !h.cfg.SMS.Enabled && !h.cfg.IsProduction()
}

var errBadSessionID = errors.New("invalid session id")

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func mapBeneficiaryError(c fiber.Ctx, err error) error {
	var denied *protection.DeniedError
	switch {
	case errors.As(err, &denied):
		return forbiddenMsg(c, denied.Error())
	case errors.Is(err, beneficiary.ErrNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, beneficiary.ErrDuplicateNationalID):
		return conflict(c, err.Error())
	case errors.Is(err, beneficiary.ErrFieldProtected):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
			"hint":  "use the field-edit flow for protected fields",
		})
	case errors.Is(err, beneficiary.ErrInvalidPhone),
		errors.Is(err, beneficiary.ErrInvalidNationalID),
		errors.Is(err, beneficiary.ErrUnknownField):
		return badRequest(c, err.Error())
	case errors.Is(err, protection.ErrEditInFlight):
		return conflict(c, err.Error())
	default:
		return internalError(c)
	}
}

func mapProtectionError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errBadSessionID):
		return badRequest(c, err.Error())
	case errors.Is(err, protection.ErrSessionClosed):
		return notFound(c, err.Error())
	case errors.Is(err, protection.ErrNoPendingChange):
		return conflict(c, err.Error())
	case errors.Is(err, protection.ErrResendNotReady):
		return tooManyRequests(c, err.Error())
	default:
		return internalError(c)
	}
}
