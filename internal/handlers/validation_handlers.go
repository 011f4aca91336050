package handlers

import (
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"licensor/internal/models"
	"licensor/internal/services"
)

const (
	msgLicenseValid = "License key is valid"

	maxClientFieldLength = 256
)

// ValidateRequest is the body an installed client sends on every check.
type ValidateRequest struct {
	LicenseKey        string `json:"license_key"`
	ExtensionVersion  string `json:"extension_version,omitempty"`
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
}

// ValidateResponse is the wire form of a validation decision. Nullable
// fields are always present so clients can rely on the shape.
type ValidateResponse struct {
	Valid               bool    `json:"valid"`
	Message             string  `json:"message"`
	ErrorCode           *string `json:"error_code"`
	ExpiresAt           *string `json:"expires_at"`
	SubscriptionStatus  *string `json:"subscription_status"`
	RecheckAfterSeconds int64   `json:"recheck_after_seconds"`
	CancelAtPeriodEnd   *bool   `json:"cancel_at_period_end,omitempty"`
	DaysUntilExpiry     *int    `json:"days_until_expiry,omitempty"`
}

// ValidationHandlers serves the public validation endpoint.
type ValidationHandlers struct {
	validationService services.ValidationService
	now               func() time.Time
}

func NewValidationHandlers(validationService services.ValidationService) *ValidationHandlers {
	return &ValidationHandlers{
		validationService: validationService,
		now:               time.Now,
	}
}

// ValidateLicense handles POST /v1/licenses/validate
//
// @Summary		Validate a license key
// @Tags		licenses
// @Accept		json
// @Produce		json
// @Param		request	body		ValidateRequest	true	"License key and client context"
// @Success		200		{object}	ValidateResponse
// @Failure		400		{object}	ValidateResponse
// @Failure		429		{object}	common.ErrorResponse
// @Router		/v1/licenses/validate [post]
func (h *ValidationHandlers) ValidateLicense(c echo.Context) error {
	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		code := string(models.ReasonInvalidKey)
		return c.JSON(http.StatusBadRequest, ValidateResponse{
			Valid:     false,
			Message:   "Invalid request body",
			ErrorCode: &code,
		})
	}

	vctx := models.ValidationContext{
		ClientVersion:     clientField(req.ExtensionVersion),
		DeviceFingerprint: clientField(req.DeviceFingerprint),
		IPAddress:         clientField(c.RealIP()),
		UserAgent:         clientField(c.Request().UserAgent()),
	}

	decision := h.validationService.Validate(c.Request().Context(), req.LicenseKey, vctx)
	return c.JSON(http.StatusOK, h.toResponse(decision))
}

func (h *ValidationHandlers) toResponse(decision models.Decision) ValidateResponse {
	resp := ValidateResponse{
		Valid:               decision.Valid(),
		RecheckAfterSeconds: int64(decision.RecheckIn() / time.Second),
	}

	switch d := decision.(type) {
	case models.Granted:
		resp.Message = msgLicenseValid
		status := string(d.SubscriptionStatus)
		resp.SubscriptionStatus = &status
		cancel := d.CancelAtPeriodEnd
		resp.CancelAtPeriodEnd = &cancel
		if d.ExpiresAt != nil {
			expires := d.ExpiresAt.UTC().Format(time.RFC3339)
			resp.ExpiresAt = &expires
			days := int(math.Floor(d.ExpiresAt.Sub(h.now()).Hours() / 24))
			resp.DaysUntilExpiry = &days
		}
	case models.Denied:
		resp.Message = d.Message
		code := string(d.Reason)
		resp.ErrorCode = &code
		if d.SubscriptionStatus != nil {
			status := string(*d.SubscriptionStatus)
			resp.SubscriptionStatus = &status
		}
	}
	return resp
}

// clientField makes client-supplied metadata safe to store: valid UTF-8, no
// NUL bytes, and at most maxClientFieldLength bytes cut on a rune boundary.
func clientField(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.TrimSpace(s)
	if len(s) <= maxClientFieldLength {
		return s
	}
	cut := maxClientFieldLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
