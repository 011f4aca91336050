package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"licensor/internal/common"
	"licensor/internal/models"
	"licensor/internal/services"
)

const (
	defaultUsageLimit = 100
	maxUsageLimit     = 1000

	activeLicenseWindow = 24 * time.Hour
)

type CreateLicenseRequest struct {
	OwnerRef string `json:"owner_ref" validate:"required,max=255"`
}

// LicenseKeyResponse is returned by create and rotate. It is the only time
// the plaintext key leaves the server.
type LicenseKeyResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	LicenseKey string          `json:"license_key"`
	License    *models.License `json:"license,omitempty"`
}

type MutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LicenseHandlers serves the admin license endpoints.
type LicenseHandlers struct {
	lifecycleService services.LifecycleService
	dashboardService services.DashboardService
	logger           *slog.Logger
}

func NewLicenseHandlers(lifecycleService services.LifecycleService, dashboardService services.DashboardService, logger *slog.Logger) *LicenseHandlers {
	return &LicenseHandlers{
		lifecycleService: lifecycleService,
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// ListLicenses handles GET /v1/admin/licenses
//
// @Summary		List licenses
// @Tags		admin
// @Produce		json
// @Param		owner_ref	query	string	false	"Filter by owner"
// @Param		limit		query	int		false	"Page size"
// @Param		offset		query	int		false	"Page offset"
// @Success		200	{object}	map[string]interface{}
// @Security	BearerAuth
// @Router		/v1/admin/licenses [get]
func (h *LicenseHandlers) ListLicenses(c echo.Context) error {
	ctx := c.Request().Context()

	if owner := c.QueryParam("owner_ref"); owner != "" {
		licenses, err := h.lifecycleService.ListByOwner(ctx, owner)
		if err != nil {
			h.logger.Error("failed to list licenses by owner", "error", err)
			return common.SendServerError(c, "Failed to list licenses")
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"licenses": licenses,
			"count":    len(licenses),
		})
	}

	limit, offset, err := common.PaginationFromQuery(c)
	if err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}

	licenses, err := h.lifecycleService.List(ctx, limit, offset)
	if err != nil {
		h.logger.Error("failed to list licenses", "error", err)
		return common.SendServerError(c, "Failed to list licenses")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"licenses": licenses,
		"limit":    limit,
		"offset":   offset,
	})
}

// CreateLicense handles POST /v1/admin/licenses
//
// @Summary		Issue a license key
// @Tags		admin
// @Accept		json
// @Produce		json
// @Param		request	body		CreateLicenseRequest	true	"Owner"
// @Success		201		{object}	LicenseKeyResponse
// @Security	BearerAuth
// @Router		/v1/admin/licenses [post]
func (h *LicenseHandlers) CreateLicense(c echo.Context) error {
	var req CreateLicenseRequest
	if handled, err := bindAndValidate(c, &req); handled {
		return err
	}

	license, key, err := h.lifecycleService.Create(c.Request().Context(), req.OwnerRef)
	if err != nil {
		h.logger.Error("failed to create license", "owner_ref", req.OwnerRef, "error", err)
		return common.SendServerError(c, "Failed to create license")
	}

	return c.JSON(http.StatusCreated, LicenseKeyResponse{
		Success:    true,
		Message:    "License created",
		LicenseKey: key.Display(),
		License:    license,
	})
}

// ListActiveLicenses handles GET /v1/admin/active-licenses
//
// @Summary		Licenses in use
// @Description	Licenses validated in the last 24 hours that are neither suspended nor deactivated and whose owner has an entitled subscription.
// @Tags		admin
// @Produce		json
// @Success		200	{object}	map[string]interface{}
// @Security	BearerAuth
// @Router		/v1/admin/active-licenses [get]
func (h *LicenseHandlers) ListActiveLicenses(c echo.Context) error {
	active, err := h.lifecycleService.ListRecentlyActive(c.Request().Context(), activeLicenseWindow)
	if err != nil {
		h.logger.Error("failed to list active licenses", "error", err)
		return common.SendServerError(c, "Failed to get active licenses")
	}
	if active == nil {
		active = []*models.ActiveLicense{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total_active": len(active),
		"licenses":     active,
		"last_updated": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetLicense handles GET /v1/admin/licenses/:id
func (h *LicenseHandlers) GetLicense(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	license, err := h.lifecycleService.Get(c.Request().Context(), id)
	if err != nil {
		return h.licenseError(c, "get", id, err)
	}
	return c.JSON(http.StatusOK, license)
}

// SuspendLicense handles POST /v1/admin/licenses/:id/suspend
func (h *LicenseHandlers) SuspendLicense(c echo.Context) error {
	return h.mutate(c, "suspend", h.lifecycleService.Suspend, "License suspended")
}

// ActivateLicense handles POST /v1/admin/licenses/:id/activate
func (h *LicenseHandlers) ActivateLicense(c echo.Context) error {
	return h.mutate(c, "activate", h.lifecycleService.Activate, "License activated")
}

// DeactivateLicense handles POST /v1/admin/licenses/:id/deactivate
func (h *LicenseHandlers) DeactivateLicense(c echo.Context) error {
	return h.mutate(c, "deactivate", h.lifecycleService.Deactivate, "License deactivated")
}

// RotateLicense handles POST /v1/admin/licenses/:id/rotate
//
// @Summary		Rotate a license key
// @Description	The previous key stops validating immediately. Suspension and activation flags are kept.
// @Tags		admin
// @Produce		json
// @Param		id	path		string	true	"License ID"
// @Success		200	{object}	LicenseKeyResponse
// @Failure		404	{object}	common.ErrorResponse
// @Security	BearerAuth
// @Router		/v1/admin/licenses/{id}/rotate [post]
func (h *LicenseHandlers) RotateLicense(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	key, err := h.lifecycleService.Rotate(c.Request().Context(), id)
	if err != nil {
		return h.licenseError(c, "rotate", id, err)
	}

	return c.JSON(http.StatusOK, LicenseKeyResponse{
		Success:    true,
		Message:    "License key rotated",
		LicenseKey: key.Display(),
	})
}

// ListLicenseUsage handles GET /v1/admin/licenses/:id/usage
func (h *LicenseHandlers) ListLicenseUsage(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	limit := defaultUsageLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l > 0 {
			limit = min(l, maxUsageLimit)
		}
	}

	if _, err := h.lifecycleService.Get(ctx, id); err != nil {
		return h.licenseError(c, "get", id, err)
	}

	records, err := h.dashboardService.UsageForLicense(ctx, id, limit)
	if err != nil {
		h.logger.Error("failed to list license usage", "license_id", id, "error", err)
		return common.SendServerError(c, "Failed to list usage")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"usage": records,
		"limit": limit,
	})
}

func (h *LicenseHandlers) mutate(c echo.Context, op string, fn func(context.Context, uuid.UUID) error, message string) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := fn(c.Request().Context(), id); err != nil {
		return h.licenseError(c, op, id, err)
	}
	return c.JSON(http.StatusOK, MutationResponse{Success: true, Message: message})
}

func (h *LicenseHandlers) licenseError(c echo.Context, op string, id uuid.UUID, err error) error {
	if errors.Is(err, services.ErrLicenseNotFound) {
		return common.SendNotFoundError(c, "License")
	}
	h.logger.Error("license operation failed", "op", op, "license_id", id, "error", err)
	return common.SendServerError(c, "Failed to "+op+" license")
}
