package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"licensor/internal/common"
	"licensor/internal/services"
)

type CreateSubscriptionRequest struct {
	OwnerRef    string `json:"owner_ref" validate:"required,max=255"`
	ExternalRef string `json:"external_ref" validate:"max=255"`
	UpdateSubscriptionRequest
}

type UpdateSubscriptionRequest struct {
	Status            string     `json:"status" validate:"required"`
	PlanName          string     `json:"plan_name" validate:"max=255"`
	Amount            float64    `json:"amount" validate:"gte=0"`
	Currency          string     `json:"currency" validate:"omitempty,len=3"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end"`
	TrialEnd          *time.Time `json:"trial_end"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
}

func (r UpdateSubscriptionRequest) input() services.SubscriptionInput {
	return services.SubscriptionInput{
		Status:            r.Status,
		PlanName:          r.PlanName,
		Amount:            r.Amount,
		Currency:          r.Currency,
		CurrentPeriodEnd:  r.CurrentPeriodEnd,
		TrialEnd:          r.TrialEnd,
		CancelAtPeriodEnd: r.CancelAtPeriodEnd,
	}
}

// SubscriptionHandlers handles admin HTTP requests for subscriptions
type SubscriptionHandlers struct {
	subscriptionService services.SubscriptionService
	logger              *slog.Logger
}

func NewSubscriptionHandlers(subscriptionService services.SubscriptionService, logger *slog.Logger) *SubscriptionHandlers {
	return &SubscriptionHandlers{
		subscriptionService: subscriptionService,
		logger:              logger,
	}
}

// CreateSubscription handles POST /v1/admin/subscriptions
//
// @Summary		Create a subscription
// @Tags		admin
// @Accept		json
// @Produce		json
// @Param		request	body		CreateSubscriptionRequest	true	"Subscription"
// @Success		201		{object}	models.Subscription
// @Failure		400		{object}	common.ErrorResponse
// @Security	BearerAuth
// @Router		/v1/admin/subscriptions [post]
func (h *SubscriptionHandlers) CreateSubscription(c echo.Context) error {
	var req CreateSubscriptionRequest
	if handled, err := bindAndValidate(c, &req); handled {
		return err
	}

	input := req.input()
	input.OwnerRef = req.OwnerRef
	input.ExternalRef = req.ExternalRef

	sub, err := h.subscriptionService.Create(c.Request().Context(), input)
	if err != nil {
		return h.subscriptionError(c, "create", uuid.Nil, err)
	}
	return c.JSON(http.StatusCreated, sub)
}

// ListSubscriptions handles GET /v1/admin/subscriptions
func (h *SubscriptionHandlers) ListSubscriptions(c echo.Context) error {
	limit, offset, err := common.PaginationFromQuery(c)
	if err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}

	subs, err := h.subscriptionService.List(c.Request().Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list subscriptions", "error", err)
		return common.SendServerError(c, "Failed to list subscriptions")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"subscriptions": subs,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetSubscription handles GET /v1/admin/subscriptions/:id
func (h *SubscriptionHandlers) GetSubscription(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	sub, err := h.subscriptionService.Get(c.Request().Context(), id)
	if err != nil {
		return h.subscriptionError(c, "get", id, err)
	}
	return c.JSON(http.StatusOK, sub)
}

// UpdateSubscription handles PUT /v1/admin/subscriptions/:id
//
// @Summary		Edit a subscription
// @Description	Admin edits count as the newest event, so an older billing event replayed later does not undo them.
// @Tags		admin
// @Accept		json
// @Produce		json
// @Param		id		path		string						true	"Subscription ID"
// @Param		request	body		UpdateSubscriptionRequest	true	"Fields"
// @Success		200		{object}	models.Subscription
// @Failure		404		{object}	common.ErrorResponse
// @Security	BearerAuth
// @Router		/v1/admin/subscriptions/{id} [put]
func (h *SubscriptionHandlers) UpdateSubscription(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req UpdateSubscriptionRequest
	if handled, err := bindAndValidate(c, &req); handled {
		return err
	}

	sub, err := h.subscriptionService.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return h.subscriptionError(c, "update", id, err)
	}
	return c.JSON(http.StatusOK, sub)
}

// DeleteSubscription handles DELETE /v1/admin/subscriptions/:id
func (h *SubscriptionHandlers) DeleteSubscription(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.subscriptionService.Delete(c.Request().Context(), id); err != nil {
		return h.subscriptionError(c, "delete", id, err)
	}
	return c.JSON(http.StatusOK, MutationResponse{Success: true, Message: "Subscription ended"})
}

func (h *SubscriptionHandlers) subscriptionError(c echo.Context, op string, id uuid.UUID, err error) error {
	switch {
	case errors.Is(err, services.ErrSubscriptionNotFound):
		return common.SendNotFoundError(c, "Subscription")
	case errors.Is(err, services.ErrInvalidStatus):
		return common.SendValidationError(c, "status", err.Error())
	}
	h.logger.Error("subscription operation failed", "op", op, "subscription_id", id, "error", err)
	return common.SendServerError(c, "Failed to "+op+" subscription")
}
