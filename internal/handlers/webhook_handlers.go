package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"licensor/internal/common"
	"licensor/internal/models"
	"licensor/internal/services"
)

const (
	maxWebhookBodyBytes = int64(65536)
	processedEventTTL   = 72 * time.Hour

	ownerRefMetadataKey = "owner_ref"
)

// EventDeduper remembers which billing events were already applied.
type EventDeduper interface {
	MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	ForgetEvent(ctx context.Context, eventID string) error
}

// WebhookHandlers receives billing provider events.
type WebhookHandlers struct {
	subscriptionService services.SubscriptionService
	deduper             EventDeduper
	webhookSecret       string
	logger              *slog.Logger
}

func NewWebhookHandlers(subscriptionService services.SubscriptionService, deduper EventDeduper, webhookSecret string, logger *slog.Logger) *WebhookHandlers {
	return &WebhookHandlers{
		subscriptionService: subscriptionService,
		deduper:             deduper,
		webhookSecret:       webhookSecret,
		logger:              logger,
	}
}

// StripeWebhook handles POST /webhooks/stripe
//
// @Summary		Stripe subscription events
// @Tags		webhooks
// @Accept		json
// @Produce		json
// @Param		Stripe-Signature	header	string	true	"Stripe signature"
// @Success		200
// @Failure		400	{object}	common.ErrorResponse
// @Router		/webhooks/stripe [post]
func (h *WebhookHandlers) StripeWebhook(c echo.Context) error {
	if h.webhookSecret == "" {
		return c.JSON(http.StatusServiceUnavailable, common.CreateErrorResponse("WEBHOOK_DISABLED", "Webhook secret not configured", nil))
	}

	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(req.Body)
	if err != nil {
		return common.SendClientError(c, "Error reading request body")
	}

	event, err := webhook.ConstructEventWithOptions(payload, req.Header.Get("Stripe-Signature"), h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.logger.Warn("rejected stripe webhook", "error", err)
		return common.SendClientError(c, "Invalid signature")
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
	default:
		h.logger.Debug("ignoring stripe event", "event_id", event.ID, "type", event.Type)
		return c.JSON(http.StatusOK, map[string]interface{}{"received": true})
	}

	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		h.logger.Warn("failed to parse subscription payload", "event_id", event.ID, "error", err)
		return common.SendClientError(c, "Error parsing subscription data")
	}

	ctx := req.Context()
	fresh, err := h.deduper.MarkEventProcessed(ctx, event.ID, processedEventTTL)
	if err != nil {
		// Event application is idempotent.
		h.logger.Warn("event de-duplication unavailable", "event_id", event.ID, "error", err)
		fresh = true
	}
	if !fresh {
		return c.JSON(http.StatusOK, map[string]interface{}{"received": true, "duplicate": true})
	}

	subEvent := subscriptionEventFromStripe(&subscription, time.Unix(event.Created, 0).UTC())
	applied, err := h.subscriptionService.SyncSubscription(ctx, subEvent)
	if err != nil {
		if ferr := h.deduper.ForgetEvent(context.WithoutCancel(ctx), event.ID); ferr != nil {
			h.logger.Warn("failed to release event marker", "event_id", event.ID, "error", ferr)
		}
		h.logger.Error("failed to sync subscription", "event_id", event.ID, "type", event.Type, "error", err)
		return common.SendServerError(c, "Error processing subscription")
	}

	h.logger.Info("stripe event processed", "event_id", event.ID, "type", event.Type, "applied", applied)
	return c.JSON(http.StatusOK, map[string]interface{}{"received": true, "applied": applied})
}

func subscriptionEventFromStripe(sub *stripe.Subscription, occurredAt time.Time) models.SubscriptionEvent {
	event := models.SubscriptionEvent{
		ExternalRef:       sub.ID,
		Status:            models.SubscriptionStatus(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		Currency:          string(sub.Currency),
		OccurredAt:        occurredAt,
	}

	if owner := sub.Metadata[ownerRefMetadataKey]; owner != "" {
		event.OwnerRef = owner
	} else if sub.Customer != nil {
		event.OwnerRef = sub.Customer.ID
	}

	if sub.TrialEnd > 0 {
		t := time.Unix(sub.TrialEnd, 0).UTC()
		event.TrialEnd = &t
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.CurrentPeriodEnd > 0 {
			t := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			event.CurrentPeriodEnd = &t
		}
		if price := item.Price; price != nil {
			event.Amount = float64(price.UnitAmount) / 100
			if price.Currency != "" {
				event.Currency = string(price.Currency)
			}
			event.PlanName = price.Nickname
			if event.PlanName == "" {
				event.PlanName = price.LookupKey
			}
		}
	}
	return event
}
