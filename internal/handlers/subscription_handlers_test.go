package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"licensor/internal/models"
	"licensor/internal/services"
)

func newSubscriptionServer(svc *MockSubscriptionService) *echo.Echo {
	h := NewSubscriptionHandlers(svc, discardLogger())
	e := newTestEcho()
	g := e.Group("/v1/admin")
	g.GET("/subscriptions", h.ListSubscriptions)
	g.POST("/subscriptions", h.CreateSubscription)
	g.GET("/subscriptions/:id", h.GetSubscription)
	g.PUT("/subscriptions/:id", h.UpdateSubscription)
	g.DELETE("/subscriptions/:id", h.DeleteSubscription)
	return e
}

func TestCreateSubscription(t *testing.T) {
	svc := new(MockSubscriptionService)
	periodEnd := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	svc.On("Create", mock.Anything, mock.MatchedBy(func(in services.SubscriptionInput) bool {
		return in.OwnerRef == "acme" && in.Status == "active" && in.Amount == 9.99 &&
			in.Currency == "usd" && in.CurrentPeriodEnd != nil && in.CurrentPeriodEnd.Equal(periodEnd)
	})).Return(&models.Subscription{ID: uuid.New(), OwnerRef: "acme", Status: models.SubscriptionActive}, nil)

	body := `{"owner_ref":"acme","status":"active","plan_name":"Pro","amount":9.99,"currency":"usd","current_period_end":"2026-04-01T00:00:00Z"}`
	rec := doRequest(newSubscriptionServer(svc), http.MethodPost, "/v1/admin/subscriptions", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreateSubscription_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing owner", `{"status":"active"}`, "owner_ref"},
		{"missing status", `{"owner_ref":"acme"}`, "status"},
		{"negative amount", `{"owner_ref":"acme","status":"active","amount":-1}`, "amount"},
		{"bad currency", `{"owner_ref":"acme","status":"active","currency":"dollars"}`, "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSubscriptionService)
			rec := doRequest(newSubscriptionServer(svc), http.MethodPost, "/v1/admin/subscriptions", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.field)
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateSubscription_UnknownStatus(t *testing.T) {
	svc := new(MockSubscriptionService)
	svc.On("Create", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: unknown subscription status \"gold\"", services.ErrInvalidStatus))

	rec := doRequest(newSubscriptionServer(svc), http.MethodPost, "/v1/admin/subscriptions", `{"owner_ref":"acme","status":"gold"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestUpdateSubscription(t *testing.T) {
	svc := new(MockSubscriptionService)
	id := uuid.New()
	svc.On("Update", mock.Anything, id, mock.MatchedBy(func(in services.SubscriptionInput) bool {
		return in.Status == "canceled" && in.CancelAtPeriodEnd
	})).Return(&models.Subscription{ID: id, Status: models.SubscriptionCanceled}, nil)

	rec := doRequest(newSubscriptionServer(svc), http.MethodPut, "/v1/admin/subscriptions/"+id.String(), `{"status":"canceled","cancel_at_period_end":true}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"canceled"`)
	svc.AssertExpectations(t)
}

func TestUpdateSubscription_NotFound(t *testing.T) {
	svc := new(MockSubscriptionService)
	id := uuid.New()
	svc.On("Update", mock.Anything, id, mock.Anything).Return(nil, services.ErrSubscriptionNotFound)

	rec := doRequest(newSubscriptionServer(svc), http.MethodPut, "/v1/admin/subscriptions/"+id.String(), `{"status":"active"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSubscription(t *testing.T) {
	svc := new(MockSubscriptionService)
	id := uuid.New()
	svc.On("Delete", mock.Anything, id).Return(nil)

	rec := doRequest(newSubscriptionServer(svc), http.MethodDelete, "/v1/admin/subscriptions/"+id.String(), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Subscription ended"}`, rec.Body.String())
}

func TestListAndGetSubscription(t *testing.T) {
	svc := new(MockSubscriptionService)
	id := uuid.New()
	svc.On("List", mock.Anything, 50, 0).Return([]*models.Subscription{{ID: id}}, nil)
	svc.On("Get", mock.Anything, id).Return(&models.Subscription{ID: id}, nil)
	e := newSubscriptionServer(svc)

	rec := doRequest(e, http.MethodGet, "/v1/admin/subscriptions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id.String())

	rec = doRequest(e, http.MethodGet, "/v1/admin/subscriptions/"+id.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}
