// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"net/http"

	"rebill-service/internal/domain/subscription"
	xerrors "rebill-service/internal/pkg/errors"
	"rebill-service/internal/pkg/response"
	service "rebill-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// CreateSubscription enrolls a user on a plan and runs the first charge
// before responding.
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req subscription.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	created, err := h.subscriptionService.CreateSubscription(c.Request.Context(), &req)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "invalid request", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to create subscription", err)
		return
	}

	response.Success(c, http.StatusCreated, "subscription created successfully", created)
}

// GetSubscription retrieves one subscription with its recent charge history.
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, http.StatusBadRequest, "subscription ID is required", nil)
		return
	}

	sub, err := h.subscriptionService.GetSubscription(c.Request.Context(), id)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "subscription not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to get subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription retrieved", sub)
}

// ListSubscriptions retrieves subscriptions with filters, each carrying its
// recent charge history.
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	var filters subscription.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}
	if filters.Status != nil && !filters.Status.Valid() {
		response.Error(c, http.StatusBadRequest, "invalid status filter", nil)
		return
	}

	subs, err := h.subscriptionService.ListSubscriptions(c.Request.Context(), &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list subscriptions", err)
		return
	}

	response.Success(c, http.StatusOK, "subscriptions retrieved", subs)
}

// CancelSubscription marks a subscription cancelled. Cancelling twice is a
// no-op success.
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, http.StatusBadRequest, "subscription ID is required", nil)
		return
	}

	if err := h.subscriptionService.CancelSubscription(c.Request.Context(), id); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "subscription not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to cancel subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription cancelled successfully", nil)
}
