// internal/handlers/plan/plan_handler.go
package plan

import (
	"net/http"
	"strconv"

	"rebill-service/internal/domain/plan"
	xerrors "rebill-service/internal/pkg/errors"
	"rebill-service/internal/pkg/response"
	service "rebill-service/internal/service/plan"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	planService *service.PlanService
}

func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// CreatePlan creates a new billing plan.
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req plan.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	created, err := h.planService.CreatePlan(c.Request.Context(), &req)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "invalid request", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to create plan", err)
		return
	}

	response.Success(c, http.StatusCreated, "plan created successfully", created)
}

// GetPlan retrieves a single plan by ID.
func (h *PlanHandler) GetPlan(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid plan ID", err)
		return
	}

	p, err := h.planService.GetPlan(c.Request.Context(), planID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "plan not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to get plan", err)
		return
	}

	response.Success(c, http.StatusOK, "plan retrieved", p)
}

// ListPlans retrieves plans with filters.
func (h *PlanHandler) ListPlans(c *gin.Context) {
	var filters plan.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	plans, err := h.planService.ListPlans(c.Request.Context(), &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list plans", err)
		return
	}

	response.Success(c, http.StatusOK, "plans retrieved", plans)
}
