// internal/handlers/billing/billing_handler.go
package billing

import (
	"context"
	"net/http"

	xerrors "rebill-service/internal/pkg/errors"
	"rebill-service/internal/pkg/response"
	"rebill-service/internal/service/billing"

	"github.com/gin-gonic/gin"
)

// Runner is the slice of the cycle processor the handler needs.
type Runner interface {
	Run(ctx context.Context) (*billing.RunSummary, error)
}

type BillingHandler struct {
	runner Runner
}

func NewBillingHandler(runner Runner) *BillingHandler {
	return &BillingHandler{runner: runner}
}

// RunBilling triggers a billing cycle run and responds with its summary.
// Only one run may be active at a time; a second trigger gets a 409.
func (h *BillingHandler) RunBilling(c *gin.Context) {
	summary, err := h.runner.Run(c.Request.Context())
	if err != nil {
		if xerrors.Is(err, xerrors.ErrRunInProgress) {
			response.Conflict(c, "billing run already in progress", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "billing run failed", err)
		return
	}

	response.Success(c, http.StatusOK, "billing run completed", summary)
}
