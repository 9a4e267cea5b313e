// internal/handlers/billing/billing_handler_test.go
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	xerrors "rebill-service/internal/pkg/errors"
	"rebill-service/internal/service/billing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	summary *billing.RunSummary
	err     error
}

func (s *stubRunner) Run(context.Context) (*billing.RunSummary, error) {
	return s.summary, s.err
}

func newTestRouter(runner Runner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/billing/run", NewBillingHandler(runner).RunBilling)
	return r
}

func TestRunBillingReturnsSummary(t *testing.T) {
	runner := &stubRunner{summary: &billing.RunSummary{
		RunID:      "run-1",
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
		Considered: 3,
		Processed:  2,
		Failed:     1,
	}}
	router := newTestRouter(runner)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/billing/run", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool               `json:"success"`
		Data    billing.RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "run-1", body.Data.RunID)
	assert.Equal(t, 3, body.Data.Considered)
}

func TestRunBillingConflictWhileRunInProgress(t *testing.T) {
	router := newTestRouter(&stubRunner{err: xerrors.ErrRunInProgress})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/billing/run", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRunBillingFailure(t *testing.T) {
	router := newTestRouter(&stubRunner{err: errors.New("store unreachable")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/billing/run", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
