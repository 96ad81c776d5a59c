package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
	"github.com/mamadbah2/hospital-reports/internal/service/dispatch"
)

// SecretHeader carries the shared secret of the external cron caller.
const SecretHeader = "X-Cron-Secret"

// Runner executes one pass over the due schedules.
type Runner interface {
	Run(ctx context.Context) (models.RunSummary, error)
}

// TriggerHandler exposes the scheduled report run over HTTP.
type TriggerHandler struct {
	runner  Runner
	secret  []byte
	timeout time.Duration
	logger  *zap.Logger
}

// NewTriggerHandler constructs the HTTP handler adapter. Runs are bounded by
// timeout, not by the caller's connection; zero means unbounded.
func NewTriggerHandler(runner Runner, secret string, timeout time.Duration, logger *zap.Logger) *TriggerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriggerHandler{runner: runner, secret: []byte(secret), timeout: timeout, logger: logger}
}

// Authorize rejects requests whose secret header does not match.
func (h *TriggerHandler) Authorize(c *gin.Context) {
	received := c.GetHeader(SecretHeader)
	if len(h.secret) == 0 || subtle.ConstantTimeCompare([]byte(received), h.secret) != 1 {
		h.logger.Warn("rejected report trigger", zap.String("client_ip", c.ClientIP()), zap.Bool("header_present", received != ""))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "received": received})
		return
	}
	c.Next()
}

// Run processes every due schedule and reports the per item outcome.
func (h *TriggerHandler) Run(c *gin.Context) {
	// runs outlive the caller's connection; only the timeout bounds them
	ctx := context.WithoutCancel(c.Request.Context())
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	summary, err := h.runner.Run(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dispatch.ErrRunInProgress) {
			status = http.StatusConflict
		}
		h.logger.Error("report run failed", zap.Error(err))
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"processed": summary.Processed,
		"results":   summary.Results,
	})
}
