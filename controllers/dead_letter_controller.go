package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandleDeadLetter accepts undeliverable notifications reported by
// operators or sidecar tooling so they show up in the service logs.
func HandleDeadLetter(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var deadLetter struct {
			OrderID string `json:"order_id"`
			Reason  string `json:"reason"`
		}

		if err := c.ShouldBindJSON(&deadLetter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		logger.Warnw("handling dead letter", "order_id", deadLetter.OrderID, "reason", deadLetter.Reason)

		c.JSON(http.StatusOK, gin.H{"message": "Dead letter processed"})
	}
}
