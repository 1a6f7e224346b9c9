package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger はストアの疎通確認を行います。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler はヘルスチェックを扱います。
type HealthHandler struct {
	db   Pinger
	errs *ErrorWriter
}

// NewHealthHandler は新しいHealthHandlerを作成します。
func NewHealthHandler(db Pinger, errs *ErrorWriter) *HealthHandler {
	return &HealthHandler{db: db, errs: errs}
}

// StatusHandler はサーバーの稼働状況を返します。
func (h *HealthHandler) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// DBCheckHandler はデータベース接続を確認します。
func (h *HealthHandler) DBCheckHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.errs.log.Warn("database ping failed", "error", err)
		body := gin.H{"status": "error", "message": "Database connection failed"}
		if h.errs.exposeDetails {
			body["details"] = err.Error()
		}
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "Database connection is healthy"})
}
