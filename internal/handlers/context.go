package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Vanaiyalini/TaskTrail/internal/models"
)

type contextKey string

const (
	identityKey  contextKey = "identity"
	requestIDKey contextKey = "request_id"
)

// SetIdentity は認証主体をginコンテキストに設定します。
func SetIdentity(c *gin.Context, identity *models.Identity) {
	c.Set(string(identityKey), identity)
}

// IdentityFrom はAuthMiddlewareが設定した認証主体を返します。
func IdentityFrom(c *gin.Context) (*models.Identity, bool) {
	v, exists := c.Get(string(identityKey))
	if !exists {
		return nil, false
	}
	identity, ok := v.(*models.Identity)
	return identity, ok && identity != nil
}

// SetRequestID はリクエストIDを設定します。
func SetRequestID(c *gin.Context, id string) {
	c.Set(string(requestIDKey), id)
}

// RequestIDFrom はリクエストIDを返します。未設定の場合は空文字です。
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(string(requestIDKey))
}
