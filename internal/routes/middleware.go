package routes

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Vanaiyalini/TaskTrail/internal/handlers"
	"github.com/Vanaiyalini/TaskTrail/internal/services"
)

const requestIDHeader = "X-Request-ID"

// AuthMiddleware はBearerトークンを検証し、認証主体をコンテキストに設定するミドルウェアです。
// ストレージは変更しません。
func AuthMiddleware(userService *services.UserService, errs *handlers.ErrorWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			errs.Write(c, services.ErrMissingToken)
			return
		}

		identity, err := userService.ResolveToken(c.Request.Context(), tokenString)
		if err != nil {
			errs.Write(c, err)
			return
		}

		handlers.SetIdentity(c, identity)
		c.Next()
	}
}

// bearerToken は "Bearer " プレフィックスを削除したトークンを返します。
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// RequestID はリクエストごとのIDを設定します。クライアントが送ったIDがあればそれを使います。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		handlers.SetRequestID(c, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger はginのデフォルトロガーの代わりにslogでアクセスログを出力します。
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		log.LogAttrs(c.Request.Context(), level, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
			slog.String("request_id", handlers.RequestIDFrom(c)),
		)
	}
}
