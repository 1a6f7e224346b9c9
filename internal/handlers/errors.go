package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Vanaiyalini/TaskTrail/internal/repositories"
	"github.com/Vanaiyalini/TaskTrail/internal/services"
)

// ErrorWriter はエラーをステータスコードとJSONボディに変換します。
type ErrorWriter struct {
	log           *slog.Logger
	exposeDetails bool
}

// NewErrorWriter は新しいErrorWriterを作成します。exposeDetails が true の場合、内部エラーの詳細を返します。
func NewErrorWriter(log *slog.Logger, exposeDetails bool) *ErrorWriter {
	return &ErrorWriter{log: log, exposeDetails: exposeDetails}
}

type errorResponse struct {
	status  int
	code    string
	message string
}

func classify(err error) errorResponse {
	switch {
	case errors.Is(err, services.ErrValidation):
		return errorResponse{http.StatusBadRequest, "validation_error", validationMessage(err)}
	case errors.Is(err, repositories.ErrInvalidID):
		return errorResponse{http.StatusBadRequest, "invalid_id", "Invalid ID format"}
	case errors.Is(err, services.ErrMissingToken):
		return errorResponse{http.StatusUnauthorized, "unauthenticated", "Not authorized, no token provided"}
	case errors.Is(err, services.ErrTokenExpired):
		return errorResponse{http.StatusUnauthorized, "token_expired", "Token expired. Please login again."}
	case errors.Is(err, services.ErrInvalidToken):
		return errorResponse{http.StatusUnauthorized, "invalid_token", "Not authorized, invalid token"}
	case errors.Is(err, services.ErrStaleIdentity):
		return errorResponse{http.StatusUnauthorized, "stale_identity", "User no longer exists"}
	case errors.Is(err, services.ErrInvalidCredentials):
		return errorResponse{http.StatusUnauthorized, "invalid_credentials", "Invalid credentials"}
	case errors.Is(err, services.ErrForbidden):
		return errorResponse{http.StatusForbidden, "forbidden", "Not authorized"}
	case errors.Is(err, repositories.ErrTaskNotFound):
		return errorResponse{http.StatusNotFound, "not_found", "Task not found"}
	case errors.Is(err, repositories.ErrDuplicateEmail):
		return errorResponse{http.StatusConflict, "conflict", "User already exists"}
	}
	return errorResponse{http.StatusInternalServerError, "internal_error", "Server Error"}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fieldMessage(verrs[0])
	}
	if errors.Is(err, errInvalidPayload) {
		return "Invalid request payload"
	}
	msg := strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": ")
	if msg == "" || msg == err.Error() {
		return "Invalid request payload"
	}
	return msg
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Please provide a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	}
	return "Invalid " + field
}

var errInvalidPayload = errors.New("invalid request payload")

// bindError はginのバインドエラーをErrValidationとしてラップします。
// JSONの構文エラーなどフィールド単位でないエラーは詳細をメッセージに出しません。
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", services.ErrValidation, err)
	}
	return fmt.Errorf("%w: %w: %v", services.ErrValidation, errInvalidPayload, err)
}

// Write はエラーを分類してレスポンスを書き込み、後続のハンドラーを中断します。
func (w *ErrorWriter) Write(c *gin.Context, err error) {
	resp := classify(err)
	if resp.status == http.StatusInternalServerError {
		w.log.Error("unhandled error",
			"error", err,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", RequestIDFrom(c),
		)
	}

	body := gin.H{"success": false, "error": resp.message, "code": resp.code}
	if w.exposeDetails {
		body["details"] = err.Error()
	}
	c.AbortWithStatusJSON(resp.status, body)
}
