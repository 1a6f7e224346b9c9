package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation は入力の不足・形式不正です。理由はラップして返します。
	ErrValidation = errors.New("validation failed")

	ErrMissingToken       = errors.New("no token provided")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrStaleIdentity      = errors.New("user no longer exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden は認証済みだが所有者ではない場合のエラーです。
	ErrForbidden = errors.New("not authorized")

	ErrMissingSecret = errors.New("JWT_SECRET environment variable not set")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
