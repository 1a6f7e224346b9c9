// Package repositories はデータベース操作を行うリポジトリを提供します。
package repositories

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt" // パスワードのハッシュ化用

	"github.com/Vanaiyalini/TaskTrail/internal/models"
)

// BcryptCost はパスワードハッシュのコストです。
const BcryptCost = 12

// HashPassword は与えられたパスワードをbcryptでハッシュ化します。
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPassword), nil
}

// VerifyPassword はハッシュ化されたパスワードと平文のパスワードを比較します。
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

var (
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrUserNotFound   = errors.New("user not found")
	// ErrInvalidID はIDの形式がバックエンドの形式と一致しない場合のエラーです。
	ErrInvalidID = errors.New("invalid id")
)

// UserRepository はユーザーの永続化を扱います。メールアドレスの一意性はストアが保証します。
type UserRepository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) (*models.User, error)
}
