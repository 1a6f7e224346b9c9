package models

import "time"

// User はユーザーを表します。
// JSONタグ: クライアントとの通信用
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // JSONに出さない
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser はクライアントに返すユーザー情報です。
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public はパスワードハッシュを含まないユーザー情報を返します。
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

// Identity は認証済みリクエストの主体です。AuthMiddleware がコンテキストに設定します。
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// bindingタグ: Ginでのリクエストバリデーション用
type UserRegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"` // 生パスワード
}

type UserLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"` // 生パスワード
}

// UserUpdateRequest はプロフィール更新リクエストです。Password が nil の場合ハッシュは再計算しません。
type UserUpdateRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password" binding:"omitempty,min=6"`
}
