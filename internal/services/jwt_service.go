package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenLifetime はJWT_EXPIREが未設定の場合の有効期間です。
const DefaultTokenLifetime = 7 * 24 * time.Hour

// Claims JWTクレームの構造体
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// JWTService はJWTトークンの生成と検証を扱います。
type JWTService struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// JWTOption はJWTServiceの設定を変更します。
type JWTOption func(*JWTService)

// WithClock は発行・検証に使う時刻関数を差し替えます。
func WithClock(now func() time.Time) JWTOption {
	return func(s *JWTService) { s.now = now }
}

// NewJWTService は新しいJWTServiceを作成します。シークレットが空の場合はErrMissingSecretを返します。
func NewJWTService(secret string, lifetime time.Duration, opts ...JWTOption) (*JWTService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	s := &JWTService{secret: []byte(secret), lifetime: lifetime, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GenerateToken はユーザーIDと有効期限を含むJWTトークンを生成します。
func (s *JWTService) GenerateToken(userID string) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken はJWTトークンを検証し、ユーザーIDを返します。
// 期限切れはErrTokenExpired、それ以外の不正はErrInvalidTokenです。
func (s *JWTService) ValidateToken(tokenString string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: missing id claim", ErrInvalidToken)
	}
	return claims.UserID, nil
}

// Lifetime はトークンの有効期間を返します。
func (s *JWTService) Lifetime() time.Duration {
	return s.lifetime
}
