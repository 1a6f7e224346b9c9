package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Vanaiyalini/TaskTrail/internal/models"
	"github.com/Vanaiyalini/TaskTrail/internal/repositories"
)

// MinPasswordLength はパスワードの最小長です。
const MinPasswordLength = 6

// UserService はユーザー登録・ログイン・認証主体の解決を扱います。
type UserService struct {
	userRepo   repositories.UserRepository
	jwtService *JWTService
	log        *slog.Logger
}

// NewUserService は新しいUserServiceを作成します。
func NewUserService(userRepo repositories.UserRepository, jwtService *JWTService, log *slog.Logger) *UserService {
	return &UserService{userRepo: userRepo, jwtService: jwtService, log: log}
}

// AuthResult は登録・ログインの結果です。
type AuthResult struct {
	User  models.PublicUser
	Token string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterUser はユーザーを登録し、トークンを発行します。
func (s *UserService) RegisterUser(ctx context.Context, req models.UserRegisterRequest) (*AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" {
		return nil, validationError("name is required")
	}
	if email == "" {
		return nil, validationError("email is required")
	}
	if len(req.Password) < MinPasswordLength {
		return nil, validationError("password must be at least %d characters", MinPasswordLength)
	}

	hashedPassword, err := repositories.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	createdUser, err := s.userRepo.Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", createdUser.ID)

	return s.issue(createdUser)
}

// AuthenticateUser はメールアドレスとパスワードを検証し、トークンを発行します。
// ユーザーが存在しない場合もパスワード不一致の場合も同じErrInvalidCredentialsを返します。
func (s *UserService) AuthenticateUser(ctx context.Context, req models.UserLoginRequest) (*AuthResult, error) {
	foundUser, err := s.userRepo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := repositories.VerifyPassword(foundUser.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(foundUser)
}

func (s *UserService) issue(u *models.User) (*AuthResult, error) {
	token, err := s.jwtService.GenerateToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u.Public(), Token: token}, nil
}

// ResolveToken はベアラートークンを検証し、対応するユーザーを認証主体として返します。
// ストレージは変更しません。
func (s *UserService) ResolveToken(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	userID, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrStaleIdentity
		}
		if errors.Is(err, repositories.ErrInvalidID) {
			return nil, fmt.Errorf("%w: id claim %q", ErrInvalidToken, userID)
		}
		return nil, err
	}
	return &models.Identity{UserID: u.ID, Name: u.Name, Email: u.Email}, nil
}

// GetProfile は認証主体のユーザー情報を返します。
func (s *UserService) GetProfile(ctx context.Context, identity *models.Identity) (*models.PublicUser, error) {
	u, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrStaleIdentity
		}
		return nil, err
	}
	public := u.Public()
	return &public, nil
}

// UpdateProfile は名前とパスワードを更新します。パスワードが指定された場合のみハッシュを再計算します。
func (s *UserService) UpdateProfile(ctx context.Context, identity *models.Identity, req models.UserUpdateRequest) (*models.PublicUser, error) {
	u, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrStaleIdentity
		}
		return nil, err
	}

	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			u.Name = name
		}
	}
	if req.Password != nil {
		if len(*req.Password) < MinPasswordLength {
			return nil, validationError("password must be at least %d characters", MinPasswordLength)
		}
		hashedPassword, err := repositories.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hashedPassword
	}

	updated, err := s.userRepo.Update(ctx, u)
	if err != nil {
		return nil, err
	}
	public := updated.Public()
	return &public, nil
}
