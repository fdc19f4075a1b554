package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/school-system/results/internal/config"
	"github.com/school-system/results/internal/models"
	"gorm.io/gorm"
)

const (
	RoleAdmin     = "admin"
	RoleRegistrar = "registrar"
	RoleLecturer  = "lecturer"
)

// Token uses, carried in the claims so one kind cannot stand in for the other.
const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotActive      = errors.New("user not active")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrUserExists         = errors.New("user already exists")
)

type AuthService struct {
	db     *gorm.DB
	cfg    *config.Config
	params *argon2id.Params
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type Claims struct {
	UserID        uuid.UUID  `json:"user_id"`
	InstitutionID *uuid.UUID `json:"institution_id,omitempty"`
	Role          string     `json:"role,omitempty"`
	Email         string     `json:"email,omitempty"`
	Use           string     `json:"use"`
	jwt.RegisteredClaims
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		db:  db,
		cfg: cfg,
		params: &argon2id.Params{
			Memory:      cfg.Argon2.Memory,
			Iterations:  cfg.Argon2.Iterations,
			Parallelism: cfg.Argon2.Parallelism,
			SaltLength:  cfg.Argon2.SaltLength,
			KeyLength:   cfg.Argon2.KeyLength,
		},
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, s.params)
}

func (s *AuthService) VerifyPassword(hash, password string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, hash)
}

// Login checks the credentials of an active account and issues a token pair.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, *models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Institution").
		Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	match, err := s.VerifyPassword(user.PasswordHash, password)
	if err != nil || !match {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrUserNotActive
	}

	tokens, err := s.GenerateTokenPair(ctx, &user)
	if err != nil {
		return nil, nil, err
	}
	return tokens, &user, nil
}

func (s *AuthService) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.Secret))
}

// GenerateTokenPair issues an access token carrying the user's role and
// institution, and a refresh token that is stored so it can be revoked.
func (s *AuthService) GenerateTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	now := time.Now()

	access, err := s.sign(&Claims{
		UserID:        user.ID,
		InstitutionID: user.InstitutionID,
		Role:          user.Role,
		Email:         user.Email,
		Use:           tokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	// The ID keeps refresh tokens unique when two are issued within a second.
	refresh, err := s.sign(&Claims{
		UserID: user.ID,
		Use:    tokenRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.RefreshExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	stored := &models.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: now.Add(s.cfg.JWT.RefreshExpiry),
	}
	if err := s.db.WithContext(ctx).Create(stored).Error; err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.JWT.AccessExpiry.Seconds()),
	}, nil
}

// RefreshTokens rotates a refresh token: the presented one is revoked and a
// new pair is issued from the user's current role and institution.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.verify(refreshToken, tokenRefresh)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var stored models.RefreshToken
	if err := db.Where("token = ?", refreshToken).First(&stored).Error; err != nil {
		return nil, ErrInvalidToken
	}
	if stored.Revoked || time.Now().After(stored.ExpiresAt) {
		return nil, ErrTokenRevoked
	}

	var user models.User
	if err := db.First(&user, "id = ?", claims.UserID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserNotActive
	}

	if err := db.Model(&stored).Update("revoked", true).Error; err != nil {
		return nil, err
	}
	return s.GenerateTokenPair(ctx, &user)
}

// VerifyToken validates an access token.
func (s *AuthService) VerifyToken(tokenString string) (*Claims, error) {
	return s.verify(tokenString, tokenAccess)
}

func (s *AuthService) verify(tokenString, use string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Use != use {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) RevokeToken(ctx context.Context, refreshToken string) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", refreshToken).
		Update("revoked", true).Error
}

// CurrentUser loads the account behind a verified token.
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Institution").First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetActive enables or disables an account and reports the previous state.
// Disabling also revokes every outstanding refresh token of the user.
func (s *AuthService) SetActive(ctx context.Context, userID uuid.UUID, active bool) (*models.User, bool, error) {
	var user models.User
	var previous bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		previous = user.IsActive
		if err := tx.Model(&user).Update("is_active", active).Error; err != nil {
			return err
		}
		if active {
			return nil
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked = ?", userID, false).
			Update("revoked", true).Error
	})
	if err != nil {
		return nil, false, err
	}
	user.IsActive = active
	return &user, previous, nil
}

func (s *AuthService) CreateUser(ctx context.Context, user *models.User, password string) error {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("LOWER(email) = LOWER(?)", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUserExists
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.Email = strings.ToLower(user.Email)
	user.PasswordHash = hash
	return db.Create(user).Error
}
