package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"grow_controller/internal/models"
	"grow_controller/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = time.Hour

// AuthConfig holds the token signing settings.
type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

// Domain errors for auth flows.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidToken    = errors.New("invalid token")
	ErrNoSigningKey    = errors.New("token signing key is not configured")
)

// AuthService manages grow API accounts and tokens.
type AuthService struct {
	authRepo repository.Authorization
	key      []byte
	ttl      time.Duration
}

func NewAuthService(repo repository.Authorization, cfg AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{authRepo: repo, key: []byte(cfg.SigningKey), ttl: ttl}
}

// SignUp hashes password and creates an account. The first account becomes
// the operator, every later one a viewer.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (int, error) {
	if strings.TrimSpace(username) == "" {
		return 0, errors.New("username is empty")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("invalid password: %w", err)
	}
	n, err := s.authRepo.Count(ctx)
	if err != nil {
		return 0, err
	}
	role := models.RoleViewer
	if n == 0 {
		role = models.RoleOperator
	}
	return s.authRepo.Create(ctx, models.User{Username: username, PasswordHash: hash, Role: role})
}

// Claims are the JWT claims issued to grow API accounts.
type Claims struct {
	jwt.RegisteredClaims
	UserID int         `json:"user_id"`
	Role   models.Role `json:"role"`
}

// GenerateToken checks the credentials and returns a signed JWT.
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	u, err := s.authRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}

	if err := verifyPassword(u.PasswordHash, password); err != nil {
		return "", ErrInvalidPassword
	}

	return s.issueToken(models.Identity{UserID: u.ID, Role: u.Role})
}

// ParseToken validates a JWT and returns its bearer. Tokens without a role
// claim are read-only.
func (s *AuthService) ParseToken(accessToken string) (models.Identity, error) {
	if len(s.key) == 0 {
		return models.Identity{}, ErrNoSigningKey
	}
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return models.Identity{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return models.Identity{}, ErrInvalidToken
	}
	role := claims.Role
	if role == "" {
		role = models.RoleViewer
	}
	return models.Identity{UserID: claims.UserID, Role: role}, nil
}

func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) issueToken(id models.Identity) (string, error) {
	if len(s.key) == 0 {
		return "", ErrNoSigningKey
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: id.UserID,
		Role:   id.Role,
	})
	return token.SignedString(s.key)
}
