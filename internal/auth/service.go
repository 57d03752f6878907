// Package auth issues and validates the bearer tokens that carry caller
// identity. A token binds user, tenant, and role together; the middleware
// derives the request's tenancy scope from it and nothing downstream trusts
// a tenant id coming from a request body or URL.
package auth

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

// ErrInvalidCredentials is returned for a bad email/password pair or a
// deactivated account. One error for all cases, so login does not reveal
// which field was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned for expired, malformed, or badly signed
// tokens.
var ErrInvalidToken = errors.New("invalid token")

// Identity is what a validated token resolves to.
type Identity struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     models.Role
}

// Scope derives the tenancy scope this identity is entitled to. Platform
// operators get bypass; everyone else is bound to their own tenant.
func (id Identity) Scope() tenancy.Scope {
	if id.Role.CanOperatePlatform() {
		return tenancy.Bypass()
	}
	return tenancy.ForTenant(id.TenantID)
}

// UserLookup resolves users for login. Login runs before any tenant is
// known, so the service passes a bypass scope.
type UserLookup interface {
	GetByEmail(ctx context.Context, scope tenancy.Scope, email string) (*models.User, error)
}

type Service interface {
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (*Identity, error)
}

type service struct {
	users  UserLookup
	secret []byte
}

func NewService(users UserLookup) *service {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "devsecret"
	}
	return &service{users: users, secret: []byte(secret)}
}

var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tid"`
	Role     string `json:"role"`
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, tenancy.Bypass(), email)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(user)
}

func (s *service) issueToken(user *models.User) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		TenantID: user.TenantID.String(),
		Role:     user.Role.String(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(_ context.Context, token string) (*Identity, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	tenantID, err := uuid.Parse(c.TenantID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	role, err := models.ParseRole(c.Role)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: userID, TenantID: tenantID, Role: role}, nil
}
