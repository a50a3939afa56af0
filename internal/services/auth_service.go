package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"librarian/internal/models"
	"librarian/internal/repositories"
	"librarian/internal/security"
	"librarian/internal/validation"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = time.Hour

const bearerPrefix = "Bearer "

var loginRules = validation.Rules{
	{Field: "email", Tag: "required,email"},
	{Field: "password", Tag: "required"},
}

// PasswordVerifier compares a plaintext password against a stored hash.
// It returns security.ErrPasswordMismatch when they do not match.
type PasswordVerifier interface {
	Compare(hash, password string) error
}

// Claims is the token payload.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo  repositories.UserRepository
	passwords PasswordVerifier
	validator *validation.Validator
	jwtSecret []byte
	now       func() time.Time
}

// NewAuthService creates a new AuthService. jwtSecret must come from configuration.
func NewAuthService(userRepo repositories.UserRepository, passwords PasswordVerifier, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		passwords: passwords,
		validator: validation.New(),
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

// WithClock replaces the time source used for issuing and verifying tokens.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Authenticate checks the credentials and issues a token valid for TokenTTL.
// Unknown email and wrong password both yield ErrAuthenticationFailed.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (string, models.PublicUser, error) {
	verr := &ValidationError{}
	s.validator.Check(verr, loginRules, map[string]any{"email": email, "password": password})
	if err := verr.Err(); err != nil {
		return "", models.PublicUser{}, err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", models.PublicUser{}, ErrAuthenticationFailed
		}
		return "", models.PublicUser{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.passwords.Compare(user.Password, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return "", models.PublicUser{}, ErrAuthenticationFailed
		}
		return "", models.PublicUser{}, fmt.Errorf("failed to verify password: %w", err)
	}

	token, err := s.IssueToken(models.Identity{Email: user.Email, Name: user.Name, Role: user.Role})
	if err != nil {
		return "", models.PublicUser{}, err
	}
	return token, user.Public(), nil
}

// IssueToken signs an HS256 token carrying identity.
func (s *AuthService) IssueToken(identity models.Identity) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: identity.Email,
		Name:  identity.Name,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMissingCredentials
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", ErrMissingCredentials
	}
	return token, nil
}

// VerifyToken validates signature and expiry and returns the embedded identity.
func (s *AuthService) VerifyToken(tokenString string) (models.Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.Email == "" {
		return models.Identity{}, ErrAuthenticationFailed
	}
	return models.Identity{Email: claims.Email, Name: claims.Name, Role: claims.Role}, nil
}

// RequireRole fails with ErrInsufficientPermission unless identity holds one of roles.
func (s *AuthService) RequireRole(identity models.Identity, roles ...string) error {
	if !identity.HasRole(roles...) {
		return ErrInsufficientPermission
	}
	return nil
}

// CurrentUser re-reads the caller's account so a token cannot outlive it.
func (s *AuthService) CurrentUser(ctx context.Context, identity models.Identity) (models.PublicUser, error) {
	user, err := s.userRepo.GetByEmail(ctx, identity.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.PublicUser{}, ErrUserNoLongerExists
		}
		return models.PublicUser{}, fmt.Errorf("failed to load current user: %w", err)
	}
	return user.Public(), nil
}
