package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"loyalty/internal/server/repository"
	sm "loyalty/internal/shared/models"
	"loyalty/internal/shared/passhash"
)

// AuthService implements registration, password verification, JWT access
// token issuance and revocation on logout.
type AuthService struct {
	repo      Repository
	hasher    *passhash.Hasher
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
	log       *logrus.Entry
}

type accessClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

func (a *AuthService) Register(ctx context.Context, req sm.RegisterRequest) (sm.TokenResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return sm.TokenResponse{}, newError(ErrInvalidInput, "username and password required")
	}
	phc, err := a.hasher.Hash(req.Password)
	if err != nil {
		return sm.TokenResponse{}, err
	}
	u, err := a.repo.CreateUser(ctx, sm.User{
		Username:        req.Username,
		EmailAddress:    strings.TrimSpace(req.EmailAddress),
		IsBusinessOwner: req.IsBusinessOwner,
	}, phc)
	if errors.Is(err, repository.ErrConflict) {
		return sm.TokenResponse{}, newError(ErrConflict, "Username already exists")
	}
	if err != nil {
		return sm.TokenResponse{}, err
	}
	return a.issue(u.ID)
}

func (a *AuthService) Login(ctx context.Context, username, password string) (sm.TokenResponse, error) {
	invalid := newError(ErrUnauthenticated, "Invalid credentials")
	rec, err := a.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return sm.TokenResponse{}, invalid
	}
	if err != nil {
		return sm.TokenResponse{}, err
	}
	ok, err := a.hasher.Verify(rec.PasswordHash, password)
	if err != nil || !ok {
		return sm.TokenResponse{}, invalid
	}
	if a.hasher.NeedsRehash(rec.PasswordHash) {
		if phc, err := a.hasher.Hash(password); err == nil {
			if err := a.repo.UpdatePasswordHash(ctx, rec.ID, phc); err != nil {
				a.log.WithError(err).WithField("user_id", rec.ID).Warn("password rehash failed")
			}
		}
	}
	return a.issue(rec.ID)
}

// Logout revokes token until it would have expired.
func (a *AuthService) Logout(ctx context.Context, token string) error {
	c, err := a.parse(token)
	if err != nil {
		return err
	}
	return a.repo.RevokeToken(ctx, token, c.ExpiresAt.Time)
}

// Authenticate resolves a bearer token to its user.
func (a *AuthService) Authenticate(ctx context.Context, token string) (sm.User, error) {
	c, err := a.parse(token)
	if err != nil {
		return sm.User{}, err
	}
	revoked, err := a.repo.IsTokenRevoked(ctx, token)
	if err != nil {
		return sm.User{}, err
	}
	if revoked {
		return sm.User{}, newError(ErrUnauthenticated, "Token has been invalidated")
	}
	u, err := a.repo.GetUser(ctx, c.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return sm.User{}, newError(ErrUnauthenticated, "Authentication required")
	}
	return u, err
}

// PurgeRevoked forgets revocations of tokens that have expired by now.
func (a *AuthService) PurgeRevoked(ctx context.Context) (int64, error) {
	return a.repo.PurgeRevokedTokens(ctx, a.now())
}

func (a *AuthService) issue(userID string) (sm.TokenResponse, error) {
	now := a.now()
	claims := accessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
	if err != nil {
		return sm.TokenResponse{}, err
	}
	return sm.TokenResponse{AccessToken: signed, TokenType: "bearer"}, nil
}

func (a *AuthService) parse(token string) (*accessClaims, error) {
	var c accessClaims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid || c.UserID == "" {
		return nil, newError(ErrUnauthenticated, "Invalid token")
	}
	return &c, nil
}
