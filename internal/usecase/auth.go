package usecase

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"CreditGate/internal/domain/models"
	domrepo "CreditGate/internal/domain/repository"
)

// ErrInvalidCredentials is returned on a failed login attempt; the caller
// must not learn whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// CredentialStore is the session-store surface the auth service needs.
// Identity provisioning itself is owned by an external system.
type CredentialStore interface {
	GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
	CreateSession(ctx context.Context, identityID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// AuthService handles session lifecycle at login and logout.
type AuthService struct {
	store   CredentialStore
	metrics domrepo.Metrics
}

func NewAuthService(store CredentialStore, metrics domrepo.Metrics) *AuthService {
	return &AuthService{store: store, metrics: metrics}
}

// Login verifies credentials against the stored identity and mints a
// session bound to it.
func (a *AuthService) Login(ctx context.Context, email, password string) (*models.Session, *models.Identity, error) {
	identity, err := a.store.GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domrepo.ErrIdentityNotFound) {
			a.metrics.RecordError("auth_unknown_email")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("identity lookup: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(HashPassword(password)), []byte(identity.PasswordHash)) != 1 {
		a.metrics.RecordError("auth_bad_password")
		return nil, nil, ErrInvalidCredentials
	}

	sess, err := a.store.CreateSession(ctx, identity.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	identity.PasswordHash = ""
	return sess, identity, nil
}

// Logout destroys the session referenced by the token.
func (a *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return a.store.DeleteSession(ctx, token)
}

// HashPassword derives the stored credential digest.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
