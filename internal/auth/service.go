package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	users       rbac.UserStore
	hasher      BcryptHasher
	tokens      *TokenCodec
	revocations Revocations
	logger      *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewService constructs a new Service. revocations may be nil, in which case
// logout is a no-op and tokens stay valid until they expire.
func NewService(users rbac.UserStore, hasher BcryptHasher, tokens *TokenCodec, revocations Revocations, logger *slog.Logger) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens, revocations: revocations, logger: logger}
}

var _ rbac.Authenticator = (*Service)(nil)

// Registration is the input for self-service sign up.
type Registration struct {
	Name     string
	Email    string
	Password string
}

// Register creates a user without a role or overrides and returns a token.
func (s *Service) Register(ctx context.Context, in Registration) (string, error) {
	email := shared.NormalizeEmail(in.Email)
	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return "", shared.ConflictError("email")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", err
	}
	user, err := s.users.CreateUser(ctx, rbac.User{Name: in.Name, Email: email, PasswordHash: digest})
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(Claims{SubjectID: user.ID, Email: user.Email}, 0)
}

// Login validates email/password credentials and returns a token. Unknown
// emails and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindUserByEmail(ctx, shared.NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return "", err
		}
		_, _ = s.hasher.Verify(password, s.dummy())
		return "", shared.ErrInvalidCredentials
	}
	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil && s.logger != nil {
		s.logger.Warn("unreadable password hash", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	if !ok {
		return "", shared.ErrInvalidCredentials
	}
	return s.tokens.Issue(Claims{SubjectID: user.ID, Email: user.Email}, 0)
}

// Authenticate verifies a bearer token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, raw string) (shared.TokenInfo, error) {
	parsed, err := s.tokens.Parse(raw)
	if err != nil {
		return shared.TokenInfo{}, err
	}
	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, parsed.ID)
		if err != nil {
			return shared.TokenInfo{}, fmt.Errorf("auth: revocation lookup: %w", err)
		}
		if revoked {
			return shared.TokenInfo{}, shared.ErrInvalidToken
		}
	}
	return shared.TokenInfo{
		UserID:    parsed.Claims.SubjectID,
		Email:     parsed.Claims.Email,
		TokenID:   parsed.ID,
		ExpiresAt: parsed.ExpiresAt,
	}, nil
}

// Logout revokes the token until it expires.
func (s *Service) Logout(ctx context.Context, info shared.TokenInfo) error {
	if s.revocations == nil {
		return nil
	}
	return s.revocations.Revoke(ctx, info.TokenID, info.ExpiresAt)
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("odyssey-iam-timing-guard")
	})
	return s.dummyHash
}
