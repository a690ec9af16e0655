package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// DefaultTokenTTL is the validity of issued tokens unless configured otherwise.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenConfig is the immutable signing configuration loaded at startup.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// Claims is the identity carried by a token.
type Claims struct {
	SubjectID int64
	Email     string
}

// ParsedToken is a verified token.
type ParsedToken struct {
	Claims    Claims
	ID        string
	ExpiresAt time.Time
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenCodec validates cfg and builds a codec. An empty secret is an error
// so a misconfigured process refuses to start.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: token secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	return &TokenCodec{secret: secret, ttl: ttl, issuer: cfg.Issuer, now: time.Now}, nil
}

// TTL reports the default validity of issued tokens.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs claims valid for ttl, or for the configured TTL when ttl <= 0.
func (c *TokenCodec) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email: claims.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(claims.SubjectID, 10),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns its claims. Any failure, including expiry,
// is reported as shared.ErrInvalidToken.
func (c *TokenCodec) Parse(raw string) (ParsedToken, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return ParsedToken{}, shared.ErrInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return ParsedToken{}, shared.ErrInvalidToken
	}
	return ParsedToken{
		Claims:    Claims{SubjectID: id, Email: claims.Email},
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
