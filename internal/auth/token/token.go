// Package token issues and verifies the HS256 bearer tokens handed to
// admins at login.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/internal/config"
	"go.uber.org/zap"
)

var ErrInvalidToken = errors.New("invalid_token")

// Claims binds a token to one admin of one tenant partition.
type Claims struct {
	jwt.RegisteredClaims
	Tenant string `json:"tenant"`
}

// AdminID returns the subject as an admin id.
func (c *Claims) AdminID() (snowflake.ID, error) {
	return snowflake.ParseString(c.Subject)
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	clock  clock.Clock
}

func NewIssuer(secret []byte, ttl time.Duration, issuer string, c clock.Clock) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, issuer: issuer, clock: c}
}

// NewFromConfig builds the issuer from AUTH_JWT_SECRET. Without a secret a
// random one is generated, so tokens do not survive a restart.
func NewFromConfig(cfg config.Config, c clock.Clock, log *zap.Logger) (*Issuer, error) {
	secret := []byte(cfg.AuthJWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		log.Warn("AUTH_JWT_SECRET is not set, using an ephemeral signing key")
	}
	return NewIssuer(secret, cfg.AuthTokenTTL, cfg.AppName, c), nil
}

// Issue signs a token for adminID in partition.
func (i *Issuer) Issue(adminID snowflake.ID, partition string) (string, time.Time, error) {
	now := i.clock.Now()
	expires := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   adminID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Tenant: partition,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies the signature and expiry of raw.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Hash is the stored fingerprint of a raw token.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
