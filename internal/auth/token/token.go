// Package token issues and verifies the signed bearer credentials used by
// both registered accounts and anonymous guests.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/veritext/veritext/internal/clock"
	"github.com/veritext/veritext/internal/config"
	"go.uber.org/fx"
)

const (
	SubjectTypeUser  = "user"
	SubjectTypeGuest = "guest"

	issuer = "veritext"
)

var (
	ErrMalformedCredential = errors.New("malformed credential")
	ErrExpiredCredential   = errors.New("expired credential")
)

// Claims is the payload carried by every issued credential. SubjectType
// discriminates accounts from guests and is mandatory: tokens without it
// are rejected outright instead of being guessed at.
type Claims struct {
	SubjectType string `json:"sub_type"`
	GuestID     string `json:"guest_id,omitempty"`
	jwt.RegisteredClaims
}

type Codec struct {
	secret   []byte
	userTTL  time.Duration
	guestTTL time.Duration
	clk      clock.Clock
}

type Params struct {
	fx.In

	Config config.Config
	Clock  clock.Clock
}

func New(p Params) *Codec {
	return &Codec{
		secret:   []byte(p.Config.AuthJWTSecret),
		userTTL:  p.Config.AccessTokenTTL,
		guestTTL: p.Config.GuestTokenTTL,
		clk:      p.Clock,
	}
}

// IssueUser signs a credential for a registered account.
func (c *Codec) IssueUser(userID string) (string, time.Duration, error) {
	return c.issue(userID, SubjectTypeUser, "", c.userTTL)
}

// IssueGuest signs a credential for an anonymous guest.
func (c *Codec) IssueGuest(guestID string) (string, time.Duration, error) {
	return c.issue(guestID, SubjectTypeGuest, guestID, c.guestTTL)
}

func (c *Codec) issue(subject, subjectType, guestID string, ttl time.Duration) (string, time.Duration, error) {
	now := c.clk.Now().UTC()
	claims := Claims{
		SubjectType: subjectType,
		GuestID:     guestID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, ttl, nil
}

// Verify parses and validates a raw credential. Expired credentials map
// to ErrExpiredCredential; every other defect maps to
// ErrMalformedCredential.
func (c *Codec) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMalformedCredential
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.clk.Now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredential
		}
		return nil, ErrMalformedCredential
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedCredential
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMalformedCredential
	}

	switch claims.SubjectType {
	case SubjectTypeUser:
	case SubjectTypeGuest:
		if strings.TrimSpace(claims.GuestID) == "" {
			return nil, ErrMalformedCredential
		}
	default:
		return nil, ErrMalformedCredential
	}

	return claims, nil
}
