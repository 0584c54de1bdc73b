package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	adminSubject = "admin"
	issuer       = "folio"
)

var (
	// ErrNoSecret is returned when tokens are requested without JWT_SECRET.
	ErrNoSecret = errors.New("jwt secret not configured")
	// ErrNotAdmin is returned for valid tokens that lack the admin role.
	ErrNotAdmin = errors.New("token does not carry the admin role")
	// ErrRevoked is returned for tokens invalidated by Revoke.
	ErrRevoked = errors.New("token has been revoked")
)

// Issuer signs and verifies the HS256 admin token handed out after a
// successful password check.
type Issuer struct {
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	revoked Revocations
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithRevocations enables Revoke. Without it Revoke is a no-op and tokens
// stay valid until they expire.
func (i *Issuer) WithRevocations(r Revocations) *Issuer {
	i.revoked = r
	return i
}

// Enabled reports whether a signing secret is configured.
func (i *Issuer) Enabled() bool { return len(i.secret) > 0 }

// GenerateAdminToken creates a signed admin token and returns its expiry.
func (i *Issuer) GenerateAdminToken() (string, time.Time, error) {
	if !i.Enabled() {
		return "", time.Time{}, ErrNoSecret
	}
	now := i.now()
	exp := now.Add(i.ttl)
	claims := jwt.MapClaims{
		"sub":  adminSubject,
		"role": "admin",
		"iss":  issuer,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := jt.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	return s, exp, nil
}

// Verify parses raw and returns its claims. Only HS256 tokens signed with
// the configured secret and carrying the admin role are accepted.
func (i *Issuer) Verify(ctx context.Context, raw string) (map[string]interface{}, error) {
	claims, err := i.parse(raw)
	if err != nil {
		return nil, err
	}
	if i.revoked != nil {
		if id, _ := claims["jti"].(string); id != "" {
			gone, err := i.revoked.Revoked(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("revocation lookup: %w", err)
			}
			if gone {
				return nil, ErrRevoked
			}
		}
	}
	return claims, nil
}

// Revoke invalidates raw for the rest of its lifetime.
func (i *Issuer) Revoke(ctx context.Context, raw string) error {
	claims, err := i.parse(raw)
	if err != nil {
		return err
	}
	if i.revoked == nil {
		return nil
	}
	id, _ := claims["jti"].(string)
	if id == "" {
		return errors.New("token has no id")
	}
	var ttl time.Duration
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ttl = exp.Sub(i.now())
	}
	return i.revoked.Revoke(ctx, id, ttl)
}

func (i *Issuer) parse(raw string) (jwt.MapClaims, error) {
	if !i.Enabled() {
		return nil, ErrNoSecret
	}
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	if role, _ := claims["role"].(string); role != "admin" {
		return nil, ErrNotAdmin
	}
	return claims, nil
}
