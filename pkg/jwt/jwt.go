// Package jwt issues and validates the HS256 bearer tokens that identify
// users on the billing API. The token subject carries the user id.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingSigningKey = errors.New("jwt: missing signing key")
	ErrInvalidToken      = errors.New("jwt: invalid token")
)

type Config struct {
	SigningKey string        `env:"JWT_SIGNING_KEY,required"`
	Issuer     string        `env:"JWT_ISSUER" envDefault:"billingkit"`
	TTL        time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// Service signs and verifies tokens with a single shared HMAC key.
type Service struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

func NewService(cfg Config) (*Service, error) {
	if cfg.SigningKey == "" {
		return nil, ErrMissingSigningKey
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{key: []byte(cfg.SigningKey), issuer: cfg.Issuer, ttl: ttl}, nil
}

// Issue returns a signed token whose subject is userID.
func (s *Service) Issue(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Verify checks the signature and temporal claims and returns the user id
// from the token subject.
func (s *Service) Verify(token string) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	}
	return userID, nil
}
