package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

type Claims struct {
	Type Kind `json:"typ"`
	jwt.RegisteredClaims
}

type Token struct {
	Value     string
	ExpiresAt time.Time
}

type Service struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, used by tests to issue already expired tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(secret []byte, algorithm string, accessTTL, refreshTTL time.Duration, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("tokens: empty signing secret")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("tokens: unsupported algorithm %q", algorithm)
	}
	s := &Service{
		secret:     secret,
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Algorithm() string { return s.method.Alg() }

func (s *Service) IssueAccess(subject string) (Token, error) {
	return s.issue(subject, KindAccess, s.accessTTL)
}

func (s *Service) IssueRefresh(subject string) (Token, error) {
	return s.issue(subject, KindRefresh, s.refreshTTL)
}

func (s *Service) issue(subject string, kind Kind, ttl time.Duration) (Token, error) {
	if subject == "" {
		return Token{}, errors.New("tokens: empty subject")
	}
	now := s.now()
	exp := now.Add(ttl)
	claims := Claims{
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("tokens: sign %s: %w", kind, err)
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// Decode verifies signature, expiry and kind and returns the subject.
func (s *Service) Decode(raw string, expected Kind) (string, error) {
	claims, err := s.Parse(raw)
	if err != nil {
		return "", err
	}
	if claims.Type != expected {
		return "", fmt.Errorf("%w: expected %s token, got %q", ErrTokenInvalid, expected, claims.Type)
	}
	return claims.Subject, nil
}

func (s *Service) Parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != s.method.Alg() {
			return nil, fmt.Errorf("unexpected sign method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return &claims, nil
}
