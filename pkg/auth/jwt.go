package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the caller identity the gateway turns into a model.Actor.
type Claims struct {
	jwt.RegisteredClaims
	StaffID uuid.UUID  `json:"staff_id"`
	Role    model.Role `json:"role"`
}

type JWTConfig struct {
	Secret []byte
	Issuer string
	Expiry time.Duration
}

// JWTService issues and verifies HS256 bearer tokens.
type JWTService struct {
	cfg JWTConfig
	now func() time.Time
}

func NewJWTService(cfg JWTConfig) *JWTService {
	if cfg.Expiry <= 0 {
		cfg.Expiry = 12 * time.Hour
	}
	return &JWTService{cfg: cfg, now: time.Now}
}

func (s *JWTService) GenerateAccessToken(actor model.Actor) (string, error) {
	if !actor.Role.IsValid() {
		return "", fmt.Errorf("unknown role %q", actor.Role)
	}
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   actor.StaffID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Expiry)),
			ID:        uuid.NewString(),
		},
		StaffID: actor.StaffID,
		Role:    actor.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, issuer and expiry and returns the actor.
func (s *JWTService) ValidateToken(raw string) (model.Actor, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	}, opts...)
	if err != nil {
		return model.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.StaffID == uuid.Nil || !claims.Role.IsValid() {
		return model.Actor{}, fmt.Errorf("%w: missing staff id or role", ErrInvalidToken)
	}

	return model.Actor{StaffID: claims.StaffID, Role: claims.Role}, nil
}
