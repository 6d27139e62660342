package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
	TypeReset   = "reset"

	resetAudience = "password-reset"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
)

type Claims struct {
	UserID    string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// CreateToken signs claims with HS256. IssuedAt, ExpiresAt and the token id are always set here.
func CreateToken(claims Claims, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}

	now := time.Now().UTC()

	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyToken checks signature and expiry. Errors are one of ErrInvalidSignature,
// ErrExpired or ErrInvalidToken.
func VerifyToken(tokenStr string, secret []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	resetSecret   []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	resetTTL      time.Duration
}

type Secrets struct {
	Access  string
	Refresh string
	Reset   string
}

type TTLs struct {
	Access  time.Duration
	Refresh time.Duration
	Reset   time.Duration
}

func NewManager(secrets Secrets, ttls TTLs) *Manager {
	return &Manager{
		accessSecret:  []byte(secrets.Access),
		refreshSecret: []byte(secrets.Refresh),
		resetSecret:   []byte(secrets.Reset),
		accessTTL:     ttls.Access,
		refreshTTL:    ttls.Refresh,
		resetTTL:      ttls.Reset,
	}
}

func (m *Manager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

func (m *Manager) GenerateAccessToken(userID, email, role string) (string, error) {
	return CreateToken(Claims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID,
		},
	}, m.accessSecret, m.accessTTL)
}

// GenerateRefreshToken carries only email and role; the user is re-read on refresh.
func (m *Manager) GenerateRefreshToken(email, role string) (string, error) {
	return CreateToken(Claims{
		Email:     email,
		Role:      role,
		TokenType: TypeRefresh,
	}, m.refreshSecret, m.refreshTTL)
}

func (m *Manager) GeneratePasswordResetToken(userID, email, role string) (string, error) {
	return CreateToken(Claims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: TypeReset,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			Audience: jwt.ClaimStrings{resetAudience},
		},
	}, m.resetSecret, m.resetTTL)
}

func (m *Manager) VerifyAccessToken(tokenStr string) (*Claims, error) {
	return verifyTyped(tokenStr, m.accessSecret, TypeAccess)
}

func (m *Manager) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	claims, err := verifyTyped(tokenStr, m.refreshSecret, TypeRefresh)
	if err != nil {
		return nil, err
	}

	if claims.Email == "" {
		return nil, fmt.Errorf("%w: missing email", ErrInvalidToken)
	}

	return claims, nil
}

func (m *Manager) VerifyPasswordResetToken(tokenStr string) (*Claims, error) {
	claims, err := verifyTyped(tokenStr, m.resetSecret, TypeReset)
	if err != nil {
		return nil, err
	}

	aud, _ := claims.GetAudience()
	for _, a := range aud {
		if a == resetAudience {
			return claims, nil
		}
	}

	return nil, fmt.Errorf("%w: wrong audience", ErrInvalidToken)
}

func verifyTyped(tokenStr string, secret []byte, typ string) (*Claims, error) {
	claims, err := VerifyToken(tokenStr, secret)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != typ {
		return nil, fmt.Errorf("%w: invalid token type", ErrInvalidToken)
	}

	return claims, nil
}
