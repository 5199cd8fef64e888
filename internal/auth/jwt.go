package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims identifies an API caller. Admin callers may use force flags and
// administrative endpoints; the ledger itself never checks permissions.
type Claims struct {
	CallerID uuid.UUID
	Admin    bool
}

type tokenClaims struct {
	jwt.RegisteredClaims
	CallerID string `json:"caller_id"`
	Admin    bool   `json:"admin"`
}

func GenerateToken(callerID uuid.UUID, admin bool, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		CallerID: callerID.String(),
		Admin:    admin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("GenerateToken: %w", err)
	}
	return signed, nil
}

func ValidateToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: %w", err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("ValidateToken: invalid token claims")
	}

	callerID, err := uuid.Parse(tc.CallerID)
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: invalid caller_id in token: %w", err)
	}

	return &Claims{
		CallerID: callerID,
		Admin:    tc.Admin,
	}, nil
}
