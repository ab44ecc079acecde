package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleCouple  = "COUPLE"
	RoleAdmin   = "ADMIN"
	RoleService = "SERVICE"
)

type CustomClaims struct {
	MemberID int64  `json:"member_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for memberID valid for duration.
func GenerateToken(secret string, duration time.Duration, memberID int64, role string) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		MemberID: memberID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses tokenStr and verifies its HMAC signature and time claims.
func ValidateToken(tokenStr string, secret string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid && claims.MemberID > 0 {
		return claims, nil
	}
	return nil, jwt.ErrTokenMalformed
}
