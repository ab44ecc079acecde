package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "secret"
	tok, err := GenerateToken(secret, time.Hour, 7, RoleCouple)
	require.NoError(t, err)

	claims, err := ValidateToken(tok, secret)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.MemberID)
	require.Equal(t, RoleCouple, claims.Role)

	_, err = ValidateToken(tok, "wrong")
	require.Error(t, err)

	_, err = ValidateToken("not-a-token", secret)
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	tok, err := GenerateToken("secret", -time.Minute, 7, RoleCouple)
	require.NoError(t, err)

	_, err = ValidateToken(tok, "secret")
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateToken_RequiresMember(t *testing.T) {
	tok, err := GenerateToken("secret", time.Hour, 0, RoleService)
	require.NoError(t, err)

	_, err = ValidateToken(tok, "secret")
	require.ErrorIs(t, err, jwt.ErrTokenMalformed)
}

func TestValidateToken_RejectsNonHMAC(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, CustomClaims{MemberID: 7})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(tok, "secret")
	require.Error(t, err)
}
