package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
	"github.com/teahaven/teahaven-backend/pkg/config"
	"github.com/teahaven/teahaven-backend/pkg/enums"
)

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "tea-haven-test-secret",
		Issuer:            "teahaven",
		ExpirationMinutes: 15,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	t.Parallel()

	cfg := jwtTestConfig()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: userID,
		Role:   enums.UserRoleSeller,
		JTI:    "jti-123",
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, enums.UserRoleSeller, claims.Role)
	assert.Equal(t, "jti-123", claims.ID)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	t.Parallel()

	token, err := MintAccessToken(jwtTestConfig(), time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(jwtTestConfig(), token)
	require.NoError(t, err)
	_, parseErr := uuid.Parse(claims.ID)
	assert.NoError(t, parseErr)
}

func TestMintAccessTokenRejectsInvalidRole(t *testing.T) {
	t.Parallel()

	_, err := MintAccessToken(jwtTestConfig(), time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRole("admin"),
	})
	assert.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	cfg := jwtTestConfig()
	issuedAt := time.Now().Add(-2 * time.Hour)

	token, err := MintAccessToken(cfg, issuedAt, AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.Error(t, err)

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := MintAccessToken(jwtTestConfig(), time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
	})
	require.NoError(t, err)

	other := jwtTestConfig()
	other.Secret = "another-secret"
	_, err = ParseAccessToken(other, token)
	assert.Error(t, err)
}
