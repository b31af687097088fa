package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fankick/storefront/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "FanKick"},
		JWT:      config.JWTConfig{Secret: "test-secret-that-is-at-least-32-characters", AccessTokenExpiry: 15 * time.Minute},
		Security: config.SecurityConfig{BcryptCost: 4},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager(testConfig(), nil)

	token, err := manager.GenerateAccessToken("u-1", "fan@example.com", true)
	require.NoError(t, err)

	claims, err := manager.ValidateAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.True(t, claims.IsAdmin)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	cfg := testConfig()
	token, err := NewJWTManager(cfg, nil).GenerateAccessToken("u-1", "fan@example.com", false)
	require.NoError(t, err)

	other := testConfig()
	other.JWT.Secret = "a-completely-different-secret-of-32-chars"
	_, err = NewJWTManager(other, nil).ValidateToken(token)
	assert.Error(t, err)

	expired := testConfig()
	expired.JWT.AccessTokenExpiry = -time.Minute
	stale, err := NewJWTManager(expired, nil).GenerateAccessToken("u-1", "fan@example.com", false)
	require.NoError(t, err)
	_, err = NewJWTManager(cfg, nil).ValidateToken(stale)
	assert.Error(t, err)
}

func TestRevoke(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	manager := NewJWTManager(testConfig(), client)
	token, err := manager.GenerateAccessToken("u-1", "fan@example.com", false)
	require.NoError(t, err)
	claims, err := manager.ValidateAccessToken(context.Background(), token)
	require.NoError(t, err)

	require.NoError(t, manager.Revoke(context.Background(), claims))
	_, err = manager.ValidateAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	ttl := mr.TTL(revokedKeyPrefix + claims.ID)
	assert.True(t, ttl > 0 && ttl <= 15*time.Minute)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc"))
	assert.Empty(t, ExtractTokenFromHeader(""))
}

func TestPasswordPolicy(t *testing.T) {
	pm := NewPasswordManager(testConfig())

	assert.Error(t, pm.ValidatePassword("short1"))
	assert.Error(t, pm.ValidatePassword("onlyletters"))
	assert.Error(t, pm.ValidatePassword("4815162342"))
	assert.Error(t, pm.ValidatePassword("MyPassword9"))
	assert.NoError(t, pm.ValidatePassword("goal4kick"))

	hash, err := pm.HashPassword("goal4kick")
	require.NoError(t, err)
	assert.NoError(t, pm.VerifyPassword("goal4kick", hash))
	assert.Error(t, pm.VerifyPassword("goal4kicks", hash))
}
