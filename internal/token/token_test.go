package token

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeToken(t *testing.T, payload map[string]any) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".signature"
}

func TestDecode_MalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":              "",
		"no dots":            "not-a-token",
		"two segments":       "a.b",
		"four segments":      "a.b.c.d",
		"payload not base64": "eyJhbGciOiJIUzI1NiJ9.!!!.sig",
		"payload not json":   "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString([]byte("plain text")) + ".sig",
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, Decode(raw))
		})
	}
}

func TestDecode_ValidPayload(t *testing.T) {
	raw := makeToken(t, map[string]any{
		"userId": "123",
		"email":  "user@test.com",
		"role":   "admin",
		"iat":    1700000000,
		"exp":    1700086400,
	})

	claims := Decode(raw)
	require.NotNil(t, claims)
	assert.Equal(t, UserID("123"), claims.UserID)
	assert.Equal(t, "user@test.com", claims.Email)
	assert.Equal(t, RoleAdmin, claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, int64(1700086400), claims.ExpiresAt.Unix())
	require.NotNil(t, claims.IssuedAt)
	assert.Equal(t, int64(1700000000), claims.IssuedAt.Unix())
}

func TestDecode_NumericUserID(t *testing.T) {
	raw := makeToken(t, map[string]any{
		"userId": 2,
		"email":  "user@test.com",
		"role":   "user",
	})

	claims := Decode(raw)
	require.NotNil(t, claims)
	assert.Equal(t, UserID("2"), claims.UserID)
}

func TestDecode_IgnoresSignature(t *testing.T) {
	// The client trusts the payload; verification is the server's job.
	raw := makeToken(t, map[string]any{"userId": "1", "role": "user"})
	assert.NotNil(t, Decode(raw))
}

func TestIsExpired(t *testing.T) {
	now := time.Unix(1700000000, 0)

	t.Run("nil claims", func(t *testing.T) {
		assert.True(t, IsExpired(nil, now))
	})

	t.Run("missing exp", func(t *testing.T) {
		claims := Decode(makeToken(t, map[string]any{"userId": "1"}))
		require.NotNil(t, claims)
		assert.True(t, IsExpired(claims, now))
	})

	t.Run("past exp", func(t *testing.T) {
		claims := Decode(makeToken(t, map[string]any{"exp": now.Unix() - 1}))
		require.NotNil(t, claims)
		assert.True(t, IsExpired(claims, now))
	})

	t.Run("future exp", func(t *testing.T) {
		claims := Decode(makeToken(t, map[string]any{"exp": now.Unix() + 3600}))
		require.NotNil(t, claims)
		assert.False(t, IsExpired(claims, now))
	})
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, role)

	_, ok = ParseRole("superuser")
	assert.False(t, ok)
	assert.False(t, Role("superuser").Valid())
}
