package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestHashRoundTrip(t *testing.T) {
	hash, err := CreateHash("segredo", fastParams)
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$v=19$m=1024,t=1,p=1$")

	ok, err := VerifyPassword("segredo", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("errado", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	_, err := VerifyPassword("x", "plain-text")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = VerifyPassword("x", "$argon2id$v=1$m=1,t=1,p=1$c2FsdA$a2V5")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestIssuerRoundTrip(t *testing.T) {
	iss, err := NewIssuer(time.Hour)
	require.NoError(t, err)

	token, err := iss.CreateJWT("42")
	require.NoError(t, err)
	sub, err := iss.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "42", sub)

	other, err := NewIssuer(time.Hour)
	require.NoError(t, err)
	_, err = other.Authenticate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuerRejectsExpired(t *testing.T) {
	iss, err := NewIssuer(-time.Minute)
	require.NoError(t, err)

	token, err := iss.CreateJWT("7")
	require.NoError(t, err)
	_, err = iss.Authenticate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
