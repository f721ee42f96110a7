package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("P@ssw0rd")
	require.NoError(t, err)

	ok, err := h.Verify(hash, "P@ssw0rd")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2idHasherRoundTrip(t *testing.T) {
	h := Argon2idHasher{}
	hash, err := h.Hash("P@ssw0rd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	ok, err := h.Verify(hash, "P@ssw0rd")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	_, err := BcryptHasher{}.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
	_, err = Argon2idHasher{}.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestVerifyPasswordDispatchesOnPrefix(t *testing.T) {
	bcryptHash, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash("secret")
	require.NoError(t, err)
	argonHash, err := Argon2idHasher{}.Hash("secret")
	require.NoError(t, err)

	for _, hash := range []string{bcryptHash, argonHash} {
		ok, err := VerifyPassword(hash, "secret")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	_, err = VerifyPassword("plaintext", "secret")
	assert.ErrorIs(t, err, ErrUnsupportedHash)
	_, err = VerifyPassword("$argon2id$v=19$broken", "secret")
	assert.ErrorIs(t, err, ErrUnsupportedHash)
}

func TestArgon2idRejectsZeroParameters(t *testing.T) {
	good, err := Argon2idHasher{}.Hash("secret")
	require.NoError(t, err)
	parts := strings.Split(good, "$")
	require.Len(t, parts, 6)

	for _, params := range []string{"m=65536,t=2,p=0", "m=65536,t=0,p=1", "m=0,t=2,p=1"} {
		parts[3] = params
		tampered := strings.Join(parts, "$")
		assert.NotPanics(t, func() {
			ok, err := VerifyPassword(tampered, "secret")
			assert.False(t, ok, params)
			assert.ErrorIs(t, err, ErrUnsupportedHash, params)
		})
	}
}

func TestHasherFor(t *testing.T) {
	h, err := HasherFor("argon2id")
	require.NoError(t, err)
	assert.IsType(t, Argon2idHasher{}, h)

	h, err = HasherFor("")
	require.NoError(t, err)
	assert.IsType(t, BcryptHasher{}, h)

	_, err = HasherFor("md5")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
