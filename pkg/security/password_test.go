package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

var fastArgon = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashRoundTrip(t *testing.T) {
	hash, err := security.HashPassword("correct-horse-battery", fastArgon)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$"), hash)

	ok, err := security.VerifyPassword("correct-horse-battery", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("Correct-horse-battery", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	a, err := security.HashPassword("same-password", fastArgon)
	require.NoError(t, err)
	b, err := security.HashPassword("same-password", fastArgon)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	_, err := security.HashPassword("", fastArgon)
	assert.Error(t, err)
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	for _, encoded := range []string{
		"not-a-hash",
		"$bcrypt$v=19$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=16$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=64$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$!!$a2V5",
	} {
		_, err := security.VerifyPassword("anything", encoded)
		assert.ErrorIs(t, err, security.ErrInvalidHash, encoded)
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := security.HashPassword("correct-horse-battery", fastArgon)
	require.NoError(t, err)
	assert.False(t, security.NeedsRehash(hash, fastArgon))

	slower := fastArgon
	slower.ArgonTime = 2
	assert.True(t, security.NeedsRehash(hash, slower))

	otherSalt := fastArgon
	otherSalt.ArgonSaltLen = 32
	assert.False(t, security.NeedsRehash(hash, otherSalt))

	assert.True(t, security.NeedsRehash("garbage", fastArgon))
}
