package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	assert.NoError(t, VerifyPassword("correct horse battery staple", hash))
	assert.Error(t, VerifyPassword("wrong password", hash))
}

func TestPasswordHashIsSalted(t *testing.T) {
	a, err := HashPassword("same password")
	require.NoError(t, err)
	b, err := HashPassword("same password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	assert.NoError(t, VerifyPassword("same password", a))
	assert.NoError(t, VerifyPassword("same password", b))
}

func TestVerifyPassword_BadFormat(t *testing.T) {
	assert.Error(t, VerifyPassword("anything", ""))
	assert.Error(t, VerifyPassword("anything", "$bcrypt$whatever"))
	assert.Error(t, VerifyPassword("anything", "$argon2id$v=19$m=65536,t=2,p=1$notbase64!$nothex"))
}
