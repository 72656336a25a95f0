package crypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	enc, err := New("super secret")
	require.NoError(t, err)

	token, err := enc.Encrypt("jdoe", "pa:ss")
	require.NoError(t, err)
	assert.NotContains(t, token, "jdoe")
	assert.NotContains(t, token, "=")

	username, password, err := enc.Decrypt(token)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", username)
	assert.Equal(t, "pa:ss", password)

	other, err := enc.Encrypt("jdoe", "pa:ss")
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	enc, err := New("super secret")
	require.NoError(t, err)
	foreign, err := New("another secret")
	require.NoError(t, err)
	token, err := foreign.Encrypt("jdoe", "pw")
	require.NoError(t, err)

	for name, input := range map[string]string{
		"not base64":  "***",
		"too short":   "YWJj",
		"foreign key": token,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := enc.Decrypt(input)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}
