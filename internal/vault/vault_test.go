package vault

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMasterKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestVault(t *testing.T) *Vault {
	t.Helper()

	v, err := New(testMasterKey)
	require.NoError(t, err)
	return v
}

func TestVault_EncryptDecrypt(t *testing.T) {
	t.Parallel()

	v := newTestVault(t)
	secret, err := GenerateSecret()
	require.NoError(t, err)

	first, err := v.Encrypt(secret)
	require.NoError(t, err)
	second, err := v.Encrypt(secret)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "random iv must make ciphertexts differ")
	assert.Len(t, strings.Split(first, ":"), 3)

	for _, ct := range []string{first, second} {
		got, err := v.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, secret, got)
	}
}

func TestVault_DetectsTampering(t *testing.T) {
	t.Parallel()

	v := newTestVault(t)
	ct, err := v.Encrypt("signing-secret")
	require.NoError(t, err)

	for i := range 3 {
		i := i
		t.Run([]string{"iv", "body", "tag"}[i], func(t *testing.T) {
			t.Parallel()

			parts := strings.Split(ct, ":")
			raw, err := hex.DecodeString(parts[i])
			require.NoError(t, err)
			raw[0] ^= 0xff
			parts[i] = hex.EncodeToString(raw)

			_, err = v.Decrypt(strings.Join(parts, ":"))
			require.ErrorIs(t, err, ErrDecrypt)
		})
	}
}

func TestVault_MalformedInput(t *testing.T) {
	t.Parallel()

	v := newTestVault(t)

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "two segments", input: "00:11"},
		{name: "four segments", input: "00:11:22:33"},
		{name: "bad hex", input: "zz:11:22"},
		{name: "short iv", input: "00:11:00112233445566778899aabbccddeeff"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := v.Decrypt(tt.input)
			require.ErrorIs(t, err, ErrMalformedCiphertext)
		})
	}
}

func TestVault_WrongKey(t *testing.T) {
	t.Parallel()

	ct, err := newTestVault(t).Encrypt("secret")
	require.NoError(t, err)

	other, err := New(strings.Repeat("ab", MasterKeySize))
	require.NoError(t, err)

	_, err = other.Decrypt(ct)
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestNew_RejectsBadKeys(t *testing.T) {
	t.Parallel()

	_, err := New("not-hex")
	require.Error(t, err)

	_, err = New("0011")
	require.Error(t, err)
}

func TestGenerateSecret_Length(t *testing.T) {
	t.Parallel()

	secret, err := GenerateSecret()
	require.NoError(t, err)
	assert.Len(t, secret, SecretSize*2)

	sealed, err := newTestVault(t).NewSealedSecret()
	require.NoError(t, err)
	assert.NotContains(t, sealed, secret)
}
