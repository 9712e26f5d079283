package totp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafiki-assist/rafiki/pkg/totp"
)

func TestCipher_RoundTrip(t *testing.T) {
	t.Parallel()

	encoded, err := totp.GenerateEncodedEncryptionKey()
	require.NoError(t, err)

	c, err := totp.NewCipherFromConfig(totp.Config{EncryptionKey: encoded})
	require.NoError(t, err)

	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	sealed, err := c.Encrypt(secret)
	require.NoError(t, err)
	assert.NotContains(t, sealed, secret)

	again, err := c.Encrypt(secret)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per encryption")

	plain, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, secret, plain)
}

func TestCipher_WrongKey(t *testing.T) {
	t.Parallel()

	k1, err := totp.GenerateEncodedEncryptionKey()
	require.NoError(t, err)
	k2, err := totp.GenerateEncodedEncryptionKey()
	require.NoError(t, err)

	c1, err := totp.NewCipherFromConfig(totp.Config{EncryptionKey: k1})
	require.NoError(t, err)
	c2, err := totp.NewCipherFromConfig(totp.Config{EncryptionKey: k2})
	require.NoError(t, err)

	sealed, err := c1.Encrypt("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	_, err = c2.Decrypt(sealed)
	assert.ErrorIs(t, err, totp.ErrFailedToDecryptSecret)
}

func TestCipher_Owner(t *testing.T) {
	t.Parallel()

	key := make([]byte, totp.AESKeySize)
	c, err := totp.NewCipher(key)
	require.NoError(t, err)

	sealed, err := c.EncryptFor("JBSWY3DPEHPK3PXP", "user-1")
	require.NoError(t, err)

	plain, err := c.DecryptFor(sealed, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", plain)

	_, err = c.DecryptFor(sealed, "user-2")
	assert.ErrorIs(t, err, totp.ErrFailedToDecryptSecret)
	_, err = c.Decrypt(sealed)
	assert.ErrorIs(t, err, totp.ErrFailedToDecryptSecret)
}

func TestCipher_BadInput(t *testing.T) {
	t.Parallel()

	_, err := totp.NewCipher([]byte("short"))
	assert.ErrorIs(t, err, totp.ErrInvalidEncryptionKeyLength)

	_, err = totp.DecodeEncryptionKey("")
	assert.ErrorIs(t, err, totp.ErrEncryptionKeyNotSet)

	_, err = totp.DecodeEncryptionKey("c2hvcnQ=")
	assert.ErrorIs(t, err, totp.ErrInvalidEncryptionKeyLength)

	key := make([]byte, totp.AESKeySize)
	c, err := totp.NewCipher(key)
	require.NoError(t, err)

	_, err = c.Decrypt("not base64!")
	assert.ErrorIs(t, err, totp.ErrFailedToDecryptSecret)

	_, err = c.Decrypt("AAAA")
	assert.ErrorIs(t, err, totp.ErrInvalidCipherTooShort)
}
