package totp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// AESKeySize is the key length required for AES-256.
const AESKeySize = 32

// Cipher encrypts TOTP secrets at rest with AES-256-GCM.
// Ciphertexts are base64 strings carrying the nonce as prefix.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher returns a Cipher for a raw 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != AESKeySize {
		return nil, ErrInvalidEncryptionKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, err)
	}
	return &Cipher{aead: aead}, nil
}

// NewCipherFromConfig decodes TOTP_ENCRYPTION_KEY and builds a Cipher.
func NewCipherFromConfig(cfg Config) (*Cipher, error) {
	key, err := DecodeEncryptionKey(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	return NewCipher(key)
}

// Encrypt seals the plaintext secret.
func (c *Cipher) Encrypt(plainText string) (string, error) {
	return c.EncryptFor(plainText, "")
}

// Decrypt opens a value produced by Encrypt.
func (c *Cipher) Decrypt(cipherText string) (string, error) {
	return c.DecryptFor(cipherText, "")
}

// EncryptFor seals the plaintext bound to owner, usually a user ID. The
// owner is authenticated but not stored, so the value only opens with
// DecryptFor and the same owner.
func (c *Cipher) EncryptFor(plainText, owner string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plainText), associated(owner))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptFor opens a value produced by EncryptFor for owner.
func (c *Cipher) DecryptFor(cipherText, owner string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", errors.Join(ErrFailedToDecryptSecret, ErrInvalidCipherTooShort)
	}
	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], associated(owner))
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}
	return string(plain), nil
}

func associated(owner string) []byte {
	if owner == "" {
		return nil
	}
	return []byte(owner)
}

// GenerateEncodedEncryptionKey returns a random AES-256 key as base64,
// ready to be used as TOTP_ENCRYPTION_KEY.
func GenerateEncodedEncryptionKey() (string, error) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		return "", errors.Join(ErrFailedToGenerateEncryptionKey, err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// DecodeEncryptionKey decodes a base64 key and checks its length.
func DecodeEncryptionKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, ErrEncryptionKeyNotSet)
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, err)
	}
	if len(key) != AESKeySize {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, ErrInvalidEncryptionKeyLength)
	}
	return key, nil
}
