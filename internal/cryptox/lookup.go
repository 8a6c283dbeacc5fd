package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophid/internal/common"
	"golang.org/x/crypto/scrypt"
)

const (
	lookupKeyLen    = 32
	lookupSeparator = ":"

	// scrypt parameters; changing any of them changes every stored ciphertext.
	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

var scryptSalt = []byte("salt")

// LookupEncryptor encrypts short fields with AES-256-CTR under one fixed IV.
//
// The fixed IV makes Encrypt a pure function of its input, which is what allows
// the ciphertext to be used as an equality lookup key. It also means equal
// plaintexts are visible as equal ciphertexts to anyone holding the table.
//
// The key is derived once with scrypt in NewLookupEncryptor; the encryptor is
// immutable afterwards and safe for concurrent use.
type LookupEncryptor struct {
	block cipher.Block
	iv    []byte
}

// NewLookupEncryptor derives the AES key from passphrase and validates iv.
// iv is the base64 encoding of 16 bytes.
func NewLookupEncryptor(passphrase, iv Secret) (*LookupEncryptor, error) {
	if passphrase.IsZero() {
		return nil, fmt.Errorf("empty encryption passphrase")
	}

	rawIV, err := base64.StdEncoding.DecodeString(string(iv.SecretValue()))
	if err != nil {
		return nil, fmt.Errorf("encryption iv is not base64: %w", err)
	}
	if len(rawIV) != aes.BlockSize {
		return nil, fmt.Errorf("encryption iv must be %d bytes, got %d", aes.BlockSize, len(rawIV))
	}

	key, err := scrypt.Key(passphrase.SecretValue(), scryptSalt, scryptN, scryptR, scryptP, lookupKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return &LookupEncryptor{block: block, iv: rawIV}, nil
}

// Encrypt returns base64(iv) + ":" + base64(ciphertext).
func (e *LookupEncryptor) Encrypt(plaintext string) (string, error) {
	out := make([]byte, len(plaintext))
	cipher.NewCTR(e.block, e.iv).XORKeyStream(out, []byte(plaintext))

	return base64.StdEncoding.EncodeToString(e.iv) + lookupSeparator + base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt using the IV embedded in token. It fails with an
// error matching common.ErrDecode when token is not in the expected shape.
func (e *LookupEncryptor) Decrypt(token string) (string, error) {
	ivPart, ctPart, ok := strings.Cut(token, lookupSeparator)
	if !ok {
		return "", fmt.Errorf("%w: missing separator", common.ErrDecode)
	}

	iv, err := base64.StdEncoding.DecodeString(ivPart)
	if err != nil {
		return "", fmt.Errorf("%w: iv: %v", common.ErrDecode, err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: iv must be %d bytes", common.ErrDecode, aes.BlockSize)
	}

	ct, err := base64.StdEncoding.DecodeString(ctPart)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", common.ErrDecode, err)
	}

	out := make([]byte, len(ct))
	cipher.NewCTR(e.block, iv).XORKeyStream(out, ct)

	return string(out), nil
}
