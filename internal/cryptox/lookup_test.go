package cryptox

import (
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIV = "AAECAwQFBgcICQoLDA0ODw==" // bytes 0x00..0x0f

func newTestEncryptor(t *testing.T, pass string) *LookupEncryptor {
	t.Helper()
	e, err := NewLookupEncryptor(NewSecret(pass), NewSecret(testIV))
	require.NoError(t, err)
	return e
}

func TestLookupEncryptor_Deterministic(t *testing.T) {
	e := newTestEncryptor(t, "pw")

	a, err := e.Encrypt("user@example.com")
	require.NoError(t, err)
	b, err := e.Encrypt("user@example.com")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, testIV+":"), "ciphertext %q should carry the iv", a)

	c, err := e.Encrypt("other@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestLookupEncryptor_SamePassphraseSameOutput(t *testing.T) {
	a, _ := newTestEncryptor(t, "pw").Encrypt("x@y.z")
	b, _ := newTestEncryptor(t, "pw").Encrypt("x@y.z")
	c, _ := newTestEncryptor(t, "pw2").Encrypt("x@y.z")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestLookupEncryptor_RoundTrip(t *testing.T) {
	e := newTestEncryptor(t, "pw")

	for _, s := range []string{"", "a", "user@example.com", "ünïcødé", strings.Repeat("z", 100)} {
		ct, err := e.Encrypt(s)
		require.NoError(t, err)

		pt, err := e.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, s, pt)
	}
}

func TestLookupEncryptor_DecryptMalformed(t *testing.T) {
	e := newTestEncryptor(t, "pw")

	tests := []struct {
		name  string
		token string
	}{
		{"no separator", "AAECAwQFBgcICQoLDA0ODw=="},
		{"bad iv base64", "!!!:AAAA"},
		{"short iv", "AAEC:AAAA"},
		{"bad ciphertext base64", testIV + ":***"},
		{"extra separator", testIV + ":AAAA:BBBB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Decrypt(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrDecode)
		})
	}
}

func TestNewLookupEncryptor_Invalid(t *testing.T) {
	_, err := NewLookupEncryptor(NewSecret(""), NewSecret(testIV))
	assert.Error(t, err)

	_, err = NewLookupEncryptor(NewSecret("pw"), NewSecret("not base64!"))
	assert.Error(t, err)

	_, err = NewLookupEncryptor(NewSecret("pw"), NewSecret("AAEC"))
	assert.Error(t, err)
}

func TestLookupEncryptor_Concurrent(t *testing.T) {
	e := newTestEncryptor(t, "pw")
	want, err := e.Encrypt("same@example.com")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.Encrypt("same@example.com")
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}
