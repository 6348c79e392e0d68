package crypto

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/awnumar/memguard"
	"github.com/stretchr/testify/require"
)

func TestArgon2KAT(t *testing.T) {
	t.Parallel()

	password := []byte("correct horse battery staple")
	salt := []byte("0123456789abcdef0123456789abcdef")
	params := Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 1,
		SaltLen:     32,
		KeyLen:      32,
	}

	require.NoError(t, params.Validate())
	got := idKey(password, salt, params)
	require.Equal(t, mustDecodeHex(t, "d12ac228e1566ecd9f80cf05621657ee1b5b34e40133438917d7ed334641f455"), got)
}

func TestHashPasswordRoundTrip(t *testing.T) {
	t.Parallel()

	encoded, err := HashPassword([]byte("hunter22"), testParams())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"))
	require.NotContains(t, encoded, "hunter22")

	ok, err := VerifyPassword([]byte("hunter22"), encoded)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPassword([]byte("hunter23"), encoded)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = VerifyPassword(nil, encoded)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	t.Parallel()

	a, err := HashPassword([]byte("same"), testParams())
	require.NoError(t, err)
	b, err := HashPassword([]byte("same"), testParams())
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestLockedPasswordHelpers(t *testing.T) {
	t.Parallel()

	buf := memguard.NewBufferFromBytes([]byte("locked-secret"))
	t.Cleanup(buf.Destroy)

	encoded, err := HashLockedPassword(buf, testParams())
	require.NoError(t, err)

	other := memguard.NewBufferFromBytes([]byte("locked-secret"))
	t.Cleanup(other.Destroy)
	ok, err := VerifyLockedPassword(other, encoded)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = HashLockedPassword(nil, testParams())
	require.ErrorIs(t, err, ErrInvalidArgon2Params)
}

func TestHashPasswordRejectsEmptyAndWeakParams(t *testing.T) {
	t.Parallel()

	_, err := HashPassword(nil, testParams())
	require.ErrorIs(t, err, ErrInvalidArgon2Params)

	weak := testParams()
	weak.Memory = 1024
	_, err = HashPassword([]byte("pw"), weak)
	require.ErrorIs(t, err, ErrInvalidArgon2Params)

	weak = testParams()
	weak.Iterations = 0
	_, err = HashPassword([]byte("pw"), weak)
	require.ErrorIs(t, err, ErrInvalidArgon2Params)

	weak = testParams()
	weak.SaltLen = 4
	_, err = HashPassword([]byte("pw"), weak)
	require.ErrorIs(t, err, ErrInvalidArgon2Params)
	require.Contains(t, err.Error(), "salt of 4 bytes")
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	valid, err := HashPassword([]byte("pw"), testParams())
	require.NoError(t, err)
	parts := strings.Split(valid, "$")

	cases := map[string]string{
		"empty":         "",
		"plaintext":     "pw",
		"bcrypt":        "$2a$10$abcdefghijklmnopqrstuv",
		"missing key":   strings.Join(parts[:5], "$"),
		"bad version":   strings.Replace(valid, "v=19", "v=16", 1),
		"bad params":    strings.Replace(valid, "m=8192", "m=x", 1),
		"weak memory":   strings.Replace(valid, "m=8192", "m=64", 1),
		"bad salt b64":  strings.Join([]string{parts[0], parts[1], parts[2], parts[3], "!!!", parts[5]}, "$"),
		"bad key b64":   strings.Join([]string{parts[0], parts[1], parts[2], parts[3], parts[4], "!!!"}, "$"),
	}
	for name, encoded := range cases {
		ok, err := VerifyPassword([]byte("pw"), encoded)
		require.ErrorIsf(t, err, ErrMalformedHash, "case %s", name)
		require.False(t, ok)
	}
}

func TestDefaultArgon2ParamsAreValid(t *testing.T) {
	t.Parallel()

	params := DefaultArgon2Params()
	require.NoError(t, params.Validate())
	require.GreaterOrEqual(t, params.Parallelism, uint8(1))
	require.LessOrEqual(t, params.Parallelism, uint8(4))
}

func testParams() Argon2Params {
	return Argon2Params{
		Memory:      MinArgon2MemoryKiB,
		Iterations:  1,
		Parallelism: 1,
		SaltLen:     DefaultArgon2SaltLen,
		KeyLen:      DefaultArgon2KeyLen,
	}
}

func mustDecodeHex(t *testing.T, value string) []byte {
	t.Helper()
	out, err := hex.DecodeString(value)
	require.NoError(t, err)
	return out
}
