package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed password hash")

const hashPrefix = "$argon2id$"

// HashPassword returns a self-describing argon2id string of the form
// $argon2id$v=19$m=<KiB>,t=<iterations>,p=<lanes>$<salt>$<key>.
func HashPassword(password []byte, params Argon2Params) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	if len(password) == 0 {
		return "", fmt.Errorf("%w: password must not be empty", ErrInvalidArgon2Params)
	}

	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := idKey(password, salt, params)
	defer memguard.WipeBytes(key)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		hashPrefix,
		argon2.Version,
		params.Memory,
		params.Iterations,
		params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// HashLockedPassword hashes a password held in a locked buffer.
func HashLockedPassword(password *memguard.LockedBuffer, params Argon2Params) (string, error) {
	if password == nil || !password.IsAlive() {
		return "", fmt.Errorf("%w: password must not be empty", ErrInvalidArgon2Params)
	}
	return HashPassword(password.Bytes(), params)
}

// VerifyPassword reports whether password matches encoded. A mismatch is
// (false, nil); an unparseable hash is ErrMalformedHash.
func VerifyPassword(password []byte, encoded string) (bool, error) {
	params, salt, want, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	if len(password) == 0 {
		return false, nil
	}

	got := idKey(password, salt, params)
	defer memguard.WipeBytes(got)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func VerifyLockedPassword(password *memguard.LockedBuffer, encoded string) (bool, error) {
	if password == nil || !password.IsAlive() {
		return VerifyPassword(nil, encoded)
	}
	return VerifyPassword(password.Bytes(), encoded)
}

func idKey(password, salt []byte, params Argon2Params) []byte {
	return argon2.IDKey(password, salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLen)
}

func decodeHash(encoded string) (Argon2Params, []byte, []byte, error) {
	if !strings.HasPrefix(encoded, hashPrefix) {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: unsupported algorithm", ErrMalformedHash)
	}
	parts := strings.Split(strings.TrimPrefix(encoded, hashPrefix), "$")
	if len(parts) != 4 {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: expected 4 fields, got %d", ErrMalformedHash, len(parts))
	}

	var version int
	if _, err := fmt.Sscanf(parts[0], "v=%d", &version); err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: version: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	var params Argon2Params
	if _, err := fmt.Sscanf(parts[1], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: params: %v", ErrMalformedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: key: %v", ErrMalformedHash, err)
	}
	params.SaltLen = len(salt)
	params.KeyLen = uint32(len(key))

	if err := params.Validate(); err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	return params, salt, key, nil
}
