package crypto

import (
	"errors"
	"fmt"
	"runtime"
)

// Password hashing cost. The minimum applies to stored hashes as well, so a
// hash written with weaker settings is treated as malformed.
const (
	DefaultArgon2MemoryKiB  uint32 = 64 * 1024
	DefaultArgon2Iterations uint32 = 3
	DefaultArgon2SaltLen           = 16
	DefaultArgon2KeyLen     uint32 = 32
	MinArgon2MemoryKiB      uint32 = 8 * 1024

	maxArgon2Lanes = 4
	minSaltLen     = 8
	minKeyLen      = 16
)

var ErrInvalidArgon2Params = errors.New("invalid argon2 parameters")

// Argon2Params is the cost and output shape of an argon2id password hash.
// Memory is in KiB.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     int
	KeyLen      uint32
}

// DefaultArgon2Params uses one lane per CPU, up to four.
func DefaultArgon2Params() Argon2Params {
	lanes := max(1, min(runtime.NumCPU(), maxArgon2Lanes))
	return Argon2Params{
		Memory:      DefaultArgon2MemoryKiB,
		Iterations:  DefaultArgon2Iterations,
		Parallelism: uint8(lanes),
		SaltLen:     DefaultArgon2SaltLen,
		KeyLen:      DefaultArgon2KeyLen,
	}
}

func (p Argon2Params) Validate() error {
	var problem string
	switch {
	case p.Memory < MinArgon2MemoryKiB:
		problem = fmt.Sprintf("memory %d KiB is below %d KiB", p.Memory, MinArgon2MemoryKiB)
	case p.Iterations < 1:
		problem = "at least one iteration is required"
	case p.Parallelism < 1:
		problem = "at least one lane is required"
	case p.SaltLen < minSaltLen:
		problem = fmt.Sprintf("salt of %d bytes is shorter than %d", p.SaltLen, minSaltLen)
	case p.KeyLen < minKeyLen:
		problem = fmt.Sprintf("key of %d bytes is shorter than %d", p.KeyLen, minKeyLen)
	default:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidArgon2Params, problem)
}
