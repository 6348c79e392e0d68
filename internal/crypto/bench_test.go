package crypto_test

import (
	"testing"

	cryptopkg "github.com/uvyne-rop/movie-watchlist/internal/crypto"
)

func BenchmarkHashPassword(b *testing.B) {
	params := cryptopkg.DefaultArgon2Params()
	password := []byte("correct horse battery staple")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := cryptopkg.HashPassword(password, params); err != nil {
			b.Fatalf("hash password: %v", err)
		}
	}
}

func BenchmarkVerifyPassword(b *testing.B) {
	params := cryptopkg.DefaultArgon2Params()
	password := []byte("correct horse battery staple")
	encoded, err := cryptopkg.HashPassword(password, params)
	if err != nil {
		b.Fatalf("hash password: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ok, err := cryptopkg.VerifyPassword(password, encoded)
		if err != nil || !ok {
			b.Fatalf("verify password: ok=%v err=%v", ok, err)
		}
	}
}
