package application

import (
	"errors"
	"strings"
	"testing"
)

var fastArgon2Params = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestPasswordHashRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("s3cret!", fastArgon2Params)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}
	if err := VerifyPassword(hash, "s3cret!"); err != nil {
		t.Fatalf("expected password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	again, err := CreatePasswordHash("s3cret!", fastArgon2Params)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}
	if again == hash {
		t.Fatal("expected a fresh salt per hash")
	}
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hash string
		want error
	}{
		{hash: "plain", want: ErrInvalidPasswordHash},
		{hash: "$2a$10$abcdefghijklmnopqrstuv", want: ErrInvalidPasswordHash},
		{hash: "$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA", want: ErrIncompatiblePasswordVersion},
		{hash: "$argon2id$v=19$m=x$c2FsdA$aGFzaA", want: ErrInvalidPasswordHash},
		{hash: "$argon2id$v=19$m=1024,t=1,p=1$!!$aGFzaA", want: ErrInvalidPasswordHash},
	}
	for _, tc := range tests {
		if err := VerifyPassword(tc.hash, "pw"); !errors.Is(err, tc.want) {
			t.Fatalf("VerifyPassword(%q) = %v, want %v", tc.hash, err, tc.want)
		}
	}
}
