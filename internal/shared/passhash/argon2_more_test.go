package passhash

import (
	"errors"
	"testing"
)

func TestVerify_Errors(t *testing.T) {
	h := New(testParams)
	for _, enc := range []string{
		"",
		"$argon2id$bad",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$!!$a2V5",
	} {
		if _, err := h.Verify(enc, "x"); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("%q: want ErrInvalidHash, got %v", enc, err)
		}
	}
	if !h.NeedsRehash("garbage") {
		t.Fatalf("garbage should need rehash")
	}
}
