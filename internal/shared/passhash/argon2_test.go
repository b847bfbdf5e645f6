package passhash

import "testing"

// cheap parameters keep the suite fast
var testParams = Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashAndVerify(t *testing.T) {
	h := New(testParams)
	enc, err := h.Hash("password123")
	if err != nil {
		t.Fatal(err)
	}
	ok, err := h.Verify(enc, "password123")
	if err != nil || !ok {
		t.Fatalf("verify failed: %v", err)
	}
	ok, err = h.Verify(enc, "wrong")
	if err != nil || ok {
		t.Fatalf("expected mismatch")
	}
	other, _ := h.Hash("password123")
	if other == enc {
		t.Fatalf("salts must differ")
	}
}

func TestVerifyAcrossParams(t *testing.T) {
	enc, err := New(testParams).Hash("pw")
	if err != nil {
		t.Fatal(err)
	}
	h := New(DefaultParams)
	if ok, err := h.Verify(enc, "pw"); err != nil || !ok {
		t.Fatalf("hash from other params should verify: %v", err)
	}
	if !h.NeedsRehash(enc) {
		t.Fatalf("expected rehash for weaker params")
	}
	if New(testParams).NeedsRehash(enc) {
		t.Fatalf("same params should not need rehash")
	}
}
