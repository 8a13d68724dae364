package xhash

import "testing"

func TestHash64Deterministic(t *testing.T) {
	a := Hash64("example.com", 7)
	b := Hash64("example.com", 7)
	if a != b {
		t.Fatalf("expected stable hash, got %d != %d", a, b)
	}
}

func TestHash64DistinguishesSeparators(t *testing.T) {
	a := Hash64("ab", "c")
	b := Hash64("a", "bc")
	if a == b {
		t.Fatalf("expected distinct hashes for (ab,c) and (a,bc), got %d", a)
	}
}

func TestModRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		m := Mod(4, "host", i)
		if m < 0 || m >= 4 {
			t.Fatalf("Mod out of range: %d", m)
		}
	}
}
