package hashutil

import "testing"

func TestCanonicalSortIsOrderIndependent(t *testing.T) {
	a := CanonicalSort([]string{"zeta", "alpha", "mike"})
	b := CanonicalSort([]string{"mike", "zeta", "alpha"})

	if len(a) != len(b) {
		t.Fatalf("length mismatch")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("index %d: %q != %q", i, a[i], b[i])
		}
	}
}

func TestCanonicalHashStableAcrossInputOrder(t *testing.T) {
	h1 := CanonicalHash([]string{"row-b", "row-a", "row-c"})
	h2 := CanonicalHash([]string{"row-c", "row-a", "row-b"})
	if h1 != h2 {
		t.Fatalf("expected identical hash regardless of input order, got %s vs %s", h1, h2)
	}
}

func TestSHA256HexKnownVector(t *testing.T) {
	got := SHA256Hex("")
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Fatalf("SHA256Hex(\"\") = %s, want %s", got, want)
	}
}
