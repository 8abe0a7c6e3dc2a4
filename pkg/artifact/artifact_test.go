package artifact

import (
	"os"
	"testing"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	dir, err := os.MkdirTemp("", "artifact-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := NewFSStore(dir, []byte("test-signing-key"))
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	return s
}

func TestStoreThenGetRoundTrips(t *testing.T) {
	s := newTestStore(t)
	meta, err := s.Store("acme", "site-1", "proof_pack", []byte("hello world"), StoreOptions{RunID: "run-1"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := s.Get(meta.ArtifactID, "acme")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("Get returned %q, want %q", got, "hello world")
	}
}

func TestGetRejectsWrongTenant(t *testing.T) {
	s := newTestStore(t)
	meta, _ := s.Store("acme", "site-1", "proof_pack", []byte("secret"), StoreOptions{})

	got, err := s.Get(meta.ArtifactID, "other-tenant")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil content when the tenant does not match")
	}
}

func TestSignURLProducesAVerifiableSignature(t *testing.T) {
	s := newTestStore(t)
	meta, _ := s.Store("acme", "site-1", "proof_pack", []byte("payload"), StoreOptions{})

	url := s.SignURL(meta.ArtifactID, "acme", 60)
	if url == "" {
		t.Fatal("expected a non-empty signed URL")
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	s := newTestStore(t)
	meta, _ := s.Store("acme", "site-1", "proof_pack", []byte("payload"), StoreOptions{})

	expiry := int64(9999999999)
	good := s.sign(meta.ArtifactID, "acme", expiry)
	if !s.Verify(meta.ArtifactID, "acme", expiry, good) {
		t.Fatal("expected the correct signature to verify")
	}
	if s.Verify(meta.ArtifactID, "acme", expiry, good+"tampered") {
		t.Fatal("expected a tampered signature to fail verification")
	}
}

func TestVerifyRejectsExpiredLink(t *testing.T) {
	s := newTestStore(t)
	sig := s.sign("some-id", "acme", 1) // expiry far in the past
	if s.Verify("some-id", "acme", 1, sig) {
		t.Fatal("expected an expired link to fail verification")
	}
}
