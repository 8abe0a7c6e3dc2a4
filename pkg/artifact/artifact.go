// Package artifact implements the three-operation blob-store contract of
// spec.md §6.4: store, get, and sign_url, against a local-filesystem
// reference backend. The mutex-guarded metadata index mirrors
// pkg/planstore's single-lock discipline, itself grounded on the aggregator
// that guards node check-ins in the wider corpus.
package artifact

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusline/rosterctl/pkg/rosterr"
)

// Metadata describes one stored artifact.
type Metadata struct {
	ArtifactID   string
	TenantID     string
	SiteID       string
	ArtifactType string
	RunID        string
	PlanVersionID string
	SizeBytes    int
	ContentHash  string
	CreatedAt    time.Time
}

// StoreOptions carries the optional associations spec.md §6.4 allows
// attaching to a stored artifact.
type StoreOptions struct {
	RunID         string
	PlanVersionID string
}

// FSStore is a local-filesystem-backed artifact store, suitable for
// single-node deployments and as the dev-mode backend behind the HTTP
// signer.
type FSStore struct {
	mu      sync.Mutex
	baseDir string
	index   map[string]Metadata // artifact_id -> metadata
	signKey []byte
}

// NewFSStore roots the store at baseDir, creating it if necessary.
func NewFSStore(baseDir string, signKey []byte) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, rosterr.Wrap(err, rosterr.IntegrityFault, "creating artifact store directory")
	}
	return &FSStore{
		baseDir: baseDir,
		index:   make(map[string]Metadata),
		signKey: signKey,
	}, nil
}

// Store persists content under a fresh artifact ID, scoped by tenant and
// site, and records its metadata.
func (s *FSStore) Store(tenantID, siteID, artifactType string, content []byte, opts StoreOptions) (Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	dir := filepath.Join(s.baseDir, tenantID, siteID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Metadata{}, rosterr.Wrap(err, rosterr.IntegrityFault, "creating artifact tenant/site directory")
	}

	path := filepath.Join(dir, id)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return Metadata{}, rosterr.Wrap(err, rosterr.IntegrityFault, "writing artifact content")
	}

	sum := sha256.Sum256(content)
	meta := Metadata{
		ArtifactID:    id,
		TenantID:      tenantID,
		SiteID:        siteID,
		ArtifactType:  artifactType,
		RunID:         opts.RunID,
		PlanVersionID: opts.PlanVersionID,
		SizeBytes:     len(content),
		ContentHash:   hex.EncodeToString(sum[:]),
		CreatedAt:     time.Now(),
	}
	s.index[id] = meta
	return meta, nil
}

// Get returns an artifact's bytes, scoped to the claimed tenant, or nil if
// it does not exist or belongs to a different tenant.
func (s *FSStore) Get(artifactID, tenantID string) ([]byte, error) {
	s.mu.Lock()
	meta, ok := s.index[artifactID]
	s.mu.Unlock()
	if !ok || meta.TenantID != tenantID {
		return nil, nil
	}

	path := filepath.Join(s.baseDir, meta.TenantID, meta.SiteID, meta.ArtifactID)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, rosterr.Wrap(err, rosterr.IntegrityFault, "reading artifact content")
	}
	return content, nil
}

// SignURL returns a bearer-token URL path good for expiresInSec seconds, or
// "" if the artifact does not exist for this tenant. The token is an HMAC
// over (artifact_id, tenant_id, expiry) so a dev-mode HTTP server can verify
// it without a database round trip (see pkg/artifact/httpsigner.go).
func (s *FSStore) SignURL(artifactID, tenantID string, expiresInSec int) string {
	s.mu.Lock()
	meta, ok := s.index[artifactID]
	s.mu.Unlock()
	if !ok || meta.TenantID != tenantID {
		return ""
	}

	expiry := time.Now().Add(time.Duration(expiresInSec) * time.Second).Unix()
	token := s.sign(artifactID, tenantID, expiry)
	return fmt.Sprintf("/artifacts/%s?tenant=%s&expires=%d&sig=%s", artifactID, tenantID, expiry, token)
}

// sign computes the HMAC-SHA256 hex digest binding an artifact/tenant/expiry
// triple to this store's key.
func (s *FSStore) sign(artifactID, tenantID string, expiry int64) string {
	mac := hmac.New(sha256.New, s.signKey)
	fmt.Fprintf(mac, "%s:%s:%d", artifactID, tenantID, expiry)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature for (artifactID, tenantID, expiry) and
// compares it in constant time against the supplied token, also rejecting
// an already-expired link.
func (s *FSStore) Verify(artifactID, tenantID string, expiry int64, token string) bool {
	if time.Now().Unix() > expiry {
		return false
	}
	want := s.sign(artifactID, tenantID, expiry)
	return hmac.Equal([]byte(want), []byte(token))
}
