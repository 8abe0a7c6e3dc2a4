package proofpack

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/nimbusline/rosterctl/pkg/config"
	"github.com/nimbusline/rosterctl/pkg/domain"
	"github.com/nimbusline/rosterctl/pkg/hashutil"
)

func sampleBuild() Build {
	sc := config.DefaultSolverConfig(42)
	assignments := []domain.Assignment{
		{DriverID: "D2", TourInstanceID: "t2", Day: 1, BlockID: "B1-t2", BlockType: domain.Block1er, StartMin: 480, EndMin: 600},
		{DriverID: "D1", TourInstanceID: "t1", Day: 0, BlockID: "B1-t1", BlockType: domain.Block1er, StartMin: 480, EndMin: 600},
	}
	return Build{
		PlanVersionID:    "pv-1",
		TenantID:         "acme",
		SiteID:           "site-1",
		ForecastSource:   "forecast.json",
		InputHash:        "deadbeef",
		SolverConfigHash: "cafebabe",
		Seed:             42,
		SolverConfig:     sc,
		Assignments:      assignments,
		AuditResults: []domain.AuditResult{
			{Check: domain.CheckCoverage, Status: domain.Pass},
		},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestWriteProducesEveryContractualEntry(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleBuild()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}

	want := []string{
		"manifest.json", "solver_config.json", "matrix.csv", "rosters.csv",
		"assignments.json", "kpis.json", "metadata.json", "audit_summary.json",
		"REPRODUCIBILITY.md", "verify.py",
	}
	got := make(map[string]bool)
	for _, f := range zr.File {
		got[f.Name] = true
		if f.Method != zip.Store {
			t.Fatalf("entry %s: method = %d, want zip.Store", f.Name, f.Method)
		}
	}
	for _, name := range want {
		if !got[name] {
			t.Fatalf("missing contractual entry %s", name)
		}
	}
}

func TestWriteIsDeterministicAcrossRuns(t *testing.T) {
	var a, b bytes.Buffer
	build := sampleBuild()
	if err := Write(&a, build); err != nil {
		t.Fatalf("Write (a): %v", err)
	}
	if err := Write(&b, build); err != nil {
		t.Fatalf("Write (b): %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("two proof packs built from identical input produced different bytes")
	}
}

func TestOutputHashChangesWithAssignments(t *testing.T) {
	h1, err := OutputHash(sampleBuild().Assignments, "cafebabe")
	if err != nil {
		t.Fatalf("OutputHash: %v", err)
	}
	mutated := sampleBuild().Assignments
	mutated[0].StartMin += 10
	h2, err := OutputHash(mutated, "cafebabe")
	if err != nil {
		t.Fatalf("OutputHash: %v", err)
	}
	if h1 == h2 {
		t.Fatal("expected output_hash to change when an assignment changes")
	}
}

func TestManifestFileHashesMatchActualContent(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleBuild()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}

	var manifestBytes []byte
	contents := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		var b bytes.Buffer
		b.ReadFrom(rc)
		rc.Close()
		contents[f.Name] = b.Bytes()
		if f.Name == "manifest.json" {
			manifestBytes = b.Bytes()
		}
	}
	if manifestBytes == nil {
		t.Fatal("manifest.json not found")
	}

	var manifest struct {
		FileHashes map[string]string `json:"file_hashes"`
	}
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		t.Fatalf("parsing manifest.json: %v", err)
	}
	for name, want := range manifest.FileHashes {
		if got := hashutil.SHA256Hex(string(contents[name])); got != want {
			t.Errorf("%s: sha256 = %s, manifest says %s", name, got, want)
		}
	}
}

func TestVerifyPassesOnAPackWithTheRightSolverConfigHash(t *testing.T) {
	build := sampleBuild()
	scHash, _, err := hashutil.CanonicalJSONHash(build.SolverConfig)
	if err != nil {
		t.Fatalf("CanonicalJSONHash: %v", err)
	}
	build.SolverConfigHash = scHash

	var buf bytes.Buffer
	if err := Write(&buf, build); err != nil {
		t.Fatalf("Write: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}

	report, err := Verify(zr)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !report.OK {
		t.Fatalf("expected OK, got mismatches=%v solverConfigOK=%t", report.FileMismatches, report.SolverConfigOK)
	}
}

func TestVerifyDetectsATamperedFile(t *testing.T) {
	build := sampleBuild()
	scHash, _, err := hashutil.CanonicalJSONHash(build.SolverConfig)
	if err != nil {
		t.Fatalf("CanonicalJSONHash: %v", err)
	}
	build.SolverConfigHash = scHash

	var buf bytes.Buffer
	if err := Write(&buf, build); err != nil {
		t.Fatalf("Write: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}

	tampered := retagFile(t, zr, "kpis.json", []byte(`{"tampered":true}`))
	report, err := Verify(tampered)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.OK {
		t.Fatal("expected a tampered file to fail verification")
	}
	if len(report.FileMismatches) != 1 || report.FileMismatches[0] != "kpis.json" {
		t.Fatalf("expected kpis.json flagged, got %v", report.FileMismatches)
	}
}

// retagFile rebuilds a zip archive identical to zr except that name's
// content is replaced with replacement, so a single-entry tamper can be
// tested without hand-assembling a whole archive.
func retagFile(t *testing.T, zr *zip.Reader, name string, replacement []byte) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		var b bytes.Buffer
		b.ReadFrom(rc)
		rc.Close()

		content := b.Bytes()
		if f.Name == name {
			content = replacement
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Store})
		if err != nil {
			t.Fatalf("CreateHeader %s: %v", f.Name, err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write %s: %v", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zw.Close: %v", err)
	}
	out, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	return out
}
