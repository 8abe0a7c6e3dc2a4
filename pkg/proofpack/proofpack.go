// Package proofpack builds the deterministic ZIP proof pack (C9, spec.md
// §4.9): a self-contained bundle that cryptographically binds
// (input, config, seed, assignments, audit) and ships its own verifier. The
// walk-and-write shape mirrors pkg/tarball.DirToTarball, adapted from tar to
// archive/zip with zip.Store (not Deflate): spec.md §4.9 flags Deflate's
// cross-library non-determinism as a real risk, and storing uncompressed is
// the documented fallback when bit-for-bit reproducibility cannot be
// independently verified on every target platform.
package proofpack

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/nimbusline/rosterctl/pkg/config"
	"github.com/nimbusline/rosterctl/pkg/domain"
	"github.com/nimbusline/rosterctl/pkg/hashutil"
)

// fixedModTime is stamped on every zip entry so the archive bytes depend
// only on content, never on wall-clock build time (spec.md §4.9).
var fixedModTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// AssignmentRecord is the canonical JSON shape of one assignment inside the
// proof pack (spec.md §4.9 output_hash definition).
type AssignmentRecord struct {
	DriverID        string `json:"driver_id"`
	TourInstanceID  string `json:"tour_instance_id"`
	Day             int    `json:"day"`
	BlockID         string `json:"block_id"`
	BlockType       string `json:"block_type"`
	StartMin        int    `json:"start_min"`
	EndMin          int    `json:"end_min"`
	CrossesMidnight bool   `json:"crosses_midnight"`
}

// Build is everything needed to assemble one proof pack.
type Build struct {
	PlanVersionID    string
	TenantID         string
	SiteID           string
	ForecastSource   string
	InputHash        string
	SolverConfigHash string
	Seed             uint32
	SolverConfig     config.SolverConfig
	SolverConfigRaw  []byte
	Assignments      []domain.Assignment
	AuditResults     []domain.AuditResult
	CreatedAt        time.Time
}

func toRecords(assignments []domain.Assignment) []AssignmentRecord {
	sorted := domain.SortAssignments(append([]domain.Assignment(nil), assignments...))
	out := make([]AssignmentRecord, len(sorted))
	for i, a := range sorted {
		out[i] = AssignmentRecord{
			DriverID:        a.DriverID,
			TourInstanceID:  a.TourInstanceID,
			Day:             int(a.Day),
			BlockID:         a.BlockID,
			BlockType:       string(a.BlockType),
			StartMin:        a.StartMin,
			EndMin:          a.EndMin,
			CrossesMidnight: a.CrossesMidnight,
		}
	}
	return out
}

// hashAssignmentRecords computes sha256(json_sorted({assignments: records,
// solver_config_hash})) per spec.md §4.9. It is the single place that
// defines the output_hash payload shape, so a verifier can recompute it from
// assignments.json without re-deriving the shape by hand.
func hashAssignmentRecords(records []AssignmentRecord, solverConfigHash string) (string, error) {
	payload := map[string]interface{}{
		"assignments":        records,
		"solver_config_hash": solverConfigHash,
	}
	hash, _, err := hashutil.CanonicalJSONHash(payload)
	return hash, err
}

// OutputHash computes sha256(json_sorted({assignments: sorted_assignments,
// solver_config_hash})) per spec.md §4.9.
func OutputHash(assignments []domain.Assignment, solverConfigHash string) (string, error) {
	return hashAssignmentRecords(toRecords(assignments), solverConfigHash)
}

// Write assembles the proof pack and writes it to w as a ZIP archive.
func Write(w io.Writer, b Build) error {
	outputHash, err := OutputHash(b.Assignments, b.SolverConfigHash)
	if err != nil {
		return err
	}

	files := make(map[string][]byte)
	files["solver_config.json"], err = hashutil.CanonicalJSON(b.SolverConfig)
	if err != nil {
		return err
	}
	files["matrix.csv"] = matrixCSV(b.Assignments)
	files["rosters.csv"] = rostersCSV(b.Assignments)

	// assignments.json is the one contractual entry whose bytes are exactly
	// the records hashed into output_hash, so a verifier can recompute
	// output_hash from the pack itself instead of trusting manifest.json's
	// own claim.
	assignmentsJSON, err := hashutil.CanonicalJSON(toRecords(b.Assignments))
	if err != nil {
		return err
	}
	files["assignments.json"] = assignmentsJSON

	kpis, err := hashutil.CanonicalJSON(computeKPIs(b.Assignments))
	if err != nil {
		return err
	}
	files["kpis.json"] = kpis

	metadata, err := hashutil.CanonicalJSON(map[string]interface{}{
		"plan_version_id": b.PlanVersionID,
		"tenant_id":       b.TenantID,
		"site_id":         b.SiteID,
		"forecast_source": b.ForecastSource,
		"seed":            b.Seed,
		"created_at":      b.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	files["metadata.json"] = metadata

	auditSummary, err := hashutil.CanonicalJSON(map[string]interface{}{"results": b.AuditResults})
	if err != nil {
		return err
	}
	files["audit_summary.json"] = auditSummary

	files["REPRODUCIBILITY.md"] = []byte(reproducibilityDoc(b.InputHash, b.SolverConfigHash, outputHash))
	files["verify.py"] = []byte(verifyScript)

	manifest, err := buildManifest(b, files, outputHash)
	if err != nil {
		return err
	}
	files["manifest.json"] = manifest

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(w)
	for _, name := range names {
		header := &zip.FileHeader{
			Name:     name,
			Method:   zip.Store,
			Modified: fixedModTime,
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		if _, err := fw.Write(files[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}

// VerifyReport is what Verify found when recomputing a pack's checksums.
type VerifyReport struct {
	OK                   bool
	FileMismatches       []string // entries whose sha256 no longer matches manifest.json
	SolverConfigOK       bool
	OutputHashOK         bool
	InputHash            string
	SolverConfigHash     string
	OutputHash           string
	RecomputedOutputHash string
}

// Verify reopens a proof pack and independently recomputes every checksum
// it claims, rather than trusting manifest.json's own self-reported values:
// solver_config_hash is rehashed from solver_config.json, and output_hash is
// rehashed from assignments.json (the exact record set output_hash is
// defined over) plus that recomputed solver_config_hash. Only input_hash is
// reported as manifest.json states it, since the pack does not embed the
// raw forecast the input hash was computed over; a caller that has the
// forecast should recompute it separately with forecast.InputHash and
// compare.
func Verify(zr *zip.Reader) (VerifyReport, error) {
	content := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return VerifyReport{}, fmt.Errorf("opening %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return VerifyReport{}, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		content[f.Name] = b
	}

	manifestRaw, ok := content["manifest.json"]
	if !ok {
		return VerifyReport{}, fmt.Errorf("manifest.json missing from pack")
	}
	var manifest struct {
		FileHashes       map[string]string `json:"file_hashes"`
		InputHash        string            `json:"input_hash"`
		SolverConfigHash string            `json:"solver_config_hash"`
		OutputHash       string            `json:"output_hash"`
	}
	if err := json.Unmarshal(manifestRaw, &manifest); err != nil {
		return VerifyReport{}, fmt.Errorf("parsing manifest.json: %w", err)
	}

	var mismatches []string
	for name, expected := range manifest.FileHashes {
		if name == "manifest.json" {
			continue
		}
		actual := hashutil.SHA256Hex(string(content[name]))
		if actual != expected {
			mismatches = append(mismatches, name)
		}
	}
	sort.Strings(mismatches)

	solverConfigHash := hashutil.SHA256Hex(string(content["solver_config.json"]))
	solverConfigOK := solverConfigHash == manifest.SolverConfigHash

	assignmentsRaw, ok := content["assignments.json"]
	if !ok {
		return VerifyReport{}, fmt.Errorf("assignments.json missing from pack")
	}
	var records []AssignmentRecord
	if err := json.Unmarshal(assignmentsRaw, &records); err != nil {
		return VerifyReport{}, fmt.Errorf("parsing assignments.json: %w", err)
	}
	recomputedOutputHash, err := hashAssignmentRecords(records, solverConfigHash)
	if err != nil {
		return VerifyReport{}, fmt.Errorf("recomputing output_hash: %w", err)
	}
	outputHashOK := recomputedOutputHash == manifest.OutputHash

	return VerifyReport{
		OK:                   len(mismatches) == 0 && solverConfigOK && outputHashOK,
		FileMismatches:       mismatches,
		SolverConfigOK:       solverConfigOK,
		OutputHashOK:         outputHashOK,
		InputHash:            manifest.InputHash,
		SolverConfigHash:     manifest.SolverConfigHash,
		OutputHash:           manifest.OutputHash,
		RecomputedOutputHash: recomputedOutputHash,
	}, nil
}

func buildManifest(b Build, files map[string][]byte, outputHash string) ([]byte, error) {
	perFile := make(map[string]string, len(files))
	for name, content := range files {
		perFile[name] = hashutil.SHA256Hex(string(content))
	}
	manifest := map[string]interface{}{
		"version":            "1",
		"plan_version_id":    b.PlanVersionID,
		"file_hashes":        perFile,
		"input_hash":         b.InputHash,
		"solver_config_hash": b.SolverConfigHash,
		"output_hash":        outputHash,
	}
	return hashutil.CanonicalJSON(manifest)
}

func matrixCSV(assignments []domain.Assignment) []byte {
	byDriver := make(map[string]map[domain.Weekday]string)
	drivers := make(map[string]bool)
	for _, a := range assignments {
		if byDriver[a.DriverID] == nil {
			byDriver[a.DriverID] = make(map[domain.Weekday]string)
		}
		byDriver[a.DriverID][a.Day] = byDriver[a.DriverID][a.Day] + a.TourInstanceID + "|"
		drivers[a.DriverID] = true
	}

	var names []string
	for d := range drivers {
		names = append(names, d)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString("driver_id;mon;tue;wed;thu;fri;sat;sun\n")
	for _, d := range names {
		buf.WriteString(d)
		for day := domain.Weekday(0); day < 7; day++ {
			buf.WriteString(";")
			buf.WriteString(byDriver[d][day])
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

func rostersCSV(assignments []domain.Assignment) []byte {
	sorted := domain.SortAssignments(append([]domain.Assignment(nil), assignments...))
	var buf bytes.Buffer
	buf.WriteString("driver_id;day;tour_instance_id;block_id;block_type;start_min;end_min;crosses_midnight\n")
	for _, a := range sorted {
		// day is written as the same int that output_hash hashes
		// (assignments.json), not Weekday.String()'s 3-letter form, so the
		// human-facing CSV and the hash input never disagree on its type.
		fmt.Fprintf(&buf, "%s;%d;%s;%s;%s;%d;%d;%t\n",
			a.DriverID, int(a.Day), a.TourInstanceID, a.BlockID, a.BlockType, a.StartMin, a.EndMin, a.CrossesMidnight)
	}
	return buf.Bytes()
}

// kpis is the aggregate KPI set emitted in kpis.json.
type kpis struct {
	DriverCount        int     `json:"driver_count"`
	ToursAssigned      int     `json:"tours_assigned"`
	TotalWorkMinutes   int     `json:"total_work_minutes"`
	AvgWeeklyMinutes   float64 `json:"avg_weekly_minutes"`
}

func computeKPIs(assignments []domain.Assignment) kpis {
	totals := make(map[string]int)
	for _, a := range assignments {
		dur := a.EndMin - a.StartMin
		if a.CrossesMidnight {
			dur += 1440
		}
		totals[a.DriverID] += dur
	}
	var totalMin int
	for _, m := range totals {
		totalMin += m
	}
	avg := 0.0
	if len(totals) > 0 {
		avg = float64(totalMin) / float64(len(totals))
	}
	return kpis{
		DriverCount:      len(totals),
		ToursAssigned:    len(assignments),
		TotalWorkMinutes: totalMin,
		AvgWeeklyMinutes: avg,
	}
}

func reproducibilityDoc(inputHash, solverConfigHash, outputHash string) string {
	return fmt.Sprintf(`# Reproducibility

This proof pack is the witness of the identity:

    f(input_hash, solver_config_hash, seed) -> output_hash

input_hash:         %s
solver_config_hash: %s
output_hash:        %s

verify.py checks every file hash and recomputes solver_config_hash and
output_hash, comparing them against manifest.json. It does not recompute
input_hash, since the pack does not carry the raw forecast.
Any mismatch means the pack was tampered with or the pipeline is not
deterministic for this input/config/seed triple.
`, inputHash, solverConfigHash, outputHash)
}

// verifyScript is a standalone verifier bundled into every pack, so a
// recipient never has to trust the producer's toolchain. It only depends on
// the Python standard library.
const verifyScript = `#!/usr/bin/env python3
"""Recompute every checksum in this proof pack and abort on mismatch."""
import hashlib
import json
import sys
import zipfile


def sha256_hex(data: bytes) -> str:
    return hashlib.sha256(data).hexdigest()


def canonical_json(obj) -> bytes:
    return json.dumps(obj, sort_keys=True, separators=(",", ":")).encode("utf-8")


def main(path: str) -> int:
    with zipfile.ZipFile(path) as zf:
        manifest = json.loads(zf.read("manifest.json"))
        for name, expected in manifest["file_hashes"].items():
            if name == "manifest.json":
                continue
            actual = sha256_hex(zf.read(name))
            if actual != expected:
                print(f"MISMATCH: {name}: expected {expected}, got {actual}")
                return 1

        solver_config_hash = sha256_hex(zf.read("solver_config.json"))
        if solver_config_hash != manifest["solver_config_hash"]:
            print("MISMATCH: solver_config_hash")
            return 1

        # assignments.json is the exact record set output_hash is defined
        # over, so recompute from it directly instead of reconstructing
        # records from the human-facing rosters.csv projection.
        assignments = json.loads(zf.read("assignments.json"))
        output_hash = sha256_hex(canonical_json({
            "assignments": assignments,
            "solver_config_hash": solver_config_hash,
        }))
        if output_hash != manifest["output_hash"]:
            print("MISMATCH: output_hash")
            return 1

        print("OK: all checksums verified")
        return 0


if __name__ == "__main__":
    sys.exit(main(sys.argv[1]))
`
