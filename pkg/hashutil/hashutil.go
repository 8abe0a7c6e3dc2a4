// Package hashutil holds the canonical hashing helpers shared by every
// package that must produce a reproducible hash over the same logical
// content regardless of map iteration order or locale (spec.md §4.9):
// input_hash, solver_config_hash, and output_hash all go through here.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SHA256Hex returns the lowercase hex sha256 digest of s.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// collator is fixed to the Root locale so sort order never depends on the
// process's environment/locale (spec.md §4.9: canonical sort is
// locale-independent).
var collator = collate.New(language.Und)

// CanonicalSort returns a copy of lines sorted by the Root-locale collation
// order, the same order every hash input must be rendered in before
// digesting.
func CanonicalSort(lines []string) []string {
	out := append([]string(nil), lines...)
	sort.Slice(out, func(i, j int) bool {
		return collator.CompareString(out[i], out[j]) < 0
	})
	return out
}

// CanonicalJoin sorts lines canonically and joins them with "\n", the
// standard shape hashed for a manifest-style digest.
func CanonicalJoin(lines []string) string {
	return strings.Join(CanonicalSort(lines), "\n")
}

// CanonicalHash sorts lines canonically, joins them, and hashes the result.
func CanonicalHash(lines []string) string {
	return SHA256Hex(CanonicalJoin(lines))
}

// CanonicalJSON marshals v through a generic interface{} round-trip so every
// nested map renders with alphabetically-sorted keys (Go's encoding/json
// guarantee for map[string]interface{}), giving the json_sorted(...) form
// spec.md §4.9 requires for solver_config_hash and output_hash. Slice order
// is the caller's responsibility — sort before calling.
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// CanonicalJSONHash is CanonicalJSON followed by SHA256Hex.
func CanonicalJSONHash(v interface{}) (string, []byte, error) {
	b, err := CanonicalJSON(v)
	if err != nil {
		return "", nil, err
	}
	return SHA256Hex(string(b)), b, nil
}
