// Package determinism implements the determinism contract and self-test of
// C10 (spec.md §4.10): given identical (input_hash, solver_config_hash,
// seed), repeated pipeline runs must produce identical output_hash. Running
// the N repeats concurrently via errgroup is safe here precisely because
// each repeat is independently deterministic and none share mutable state
// (spec.md §5: "no shared mutable state between concurrent solves") —
// unlike inside a single master/greedy solve, where all search stays
// single-threaded.
package determinism

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/nimbusline/rosterctl/pkg/rosterr"
)

// RunFunc executes one full pipeline pass and returns its output_hash.
type RunFunc func(ctx context.Context, run int) (string, error)

// Report is the result of a self-test: every observed hash, sorted, plus
// whether they all agree.
type Report struct {
	Runs        int
	OutputHashes []string
	AllEqual    bool
}

// SelfTest runs fn n times concurrently and checks that every run produced
// the same output_hash. It returns rosterr.DeterminismBroken if any pair of
// runs disagree, satisfying spec.md's "fail with exit code 1" contract at
// the CLI boundary (the CLI layer maps this Kind to the exit code).
func SelfTest(ctx context.Context, n int, fn RunFunc) (Report, error) {
	if n < 1 {
		return Report{}, rosterr.New(rosterr.ValidationError, "determinism self-test requires at least one run")
	}

	hashes := make([]string, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			h, err := fn(gctx, i)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			hashes[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	sorted := append([]string(nil), hashes...)
	sort.Strings(sorted)
	allEqual := true
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[0] {
			allEqual = false
			break
		}
	}

	report := Report{Runs: n, OutputHashes: hashes, AllEqual: allEqual}
	if !allEqual {
		return report, rosterr.New(rosterr.DeterminismBroken,
			fmt.Sprintf("%d of %d runs disagree on output_hash", countDistinct(sorted), n))
	}
	return report, nil
}

func countDistinct(sorted []string) int {
	if len(sorted) == 0 {
		return 0
	}
	n := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			n++
		}
	}
	return n
}
