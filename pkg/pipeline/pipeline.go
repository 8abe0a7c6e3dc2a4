// Package pipeline wires the solver stages (partition, column generation,
// master, greedy) and the audit/hashing steps into the single Solve
// entry point the CLI commands call. It owns none of the domain logic
// itself — every stage lives in its own package — this is purely the glue
// spec.md §4 describes as the pipeline's calling order.
package pipeline

import (
	"fmt"
	"time"

	"github.com/nimbusline/rosterctl/pkg/audit"
	"github.com/nimbusline/rosterctl/pkg/columngen"
	"github.com/nimbusline/rosterctl/pkg/config"
	"github.com/nimbusline/rosterctl/pkg/domain"
	"github.com/nimbusline/rosterctl/pkg/features"
	"github.com/nimbusline/rosterctl/pkg/forecast"
	"github.com/nimbusline/rosterctl/pkg/greedy"
	"github.com/nimbusline/rosterctl/pkg/hashutil"
	"github.com/nimbusline/rosterctl/pkg/master"
	"github.com/nimbusline/rosterctl/pkg/partition"
	"github.com/nimbusline/rosterctl/pkg/proofpack"
)

// Result is everything one solve pass produces.
type Result struct {
	Tours            []domain.Tour
	Blocks           []domain.Block
	Pool             []domain.RosterColumn
	Assignments      []domain.Assignment
	AuditResults     []domain.AuditResult
	MasterStatus     master.Status
	InputHash        string
	SolverConfigHash string
	OutputHash       string
}

// Solve runs the full pipeline over a forecast document and solver config:
// partition -> column generation (seeded from a greedy construction) ->
// master (falling back to the greedy construction directly when the master
// finds no cover; on TIMEOUT the master's best cover so far is used) ->
// audit -> hashing.
func Solve(doc forecast.Document, sc config.SolverConfig) (Result, error) {
	tours := doc.Expand()
	th := sc.ToThresholds()

	blocks := partition.Partition(tours, sc.Seed, th)
	blockByID := make(map[string]domain.Block, len(blocks))
	targetBlockIDs := make([]string, 0, len(blocks))
	var totalWorkMin int
	for _, b := range blocks {
		blockByID[b.ID] = b
		targetBlockIDs = append(targetBlockIDs, b.ID)
		totalWorkMin += b.TotalWorkMin
	}

	targetFTEs := totalWorkMin/th.FTESoftTargetMinMin + 1

	gen := columngen.New(blocks, sc.Seed, th)

	greedyResult := greedy.Build(blocks, targetFTEs, th.FTEOverflowCap, th, sc.Seed)
	driverBlockIDs := make(map[string][]string, len(greedyResult.Slots))
	rosterTypeOf := make(map[string]domain.RosterType, len(greedyResult.Slots))
	for _, s := range greedyResult.Slots {
		driverBlockIDs[s.DriverID] = s.BlockIDs
		rosterTypeOf[s.DriverID] = s.RosterType
	}
	gen.SeedFromGreedy(driverBlockIDs, func(d string) domain.RosterType { return rosterTypeOf[d] })
	hints := gen.Pool() // every column admitted so far came from the greedy seed

	gen.GenerateSingletonColumns()
	poolTarget := len(blocks) * 3
	gen.GenerateInitialPool(poolTarget)
	gen.GeneratePTPool(poolTarget / 2)
	gen.GenerateColumns(3, len(blocks))

	pool := gen.Pool()

	// The portfolio policy (spec.md §9 Design Notes) is off by default: when
	// disabled every instance runs the master exactly as before. When
	// enabled, only a very large instance skips the exact search in favor
	// of going straight to the greedy construction already computed above.
	portfolioDecision := master.DecisionMasterOnly
	if features.Enabled(features.PortfolioPolicy) {
		portfolioDecision = master.ChoosePortfolio(len(targetBlockIDs))
	}

	var assignments []domain.Assignment
	var mresult master.Result
	if portfolioDecision == master.DecisionGreedyOnly {
		assignments = assignmentsFromGreedy(greedyResult, blockByID)
		mresult = master.Result{Status: master.StatusSkipped}
	} else {
		mresult = master.Solve(pool, targetBlockIDs, th, master.Options{
			TimeLimit: time.Duration(sc.MasterTimeLimitSec) * time.Second,
			Hints:     hints,
		})

		if mresult.Status == master.StatusOptimal || mresult.Status == master.StatusTimeout {
			selected := mresult.Selected
			runFragmentPass := portfolioDecision == master.DecisionMasterThenPTFrag || features.Enabled(features.PTFragmentPass)
			if runFragmentPass {
				selected = master.TightenPTFragments(selected, pool, th)
			}
			assignments = assignmentsFromColumns(selected, blockByID)
		} else {
			assignments = assignmentsFromGreedy(greedyResult, blockByID)
		}
	}
	assignments = domain.SortAssignments(assignments)

	results := audit.Run(tours, assignments, th)

	inputHash := forecast.InputHash(tours)
	solverConfigHash, _, err := hashutil.CanonicalJSONHash(sc)
	if err != nil {
		return Result{}, fmt.Errorf("hashing solver config: %w", err)
	}
	outputHash, err := proofpack.OutputHash(assignments, solverConfigHash)
	if err != nil {
		return Result{}, fmt.Errorf("hashing output: %w", err)
	}

	return Result{
		Tours:            tours,
		Blocks:           blocks,
		Pool:             pool,
		Assignments:      assignments,
		AuditResults:     results,
		MasterStatus:     mresult.Status,
		InputHash:        inputHash,
		SolverConfigHash: solverConfigHash,
		OutputHash:       outputHash,
	}, nil
}

func assignmentsFromColumns(cols []domain.RosterColumn, blockByID map[string]domain.Block) []domain.Assignment {
	var out []domain.Assignment
	for _, col := range cols {
		for _, bid := range col.BlockIDs {
			b, ok := blockByID[bid]
			if !ok {
				continue
			}
			out = append(out, assignmentsForBlock(col.RosterID, b)...)
		}
	}
	return out
}

func assignmentsFromGreedy(result greedy.Result, blockByID map[string]domain.Block) []domain.Assignment {
	var out []domain.Assignment
	for _, s := range result.Slots {
		for _, bid := range s.BlockIDs {
			b, ok := blockByID[bid]
			if !ok {
				continue
			}
			out = append(out, assignmentsForBlock(s.DriverID, b)...)
		}
	}
	return out
}

func assignmentsForBlock(driverID string, b domain.Block) []domain.Assignment {
	out := make([]domain.Assignment, 0, len(b.Tours))
	for _, t := range b.Tours {
		out = append(out, domain.Assignment{
			DriverID:        driverID,
			TourInstanceID:  t.ID,
			Day:             t.Day,
			BlockID:         b.ID,
			BlockType:       b.Type,
			StartMin:        t.StartMin,
			EndMin:          t.EndMin,
			CrossesMidnight: t.CrossesMidnight,
		})
	}
	return out
}
