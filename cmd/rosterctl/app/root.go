// Package app holds the rosterctl cobra command tree: the contractual CLI
// surface of spec.md §6.2 (generate_golden_run, export_proof_pack,
// verify_proof_pack, run_sick_call_drill, run_freeze_window_drill,
// determinism_proof) plus supplemented inspection commands for plan and
// repair lifecycle operations.
package app

import (
	"errors"
	"flag"

	"github.com/spf13/cobra"

	"github.com/nimbusline/rosterctl/pkg/errlog"
	"github.com/nimbusline/rosterctl/pkg/rosterr"
)

func init() {
	RootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	RootCmd.PersistentFlags().BoolVarP(&errlog.DebugOutput, "debug", "d", false, "enable debug output (includes stack traces)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "loglevel", "info", "log level: panic, fatal, error, warn, info, debug, trace")
	RootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return errlog.SetLevel(logLevel)
	}

	RootCmd.AddCommand(NewCmdGenerateGoldenRun())
	RootCmd.AddCommand(NewCmdExportProofPack())
	RootCmd.AddCommand(NewCmdVerifyProofPack())
	RootCmd.AddCommand(NewCmdRunSickCallDrill())
	RootCmd.AddCommand(NewCmdRunFreezeWindowDrill())
	RootCmd.AddCommand(NewCmdDeterminismProof())
	RootCmd.AddCommand(NewCmdPlan())
	RootCmd.AddCommand(NewCmdRepair())
}

var logLevel string

// exitCodeError lets a command pick its own contractual exit code
// (spec.md §6.2 gives each CLI operation a distinct 0/1/2 meaning) while
// still returning a plain error from RunE, the way every other command does.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

// withExitCode wraps err so ExitCodeFor reports code for it, or returns nil
// unchanged so callers can write `return withExitCode(1, err)` freely.
func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitCodeError{code: code, err: err}
}

// RootCmd is the root command executed when rosterctl is invoked without
// any subcommand.
var RootCmd = &cobra.Command{
	Use:   "rosterctl",
	Short: "Deterministic workforce rostering engine",
	Long:  "rosterctl partitions, generates, and solves weekly driver rosters from a tour forecast, with a reproducible proof pack and repair orchestrator for day-of disruption.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// NewRootCommand returns the fully-wired root command, the single entry
// point main.go calls Execute on.
func NewRootCommand() *cobra.Command {
	return RootCmd
}

// ExitCodeFor maps a rosterr.Kind to the process exit code spec.md §6.2
// names for each CLI operation. Operations that don't return a typed
// rosterr.Error (a bare I/O or flag-parsing failure) exit 2, the generic
// "something went wrong before we even got to the domain logic" code.
func ExitCodeFor(err error) int {
	var ecerr *exitCodeError
	if errors.As(err, &ecerr) {
		return ecerr.code
	}

	rerr, ok := err.(*rosterr.Error)
	if !ok {
		return 2
	}
	switch rerr.Kind {
	case rosterr.DeterminismBroken, rosterr.InfeasibleInstance, rosterr.SolverTimeout:
		return 1
	case rosterr.ValidationError, rosterr.StateMachineViolation, rosterr.FreezeViolation,
		rosterr.IdempotencyConflict, rosterr.IntegrityFault:
		return 2
	default:
		return 2
	}
}
