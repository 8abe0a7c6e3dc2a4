// Package buildinfo holds build-time information like the rosterctl
// version. This is a separate package so that other packages can import it
// without worrying about introducing circular dependencies.
package buildinfo

// Version is the current version of rosterctl, set by the go linker's -X flag at build time.
var Version = "v0.1.0"

// GitSHA is the actual commit that is being built, set by the go linker's -X flag at build time.
var GitSHA string

// MinSolverConfigSchema is the lowest solver_config schema version this build understands.
var MinSolverConfigSchema = "1.0.0"

// MaxSolverConfigSchema is the highest solver_config schema version this build understands.
var MaxSolverConfigSchema = "1.99.0"
