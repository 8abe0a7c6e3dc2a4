package main

import (
	"os"

	"github.com/nimbusline/rosterctl/cmd/rosterctl/app"
	"github.com/nimbusline/rosterctl/pkg/errlog"
)

// Main entry point of the program. Commands return errors rather than
// exiting directly, so this is the one place exit codes get decided.
func main() {
	err := app.NewRootCommand().Execute()
	if err != nil {
		errlog.LogError(err)
		os.Exit(app.ExitCodeFor(err))
	}
}
