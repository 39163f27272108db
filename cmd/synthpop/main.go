// Command synthpop assigns a region's synthetic persons to its synthetic
// households.
package main

import (
	"fmt"
	"io"
	"os"

	"spenser.io/synthpop/internal/cli"
	"spenser.io/synthpop/internal/logging"
	"spenser.io/synthpop/internal/pipeline"
)

func logAndStderr(stderr io.Writer, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logging.Error("%s", msg)
	fmt.Fprintln(stderr, msg)
}

// RunCLI parses arguments and runs the entrypoint logic. Returns exit code.
func RunCLI(args []string, stdout, stderr io.Writer) int {
	opts, err := cli.ParseOptions(args)
	if err != nil {
		logAndStderr(stderr, "parameter error: %v", err)
		cli.PrintHelp()
		return 1
	}

	logging.Info("synthpop started: region=%s, seed=%d, config=%s",
		opts.Region, opts.Seed, opts.ConfigPath)

	out, err := pipeline.Run(pipeline.Input{
		Region: opts.Region,
		Seed:   opts.Seed,
	})
	if err != nil {
		logAndStderr(stderr, "pipeline error: %v", err)
		return 1
	}

	fmt.Fprintf(stdout, "assigned %d of %d persons, filled %d of %d households\n",
		out.AssignedPeople, out.TotalPeople, out.FilledHouseholds, out.TotalHouseholds)
	fmt.Fprintf(stdout, "wrote %s\n", out.PersonFile)
	fmt.Fprintf(stdout, "wrote %s\n", out.HouseholdFile)
	return 0
}

func main() {
	os.Exit(RunCLI(os.Args[1:], os.Stdout, os.Stderr))
}
