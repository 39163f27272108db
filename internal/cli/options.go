package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"spenser.io/synthpop/internal/config"
)

// Options is the canonical representation of all runtime parameters.
type Options struct {
	ConfigPath string
	Region     string
	Seed       uint64
}

// ParseOptions parses CLI flags and resolves each parameter from CLI/config/
// default. The config document itself is located by --config, so that flag is
// resolved first.
func ParseOptions(args []string) (Options, error) {
	flags := pflag.NewFlagSet("synthpop", pflag.ContinueOnError)

	var opts Options
	var seedSet bool

	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration document (required)")
	flags.StringVarP(&opts.Region, "region", "r", "", "Region code, e.g. E09000001 (required)")
	flags.Uint64VarP(&opts.Seed, "rng_seed", "s", 0, "Seed for the pseudorandom source (default 0)")

	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	seedSet = flags.Changed("rng_seed")

	if opts.ConfigPath == "" {
		return opts, errors.New("--config is required")
	}
	if err := config.Load(opts.ConfigPath); err != nil {
		return opts, err
	}

	if opts.Region == "" {
		opts.Region = config.GetString(config.RegionKey)
	}
	if opts.Region == "" {
		return opts, errors.New("--region is required")
	}
	if !seedSet && config.HasKey(config.RNGSeedKey) {
		opts.Seed = config.GetUint64(config.RNGSeedKey)
	}

	if err := config.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// Scotland reports whether the region uses the Scottish ethnicity scheme.
func (o Options) Scotland() bool {
	return strings.HasPrefix(o.Region, "S")
}

// PrintHelp prints CLI usage to stderr.
func PrintHelp() {
	fmt.Fprintln(os.Stderr, `synthpop: assignment of people to households

Usage:
  synthpop --config <path> --region <code> [--rng_seed <u64>]

Flags:
  -c, --config     Path to configuration document (required)
  -r, --region     Region code, e.g. E09000001; codes beginning with S are Scottish (required)
  -s, --rng_seed   Seed for the pseudorandom source (default 0)`)
}
