package core

import (
	"os"
	"runtime"

	"github.com/please-build/gcfg"
	flags "github.com/thought-machine/go-flags"
)

// ConfigFileName is the repo-root config file this module reads, analogous
// to the teacher's .plzconfig.
const ConfigFileName = ".bgraphconfig"

// LocalConfigFileName overrides ConfigFileName on a single machine and is
// not normally checked in.
const LocalConfigFileName = ".bgraphconfig.local"

// Configuration is the top-level repo configuration, loaded via gcfg from
// ini-style config files. Struct tags double as flag names, matching the
// teacher's config_flags.go convention; FlagsParser binds them, and
// cmd/bgraph does not use it.
type Configuration struct {
	Build struct {
		Greedy          bool   `long:"greedy" description:"Generate every reachable item rather than only explicitly requested ones"`
		DefaultToolchain string `long:"default_toolchain" description:"Default toolchain label reported in the manifest settings; set_default_toolchain is still required"`
		NumWorkers      int    `long:"num_workers" description:"Size of the evaluation worker pool; defaults to the number of CPUs"`
	}
	Parse struct {
		RootMarker string `long:"root_marker" description:"Marker file name identifying the repo root"`
	}
}

// DefaultConfiguration returns a Configuration populated with this module's
// defaults, before any config file is read.
func DefaultConfiguration() *Configuration {
	c := new(Configuration)
	c.Build.NumWorkers = runtime.NumCPU()
	c.Parse.RootMarker = RootMarker
	return c
}

func readConfigFile(config *Configuration, filename string) error {
	log.Debug("reading config from %s", filename)
	if err := gcfg.ReadFileInto(config, filename); err != nil && os.IsNotExist(err) {
		return nil
	} else if gcfg.FatalOnly(err) != nil {
		return err
	} else if err != nil {
		log.Warning("non-fatal error in config file %s: %s", filename, err)
	}
	return nil
}

// ReadConfigFiles reads each of filenames in order, merging into a single
// Configuration seeded with DefaultConfiguration. It is not an error for any
// individual file to be missing.
func ReadConfigFiles(filenames []string) (*Configuration, error) {
	config := DefaultConfiguration()
	for _, filename := range filenames {
		if err := readConfigFile(config, filename); err != nil {
			return config, err
		}
	}
	return config, nil
}

// FlagsParser exposes the Configuration's fields as a go-flags parser, which
// binds command-line overrides onto the same struct tags used for the config
// file. cmd/bgraph does not call it.
func FlagsParser(config *Configuration) *flags.Parser {
	return flags.NewParser(config, flags.Default)
}
