// Command bgraph evaluates a set of build-description files and emits
// per-target build files plus a top-level manifest, per the item-graph
// model src/core, src/lang, src/loader, src/toolchain, src/target and
// src/engine together implement.
package main

import (
	"path/filepath"

	cli "github.com/meshbuild/bg/src/cli"
	"github.com/meshbuild/bg/src/cli/logging"
	"github.com/meshbuild/bg/src/core"
	"github.com/meshbuild/bg/src/engine"
	"github.com/meshbuild/bg/src/fs"
)

var log = logging.Log

var opts struct {
	Usage string `usage:"bgraph evaluates build-description files into per-target build files and a top-level manifest."`

	BuildFlags struct {
		RepoRoot      string `short:"r" long:"repo_root" description:"Root of the repo to evaluate. Defaults to walking up from the working directory for the marker file."`
		DefaultConfig string `long:"default_config" default:"BUILD_CONFIG" description:"Root-relative path of the default toolchain's base build config."`
	} `group:"Options controlling what to evaluate"`

	OutputFlags struct {
		Verbosity    cli.Verbosity `short:"v" long:"verbosity" description:"Verbosity of output (error, warning, notice, info, debug)" default:"warning"`
		LogFile      string        `long:"log_file" description:"File to echo full logging output to"`
		LogFileLevel cli.Verbosity `long:"log_file_level" description:"Log level for file output" default:"debug"`
	} `group:"Options controlling output & logging"`

	Args struct {
		Files []string `positional-arg-name:"files" description:"Build-description files to evaluate"`
	} `positional-args:"true" required:"true"`
}

func main() {
	cli.ParseFlagsOrDie("bgraph", "1.0.0", &opts)
	cli.InitLogging(opts.OutputFlags.Verbosity)
	if opts.OutputFlags.LogFile != "" {
		cli.InitFileLogging(opts.OutputFlags.LogFile, opts.OutputFlags.LogFileLevel)
	}

	root := opts.BuildFlags.RepoRoot
	if root == "" {
		found, ok := core.FindRepoRoot(core.RootMarker)
		if !ok {
			log.Fatalf("Couldn't locate the repo root; no %s found above the working directory.", core.RootMarker)
		}
		root = found
	}

	config, err := core.ReadConfigFiles([]string{
		filepath.Join(root, core.ConfigFileName),
		filepath.Join(root, core.LocalConfigFileName),
	})
	if err != nil {
		log.Fatalf("Error reading config: %s", err)
	}

	rootFS := fs.NewRealFS(root)
	e := engine.NewEngine(config, rootFS, root)

	if err := e.BootstrapDefault(opts.BuildFlags.DefaultConfig); err != nil {
		log.Fatalf("Error bootstrapping default toolchain: %s", err)
	}

	if err := e.Run(opts.Args.Files); err != nil {
		log.Fatalf("Error evaluating: %s", err)
	}

	if err := e.FlushWrites(rootFS); err != nil {
		log.Fatalf("Error writing output: %s", err)
	}

	manifest := e.BuildManifest(rootFS)
	data, err := manifest.MarshalJSON()
	if err != nil {
		log.Fatalf("Error rendering manifest: %s", err)
	}
	if err := rootFS.WriteFile("MANIFEST", data); err != nil {
		log.Fatalf("Error writing manifest: %s", err)
	}
}
