package engine

import (
	"encoding/hex"
	"encoding/json"

	"github.com/zeebo/blake3"

	"github.com/meshbuild/bg/src/core"
)

// Manifest is the top-level manifest view spec.md §4.7/§6 describes: the
// settings a run evaluated under, the default toolchain's target labels, and
// the accumulated gen-dependency set with a content digest per path so a
// downstream build system can tell when a gen-dependency's content (not just
// its existence) has changed. Grounded on the teacher's core.StampFile
// json.MarshalIndent shape.
type Manifest struct {
	Settings                manifestSettings     `json:"settings"`
	DefaultToolchain        string               `json:"default_toolchain,omitempty"`
	DefaultToolchainTargets []string             `json:"default_toolchain_targets"`
	GenDependencies         []genDependencyEntry `json:"gen_dependencies"`
}

type manifestSettings struct {
	Greedy           bool   `json:"greedy"`
	DefaultToolchain string `json:"default_toolchain_flag,omitempty"`
	NumWorkers       int    `json:"num_workers"`
	RootMarker       string `json:"root_marker"`
}

type genDependencyEntry struct {
	Path   string `json:"path"`
	Digest string `json:"digest,omitempty"`
}

// BuildManifest assembles the manifest described above. fs is used to read
// each gen-dependency's content for digesting; a path that can no longer be
// read (e.g. it was removed since being registered) is still listed, just
// without a digest.
func (e *Engine) BuildManifest(fs core.ReadOnlyFS) *Manifest {
	m := &Manifest{
		Settings: manifestSettings{
			Greedy:           e.config.Build.Greedy,
			DefaultToolchain: e.config.Build.DefaultToolchain,
			NumWorkers:       e.config.Build.NumWorkers,
			RootMarker:       e.config.Parse.RootMarker,
		},
		DefaultToolchainTargets: []string{},
		GenDependencies:         []genDependencyEntry{},
	}
	if tc, ok := e.toolchains.DefaultToolchain(); ok {
		m.DefaultToolchain = tc.String()
		for _, l := range e.graph.Labels() {
			n := e.graph.GetOrNull(l)
			if n == nil || n.Item.Kind != core.ItemTarget {
				continue
			}
			if l.ToolchainDir != tc.Dir || l.ToolchainName != tc.Name {
				continue
			}
			m.DefaultToolchainTargets = append(m.DefaultToolchainTargets, l.String())
		}
	}
	for _, p := range e.sched.GenDependencies() {
		entry := genDependencyEntry{Path: p}
		if data, err := fs.ReadFile(p); err == nil {
			sum := blake3.Sum256(data)
			entry.Digest = hex.EncodeToString(sum[:])
		} else {
			log.Warning("gen-dependency %s unreadable when building manifest: %s", p, err)
		}
		m.GenDependencies = append(m.GenDependencies, entry)
	}
	return m
}

// MarshalJSON renders m the way core.StampFile renders its stamp info:
// indented, stable field order.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	type alias Manifest
	return json.MarshalIndent((*alias)(m), "", "  ")
}
