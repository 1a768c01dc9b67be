package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshbuild/bg/src/core"
)

type fakeFS struct {
	files map[string][]byte
}

func (f *fakeFS) ReadFile(path string) ([]byte, error) {
	if data, ok := f.files[path]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no such file %s", path)
}

func (f *fakeFS) DirExists(path string) bool { return false }

type fakeWriter struct {
	written map[string]string
}

func (w *fakeWriter) WriteFile(path string, data []byte) error {
	if w.written == nil {
		w.written = map[string]string{}
	}
	w.written[path] = string(data)
	return nil
}

const defaultConfig = `set_default_toolchain("// :: gcc")
`

const gccToolchain = `toolchain("gcc") {
}
`

func newTestEngine(files map[string][]byte) *Engine {
	config := core.DefaultConfiguration()
	config.Build.NumWorkers = 2
	return NewEngine(config, &fakeFS{files: files}, "")
}

func defaultToolchainLabel() core.Label {
	return core.NewLabel("//", "gcc")
}

func TestBootstrapDefaultRequiresSetDefaultToolchain(t *testing.T) {
	e := newTestEngine(map[string][]byte{
		"BUILD_CONFIG": []byte(`print("bootstrapping")
`),
	})
	err := e.BootstrapDefault("BUILD_CONFIG")
	assert.Error(t, err)
}

func TestRunResolvesTargetAndConfig(t *testing.T) {
	e := newTestEngine(map[string][]byte{
		"BUILD_CONFIG": []byte(defaultConfig),
		"BUILD": []byte(gccToolchain + `opts = config("opts") {
    defines = ["FOO"]
}
executable("bin") {
    sources = ["main.cc"]
    configs = [opts]
}
`),
	})
	require.NoError(t, e.BootstrapDefault("BUILD_CONFIG"))
	require.NoError(t, e.Run([]string{"BUILD"}))

	tc := defaultToolchainLabel()
	targetLabel := core.NewLabel("//", "bin").WithToolchain(tc.Dir, tc.Name)
	n := e.Graph().GetOrNull(targetLabel)
	require.NotNil(t, n)
	assert.Equal(t, core.ItemTarget, n.Item.Kind)
	assert.Equal(t, []string{"main.cc"}, n.Item.Target.Sources)
	require.Len(t, n.Item.Target.Configs, 1)

	configLabel := core.NewLabel("//", "opts").WithToolchain(tc.Dir, tc.Name)
	assert.Equal(t, configLabel, n.Item.Target.Configs[0])

	cn := e.Graph().GetOrNull(configLabel)
	require.NotNil(t, cn)
	assert.Equal(t, core.ItemConfig, cn.Item.Kind)
	assert.Equal(t, []string{"FOO"}, cn.Item.Config.Defines)
}

func TestRunDetectsCrossFileCycle(t *testing.T) {
	e := newTestEngine(map[string][]byte{
		"BUILD_CONFIG": []byte(defaultConfig),
		"BUILD":        []byte(gccToolchain),
		"a/BUILD": []byte(`executable("a") {
    sources = []
    deps = ["//b :: b (// :: gcc)"]
}
`),
		"b/BUILD": []byte(`executable("b") {
    sources = []
    deps = ["//a :: a (// :: gcc)"]
}
`),
	})
	require.NoError(t, e.BootstrapDefault("BUILD_CONFIG"))
	err := e.Run([]string{"BUILD", "a/BUILD", "b/BUILD"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestImportSharesVariablesAcrossFiles(t *testing.T) {
	e := newTestEngine(map[string][]byte{
		"BUILD_CONFIG": []byte(defaultConfig),
		"common.gni": []byte(`shared_value = "hello"
`),
		"BUILD": []byte(`import("common.gni")
write_file("out.txt", shared_value)
`),
	})
	require.NoError(t, e.BootstrapDefault("BUILD_CONFIG"))
	require.NoError(t, e.Run([]string{"BUILD"}))

	w := &fakeWriter{}
	require.NoError(t, e.FlushWrites(w))
	assert.Equal(t, "hello", w.written["out.txt"])
}

func TestBuildManifestIncludesDefaultToolchainTargetsAndGenDependencyDigest(t *testing.T) {
	files := map[string][]byte{
		"BUILD_CONFIG": []byte(defaultConfig),
		"data.txt":     []byte("payload"),
		"BUILD": []byte(gccToolchain + `read_file("data.txt")
executable("bin") {
    sources = ["main.cc"]
}
`),
	}
	e := newTestEngine(files)
	require.NoError(t, e.BootstrapDefault("BUILD_CONFIG"))
	require.NoError(t, e.Run([]string{"BUILD"}))

	m := e.BuildManifest(&fakeFS{files: files})
	tc := defaultToolchainLabel()
	targetLabel := core.NewLabel("//", "bin").WithToolchain(tc.Dir, tc.Name)
	assert.Contains(t, m.DefaultToolchainTargets, targetLabel.String())
	require.Len(t, m.GenDependencies, 1)
	assert.Equal(t, "data.txt", m.GenDependencies[0].Path)
	assert.NotEmpty(t, m.GenDependencies[0].Digest)
}

func TestRunDetectsTopLevelUnusedVariable(t *testing.T) {
	e := newTestEngine(map[string][]byte{
		"BUILD_CONFIG": []byte(defaultConfig),
		"BUILD":        []byte(gccToolchain + `unused_value = "FOO"` + "\n"),
	})
	require.NoError(t, e.BootstrapDefault("BUILD_CONFIG"))
	err := e.Run([]string{"BUILD"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"unused_value"`)
}

func TestGreedyModeMarksEveryNodeShouldGenerate(t *testing.T) {
	config := core.DefaultConfiguration()
	config.Build.NumWorkers = 2
	config.Build.Greedy = true
	e := NewEngine(config, &fakeFS{files: map[string][]byte{
		"BUILD_CONFIG": []byte(defaultConfig),
		"BUILD": []byte(gccToolchain + `executable("bin") {
    sources = ["main.cc"]
}
`),
	}}, "")
	require.NoError(t, e.BootstrapDefault("BUILD_CONFIG"))
	require.NoError(t, e.Run([]string{"BUILD"}))

	tc := defaultToolchainLabel()
	targetLabel := core.NewLabel("//", "bin").WithToolchain(tc.Dir, tc.Name)
	n := e.Graph().GetOrNull(targetLabel)
	require.NotNil(t, n)
	assert.True(t, n.ShouldGenerate)
}
