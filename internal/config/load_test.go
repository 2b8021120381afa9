package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
)

func TestParseFullDocument(t *testing.T) {
	doc := `
logging:
  level: debug
  format: json
metrics:
  listen: ":9090"
notify:
  nats_url: nats://localhost:4222
tools:
  sass: /usr/local/bin/sass
pipelines:
  - src: client
    dist: public
    styles:
      includes: [node_modules, vendor]
    browserify:
      transforms:
        - hbsfy
        - name: aliasify
          options:
            global: true
        - hbsfy
  - task_prefix: admin-
    src: admin
    clean:
      skip: true
`
	f, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, LogLevelDebug, f.Logging.Level)
	assert.Equal(t, LogFormatJSON, f.Logging.Format)
	assert.Equal(t, ":9090", f.Metrics.Listen)
	assert.Equal(t, "nats://localhost:4222", f.Notify.NATSURL)
	assert.Equal(t, "quicksip.pipeline", f.Notify.Subject)
	assert.Equal(t, "/usr/local/bin/sass", f.Tools.Sass)
	assert.Equal(t, "browserify", f.Tools.Browserify)

	cfgs, err := f.Resolve()
	require.NoError(t, err)
	require.Len(t, cfgs, 2)

	main := cfgs[0]
	assert.Equal(t, "public", main.Browserify.Dist)
	assert.Equal(t, []string{"node_modules", "vendor"}, main.Styles.Includes)
	assert.Equal(t, []TransformSpec{
		Named("hbsfy"),
		Configured("aliasify", map[string]any{"global": true}),
		Named("hbsfy"),
	}, main.Browserify.Transforms)

	admin, err := Select(cfgs, "admin-")
	require.NoError(t, err)
	assert.True(t, admin.Clean.Skip)
	assert.Equal(t, "admin/app.scss", admin.Styles.Root)
}

func TestParseEmptyDocumentYieldsSinglePipeline(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, LogFormatConsole, f.Logging.Format)
	assert.Equal(t, LogLevelInfo, f.Logging.Level)

	cfgs, err := f.Resolve()
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Equal(t, "dist", cfgs[0].Dist)
}

func TestParseRejectsMalformedSections(t *testing.T) {
	tests := map[string]string{
		"scalar section":   "pipelines:\n  - clean: yes-please\n",
		"sequence section": "pipelines:\n  - copy: [a, b]\n",
		"unknown key":      "pipelines:\n  - clen: {skip: true}\n",
		"empty entry":      "pipelines:\n  -\n",
		"bad transform":    "pipelines:\n  - browserify: {transforms: [[a]]}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
		})
	}
}

func TestResolveMergesDuplicatePrefixes(t *testing.T) {
	doc := `
pipelines:
  - dist: first
    clean: {dist: keep}
  - dist: second
`
	f, err := Parse([]byte(doc))
	require.NoError(t, err)
	cfgs, err := f.Resolve()
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Equal(t, "second", cfgs[0].Copy.Dist)
	assert.Equal(t, "keep", cfgs[0].Clean.Dist)
}

func TestFileResolveReportsPipelineIndex(t *testing.T) {
	f, err := Parse([]byte("pipelines:\n  - {}\n  - task_prefix: x\n    src: ''\n"))
	require.NoError(t, err)
	_, err = f.Resolve()
	require.Error(t, err)
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	idx, _ := ce.Context().Get("pipeline")
	assert.Equal(t, 1, idx)
}

func TestSelectUnknownPrefix(t *testing.T) {
	cfg := resolve(t, UserConfig{})
	_, err := Select([]*Config{cfg}, "nope")
	require.Error(t, err)
}

func TestLoadExpandsEnvAndReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("QS_TEST_DIST=from-dotenv\n"), 0o600))
	path := filepath.Join(dir, "quicksip.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipelines:\n  - dist: ${QS_TEST_DIST}\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("QS_TEST_DIST") })

	f, err := Load(path)
	require.NoError(t, err)
	cfgs, err := f.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfgs[0].Dist)
}

func TestLoadDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QS_TEST_SRC", "from-process")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("QS_TEST_SRC=from-dotenv\n"), 0o600))
	path := filepath.Join(dir, "quicksip.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipelines:\n  - src: ${QS_TEST_SRC}\n"), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	cfgs, err := f.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "from-process", cfgs[0].Src)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestInitWritesLoadableExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quicksip.yaml")
	require.NoError(t, Init(path, false))

	err := Init(path, false)
	require.Error(t, err)
	require.NoError(t, Init(path, true))

	f, err := Load(path)
	require.NoError(t, err)
	cfgs, err := f.Resolve()
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Equal(t, []TransformSpec{
		Named("hbsfy"),
		Configured("aliasify", map[string]any{"global": true}),
	}, cfgs[0].Browserify.Transforms)
}

func TestTransformYAMLShapes(t *testing.T) {
	in := []TransformSpec{Named("hbsfy"), Configured("aliasify", map[string]any{"global": true}), Configured("envify", nil)}
	data, err := yaml.Marshal(in)
	require.NoError(t, err)

	var out []TransformSpec
	require.NoError(t, yaml.Unmarshal(data, &out))
	require.Len(t, out, 3)
	assert.False(t, out[0].IsConfigured())
	assert.True(t, out[1].IsConfigured())
	assert.True(t, out[2].IsConfigured(), "an empty options mapping still marks the configured form")
	assert.Equal(t, in[1], out[1])
}
