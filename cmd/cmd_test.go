package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/imbui/internal/scene"
)

const greetScene = `
name: greet
root: page
templates:
  page: ["<p class=", ">", "</p>"]
  unused: ["<b>", "</b>"]
frames:
  - values: [a, hello]
  - values: [b, hello]
`

func writeScene(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "greet.yml")
	require.NoError(t, os.WriteFile(path, []byte(greetScene), 0o644))
	return path
}

func testCommand(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	renderFrame = -1
	inspectRaw = false

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	return cmd, &buf
}

func TestRenderText(t *testing.T) {
	cmd, out := testCommand(t)

	require.NoError(t, runRender(cmd, []string{writeScene(t)}))

	got := out.String()
	assert.Contains(t, got, "-- frame 0\n")
	assert.Contains(t, got, "-- frame 1\n")
	assert.Contains(t, got, `class="a"`)
	assert.Contains(t, got, `class="b"`)
	assert.NotContains(t, got, "mutations", "stats are off by default")
}

func TestRenderJSONWithStats(t *testing.T) {
	cmd, out := testCommand(t)
	viper.Set("render.format", "json")
	viper.Set("render.stats", true)

	require.NoError(t, runRender(cmd, []string{writeScene(t)}))

	var frames []scene.FrameResult
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var f scene.FrameResult
		require.NoError(t, json.Unmarshal(sc.Bytes(), &f))
		frames = append(frames, f)
	}
	require.Len(t, frames, 2)
	assert.Contains(t, frames[1].HTML, "hello")

	if diff := cmp.Diff(scene.Stats{Attributes: 1}, frames[1].Stats); diff != "" {
		t.Errorf("second frame stats mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderSingleFrame(t *testing.T) {
	cmd, out := testCommand(t)
	renderFrame = 1

	require.NoError(t, runRender(cmd, []string{writeScene(t)}))

	assert.NotContains(t, out.String(), "-- frame 0")
	assert.Contains(t, out.String(), "-- frame 1")
}

func TestRenderFrameOutOfRange(t *testing.T) {
	cmd, _ := testCommand(t)
	renderFrame = 5

	err := runRender(cmd, []string{writeScene(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestRenderInvalidConfig(t *testing.T) {
	cmd, _ := testCommand(t)
	viper.Set("render.format", "xml")

	err := runRender(cmd, []string{writeScene(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestInspect(t *testing.T) {
	cmd, out := testCommand(t)

	require.NoError(t, runInspect(cmd, []string{writeScene(t)}))

	got := out.String()
	assert.Contains(t, got, "Template page (root)")
	assert.Contains(t, got, "Template unused\n")
	assert.Contains(t, got, "Attr")
	assert.Contains(t, got, "class")
	assert.Contains(t, got, "Range")
	assert.Less(t, strings.Index(got, "Template page"), strings.Index(got, "Template unused"))
}

func TestInspectRaw(t *testing.T) {
	cmd, out := testCommand(t)
	inspectRaw = true

	require.NoError(t, runInspect(cmd, []string{writeScene(t), "page"}))

	assert.Contains(t, out.String(), "Indices:")
	assert.NotContains(t, out.String(), "Template unused")
}

func TestInspectUnknownTemplate(t *testing.T) {
	cmd, _ := testCommand(t)

	err := runInspect(cmd, []string{writeScene(t), "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `template "nope" not found`)
	assert.Contains(t, err.Error(), "page, unused")
}

func TestVersionCommand(t *testing.T) {
	cmd, out := testCommand(t)
	cmd.Flags().Bool("detailed", false, "")
	defer func() { versionFormat, versionShort = "text", false }()

	versionFormat = "json"
	require.NoError(t, runVersionCommand(cmd, nil))
	var info map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "is_release")

	out.Reset()
	versionFormat = "text"
	require.NoError(t, runVersionCommand(cmd, nil))
	assert.True(t, strings.HasPrefix(out.String(), "imbui "))

	versionFormat = "yaml"
	assert.Error(t, runVersionCommand(cmd, nil))
}
