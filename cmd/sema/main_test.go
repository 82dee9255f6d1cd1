package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainSrc = `struct Point { x: i32, y: i32 }

impl Point {
    pub fn shift(&mut self, dx: i32, dy: i32) {}
}

fn main() {
    let p = Point { x: 1, y: 2 };
    p.shift(1, 1);
}
`

// execute runs the CLI with args, which are preceded by flags pointing at
// an empty config and disabling std lookups. Commands share the process
// default logger, so these tests do not run in parallel.
func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "sema.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("cache_size = 16\n"), 0o644))

	a := &app{}
	cmd := a.rootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfg, "--rust-src-path="}, args...))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeMain(t *testing.T) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "main.rs")
	require.NoError(t, os.WriteFile(file, []byte(mainSrc), 0o644))
	return file
}

// envelope decodes a JSON CLIResult whose results are matches.
type envelope struct {
	Command string          `json:"command"`
	Results json.RawMessage `json:"results"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, out string) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env
}

// =============================================================================
// Commands
// =============================================================================

func TestComplete_JSON(t *testing.T) {
	file := writeMain(t)
	out, _, err := execute(t, "", "complete", file, "9", "6")
	require.NoError(t, err)

	env := decode(t, out)
	assert.Equal(t, "complete", env.Command)
	var ms []CLIMatch
	require.NoError(t, json.Unmarshal(env.Results, &ms))
	require.Len(t, ms, 3)
	assert.Equal(t, "shift", ms[0].Name)
	assert.Equal(t, 4, ms[0].Line)
	assert.Equal(t, "x", ms[1].Name)
}

func TestComplete_TextWithSnippets(t *testing.T) {
	file := writeMain(t)
	out, _, err := execute(t, "", "--format", "text", "--snippets", "complete", file, "9", "6")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[1], "shift(${1:dx: i32}, ${2:dy: i32})")
}

func TestFindDefinition(t *testing.T) {
	file := writeMain(t)
	out, _, err := execute(t, "", "find-definition", file, "9", "7")
	require.NoError(t, err)

	var m CLIMatch
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &m))
	assert.Equal(t, "shift", m.Name)
	assert.Equal(t, file, m.File)
	assert.Equal(t, 4, m.Line)
	assert.Equal(t, 11, m.Col)
}

func TestFindDefinition_NotFound(t *testing.T) {
	file := writeMain(t)
	out, _, err := execute(t, "", "find-definition", file, "1", "0")
	require.NoError(t, err)
	assert.Equal(t, "null", string(decode(t, out).Results))
}

func TestTypeOf_Text(t *testing.T) {
	file := writeMain(t)
	out, _, err := execute(t, "", "--format", "text", "type-of", file, "9", "5")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Point", lines[0])
	assert.Equal(t, file+":1:7", lines[1])
}

func TestCompleteFQN_SiblingModules(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geometry.rs"), []byte("pub struct Shape;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.rs"), []byte("mod geometry;\n"), 0o644))

	out, _, err := execute(t, "", "complete-fqn", "geometry::Sh", filepath.Join(dir, "main.rs"))
	require.NoError(t, err)
	var ms []CLIMatch
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &ms))
	require.Len(t, ms, 1)
	assert.Equal(t, "Shape", ms[0].Name)
}

func TestSrcPath(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "std", "src"), 0o755))

	out, _, err := execute(t, "", "--format", "text", "--rust-src-path", src, "src-path")
	require.NoError(t, err)
	assert.Equal(t, src+"\n", out)

	out, _, err = execute(t, "", "--rust-src-path", t.TempDir(), "src-path")
	require.Error(t, err)
	assert.Contains(t, decode(t, out).Error, "not a rust source tree")
}

func TestBatch(t *testing.T) {
	file := writeMain(t)
	stdin := strings.Join([]string{
		"# kind file line col",
		"find-definition " + file + " 9 7",
		"",
		"type-of " + file + " 9 5",
	}, "\n")
	out, _, err := execute(t, stdin, "batch")
	require.NoError(t, err)

	var rs []CLIBatchResult
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &rs))
	require.Len(t, rs, 2)
	require.Len(t, rs[0].Matches, 1)
	assert.Equal(t, "shift", rs[0].Matches[0].Name)
	require.NotNil(t, rs[1].Type)
	assert.Equal(t, "Point", rs[1].Type.Type)
}

func TestBatch_BadInput(t *testing.T) {
	_, stderr, err := execute(t, "complete only-two\n", "--format", "text", "batch")
	require.Error(t, err)
	assert.Contains(t, stderr, "line 1")
}

func TestMetricsFlag(t *testing.T) {
	file := writeMain(t)
	_, stderr, err := execute(t, "", "--metrics", "complete", file, "9", "6")
	require.NoError(t, err)
	assert.Contains(t, stderr, "sema_query_seconds")
}

// =============================================================================
// Argument validation
// =============================================================================

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "", "--format", "xml", "src-path")
	assert.ErrorContains(t, err, `invalid format "xml"`)
}

func TestParsePosition(t *testing.T) {
	t.Parallel()
	_, c, err := parsePosition([]string{"/x/main.rs", "3", "4"})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Row)
	assert.Equal(t, 4, c.Col)

	_, _, err = parsePosition([]string{"/x/main.rs", "0", "4"})
	assert.ErrorContains(t, err, "lines start at 1")

	_, _, err = parsePosition([]string{"/x/main.rs", "1", "-2"})
	assert.ErrorContains(t, err, "non-negative")

	_, _, err = parsePosition([]string{"/x/main.rs", "one", "2"})
	assert.ErrorContains(t, err, "invalid line")
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.Error(t, validateFormat("yaml"))
}
