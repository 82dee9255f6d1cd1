package sema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rust-lang/rls-sub001/internal/core"
)

// Golden test format. Lines are 1-based and columns 0-based; files are
// relative to the fixture's src directory.
type goldenFile struct {
	Definitions []goldenDef        `json:"definitions,omitempty"`
	Completions []goldenCompletion `json:"completions,omitempty"`
}

type goldenLoc struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

type goldenDef struct {
	At   goldenLoc `json:"at"`
	Name string    `json:"name"`
	File string    `json:"file"`
	Line int       `json:"line"`
	Col  int       `json:"col"`
}

type goldenCompletion struct {
	At    goldenLoc `json:"at"`
	Names []string  `json:"names"`
}

// TestGolden walks testdata/rust/ and checks the definitions and
// completions each fixture's golden.json expects.
func TestGolden(t *testing.T) {
	root := filepath.Join("testdata", "rust")
	levels, err := os.ReadDir(root)
	if err != nil {
		t.Skip("no testdata directory found")
	}

	for _, level := range levels {
		if !level.IsDir() {
			continue
		}
		testDir := filepath.Join(root, level.Name())
		goldenPath := filepath.Join(testDir, "golden.json")
		srcDir := filepath.Join(testDir, "src")

		if _, err := os.Stat(goldenPath); err != nil {
			continue
		}
		if _, err := os.Stat(srcDir); err != nil {
			continue
		}

		t.Run(level.Name(), func(t *testing.T) {
			t.Parallel()
			runGoldenTest(t, srcDir, goldenPath)
		})
	}
}

func runGoldenTest(t *testing.T, srcDir, goldenPath string) {
	t.Helper()

	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(goldenData, &golden))

	srcDir, err = filepath.Abs(srcDir)
	require.NoError(t, err)
	e := newTestEngine(t, WithProject(core.NoProject{}))
	s := e.NewSession()

	for _, want := range golden.Definitions {
		at := want.At
		m, ok := s.DefinitionAt(filepath.Join(srcDir, at.File), Coordinate{Row: at.Line, Col: at.Col})
		if !assert.True(t, ok, "no definition at %s:%d:%d", at.File, at.Line, at.Col) {
			continue
		}
		assert.Equal(t, want.Name, m.Name, "definition at %s:%d:%d", at.File, at.Line, at.Col)
		assert.Equal(t, filepath.Join(srcDir, want.File), m.File)
		if assert.NotNil(t, m.Coords) {
			assert.Equal(t, Coordinate{Row: want.Line, Col: want.Col}, *m.Coords,
				"definition of %s", want.Name)
		}
	}

	for _, want := range golden.Completions {
		at := want.At
		got := s.CompleteAt(filepath.Join(srcDir, at.File), Coordinate{Row: at.Line, Col: at.Col})
		names := make([]string, len(got))
		for i, m := range got {
			names[i] = m.Name
		}
		assert.Equal(t, want.Names, names, "completions at %s:%d:%d", at.File, at.Line, at.Col)
	}
}
