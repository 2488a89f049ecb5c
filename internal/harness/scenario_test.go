package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	bp := filepath.Join(dir, "bp.yaml")
	require.NoError(t, os.WriteFile(bp, []byte("name: XGenerator\nfields: [{name: a, type: uuid}]\n"), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/order_basics.yaml")
	require.NoError(t, err)

	assert.Equal(t, "order_basics", s.Name)
	assert.Equal(t, filepath.Join("testdata", "blueprints", "order.yaml"), s.Blueprint)
	assert.Nil(t, s.Seed)
	assert.Equal(t, 50, s.Num)
	require.NotNil(t, s.Expect.Count)
	assert.Equal(t, 50, *s.Expect.Count)
	assert.True(t, s.Expect.Deterministic)
	require.Len(t, s.Assertions, 6)
	assert.Equal(t, AssertRange, s.Assertions[0].Type)
	assert.Equal(t, 1.0, *s.Assertions[0].Min)
}

func TestLoadScenario_WithBasePath(t *testing.T) {
	s, err := LoadScenarioWithBasePath("testdata/scenarios/counter_golden.yaml", "testdata/scenarios")
	require.NoError(t, err)
	assert.Equal(t, "counter-0001", s.RunID)
	require.NotNil(t, s.Seed)
	assert.Equal(t, uint64(5), *s.Seed)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: d\nblueprint: bp.yaml\nassertion: []\n",
			want:    "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: d\nblueprint: bp.yaml\nexpect: {count: 1}\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nblueprint: bp.yaml\nexpect: {count: 1}\n",
			want:    "description is required",
		},
		{
			name:    "missing blueprint",
			content: "name: x\ndescription: d\nexpect: {count: 1}\n",
			want:    "blueprint is required",
		},
		{
			name:    "blueprint not found",
			content: "name: x\ndescription: d\nblueprint: nope.yaml\nexpect: {count: 1}\n",
			want:    "blueprint file not found",
		},
		{
			name:    "checks nothing",
			content: "name: x\ndescription: d\nblueprint: bp.yaml\n",
			want:    "scenario checks nothing",
		},
		{
			name:    "unknown assertion type",
			content: "name: x\ndescription: d\nblueprint: bp.yaml\nassertions: [{type: median, field: a}]\n",
			want:    `unknown assertion type "median"`,
		},
		{
			name:    "range without bounds",
			content: "name: x\ndescription: d\nblueprint: bp.yaml\nassertions: [{type: range, field: a}]\n",
			want:    "min or max is required",
		},
		{
			name:    "inverted range",
			content: "name: x\ndescription: d\nblueprint: bp.yaml\nassertions: [{type: range, field: a, min: 2, max: 1}]\n",
			want:    "greater than max",
		},
		{
			name:    "bad pattern",
			content: "name: x\ndescription: d\nblueprint: bp.yaml\nassertions: [{type: pattern, field: a, pattern: '('}]\n",
			want:    "invalid pattern",
		},
		{
			name:    "one_of without values",
			content: "name: x\ndescription: d\nblueprint: bp.yaml\nassertions: [{type: one_of, field: a}]\n",
			want:    "values list is required",
		},
		{
			name:    "negative count",
			content: "name: x\ndescription: d\nblueprint: bp.yaml\nexpect: {count: -1}\n",
			want:    "expect.count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestDiscoverScenarios(t *testing.T) {
	paths, err := DiscoverScenarios([]string{"scenarios"}, "testdata")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "counter_golden.yaml"),
		filepath.Join("testdata", "scenarios", "order_basics.yaml"),
		filepath.Join("testdata", "scenarios", "order_too_strict.yaml"),
	}, paths)

	single, err := DiscoverScenarios([]string{"testdata/scenarios/order_basics.yaml"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"testdata/scenarios/order_basics.yaml"}, single)

	_, err = DiscoverScenarios([]string{"missing.yaml"}, "testdata")
	var notFound *ScenarioNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, filepath.Join("testdata", "missing.yaml"), notFound.ResolvedPath)
	assert.Contains(t, err.Error(), `scenario "missing.yaml" does not exist`)
}
