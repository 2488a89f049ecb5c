package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tohu/internal/blueprint"
	"github.com/roach88/tohu/internal/gen"
	"github.com/roach88/tohu/internal/testutil"
)

func load(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_OrderBasicsPasses(t *testing.T) {
	result, err := Run(load(t, "order_basics"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, uint64(42), result.Seed, "seed comes from the blueprint")
	assert.Equal(t, 50, result.Num)
	assert.Equal(t, 50, result.Items.Len())
	assert.Equal(t, testutil.DefaultRunID, result.RunID)
	assert.Len(t, result.Fingerprint, 64)
}

func TestRun_IsReproducible(t *testing.T) {
	s := load(t, "order_basics")
	a, err := Run(s)
	require.NoError(t, err)
	b, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
}

func TestRun_PinnedFingerprint(t *testing.T) {
	s := load(t, "order_basics")
	first, err := Run(s)
	require.NoError(t, err)

	s.Expect.Fingerprint = first.Fingerprint
	again, err := Run(s)
	require.NoError(t, err)
	assert.True(t, again.Pass)

	s.Expect.Fingerprint = strings.Repeat("0", 64)
	wrong, err := Run(s)
	require.NoError(t, err)
	assert.False(t, wrong.Pass)
	assert.Contains(t, wrong.Errors[0], "expected fingerprint")
}

func TestRun_ReportsFailures(t *testing.T) {
	result, err := Run(load(t, "order_too_strict"))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, "expected 49 items, got 50", result.Errors[0])
	assert.Contains(t, result.Errors[1], "Assertion failed: range on quantity")
	assert.Contains(t, result.Errors[1], "numbers within [-inf, 3]")
	assert.Contains(t, result.Errors[2], "Assertion failed: one_of on status")
	assert.Contains(t, result.Errors[2], "one of \"new\"")
}

func TestRun_BlueprintErrors(t *testing.T) {
	dir := t.TempDir()
	bp := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bp, []byte("name: X\nfields: [{name: a, type: apply, func: triple, inputs: [{type: uuid}]}]\n"), 0o644))

	s := &Scenario{Name: "bad", Description: "d", Blueprint: bp, Expect: Expect{Deterministic: true}}
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile blueprint")

	triple := func(args []any, _ map[string]any) (any, error) { return strings.Repeat(args[0].(string), 3), nil }
	result, err := Run(s, WithBlueprintOptions(blueprint.WithFuncs(map[string]gen.Func{"triple": triple})))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithGolden_Counter(t *testing.T) {
	result, err := RunWithGolden(t, load(t, "counter_golden"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "counter-0001", result.RunID)
}

func TestSnapshot(t *testing.T) {
	result, err := Run(load(t, "counter_golden"))
	require.NoError(t, err)

	snap, err := Snapshot("counter_golden", result)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(snap), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "# seed: 5", lines[1])
	assert.Equal(t, `{"double":2,"id":1,"kind":"widget","label":"item-001"}`, lines[3])
}
