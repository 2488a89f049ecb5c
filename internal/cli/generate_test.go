package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tohu/internal/sink"
	"github.com/roach88/tohu/internal/store"
)

const (
	counterYAML = "testdata/blueprints/counter.yaml"
	counterCUE  = "testdata/blueprints/counter.cue"
	orderYAML   = "testdata/blueprints/order.yaml"
	brokenYAML  = "testdata/blueprints/broken.yaml"
)

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestGenerate_CSVGolden(t *testing.T) {
	out, _, err := execute(t, "generate", counterYAML, "--num", "3", "--to", "csv")
	require.NoError(t, err)
	golden(t).Assert(t, "generate_counter_csv", []byte(out))
}

func TestGenerate_TextGolden(t *testing.T) {
	out, _, err := execute(t, "generate", counterYAML, "--num", "3", "--to", "text")
	require.NoError(t, err)
	golden(t).Assert(t, "generate_counter_text", []byte(out))
}

func TestGenerate_CUEMatchesYAML(t *testing.T) {
	fromYAML, _, err := execute(t, "generate", counterYAML, "--num", "4")
	require.NoError(t, err)
	fromCUE, _, err := execute(t, "generate", counterCUE, "--num", "4")
	require.NoError(t, err)
	assert.Equal(t, fromYAML, fromCUE)
}

func TestGenerate_JSONLinesUsesBlueprintDefaults(t *testing.T) {
	out, stderr, err := execute(t, "generate", orderYAML)
	require.NoError(t, err)
	assert.Empty(t, stderr)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5, "blueprint num")
	for i, line := range lines {
		var row map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &row))
		assert.Equal(t, float64(1000+i), row["order_id"])
		assert.Equal(t, row["quantity"].(float64)*10, row["total"])
		assert.Contains(t, []any{"new", "paid", "shipped"}, row["status"])
	}
}

func TestGenerate_SeedControlsOutput(t *testing.T) {
	a, _, err := execute(t, "generate", orderYAML, "--seed", "7", "-n", "20")
	require.NoError(t, err)
	b, _, err := execute(t, "generate", orderYAML, "--seed", "7", "-n", "20")
	require.NoError(t, err)
	c, _, err := execute(t, "generate", orderYAML, "--seed", "8", "-n", "20")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	defaultSeed, _, err := execute(t, "generate", orderYAML, "-n", "20")
	require.NoError(t, err)
	blueprintSeed, _, err := execute(t, "generate", orderYAML, "--seed", "42", "-n", "20")
	require.NoError(t, err)
	assert.Equal(t, blueprintSeed, defaultSeed)
}

func TestGenerate_FieldSelection(t *testing.T) {
	out, _, err := execute(t, "generate", counterYAML, "-n", "2", "--to", "csv", "--fields", "id,name=label", "--sep", ";", "--header-prefix", "c_")
	require.NoError(t, err)
	assert.Equal(t, "c_id;c_name\n1;item-001\n2;item-002\n", out)
}

func TestGenerate_FileOutputWithJSONSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.csv")

	out, _, err := execute(t, "--format", "json", "generate", counterYAML, "-n", "3", "--to", "csv", "-o", path)
	require.NoError(t, err)

	resp := decode(t, out)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "CounterGenerator", data["blueprint"])
	assert.Equal(t, float64(3), data["items"])
	assert.Equal(t, "csv", data["sink"])
	assert.NotEmpty(t, data["fingerprint"])

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, float64(len(content)), data["bytes"])
	golden(t).Assert(t, "generate_counter_csv", content)
}

func TestGenerate_TextSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.jsonl")

	out, _, err := execute(t, "generate", counterYAML, "-n", "1200", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Generated 1,200 CounterGenerator item(s) with seed 0 -> "+path+" (jsonl)")
	assert.Contains(t, out, "fingerprint: ")
}

func TestGenerate_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")

	_, _, err := execute(t, "generate", counterYAML, "-n", "3", "--to", "sqlite", "-o", path)
	require.NoError(t, err)
	_, _, err = execute(t, "generate", counterYAML, "-n", "3", "--to", "sqlite", "-o", path)
	require.Error(t, err, "table exists and if-exists is fail")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	_, _, err = execute(t, "generate", counterYAML, "-n", "2", "--to", "sqlite", "-o", path, "--if-exists", "append")
	require.NoError(t, err)

	db, err := sink.OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "Counter"`).Scan(&n))
	assert.Equal(t, 5, n)
	var label string
	require.NoError(t, db.QueryRow(`SELECT label FROM "Counter" WHERE id = 3`).Scan(&label))
	assert.Equal(t, "item-003", label)
}

func TestGenerate_Bolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bolt")

	_, _, err := execute(t, "generate", counterYAML, "-n", "3", "--to", "bolt", "-o", path, "--table", "counters")
	require.NoError(t, err)

	db, err := sink.OpenBolt(path)
	require.NoError(t, err)
	defer db.Close()
	rows, err := sink.ReadBolt(db, "counters")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "item-002", rows[1]["label"])
}

func TestGenerate_Ledger(t *testing.T) {
	dir := t.TempDir()
	ledger := filepath.Join(dir, "runs.db")

	out, _, err := execute(t, "--format", "json", "generate", orderYAML, "-n", "25", "-o", filepath.Join(dir, "orders.jsonl"), "--ledger", ledger)
	require.NoError(t, err)
	data := decode(t, out).Data.(map[string]any)
	require.NotEmpty(t, data["run_id"])

	st, err := store.Open(ledger)
	require.NoError(t, err)
	defer st.Close()
	run, err := st.GetRun(context.Background(), data["run_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, "OrderGenerator", run.Blueprint)
	assert.Equal(t, uint64(42), run.Seed)
	assert.Equal(t, 25, run.Num)
	assert.Equal(t, data["fingerprint"], run.Fingerprint)
	assert.Equal(t, store.FormatYAML, run.Format)
}

func TestGenerate_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		args     []string
		exitCode int
		contains []string
	}{
		{"missing blueprint", []string{"generate", filepath.Join(dir, "nope.yaml")}, ExitCommandError, []string{"E005"}},
		{"invalid blueprint", []string{"generate", brokenYAML}, ExitFailure, []string{"E204", "E202", "fields.b", "fields.c"}},
		{"unknown sink", []string{"generate", counterYAML, "--to", "parquet"}, ExitCommandError, []string{"E002", "parquet"}},
		{"sqlite without output", []string{"generate", counterYAML, "--to", "sqlite"}, ExitCommandError, []string{"requires --output"}},
		{"negative num", []string{"generate", counterYAML, "--num", "-1"}, ExitCommandError, []string{"must not be negative"}},
		{"bad fields", []string{"generate", counterYAML, "--fields", "=label"}, ExitCommandError, []string{"invalid --fields"}},
		{"unknown field path", []string{"generate", counterYAML, "--to", "csv", "--fields", "nope"}, ExitCommandError, []string{"E007"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestParseSelection(t *testing.T) {
	sel, err := parseSelection(nil)
	require.NoError(t, err)
	assert.True(t, sel.IsZero())

	sel, err = parseSelection([]string{"id", " city = address.city "})
	require.NoError(t, err)
	cols := sel.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Path)
	assert.Equal(t, "city", cols[1].Name)
	assert.Equal(t, "address.city", cols[1].Path)

	_, err = parseSelection([]string{"x="})
	assert.Error(t, err)
}
