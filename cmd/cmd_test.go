package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caltech-netlab/gym-acnportal/config"
	"github.com/caltech-netlab/gym-acnportal/core/steplog"
)

const testConfig = `network:
  stations:
    - id: "A"
    - id: "B"
      type: "finite"
      rates: [8, 16, 32]
  constraints:
    - id: "main"
      magnitude: 40
      loads:
        A: 1
        B: 1
sessions:
  - station_id: "A"
    arrival: 0
    departure: 4
    energy: 1
`

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(writeFile(t, "config.yaml", testConfig))
	require.NoError(t, err)
	return cfg
}

func TestListStations(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listStations(&buf, loadTestConfig(t)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "A\t208V\t[0, 32]", lines[0])
	assert.Contains(t, lines[1], "[0 8 16 32]")
}

func TestLoadSchedule(t *testing.T) {
	s, err := loadSchedule(writeFile(t, "s.json", `{"A": [16, 16], "B": [8]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{16, 16}, s["A"])

	s, err = loadSchedule(writeFile(t, "s.yaml", "A: [32]\nB: [16]\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{16}, s["B"])

	_, err = loadSchedule(writeFile(t, "bad.yaml", "A: nope\n"))
	assert.Error(t, err)
}

func TestCheckFeasibility(t *testing.T) {
	cfg := loadTestConfig(t)
	var buf bytes.Buffer
	ok, err := checkFeasibility(&buf, cfg, map[string][]float64{"A": {16}, "B": {16}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, buf.String(), "constraint main: 32.00 / 40.00 A")

	buf.Reset()
	ok, err = checkFeasibility(&buf, cfg, map[string][]float64{"A": {32}, "B": {16}})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "evse feasible: true")
	assert.Contains(t, buf.String(), "network feasible: false")

	buf.Reset()
	ok, err = checkFeasibility(&buf, cfg, map[string][]float64{"B": {12}})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "evse feasible: false")

	_, err = checkFeasibility(&buf, cfg, map[string][]float64{"Z": {0}})
	assert.Error(t, err)
}

func TestRunCommandExport(t *testing.T) {
	cfgFile := writeFile(t, "config.yaml", testConfig)
	out := filepath.Join(t.TempDir(), "history.csv")
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"run", "--config", cfgFile, "--policy", "zero", "--episodes", "1", "--export", out})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		runExport = ""
	})
	require.NoError(t, Execute())
	assert.Contains(t, buf.String(), "episode ")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	// zero policy never charges: 4 iterations for 2 stations plus the header
	require.Len(t, recs, 9)
	assert.Equal(t, []string{"A", "0", "0", "0"}, recs[1])
}

func TestPrintSteps(t *testing.T) {
	store, err := steplog.NewJSONLStore(filepath.Join(t.TempDir(), "steps.jsonl"))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, steplog.Record{EpisodeID: "a", Step: 1, Feasible: true}))
	require.NoError(t, store.Append(ctx, steplog.Record{EpisodeID: "b", Step: 1}))

	var buf bytes.Buffer
	require.NoError(t, printSteps(ctx, &buf, store, steplog.Query{EpisodeID: "b"}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"episode_id":"b"`)
}
