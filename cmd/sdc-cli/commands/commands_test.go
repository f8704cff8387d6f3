package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/sdc/internal/config"
	"github.com/inferloop/sdc/pkg/models"
)

const patientsCSV = `age,zip,income
30,11111,100
42,22222,200
42,22222,201
42,22222,202
42,22222,203
55,33333,300
55,33333,301
55,33333,302
55,33333,303
55,33333,304
`

// execute runs the CLI with HOME pointed at a temp dir so no user config is read
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAssessTextReport(t *testing.T) {
	input := writeInput(t, "patients.csv", patientsCSV)

	stdout, _, err := execute(t, "assess", "--input", input, "--qi", "age,zip")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Records:            10")
	assert.Contains(t, stdout, "Quasi-identifiers:  age, zip")
	assert.Contains(t, stdout, "Equivalence classes: 3")
	assert.Contains(t, stdout, "Unique records:      1")
}

func TestAssessJSONReport(t *testing.T) {
	input := writeInput(t, "patients.csv", patientsCSV)

	stdout, _, err := execute(t, "assess", "--input", input, "--qi", "age,zip", "--json", "--k-threshold", "3")
	require.NoError(t, err)

	var metrics models.RiskMetrics
	require.NoError(t, json.Unmarshal([]byte(stdout), &metrics))
	assert.Equal(t, 10, metrics.TotalRecords)
	assert.Equal(t, 3, metrics.KThreshold)
	assert.InDelta(t, 0.3, metrics.ProsecutorRisk, 1e-12)
}

func TestAssessRequiresQuasiIdentifiers(t *testing.T) {
	input := writeInput(t, "patients.csv", patientsCSV)

	_, _, err := execute(t, "assess", "--input", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qi")
}

func TestAssessStdinNeedsFormat(t *testing.T) {
	_, _, err := execute(t, "assess", "--input", "-", "--qi", "age")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--input-format")
}

func TestKAnonymityWritesDatasetAndReport(t *testing.T) {
	input := writeInput(t, "patients.csv", patientsCSV)
	dir := t.TempDir()
	output := filepath.Join(dir, "anon.csv")
	report := filepath.Join(dir, "report.json")

	_, stderr, err := execute(t, "anonymize", "k-anonymity",
		"--input", input, "--qi", "age,zip", "--k", "2",
		"--output", output, "--report", report)
	require.NoError(t, err)
	assert.Contains(t, stderr, "9 of 10 records kept, 1 suppressed")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 10)
	assert.Equal(t, "age,zip,income", lines[0])

	raw, err := os.ReadFile(report)
	require.NoError(t, err)
	var result models.AnonymizationResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, 1, result.RecordsSuppressed)
	assert.True(t, result.Compliant)
}

func TestKAnonymityRejectsBadK(t *testing.T) {
	input := writeInput(t, "patients.csv", patientsCSV)

	_, _, err := execute(t, "anonymize", "k-anonymity", "--input", input, "--qi", "age", "--k", "0")
	assert.Error(t, err)
}

func TestNoiseKeepsShape(t *testing.T) {
	input := writeInput(t, "patients.csv", patientsCSV)

	stdout, _, err := execute(t, "noise", "--input", input, "--columns", "income", "--epsilon", "1", "--format", "json")
	require.NoError(t, err)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	assert.Len(t, records, 10)
	assert.Equal(t, 30.0, records[0]["age"])
}

func TestSynthesizeTargetSize(t *testing.T) {
	input := writeInput(t, "patients.csv", patientsCSV)

	stdout, _, err := execute(t, "synthesize", "--input", input, "--target-size-pct", "50", "--format", "json")
	require.NoError(t, err)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	assert.Len(t, records, 5)
}

func TestUtilityIdentity(t *testing.T) {
	input := writeInput(t, "patients.csv", patientsCSV)

	stdout, _, err := execute(t, "utility", "--original", input, "--processed", input, "--json")
	require.NoError(t, err)

	var m models.UtilityMeasurement
	require.NoError(t, json.Unmarshal([]byte(stdout), &m))
	assert.Equal(t, "Excellent", m.UtilityLevel)
}

func TestAutoFixRemovesDuplicates(t *testing.T) {
	input := writeInput(t, "raw.csv", "name,age\nAnn,30\nAnn,30\nBob,\n")

	stdout, stderr, err := execute(t, "autofix", "--input", input)
	require.NoError(t, err)

	assert.Contains(t, stderr, "Removed 1 duplicate records")
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 3)
}

func TestQualityReport(t *testing.T) {
	input := writeInput(t, "raw.csv", "name,age\nAnn,30\nAnn,30\nBob,\n")

	stdout, _, err := execute(t, "quality", "--input", input, "--json")
	require.NoError(t, err)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 6.0, report["total_cells"])
	assert.Equal(t, 5.0, report["filled_cells"])
	assert.Equal(t, 1.0, report["duplicate_rows"])
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdc.yaml")

	stdout, _, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, path)

	_, _, err = execute(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, _, err = execute(t, "config", "init", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestConfigShowUsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdc.yaml")
	cfg := config.Default()
	cfg.Engine.Defaults.K = 7
	_, err := config.Save(cfg, path)
	require.NoError(t, err)

	stdout, _, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)

	var shown config.Config
	require.NoError(t, json.Unmarshal([]byte(stdout), &shown))
	assert.Equal(t, 7, shown.Engine.Defaults.K)
}
