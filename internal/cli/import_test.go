package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"transporter-onboarding/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTable = "Company Name,GST/PAN,Email ID,Contact Name,Contact Number\n" +
	"Sharma Roadways,27AAPFU0939F1ZV,ops@sharma.in,Ravi Sharma,9876543210\n" +
	"Blocked Movers,BBBB1234K,blocked@movers.in,Kiran Das,9000000001\n" +
	",AAECK1234M,dispatch@konkan.in,Meera Naik,9823012345\n"

func writeTable(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "file")
	t.Setenv("BLOCKLIST", "")
	t.Setenv("BLOCKLIST_FILE", "")
}

func TestImportText(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	input := writeTable(t, dir, "batch.csv", sampleTable)
	store := filepath.Join(dir, "transporters.csv")
	outDir := filepath.Join(dir, "reports")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", StorePath: store}
	cmd := NewImportCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{input, "--out-dir", outDir})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "Processing Complete: 1 successful, 2 failed.")
	assert.Contains(t, out, "row 3 (BBBB1234K): Failure, company already exists")
	assert.Contains(t, out, "row 4 (AAECK1234M): Failure, missing Company Name")
	assert.Contains(t, out, filepath.Join(outDir, "rejected_"))

	stored, err := os.ReadFile(store)
	require.NoError(t, err)
	assert.Contains(t, string(stored), "27AAPFU0939F1ZV")
	assert.NotContains(t, string(stored), "BBBB1234K")
}

func TestImportJSON(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	input := writeTable(t, dir, "batch.csv", sampleTable)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", StorePath: filepath.Join(dir, "transporters.csv")}
	cmd := NewImportCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{input, "-o", filepath.Join(dir, "reports")})

	require.NoError(t, cmd.Execute())

	var output ImportOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))
	assert.Equal(t, 1, output.Summary.AcceptedCount)
	assert.True(t, output.Summary.Persisted)
	require.Len(t, output.Outcomes, 3)
	assert.Equal(t, models.StatusRejectedDisallowedIdentifier, output.Outcomes[1].Status)
	assert.Equal(t, models.StatusRejectedMandatoryFieldMissing, output.Outcomes[2].Status)
	assert.FileExists(t, output.ProcessedFile)
	assert.FileExists(t, output.RejectedFile)
	assert.Empty(t, output.Error)
}

func TestImportSecondRunRejectsStoredRows(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	input := writeTable(t, dir, "batch.csv", sampleTable)
	rootOpts := &RootOptions{Format: "json", StorePath: filepath.Join(dir, "transporters.csv")}

	for run := 0; run < 2; run++ {
		buf := &bytes.Buffer{}
		cmd := NewImportCommand(rootOpts)
		cmd.SetOut(buf)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{input, "-o", filepath.Join(dir, "reports")})
		require.NoError(t, cmd.Execute())

		if run == 1 {
			var output ImportOutput
			require.NoError(t, json.Unmarshal(buf.Bytes(), &output))
			assert.Equal(t, 0, output.Summary.AcceptedCount)
			assert.Equal(t, models.StatusRejectedDuplicateIdentifier, output.Outcomes[0].Status)
		}
	}
}

func TestImportMissingColumn(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	input := writeTable(t, dir, "batch.csv", "Company Name,Email ID,Contact Name,Contact Number\nAcme,a@acme.in,A,1\n")

	rootOpts := &RootOptions{Format: "text", StorePath: filepath.Join(dir, "transporters.csv")}
	cmd := NewImportCommand(rootOpts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{input, "-o", filepath.Join(dir, "reports")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns [GST/PAN]")

	_, statErr := os.Stat(filepath.Join(dir, "reports"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestImportRequiresFile(t *testing.T) {
	cmd := NewImportCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}
