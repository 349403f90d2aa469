package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T, dir string) string {
	t.Helper()
	store := filepath.Join(dir, "transporters.csv")
	input := writeTable(t, dir, "seed.csv", "Company Name,GST/PAN,Email ID,Contact Name,Contact Number\n"+
		"Sharma Roadways,27AAPFU0939F1ZV,ops@sharma.in,Ravi Sharma,9876543210\n"+
		"Konkan Freight,AAECK1234M,dispatch@konkan.in,Meera Naik,9823012345\n")

	cmd := NewImportCommand(&RootOptions{Format: "text", StorePath: store})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{input, "-o", filepath.Join(dir, "reports")})
	require.NoError(t, cmd.Execute())
	return store
}

func TestListText(t *testing.T) {
	isolateEnv(t)
	store := seedStore(t, t.TempDir())

	buf := &bytes.Buffer{}
	cmd := NewListCommand(&RootOptions{Format: "text", StorePath: store})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "COMPANY NAME")
	assert.Contains(t, buf.String(), "Konkan Freight")
	assert.Contains(t, buf.String(), "2 of 2 transporters")
}

func TestListJSONWithSearch(t *testing.T) {
	isolateEnv(t)
	store := seedStore(t, t.TempDir())

	buf := &bytes.Buffer{}
	cmd := NewListCommand(&RootOptions{Format: "json", StorePath: store})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--search", "konkan"})

	require.NoError(t, cmd.Execute())

	var output ListOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))
	assert.Equal(t, 1, output.Total)
	require.Len(t, output.Transporters, 1)
	assert.Equal(t, "AAECK1234M", output.Transporters[0].TaxID)
}

func TestListRejectsBadLimit(t *testing.T) {
	cmd := NewListCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--limit", "0"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit must be positive")
}
