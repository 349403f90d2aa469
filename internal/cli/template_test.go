package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"transporter-onboarding/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.csv")

	buf := &bytes.Buffer{}
	cmd := NewTemplateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Template written to")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "Company Name,GST/PAN,Email ID,Contact Name,Contact Number\n"))
}

func TestTemplateXLSXParsesBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.xlsx")

	cmd := NewTemplateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := service.NewExcelService().ParseTransporters(f)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "27AAPFU0939F1ZV", rows[0].TaxID)
}

func TestTemplateFormat(t *testing.T) {
	format, err := templateFormat("out.bin", "csv")
	require.NoError(t, err)
	assert.Equal(t, service.FormatCSV, format)

	format, err = templateFormat("out.xlsx", "")
	require.NoError(t, err)
	assert.Equal(t, service.FormatXLSX, format)

	_, err = templateFormat("out.txt", "")
	assert.ErrorIs(t, err, service.ErrUnsupportedFormat)
}
