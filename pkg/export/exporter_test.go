package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterDataset() Dataset {
	return Dataset{
		Title:   "IT101 Programming - HK1 2024-2025",
		Headers: []string{"Student Code", "Student Name", "Average"},
		Rows: [][]string{
			{"SV001", "Nguyen, An", "7.50"},
			{"SV002"},
			{"SV003", "Binh", "4.00", "extra"},
		},
	}
}

func TestCSVExporterFitsRowsToHeader(t *testing.T) {
	out, err := NewCSVExporter().Render(rosterDataset())
	require.NoError(t, err)
	assert.Equal(t, "Student Code,Student Name,Average\nSV001,\"Nguyen, An\",7.50\nSV002,,\nSV003,Binh,4.00\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{Rows: [][]string{{"a"}}})
	assert.Error(t, err)
}

func TestPDFExporterRendersDocument(t *testing.T) {
	data := rosterDataset()
	for i := 0; i < 80; i++ {
		data.Rows = append(data.Rows, []string{"SV100", "Filler", "5.00"})
	}
	out, err := NewPDFExporter().Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}
