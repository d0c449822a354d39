package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standingsDataset() Dataset {
	return Dataset{
		Headers: []string{"Position", "Student", "Score"},
		Rows: [][]string{
			{"1", "Asha", "1500"},
			{"2", "Bilal, Jr.", "1450"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(standingsDataset())
	require.NoError(t, err)
	assert.Equal(t, "Position,Student,Score\n1,Asha,1500\n2,\"Bilal, Jr.\",1450\n", string(out))
}

func TestCSVExporterEscapesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"Student", "Delta"},
		Rows:    [][]string{{"=HYPERLINK(\"x\")", "-40"}, {"@cmd", "+5"}},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Student,Delta\n\"'=HYPERLINK(\"\"x\"\")\",-40\n'@cmd,+5\n", string(out))
	assert.Equal(t, "=HYPERLINK(\"x\")", data.Rows[0][0])
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	data := standingsDataset()
	data.Rows = append(data.Rows, []string{"3"})
	_, err := NewCSVExporter().Render(data)
	assert.Error(t, err)
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	exporter.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	data := standingsDataset()
	data.Subtitle = "Season 1 standings"

	out, err := exporter.Render(data, "Season 1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
