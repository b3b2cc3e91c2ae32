package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mongoprov/internal/logger"
)

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterTo(&buf, false)

	p.PrintStatus("collection usuarios", StatusCreated, "")
	p.PrintStatus("index usuarios.email_1", StatusUnchanged, "unique")
	p.PrintStatus("index logs_actividad.fecha_-1", StatusPlanned, "")
	p.PrintStatus("index usuarios.email_1", StatusFailed, "duplicate values")
	p.PrintStatus("other", Status("weird"), "")

	require.Equal(t, strings.Join([]string{
		"[ ✓ ] collection usuarios (created)",
		"[ = ] index usuarios.email_1 (unchanged) unique",
		"[ + ] index logs_actividad.fecha_-1 (planned)",
		"[ ✕ ] index usuarios.email_1 (failed) duplicate values",
		"[ - ] other (unknown)",
	}, "\n")+"\n", buf.String())
}

func TestPrintTableAlignsWideCharacters(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterTo(&buf, false)

	p.PrintTable([]string{"RUN", "OUTCOME"}, [][]string{
		{"apply-1", "succeeded"},
		{"日本", "failed"},
	})

	require.Equal(t, "RUN      OUTCOME\napply-1  succeeded\n日本     failed\n", buf.String())
}

func TestPrintLinesAndBanner(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterTo(&buf, false)

	p.PrintBanner("examen_parcial_db")
	p.PrintSeparator("-", 3)
	p.PrintSeparator("-", 0)
	p.PrintLines([]string{"// note", `db.createCollection("usuarios")`})

	out := buf.String()
	require.Contains(t, out, "target: examen_parcial_db")
	require.Contains(t, out, "---\n// note\ndb.createCollection(\"usuarios\")\n")
}

func TestConsoleProgressAndWrites(t *testing.T) {
	var buf bytes.Buffer
	mock := logger.NewMockLogger()
	c := NewConsole(mock, &buf)

	c.StartProgress("Ping store")
	c.StopProgress("Ping store")
	c.FailProgress("Ensure index email_1")
	c.WriteLine("%d actions", 3)
	c.Success("done")

	require.Equal(t, "→ Ping store\n✓ Ping store\n✕ Ensure index email_1\n3 actions\n", buf.String())
	require.True(t, mock.HasEntry(logger.LevelInfo, "✓ done"))
	require.Same(t, mock, c.Logger())
}
