package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/dimiscan/internal/model"
)

func writeDoc(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestDocumentScanner_Lexical(t *testing.T) {
	path := writeDoc(t, "rede.txt", "Vorher. Das ist eine Schande. Nachher.")

	s, err := NewDocumentScanner(newTestPipeline(t, Options{}), NewLoader(nil, nil), ScannerOptions{
		Triggers: triggers("schande"),
		Window:   1,
	})
	require.NoError(t, err)

	report, err := s.ScanSource(context.Background(), path)
	require.NoError(t, err)

	assert.False(t, report.Classified)
	assert.Equal(t, 1, report.Summary.Candidates)
	assert.Equal(t, "rede", report.Metadata["title"])
	assert.Equal(t, []string{"Vorher. Das ist eine Schande. Nachher."}, report.Lines())

	records, ok := report.Candidates.([]model.LexicalRecord)
	require.True(t, ok)
	require.Len(t, records, 1)
	assert.Equal(t, "Das ist eine Schande.", records[0].FocusSentence)
}

func TestDocumentScanner_Classified(t *testing.T) {
	path := writeDoc(t, "rede.txt", "Ehre und Schande. Ehre mit Fehler. Ehre allein.")
	meta := &model.MetaData{Title: "Fest", Date: "1990-10-03"}

	s, err := NewDocumentScanner(newTestPipeline(t, Options{Workers: 2}), NewLoader(nil, nil), ScannerOptions{
		Triggers:   triggers("ehre"),
		Metadata:   meta,
		Classifier: newTestClassifier(t),
	})
	require.NoError(t, err)

	report, err := s.ScanSource(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, report.Classified)
	assert.Equal(t, Summary{Candidates: 3, Detected: 1, Failures: 1}, report.Summary)
	assert.Equal(t, "Fest", report.Metadata["title"])
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 1, report.Failures[0].Index)

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false).WriteJSON(&buf, report))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	for _, key := range []string{"source", "scanned_at", "metadata", "classified", "summary", "candidates", "failures"} {
		assert.Contains(t, decoded, key)
	}
	cands := decoded["candidates"].([]any)
	require.Len(t, cands, 2)
	first := cands[0].(map[string]any)
	for _, key := range []string{"focus_sentence", "precontext", "postcontext", "full_text", "trigger_words", "probabilities", "label"} {
		assert.Contains(t, first, key)
	}
}

func TestNewDocumentScanner_Validation(t *testing.T) {
	_, err := NewDocumentScanner(nil, NewLoader(nil, nil), ScannerOptions{Triggers: triggers("x")})
	assert.Error(t, err)

	_, err = NewDocumentScanner(newTestPipeline(t, Options{}), NewLoader(nil, nil), ScannerOptions{})
	assert.Error(t, err)
}

func TestRenderer(t *testing.T) {
	report := &Report{
		Source:     "rede.txt",
		Classified: true,
		Summary:    Summary{Candidates: 2, Detected: 1, Failures: 1, Truncations: 3},
		Failures:   []FailureRecord{{Index: 1, FocusSentence: "Ehre.", Error: "boom"}},
		lines:      []string{"Moralisierung erkannt: x"},
	}

	var out bytes.Buffer
	r := NewRenderer(&out, true)
	r.RenderSummary(report)
	assert.Contains(t, out.String(), "Candidates: 2  Detected: 1  Failed: 1")
	assert.Contains(t, out.String(), "Truncated contexts: 3")
	assert.Contains(t, out.String(), "1. Moralisierung erkannt: x")
	assert.Contains(t, out.String(), `✗ #1 "Ehre.": boom`)

	path := filepath.Join(t.TempDir(), "out", "rede.json")
	require.NoError(t, r.RenderJSON(report, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"source": "rede.txt"`)
	assert.Contains(t, out.String(), "✓ Wrote JSON: "+path)

	out.Reset()
	require.NoError(t, r.RenderJSON(report, "-"))
	assert.Contains(t, out.String(), `"classified": true`)
}
