package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Renderer writes reports as JSON files and prints human summaries
type Renderer struct {
	out     io.Writer
	verbose bool
}

// NewRenderer creates a renderer printing to out (stdout when nil)
func NewRenderer(out io.Writer, verbose bool) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{out: out, verbose: verbose}
}

// WriteJSON encodes report as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return eris.Wrap(err, "render: encode json")
	}
	return nil
}

// RenderJSON writes report to path; "-" writes to the renderer's output
func (r *Renderer) RenderJSON(report *Report, path string) error {
	if path == "-" {
		return r.WriteJSON(r.out, report)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return eris.Wrapf(err, "render: create %s", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "render: create %s", path)
	}
	if err := r.WriteJSON(f, report); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "render: close %s", path)
	}

	if r.verbose {
		_, _ = fmt.Fprintf(r.out, "✓ Wrote JSON: %s\n", path)
	}
	return nil
}

// RenderSummary prints a short overview of the report
func (r *Renderer) RenderSummary(report *Report) {
	s := report.Summary
	_, _ = fmt.Fprintf(r.out, "\n%s\n", report.Source)
	if report.Classified {
		_, _ = fmt.Fprintf(r.out, "  Candidates: %d  Detected: %d  Failed: %d\n", s.Candidates, s.Detected, s.Failures)
	} else {
		_, _ = fmt.Fprintf(r.out, "  Candidates: %d\n", s.Candidates)
	}
	if s.Truncations > 0 {
		_, _ = fmt.Fprintf(r.out, "  Truncated contexts: %d\n", s.Truncations)
	}

	if !r.verbose {
		return
	}
	for i, line := range report.Lines() {
		_, _ = fmt.Fprintf(r.out, "  %d. %s\n", i+1, line)
	}
	for _, f := range report.Failures {
		_, _ = fmt.Fprintf(r.out, "  ✗ #%d %q: %s\n", f.Index, f.FocusSentence, f.Error)
	}
}
