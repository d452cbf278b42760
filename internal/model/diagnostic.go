package model

import (
	"fmt"
	"sync"
)

// DiagnosticKind classifies a non-fatal condition raised while building candidates
type DiagnosticKind string

const (
	DiagnosticTruncation DiagnosticKind = "truncation" // Context longer than the window was cut
)

// Diagnostic is a non-fatal event. Callers inspect these after a scan
// instead of handling errors.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind"`
	Field  string         `json:"field"`  // precontext or postcontext
	Length int            `json:"length"` // Length of the assigned value
	Window int            `json:"window"` // Configured context window
	Focus  string         `json:"focus,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s has %d sentences, window is %d", d.Kind, d.Field, d.Length, d.Window)
}

// Reporter receives diagnostics
type Reporter interface {
	Report(d Diagnostic)
}

// ReporterFunc adapts a function to the Reporter interface
type ReporterFunc func(d Diagnostic)

// Report calls f(d)
func (f ReporterFunc) Report(d Diagnostic) { f(d) }

type nopReporter struct{}

func (nopReporter) Report(Diagnostic) {}

// NopReporter discards every diagnostic
var NopReporter Reporter = nopReporter{}

// Diagnostics collects diagnostics and is safe for concurrent use
type Diagnostics struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewDiagnostics creates an empty collector
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Report appends d to the collector
func (c *Diagnostics) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, d)
}

// Items returns a copy of the collected diagnostics in arrival order
func (c *Diagnostics) Items() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of collected diagnostics
func (c *Diagnostics) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
