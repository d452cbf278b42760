package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/dimiscan/internal/classify"
	"github.com/ppiankov/dimiscan/internal/extract"
	"github.com/ppiankov/dimiscan/internal/model"
)

// Report is the serialized outcome of scanning one document
type Report struct {
	Source      string             `json:"source"`
	ScannedAt   time.Time          `json:"scanned_at"`
	Metadata    map[string]string  `json:"metadata"`
	Classified  bool               `json:"classified"`
	Summary     Summary            `json:"summary"`
	Candidates  any                `json:"candidates"` // []model.LexicalRecord or []model.ModelledRecord
	Failures    []FailureRecord    `json:"failures,omitempty"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`

	lines []string // display strings, in candidate order
}

// Summary counts what the scan found
type Summary struct {
	Candidates  int `json:"candidates"`
	Detected    int `json:"detected,omitempty"`
	Failures    int `json:"failures,omitempty"`
	Truncations int `json:"truncations,omitempty"`
}

// FailureRecord is the serialized form of a ClassificationFailure
type FailureRecord struct {
	Index         int    `json:"index"`
	FocusSentence string `json:"focus_sentence"`
	Error         string `json:"error"`
}

// NewLexicalReport builds a report from a scan
func NewLexicalReport(source string, meta *model.MetaData, res *ScanResult) *Report {
	r := &Report{
		Source:      source,
		ScannedAt:   time.Now().UTC(),
		Metadata:    meta.ToRecord(),
		Candidates:  model.Records[model.LexicalRecord](res.Candidates),
		Diagnostics: res.Diagnostics,
		Summary: Summary{
			Candidates:  len(res.Candidates),
			Truncations: len(res.Diagnostics),
		},
	}
	for _, c := range res.Candidates {
		r.lines = append(r.lines, c.String())
	}
	return r
}

// NewClassifiedReport builds a report from a scan with classification
func NewClassifiedReport(source string, meta *model.MetaData, res *ClassifiedResult) *Report {
	r := &Report{
		Source:      source,
		ScannedAt:   time.Now().UTC(),
		Metadata:    meta.ToRecord(),
		Classified:  true,
		Candidates:  model.Records[model.ModelledRecord](res.Candidates),
		Diagnostics: res.Diagnostics,
		Summary: Summary{
			Candidates:  res.Lexical,
			Failures:    len(res.Failures),
			Truncations: len(res.Diagnostics),
		},
	}
	for _, c := range res.Candidates {
		if c.Detected() {
			r.Summary.Detected++
		}
		r.lines = append(r.lines, c.String())
	}
	for _, f := range res.Failures {
		r.Failures = append(r.Failures, FailureRecord{Index: f.Index, FocusSentence: f.FocusSentence, Error: f.Err.Error()})
	}
	return r
}

// Lines returns one display string per candidate
func (r *Report) Lines() []string { return r.lines }

// DocumentScanner loads, scans and optionally classifies whole documents.
// It is safe for concurrent use and implements worker.Scanner.
type DocumentScanner struct {
	pipeline   *Pipeline
	loader     *Loader
	classifier *classify.Classifier // nil disables classification
	triggers   extract.Lexicon
	window     int
	split      bool
	metadata   *model.MetaData
}

// ScannerOptions configures a DocumentScanner
type ScannerOptions struct {
	Triggers        extract.Lexicon
	Window          int
	SplitParagraphs bool
	Metadata        *model.MetaData // nil derives title and source per document
	Classifier      *classify.Classifier
}

// NewDocumentScanner creates a document scanner
func NewDocumentScanner(p *Pipeline, l *Loader, opts ScannerOptions) (*DocumentScanner, error) {
	if p == nil || l == nil {
		return nil, eris.New("document scanner: pipeline and loader are required")
	}
	if opts.Triggers == nil {
		return nil, eris.New("document scanner: trigger dictionary is required")
	}
	return &DocumentScanner{
		pipeline:   p,
		loader:     l,
		classifier: opts.Classifier,
		triggers:   opts.Triggers,
		window:     opts.Window,
		split:      opts.SplitParagraphs,
		metadata:   opts.Metadata,
	}, nil
}

// ScanSource scans one source into a report
func (s *DocumentScanner) ScanSource(ctx context.Context, source string) (*Report, error) {
	doc, err := s.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	meta := s.metadata
	if meta == nil {
		meta = &model.MetaData{Title: doc.Title, Source: doc.Source}
	}

	req := Request{
		Text:            doc.Text,
		Triggers:        s.triggers,
		Window:          s.window,
		Metadata:        meta,
		SplitParagraphs: s.split,
	}

	if s.classifier == nil {
		res, err := s.pipeline.Scan(ctx, req)
		if err != nil {
			return nil, err
		}
		return NewLexicalReport(doc.Source, meta, res), nil
	}

	res, err := s.pipeline.ScanAndClassify(ctx, req, s.classifier)
	if err != nil {
		return nil, err
	}
	return NewClassifiedReport(doc.Source, meta, res), nil
}
