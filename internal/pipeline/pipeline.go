package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/dimiscan/internal/classify"
	"github.com/ppiankov/dimiscan/internal/extract"
	"github.com/ppiankov/dimiscan/internal/model"
	"github.com/ppiankov/dimiscan/internal/segment"
	"github.com/ppiankov/dimiscan/internal/worker"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Pipeline orchestrates segment → detect → classify for one document at a time
type Pipeline struct {
	segmenter segment.Segmenter
	workers   int
	batchSize int
	logger    *zap.Logger
}

// Options tunes the classification stage
type Options struct {
	Workers   int // concurrent classification jobs; 1 is sequential
	BatchSize int // candidates per model call
	Logger    *zap.Logger
}

// NewPipeline creates a pipeline around a segmenter that is reused for every document
func NewPipeline(seg segment.Segmenter, opts Options) (*Pipeline, error) {
	if seg == nil {
		return nil, eris.New("pipeline: segmenter is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}
	return &Pipeline{
		segmenter: seg,
		workers:   opts.Workers,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
	}, nil
}

// Request describes one document scan
type Request struct {
	Text            string
	Triggers        extract.Lexicon
	Window          int
	Metadata        *model.MetaData // shared by every candidate
	SplitParagraphs bool            // context windows stop at blank lines
}

// ScanResult contains the lexical candidates of one document
type ScanResult struct {
	Candidates  []*model.LexicalCandidate
	Diagnostics []model.Diagnostic
}

// ClassificationFailure records a candidate the model could not score
type ClassificationFailure struct {
	Index         int // position in the lexical candidate list
	FocusSentence string
	Err           error
}

// ClassifiedResult contains the modelled candidates of one document.
// Failed candidates are left out of Candidates and listed in Failures.
type ClassifiedResult struct {
	Candidates  []*model.ModelledCandidate
	Failures    []ClassificationFailure
	Diagnostics []model.Diagnostic
	Lexical     int // number of lexical candidates before classification
}

// Scan segments the text and detects trigger sentences
func (p *Pipeline) Scan(ctx context.Context, req Request) (*ScanResult, error) {
	if req.Triggers == nil {
		return nil, eris.New("pipeline: trigger dictionary is required")
	}
	if req.Metadata == nil {
		req.Metadata = model.EmptyMetaData()
	}

	diags := model.NewDiagnostics()
	detector := extract.NewTriggerDetector(diags)

	parts := []string{req.Text}
	if req.SplitParagraphs {
		parts = SplitParagraphs(req.Text)
	}

	var candidates []*model.LexicalCandidate
	for i, part := range parts {
		sentences, err := p.segmenter.Segment(ctx, part)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: segment paragraph %d", i)
		}
		candidates = append(candidates, detector.Detect(sentences, req.Triggers, req.Window, req.Metadata)...)
	}

	items := diags.Items()
	for _, d := range items {
		p.logger.Warn("pipeline: context truncated",
			zap.String("field", d.Field),
			zap.Int("length", d.Length),
			zap.Int("window", d.Window))
	}

	p.logger.Debug("pipeline: scan complete",
		zap.Int("paragraphs", len(parts)),
		zap.Int("candidates", len(candidates)))

	return &ScanResult{Candidates: candidates, Diagnostics: items}, nil
}

// ScanAndClassify scans the text and runs the classifier on every candidate
func (p *Pipeline) ScanAndClassify(ctx context.Context, req Request, c *classify.Classifier) (*ClassifiedResult, error) {
	if c == nil {
		return nil, eris.New("pipeline: classifier is required")
	}

	scan, err := p.Scan(ctx, req)
	if err != nil {
		return nil, err
	}

	modelled, failures := p.Classify(ctx, scan.Candidates, c)
	return &ClassifiedResult{
		Candidates:  modelled,
		Failures:    failures,
		Diagnostics: scan.Diagnostics,
		Lexical:     len(scan.Candidates),
	}, nil
}

// Classify promotes candidates to the modelled tier. Candidates are grouped
// into batches that run on a worker pool; output keeps input order.
func (p *Pipeline) Classify(ctx context.Context, candidates []*model.LexicalCandidate, c *classify.Classifier) ([]*model.ModelledCandidate, []ClassificationFailure) {
	if len(candidates) == 0 {
		return nil, nil
	}

	scores := make([][]float64, len(candidates))
	errs := make([]error, len(candidates))

	pool := worker.NewPoolWithContext(ctx, p.workers)
	pool.Start()
	for start := 0; start < len(candidates); start += p.batchSize {
		end := min(start+p.batchSize, len(candidates))
		pool.Submit(&classifyJob{start: start, candidates: candidates[start:end], classifier: c})
	}
	for _, r := range pool.Wait() {
		res := r.(*classifyResult)
		copy(scores[res.start:], res.scores)
		copy(errs[res.start:], res.errs)
	}

	var (
		modelled []*model.ModelledCandidate
		failures []ClassificationFailure
	)
	for i, cand := range candidates {
		err := errs[i]
		if err == nil && scores[i] == nil {
			// job never ran: the context was cancelled before it was picked up
			err = ctx.Err()
			if err == nil {
				err = eris.New("pipeline: candidate was not classified")
			}
		}
		if err != nil {
			p.logger.Error("pipeline: classification failed",
				zap.Int("index", i),
				zap.String("focus", cand.FocusSentence()),
				zap.Error(err))
			failures = append(failures, ClassificationFailure{Index: i, FocusSentence: cand.FocusSentence(), Err: err})
			continue
		}
		modelled = append(modelled, model.Promote(cand, scores[i]))
	}
	return modelled, failures
}

// SplitParagraphs splits on blank lines and drops empty paragraphs
func SplitParagraphs(text string) []string {
	var out []string
	for _, part := range paragraphBreak.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			out = append(out, part)
		}
	}
	return out
}

type classifyJob struct {
	start      int
	candidates []*model.LexicalCandidate
	classifier *classify.Classifier
}

type classifyResult struct {
	start  int
	scores [][]float64
	errs   []error
}

func (r *classifyResult) GetError() error {
	for _, err := range r.errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (j *classifyJob) Execute(ctx context.Context) worker.Result {
	scores, errs := j.classifier.ClassifyBatch(ctx, j.candidates)
	return &classifyResult{start: j.start, scores: scores, errs: errs}
}
