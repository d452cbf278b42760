// Package classify turns candidate text into model input and returns the
// raw per-class scores of an external classification model.
package classify

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/dimiscan/internal/model"
)

// ErrEmptyScores is returned when a model answers with no scores
var ErrEmptyScores = errors.New("classify: model returned no scores")

// Tokenizer encodes text into vocabulary ids
type Tokenizer interface {
	Encode(text string) ([]int, error)
}

// Input is one encoded text. AttentionMask[i] is 1 for real tokens and 0 for padding.
type Input struct {
	Text          string
	InputIDs      []int
	AttentionMask []int
}

// Output carries the raw (pre-squash) score per class
type Output struct {
	Scores []float64
}

// Model runs inference on a single input
type Model interface {
	Forward(ctx context.Context, in Input) (Output, error)
}

// BatchModel additionally scores several inputs in one call.
// Outputs are positionally aligned with inputs.
type BatchModel interface {
	Model
	ForwardBatch(ctx context.Context, in []Input) ([]Output, error)
}

// Classifier binds a tokenizer and a model. Both are loaded once per run
// and shared by every candidate.
type Classifier struct {
	tokenizer Tokenizer
	model     Model
	device    string
}

// NewClassifier creates a classifier. device is informational for local
// backends and forwarded by remote ones.
func NewClassifier(tokenizer Tokenizer, m Model, device string) (*Classifier, error) {
	if tokenizer == nil {
		return nil, eris.New("classify: tokenizer is required")
	}
	if m == nil {
		return nil, eris.New("classify: model is required")
	}
	if device == "" {
		device = "cpu"
	}
	zap.L().Info("classify: classifier ready", zap.String("device", device), zap.Bool("batch", isBatch(m)))
	return &Classifier{tokenizer: tokenizer, model: m, device: device}, nil
}

// Device returns the configured device string
func (c *Classifier) Device() string { return c.device }

// Encode tokenizes text and builds its attention mask
func (c *Classifier) Encode(text string) (Input, error) {
	ids, err := c.tokenizer.Encode(text)
	if err != nil {
		return Input{}, eris.Wrap(err, "classify: tokenize")
	}
	return Input{Text: text, InputIDs: ids, AttentionMask: AttentionMask(ids)}, nil
}

// ClassifyText runs exactly one inference on text and returns the raw scores
func (c *Classifier) ClassifyText(ctx context.Context, text string) ([]float64, error) {
	in, err := c.Encode(text)
	if err != nil {
		return nil, err
	}
	return c.forward(ctx, in)
}

func (c *Classifier) forward(ctx context.Context, in Input) ([]float64, error) {
	out, err := c.model.Forward(ctx, in)
	if err != nil {
		return nil, eris.Wrap(err, "classify: forward")
	}
	if len(out.Scores) == 0 {
		return nil, eris.Wrap(ErrEmptyScores, "classify: forward")
	}
	return out.Scores, nil
}

// Classify scores a candidate's full text
func (c *Classifier) Classify(ctx context.Context, cand *model.LexicalCandidate) ([]float64, error) {
	return c.ClassifyText(ctx, cand.FullText())
}

// ClassifyBatch scores several candidates. With a BatchModel the encodable
// inputs go out in one call; otherwise each candidate gets its own call.
// scores and errs are aligned with cands; exactly one of scores[i], errs[i]
// is set.
func (c *Classifier) ClassifyBatch(ctx context.Context, cands []*model.LexicalCandidate) (scores [][]float64, errs []error) {
	scores = make([][]float64, len(cands))
	errs = make([]error, len(cands))

	bm, ok := c.model.(BatchModel)
	if !ok || len(cands) == 1 {
		for i, cand := range cands {
			scores[i], errs[i] = c.Classify(ctx, cand)
		}
		return scores, errs
	}

	var (
		inputs []Input
		index  []int
	)
	for i, cand := range cands {
		in, err := c.Encode(cand.FullText())
		if err != nil {
			errs[i] = err
			continue
		}
		inputs = append(inputs, in)
		index = append(index, i)
	}
	if len(inputs) == 0 {
		return scores, errs
	}

	outs, err := bm.ForwardBatch(ctx, inputs)
	if err == nil && len(outs) != len(inputs) {
		err = eris.Errorf("batch returned %d outputs for %d inputs", len(outs), len(inputs))
	}
	if err != nil {
		// score the group one by one so only the failing inputs are marked
		zap.L().Debug("classify: batch failed, retrying inputs singly", zap.Int("inputs", len(inputs)), zap.Error(err))
		for k, i := range index {
			scores[i], errs[i] = c.forward(ctx, inputs[k])
		}
		return scores, errs
	}

	for k, i := range index {
		if len(outs[k].Scores) == 0 {
			errs[i] = eris.Wrap(ErrEmptyScores, "classify: forward batch")
			continue
		}
		scores[i] = outs[k].Scores
	}
	return scores, errs
}

// AttentionMask marks every id > 0 (non-padding) with 1
func AttentionMask(ids []int) []int {
	mask := make([]int, len(ids))
	for i, id := range ids {
		if id > 0 {
			mask[i] = 1
		}
	}
	return mask
}

func isBatch(m Model) bool {
	_, ok := m.(BatchModel)
	return ok
}
