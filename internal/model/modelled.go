package model

import (
	"fmt"
	"math"
)

// LabelNotDetected is the class index meaning no moralizing content.
// Every other index counts as detected.
const LabelNotDetected = 0

// ModelledCandidate is a LexicalCandidate with classifier evidence.
// Probabilities and label are derived from the raw scores and recomputed
// together whenever the scores change.
type ModelledCandidate struct {
	LexicalCandidate
	rawScores     []float64
	probabilities []float64
	label         int
	labelled      bool
}

// Promote builds a modelled candidate from src and the classifier's raw scores.
// Text fields, trigger words and the metadata pointer are copied; src is not modified.
func Promote(src *LexicalCandidate, rawScores []float64) *ModelledCandidate {
	m := &ModelledCandidate{
		LexicalCandidate: LexicalCandidate{
			Candidate: Candidate{
				focusSentence: src.focusSentence,
				precontext:    cloneStrings(src.precontext),
				postcontext:   cloneStrings(src.postcontext),
				metadata:      src.metadata,
				contextWindow: src.contextWindow,
				reporter:      src.reporter,
			},
			triggerWords: nonNilTriggers(cloneTriggers(src.triggerWords)),
		},
	}
	m.updateFullText()
	m.SetRawScores(rawScores)
	return m
}

// RawScores returns a copy of the classifier output
func (m *ModelledCandidate) RawScores() []float64 { return cloneFloats(m.rawScores) }

// Probabilities returns a copy of the squashed scores
func (m *ModelledCandidate) Probabilities() []float64 { return cloneFloats(m.probabilities) }

// Label returns the arg-max class index. ok is false when no scores are set.
func (m *ModelledCandidate) Label() (label int, ok bool) {
	return m.label, m.labelled
}

// Detected reports whether the classifier labelled the candidate as moralizing
func (m *ModelledCandidate) Detected() bool {
	return m.labelled && m.label != LabelNotDetected
}

// SetRawScores replaces the raw scores and recomputes probabilities and label.
// An empty vector clears both.
func (m *ModelledCandidate) SetRawScores(scores []float64) {
	if len(scores) == 0 {
		m.rawScores = nil
		m.probabilities = nil
		m.label = 0
		m.labelled = false
		return
	}

	raw := cloneFloats(scores)
	probs := Squash(raw)
	m.rawScores = raw
	m.probabilities = probs
	m.label = ArgMax(probs)
	m.labelled = true
}

// ToRecord returns the serializable form of all three tiers
func (m *ModelledCandidate) ToRecord() ModelledRecord {
	rec := ModelledRecord{
		LexicalRecord: m.LexicalCandidate.ToRecord(),
		Probabilities: nonNilFloats(m.probabilities),
		RawScores:     nonNilFloats(m.rawScores),
	}
	if m.labelled {
		label := m.label
		rec.Label = &label
	}
	return rec
}

// String describes whether moralizing content was detected
func (m *ModelledCandidate) String() string {
	not := ""
	if !m.Detected() {
		not = "not "
	}
	return fmt.Sprintf("%q ...with moralizing content %sdetected by the classification model.", m.focusSentence, not)
}

// Sigmoid is the logistic function 1/(1+e^-x)
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Squash applies Sigmoid elementwise
func Squash(scores []float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = Sigmoid(s)
	}
	return out
}

// ArgMax returns the index of the largest value, the lowest index on ties.
// NaN never wins over a number. Returns -1 for an empty slice.
func ArgMax(values []float64) int {
	best := -1
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v > values[best] {
			best = i
		}
	}
	if best < 0 && len(values) > 0 {
		return 0
	}
	return best
}

func cloneFloats(in []float64) []float64 {
	if in == nil {
		return nil
	}
	out := make([]float64, len(in))
	copy(out, in)
	return out
}

func nonNilFloats(in []float64) []float64 {
	if in == nil {
		return []float64{}
	}
	return cloneFloats(in)
}
