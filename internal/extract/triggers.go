package extract

import (
	"github.com/ppiankov/dimiscan/internal/model"
	"github.com/ppiankov/dimiscan/internal/segment"
)

// Lexicon is a set of trigger lemmas
type Lexicon interface {
	Contains(lemma string) bool
}

// TriggerDetector finds sentences containing trigger lemmas and wraps
// each in a lexical candidate with its context window attached
type TriggerDetector struct {
	reporter model.Reporter
}

// NewTriggerDetector creates a detector. Truncation diagnostics raised while
// assigning contexts go to reporter (nil discards them).
func NewTriggerDetector(reporter model.Reporter) *TriggerDetector {
	if reporter == nil {
		reporter = model.NopReporter
	}
	return &TriggerDetector{reporter: reporter}
}

// Detect scans sentences in order and returns one candidate per sentence
// with at least one trigger match. Every matching token is recorded.
// Precontext is up to window preceding sentences, postcontext up to window
// following ones; both are shorter at the document boundaries.
func (d *TriggerDetector) Detect(sentences []segment.Sentence, triggers Lexicon, window int, meta *model.MetaData) []*model.LexicalCandidate {
	if window < 0 {
		window = 0
	}

	var candidates []*model.LexicalCandidate
	for i, sentence := range sentences {
		matches := MatchTriggers(sentence, triggers)
		if len(matches) == 0 {
			continue
		}

		start := max(0, i-window)
		end := min(len(sentences), i+1+window)

		c := model.NewLexicalCandidate(window, meta, matches, model.WithReporter(d.reporter))
		c.SetFocusSentence(sentence.Text)
		c.SetPrecontext(sentenceTexts(sentences[start:i]))
		c.SetPostcontext(sentenceTexts(sentences[i+1 : end]))

		candidates = append(candidates, c)
	}

	return candidates
}

// MatchTriggers returns every token of sentence whose lemma is a trigger, in token order
func MatchTriggers(sentence segment.Sentence, triggers Lexicon) []model.TriggerWord {
	if triggers == nil {
		return nil
	}

	var matches []model.TriggerWord
	for _, token := range sentence.Tokens {
		if triggers.Contains(token.Lemma) {
			matches = append(matches, model.TriggerWord{Lemma: token.Lemma, Text: token.Text})
		}
	}
	return matches
}

func sentenceTexts(sentences []segment.Sentence) []string {
	texts := make([]string, len(sentences))
	for i, s := range sentences {
		texts[i] = s.Text
	}
	return texts
}
