package model

import "strings"

// DefaultContextWindow is the number of sentences kept on each side of a focus sentence
const DefaultContextWindow = 2

// Option configures a candidate at construction
type Option func(*Candidate)

// WithReporter routes truncation diagnostics to r
func WithReporter(r Reporter) Option {
	return func(c *Candidate) {
		if r != nil {
			c.reporter = r
		}
	}
}

// Candidate is a focus sentence with its bounded surrounding context.
// FullText is derived and recomputed on every mutation of the three text fields.
type Candidate struct {
	focusSentence string
	precontext    []string
	postcontext   []string
	fullText      string
	metadata      *MetaData
	contextWindow int
	reporter      Reporter
}

// NewCandidate creates an empty candidate. A nil meta is replaced by empty metadata.
func NewCandidate(window int, meta *MetaData, opts ...Option) *Candidate {
	if window < 0 {
		window = 0
	}
	if meta == nil {
		meta = EmptyMetaData()
	}

	c := &Candidate{
		contextWindow: window,
		metadata:      meta,
		reporter:      NopReporter,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.updateFullText()
	return c
}

// FocusSentence returns the sentence that contained a trigger
func (c *Candidate) FocusSentence() string { return c.focusSentence }

// Precontext returns a copy of the sentences preceding the focus sentence
func (c *Candidate) Precontext() []string { return cloneStrings(c.precontext) }

// Postcontext returns a copy of the sentences following the focus sentence
func (c *Candidate) Postcontext() []string { return cloneStrings(c.postcontext) }

// FullText returns precontext, focus sentence and postcontext joined by single spaces
func (c *Candidate) FullText() string { return c.fullText }

// Metadata returns the shared document metadata
func (c *Candidate) Metadata() *MetaData { return c.metadata }

// ContextWindow returns the configured window size
func (c *Candidate) ContextWindow() int { return c.contextWindow }

// SetFocusSentence replaces the focus sentence
func (c *Candidate) SetFocusSentence(s string) {
	c.focusSentence = s
	c.updateFullText()
}

// SetPrecontext replaces the precontext. Values longer than the window keep
// their last ContextWindow() elements and raise a truncation diagnostic.
func (c *Candidate) SetPrecontext(sentences []string) {
	if len(sentences) > c.contextWindow {
		c.reportTruncation("precontext", len(sentences))
		sentences = sentences[len(sentences)-c.contextWindow:]
	}
	c.precontext = cloneStrings(sentences)
	c.updateFullText()
}

// SetPostcontext replaces the postcontext. Values longer than the window keep
// their first ContextWindow() elements and raise a truncation diagnostic.
func (c *Candidate) SetPostcontext(sentences []string) {
	if len(sentences) > c.contextWindow {
		c.reportTruncation("postcontext", len(sentences))
		sentences = sentences[:c.contextWindow]
	}
	c.postcontext = cloneStrings(sentences)
	c.updateFullText()
}

// SetMetadata attaches shared metadata. A nil meta is ignored.
func (c *Candidate) SetMetadata(meta *MetaData) {
	if meta != nil {
		c.metadata = meta
	}
}

// ToRecord returns the serializable form of the base tier
func (c *Candidate) ToRecord() BaseRecord {
	return BaseRecord{
		FocusSentence: c.focusSentence,
		Precontext:    nonNilStrings(c.precontext),
		Postcontext:   nonNilStrings(c.postcontext),
		FullText:      c.fullText,
		Metadata:      c.metadata.ToRecord(),
	}
}

// String returns the full text
func (c *Candidate) String() string {
	return c.fullText
}

func (c *Candidate) updateFullText() {
	c.fullText = strings.Join(c.precontext, " ") + " " + c.focusSentence + " " + strings.Join(c.postcontext, " ")
}

func (c *Candidate) reportTruncation(field string, length int) {
	c.reporter.Report(Diagnostic{
		Kind:   DiagnosticTruncation,
		Field:  field,
		Length: length,
		Window: c.contextWindow,
		Focus:  c.focusSentence,
	})
}

// TriggerWord is a dictionary hit: the lemma that matched and the surface form in the text
type TriggerWord struct {
	Lemma string `json:"lemma"`
	Text  string `json:"text"`
}

// LexicalCandidate is a Candidate together with the trigger words found in it
type LexicalCandidate struct {
	Candidate
	triggerWords []TriggerWord
}

// NewLexicalCandidate creates a lexical candidate. A nil triggers list is stored as empty.
func NewLexicalCandidate(window int, meta *MetaData, triggers []TriggerWord, opts ...Option) *LexicalCandidate {
	lc := &LexicalCandidate{Candidate: *NewCandidate(window, meta, opts...)}
	lc.SetTriggerWords(triggers)
	return lc
}

// TriggerWords returns a copy of the recorded trigger words
func (c *LexicalCandidate) TriggerWords() []TriggerWord {
	return cloneTriggers(c.triggerWords)
}

// SetTriggerWords replaces the trigger words wholesale
func (c *LexicalCandidate) SetTriggerWords(words []TriggerWord) {
	c.triggerWords = nonNilTriggers(cloneTriggers(words))
}

// ToRecord returns the serializable form of the base and lexical tiers
func (c *LexicalCandidate) ToRecord() LexicalRecord {
	return LexicalRecord{
		BaseRecord:   c.Candidate.ToRecord(),
		TriggerWords: nonNilTriggers(cloneTriggers(c.triggerWords)),
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return cloneStrings(in)
}

func cloneTriggers(in []TriggerWord) []TriggerWord {
	if in == nil {
		return nil
	}
	out := make([]TriggerWord, len(in))
	copy(out, in)
	return out
}

func nonNilTriggers(in []TriggerWord) []TriggerWord {
	if in == nil {
		return []TriggerWord{}
	}
	return in
}
