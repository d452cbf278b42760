package model

// BaseRecord is the serialized base tier
type BaseRecord struct {
	FocusSentence string            `json:"focus_sentence"`
	Precontext    []string          `json:"precontext"`
	Postcontext   []string          `json:"postcontext"`
	FullText      string            `json:"full_text"`
	Metadata      map[string]string `json:"metadata"`
}

// LexicalRecord is the serialized lexical tier (includes BaseRecord)
type LexicalRecord struct {
	BaseRecord
	TriggerWords []TriggerWord `json:"trigger_words"`
}

// ModelledRecord is the serialized modelled tier (includes LexicalRecord).
// Label is null when the candidate has no scores.
type ModelledRecord struct {
	LexicalRecord
	Label         *int      `json:"label"`
	Probabilities []float64 `json:"probabilities"`
	RawScores     []float64 `json:"raw_scores"`
}

// Recorder is implemented by every candidate tier
type Recorder[R any] interface {
	ToRecord() R
}

// Records converts a result list to its serializable records, preserving order
func Records[R any, C Recorder[R]](candidates []C) []R {
	out := make([]R, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.ToRecord())
	}
	return out
}
