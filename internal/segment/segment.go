// Package segment splits raw text into sentences of lemmatized tokens.
//
// The NLP parser itself is an external collaborator; this package defines
// its interface and ships a rule-based fallback plus an HTTP bridge to a
// parser service.
package segment

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/dimiscan/internal/model"
)

// Token is one word or punctuation mark with its base form
type Token struct {
	Lemma string `json:"lemma"`
	Text  string `json:"text"`
}

// Sentence is an ordered list of tokens plus the sentence's original text
type Sentence struct {
	Text   string  `json:"text"`
	Tokens []Token `json:"tokens"`
}

// Segmenter turns raw text into sentences. Implementations are loaded
// once per run and must be safe for concurrent use.
type Segmenter interface {
	Segment(ctx context.Context, text string) ([]Sentence, error)
}

// New builds the segmenter selected by cfg. The http provider needs a
// client; pass nil to use a default one.
func New(cfg model.SegmenterConfig, client HTTPDoer) (Segmenter, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "rule":
		lem := Lemmatizer(IdentityLemmatizer{})
		if cfg.LemmaTable != "" {
			table, err := LoadLemmaTable(cfg.LemmaTable, cfg.Model)
			if err != nil {
				return nil, err
			}
			lem = table
		}
		return NewRuleSegmenter(lem, cfg.Model), nil

	case "http":
		return NewHTTPSegmenter(client, cfg.Endpoint, cfg.Model)

	default:
		return nil, eris.Errorf("unknown segmenter provider: %s (supported: rule, http)", cfg.Provider)
	}
}
