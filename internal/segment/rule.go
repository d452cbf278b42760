package segment

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// abbreviations never end a sentence (lower-cased, with trailing dot)
var abbreviations = map[string]bool{
	"z.b.": true, "bzw.": true, "usw.": true, "etc.": true, "ca.": true,
	"vgl.": true, "d.h.": true, "u.a.": true, "s.": true, "nr.": true,
	"dr.": true, "prof.": true, "hr.": true, "fr.": true, "st.": true,
	"evtl.": true, "ggf.": true, "inkl.": true, "bspw.": true, "abs.": true,
	"mr.": true, "mrs.": true, "ms.": true, "e.g.": true, "i.e.": true,
	"vs.": true, "jan.": true, "feb.": true, "okt.": true, "dez.": true,
}

// RuleSegmenter is a dependency-free heuristic segmenter: sentences end at
// . ! ? (or a blank line) followed by whitespace, except after known
// abbreviations, ordinals and single initials.
type RuleSegmenter struct {
	lemmatizer Lemmatizer
	model      string
}

// NewRuleSegmenter creates a rule segmenter. model is the language tag,
// recorded for logging only.
func NewRuleSegmenter(lem Lemmatizer, model string) *RuleSegmenter {
	if lem == nil {
		lem = IdentityLemmatizer{}
	}
	return &RuleSegmenter{lemmatizer: lem, model: model}
}

// Model returns the configured language tag
func (s *RuleSegmenter) Model() string { return s.model }

// Segment splits text into sentences and lemmatizes their tokens
func (s *RuleSegmenter) Segment(ctx context.Context, text string) ([]Sentence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw := SplitSentences(norm.NFC.String(text))
	sentences := make([]Sentence, 0, len(raw))
	for _, r := range raw {
		words := Tokenize(r)
		tokens := make([]Token, 0, len(words))
		for _, w := range words {
			tokens = append(tokens, Token{Lemma: s.lemmatizer.Lemma(w), Text: w})
		}
		sentences = append(sentences, Sentence{Text: r, Tokens: tokens})
	}
	return sentences, nil
}

// SplitSentences splits text into trimmed, non-empty sentences
func SplitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.Join(strings.Fields(current.String()), " ")
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		// Blank line
		if r == '\n' && nextNonSpaceIsNewline(runes, i+1) {
			flush()
			continue
		}

		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		// Absorb runs of terminators and closing quotes/brackets
		for i+1 < len(runes) && isTrailer(runes[i+1]) {
			i++
			current.WriteRune(runes[i])
		}

		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && !endsSentence(current.String(), runes[i+1:]) {
			continue
		}
		flush()
	}
	flush()

	return sentences
}

func isTrailer(r rune) bool {
	switch r {
	case '.', '!', '?', '"', '\'', ')', ']', '»', '«', '“', '”', '’', '‘':
		return true
	}
	return false
}

func nextNonSpaceIsNewline(runes []rune, from int) bool {
	for j := from; j < len(runes); j++ {
		switch {
		case runes[j] == '\n':
			return true
		case unicode.IsSpace(runes[j]):
			continue
		default:
			return false
		}
	}
	return false
}

// endsSentence decides whether a period at the end of soFar closes the sentence
func endsSentence(soFar string, rest []rune) bool {
	fields := strings.Fields(soFar)
	if len(fields) == 0 {
		return true
	}
	last := strings.ToLower(strings.TrimLeft(fields[len(fields)-1], "(\"'„“»«"))

	if abbreviations[last] {
		return false
	}

	word := strings.TrimSuffix(last, ".")
	// Single initial ("J. Smith") or ordinal ("3. Oktober")
	if len([]rune(word)) == 1 && unicode.IsLetter([]rune(word)[0]) {
		return false
	}
	if word != "" && isDigits(word) && nextWordIsLower(rest) {
		return false
	}
	if word != "" && isDigits(word) && nextWordStartsMonth(rest) {
		return false
	}
	return true
}

var months = []string{
	"januar", "februar", "märz", "april", "mai", "juni", "juli",
	"august", "september", "oktober", "november", "dezember",
}

func nextWord(rest []rune) string {
	fields := strings.Fields(string(rest))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func nextWordIsLower(rest []rune) bool {
	w := []rune(nextWord(rest))
	return len(w) > 0 && unicode.IsLower(w[0])
}

func nextWordStartsMonth(rest []rune) bool {
	w := strings.ToLower(strings.Trim(nextWord(rest), ".,;:"))
	for _, m := range months {
		if w == m {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Tokenize splits a sentence into words and punctuation marks. Hyphens and
// apostrophes inside words are kept ("Anti-Kriegs-Rede", "geht's").
func Tokenize(sentence string) []string {
	runes := []rune(sentence)
	var tokens []string
	start := -1

	for i, r := range runes {
		inWord := unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
		if !inWord && (r == '-' || r == '\'' || r == '’') && start >= 0 && i+1 < len(runes) {
			next := runes[i+1]
			inWord = unicode.IsLetter(next) || unicode.IsDigit(next)
		}

		if inWord {
			if start < 0 {
				start = i
			}
			continue
		}

		if start >= 0 {
			tokens = append(tokens, string(runes[start:i]))
			start = -1
		}
		if !unicode.IsSpace(r) {
			tokens = append(tokens, string(r))
		}
	}
	if start >= 0 {
		tokens = append(tokens, string(runes[start:]))
	}

	return tokens
}
