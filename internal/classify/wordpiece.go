package classify

import (
	"bufio"
	"os"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Special tokens of a BERT vocabulary
const (
	TokenPad = "[PAD]"
	TokenUnk = "[UNK]"
	TokenCLS = "[CLS]"
	TokenSEP = "[SEP]"

	maxWordRunes = 100
)

// WordPieceOptions controls encoding
type WordPieceOptions struct {
	Lowercase bool // uncased vocabularies
	MaxLength int  // including [CLS] and [SEP]; 0 means unlimited
	Pad       bool // pad to MaxLength with [PAD]
}

// WordPieceTokenizer is a BERT style tokenizer: whitespace and punctuation
// splitting followed by greedy longest-match-first subword lookup.
type WordPieceTokenizer struct {
	vocab map[string]int
	opts  WordPieceOptions

	pad, unk, cls, sep int
}

// NewWordPieceTokenizer builds a tokenizer from vocabulary entries; the id
// of an entry is its position. [UNK], [CLS] and [SEP] must be present.
// The attention mask treats id 0 as padding, so [PAD] must be 0 when present.
func NewWordPieceTokenizer(vocab []string, opts WordPieceOptions) (*WordPieceTokenizer, error) {
	t := &WordPieceTokenizer{vocab: make(map[string]int, len(vocab)), opts: opts}
	for id, tok := range vocab {
		if _, dup := t.vocab[tok]; !dup {
			t.vocab[tok] = id
		}
	}

	var ok bool
	for _, special := range []struct {
		name string
		dst  *int
	}{{TokenUnk, &t.unk}, {TokenCLS, &t.cls}, {TokenSEP, &t.sep}} {
		if *special.dst, ok = t.vocab[special.name]; !ok {
			return nil, eris.Errorf("wordpiece: vocabulary lacks %s", special.name)
		}
	}

	if id, ok := t.vocab[TokenPad]; ok && id != 0 {
		return nil, eris.Errorf("wordpiece: %s must have id 0, has %d", TokenPad, id)
	}
	if opts.MaxLength != 0 && opts.MaxLength < 2 {
		return nil, eris.Errorf("wordpiece: max length %d leaves no room for [CLS] and [SEP]", opts.MaxLength)
	}
	return t, nil
}

// LoadVocab reads a vocab.txt (one token per line)
func LoadVocab(path string, opts WordPieceOptions) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "wordpiece: open %s", path)
	}
	defer func() { _ = f.Close() }()

	var vocab []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		vocab = append(vocab, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "wordpiece: read %s", path)
	}
	return NewWordPieceTokenizer(vocab, opts)
}

// VocabSize returns the number of distinct entries
func (t *WordPieceTokenizer) VocabSize() int { return len(t.vocab) }

// Encode returns [CLS] pieces... [SEP], truncated and optionally padded to MaxLength
func (t *WordPieceTokenizer) Encode(text string) ([]int, error) {
	var pieces []int
	for _, word := range t.basicTokens(text) {
		pieces = append(pieces, t.wordPieces(word)...)
	}

	if t.opts.MaxLength > 0 && len(pieces) > t.opts.MaxLength-2 {
		pieces = pieces[:t.opts.MaxLength-2]
	}

	ids := make([]int, 0, len(pieces)+2)
	ids = append(ids, t.cls)
	ids = append(ids, pieces...)
	ids = append(ids, t.sep)

	if t.opts.Pad && t.opts.MaxLength > 0 {
		for len(ids) < t.opts.MaxLength {
			ids = append(ids, t.pad)
		}
	}
	return ids, nil
}

// Tokens returns the subword strings for text, without special tokens
func (t *WordPieceTokenizer) Tokens(text string) []string {
	byID := make(map[int]string, len(t.vocab))
	for tok, id := range t.vocab {
		byID[id] = tok
	}

	var out []string
	for _, word := range t.basicTokens(text) {
		for _, id := range t.wordPieces(word) {
			out = append(out, byID[id])
		}
	}
	return out
}

func (t *WordPieceTokenizer) basicTokens(text string) []string {
	text = norm.NFC.String(text)
	if t.opts.Lowercase {
		text = stripAccents(cases.Lower(language.Und).String(text))
	}

	var (
		words []string
		cur   strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

func (t *WordPieceTokenizer) wordPieces(word string) []int {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []int{t.unk}
	}

	var ids []int
	for start := 0; start < len(runes); {
		end := len(runes)
		found := -1
		for ; end > start; end-- {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := t.vocab[sub]; ok {
				found = id
				break
			}
		}
		if found < 0 {
			return []int{t.unk}
		}
		ids = append(ids, found)
		start = end
	}
	return ids
}

// stripAccents drops combining marks, as uncased BERT vocabularies expect
func stripAccents(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
