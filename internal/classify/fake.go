package classify

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fakeVocabSize bounds the ids FakeTokenizer hands out
const fakeVocabSize = 30522

// FakeModel returns standard normal pseudo-random logits seeded by the
// input ids, so the same text always gets the same scores. It stands in for
// a real classifier in tests and dry runs.
type FakeModel struct {
	numClasses int
}

// NewFakeModel creates a fake model with numClasses outputs (default 2)
func NewFakeModel(numClasses int) *FakeModel {
	if numClasses <= 0 {
		numClasses = 2
	}
	return &FakeModel{numClasses: numClasses}
}

// Forward scores one input
func (m *FakeModel) Forward(ctx context.Context, in Input) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	seed := seedOf(in.InputIDs)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	scores := make([]float64, m.numClasses)
	for i := range scores {
		scores[i] = rng.NormFloat64()
	}
	return Output{Scores: scores}, nil
}

// ForwardBatch scores each input independently
func (m *FakeModel) ForwardBatch(ctx context.Context, in []Input) ([]Output, error) {
	outs := make([]Output, len(in))
	for i, input := range in {
		out, err := m.Forward(ctx, input)
		if err != nil {
			return nil, err
		}
		outs[i] = out
	}
	return outs, nil
}

func seedOf(ids []int) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, id := range ids {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// FakeTokenizer hashes lower-cased words into a BERT-sized id range, framed by
// [CLS]=2 and [SEP]=3. It needs no vocab file and pairs with FakeModel for
// dry runs.
type FakeTokenizer struct {
	maxLength int
	lower     cases.Caser
}

// NewFakeTokenizer creates a fake tokenizer truncating to maxLength ids (0 = no limit)
func NewFakeTokenizer(maxLength int) *FakeTokenizer {
	return &FakeTokenizer{maxLength: maxLength, lower: cases.Lower(language.Und)}
}

// Encode maps each word to a stable id
func (t *FakeTokenizer) Encode(text string) ([]int, error) {
	words := strings.FieldsFunc(t.lower.String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	ids := make([]int, 0, len(words)+2)
	ids = append(ids, 2)
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		ids = append(ids, 4+int(h.Sum32()%(fakeVocabSize-4)))
	}
	if t.maxLength >= 2 && len(ids)+1 > t.maxLength {
		ids = ids[:t.maxLength-1]
	}
	return append(ids, 3), nil
}
