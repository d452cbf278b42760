package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLexical(t *testing.T) *LexicalCandidate {
	t.Helper()
	meta := &MetaData{Title: "Debatte", Source: "Bundestag"}
	lc := NewLexicalCandidate(2, meta, []TriggerWord{{Lemma: "verantwortung", Text: "Verantwortung"}})
	lc.SetFocusSentence("Wir tragen Verantwortung.")
	lc.SetPrecontext([]string{"Eins.", "Zwei."})
	lc.SetPostcontext([]string{"Vier."})
	return lc
}

func TestSigmoid(t *testing.T) {
	assert.InDelta(t, 0.5, Sigmoid(0), 1e-12)
	assert.InDelta(t, 0.8807970779778823, Sigmoid(2), 1e-12)
	assert.InDelta(t, 0.2689414213699951, Sigmoid(-1), 1e-12)
}

func TestArgMax(t *testing.T) {
	assert.Equal(t, -1, ArgMax(nil))
	assert.Equal(t, 0, ArgMax([]float64{0.3}))
	assert.Equal(t, 2, ArgMax([]float64{0.1, 0.2, 0.9}))
	assert.Equal(t, 0, ArgMax([]float64{0.5, 0.5}), "ties pick the lowest index")
	assert.Equal(t, 1, ArgMax([]float64{math.NaN(), 0.1}))
	assert.Equal(t, 0, ArgMax([]float64{math.NaN(), math.NaN()}))
}

func TestPromote_PreservesFields(t *testing.T) {
	lc := newLexical(t)

	m := Promote(lc, []float64{2.0, -1.0})

	assert.Equal(t, lc.FocusSentence(), m.FocusSentence())
	assert.Equal(t, lc.Precontext(), m.Precontext())
	assert.Equal(t, lc.Postcontext(), m.Postcontext())
	assert.Equal(t, lc.TriggerWords(), m.TriggerWords())
	assert.Equal(t, lc.FullText(), m.FullText())
	assert.Same(t, lc.Metadata(), m.Metadata())
	assert.Equal(t, lc.ContextWindow(), m.ContextWindow())
}

func TestPromote_SourceUnchanged(t *testing.T) {
	lc := newLexical(t)
	before := lc.ToRecord()

	m := Promote(lc, []float64{1, 2})
	m.SetFocusSentence("Neu.")
	m.SetTriggerWords(nil)

	assert.Equal(t, before, lc.ToRecord())
}

func TestModelled_LabelFlipsWithScores(t *testing.T) {
	m := Promote(newLexical(t), []float64{2.0, -1.0})

	label, ok := m.Label()
	require.True(t, ok)
	assert.Equal(t, 0, label)
	first := m.Probabilities()
	assert.InDelta(t, Sigmoid(2.0), first[0], 1e-12)
	assert.InDelta(t, Sigmoid(-1.0), first[1], 1e-12)
	assert.False(t, m.Detected())

	m.SetRawScores([]float64{-1.0, 2.0})

	label, ok = m.Label()
	require.True(t, ok)
	assert.Equal(t, 1, label)
	second := m.Probabilities()
	assert.NotEqual(t, first[0], second[0])
	assert.NotEqual(t, first[1], second[1])
	assert.True(t, m.Detected())
}

func TestModelled_LabelIsArgMaxOfProbabilities(t *testing.T) {
	cases := [][]float64{
		{0.1, 0.2},
		{3, 3},
		{-5, -4, -6},
		{10, -10, 10},
	}
	for _, scores := range cases {
		m := Promote(newLexical(t), scores)
		label, ok := m.Label()
		require.True(t, ok)
		assert.Equal(t, ArgMax(m.Probabilities()), label)
		assert.Len(t, m.Probabilities(), len(m.RawScores()))
	}
}

func TestModelled_EmptyScores(t *testing.T) {
	m := Promote(newLexical(t), nil)

	_, ok := m.Label()
	assert.False(t, ok)
	assert.Empty(t, m.Probabilities())
	assert.False(t, m.Detected())

	rec := m.ToRecord()
	assert.Nil(t, rec.Label)
	assert.Equal(t, []float64{}, rec.Probabilities)

	m.SetRawScores([]float64{0, 1})
	m.SetRawScores([]float64{})
	_, ok = m.Label()
	assert.False(t, ok)
}

func TestModelled_ScoresAreCopied(t *testing.T) {
	scores := []float64{2, -1}
	m := Promote(newLexical(t), scores)

	scores[0] = -100
	label, _ := m.Label()
	assert.Equal(t, 0, label)
	assert.Equal(t, []float64{2, -1}, m.RawScores())
}

func TestModelled_String(t *testing.T) {
	m := Promote(newLexical(t), []float64{2, -1})
	assert.Equal(t, `"Wir tragen Verantwortung." ...with moralizing content not detected by the classification model.`, m.String())

	m.SetRawScores([]float64{-1, 2})
	assert.Equal(t, `"Wir tragen Verantwortung." ...with moralizing content detected by the classification model.`, m.String())
}

func TestModelled_ToRecordJSON(t *testing.T) {
	m := Promote(newLexical(t), []float64{-1, 2})

	data, err := json.Marshal(m.ToRecord())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{"focus_sentence", "precontext", "postcontext", "full_text", "metadata", "trigger_words", "label", "probabilities"} {
		assert.Contains(t, decoded, key)
	}
	assert.Equal(t, float64(1), decoded["label"])
	probs, ok := decoded["probabilities"].([]any)
	require.True(t, ok)
	assert.Len(t, probs, 2)

	meta, ok := decoded["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Debatte", meta["title"])
	assert.Equal(t, "", meta["author"])

	triggers, ok := decoded["trigger_words"].([]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"lemma": "verantwortung", "text": "Verantwortung"}, triggers[0])
}

func TestRecords_PreservesOrder(t *testing.T) {
	a := NewLexicalCandidate(1, nil, nil)
	a.SetFocusSentence("A.")
	b := NewLexicalCandidate(1, nil, nil)
	b.SetFocusSentence("B.")

	recs := Records[LexicalRecord]([]*LexicalCandidate{a, b})

	require.Len(t, recs, 2)
	assert.Equal(t, "A.", recs[0].FocusSentence)
	assert.Equal(t, "B.", recs[1].FocusSentence)
}
