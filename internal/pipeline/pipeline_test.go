package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/dimiscan/internal/classify"
	"github.com/ppiankov/dimiscan/internal/dictionary"
	"github.com/ppiankov/dimiscan/internal/model"
	"github.com/ppiankov/dimiscan/internal/segment"
)

func newTestPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	p, err := NewPipeline(segment.NewRuleSegmenter(nil, "de_core_news_lg"), opts)
	require.NoError(t, err)
	return p
}

func triggers(lemmas ...string) *dictionary.Set {
	return dictionary.NewSet(lemmas, true)
}

// wordTokenizer emits one id per word
type wordTokenizer struct{}

func (wordTokenizer) Encode(text string) ([]int, error) {
	ids := []int{101}
	for range strings.Fields(text) {
		ids = append(ids, 7)
	}
	return append(ids, 102), nil
}

// keywordModel fails on texts containing "Fehler" and detects "Schande"
type keywordModel struct{}

func (keywordModel) Forward(ctx context.Context, in classify.Input) (classify.Output, error) {
	if strings.Contains(in.Text, "Fehler") {
		return classify.Output{}, errors.New("model crashed")
	}
	if strings.Contains(in.Text, "Schande") {
		return classify.Output{Scores: []float64{-1, 2}}, nil
	}
	return classify.Output{Scores: []float64{2, -1}}, nil
}

// batchKeywordModel scores whole batches and rejects any batch holding a "Fehler" text
type batchKeywordModel struct{ keywordModel }

func (m batchKeywordModel) ForwardBatch(ctx context.Context, in []classify.Input) ([]classify.Output, error) {
	outs := make([]classify.Output, len(in))
	for i, input := range in {
		if strings.Contains(input.Text, "Fehler") {
			return nil, errors.New("batch rejected")
		}
		out, err := m.Forward(ctx, input)
		if err != nil {
			return nil, err
		}
		outs[i] = out
	}
	return outs, nil
}

func newTestClassifier(t *testing.T) *classify.Classifier {
	t.Helper()
	c, err := classify.NewClassifier(wordTokenizer{}, keywordModel{}, "cpu")
	require.NoError(t, err)
	return c
}

func TestScan_FiveSentences(t *testing.T) {
	p := newTestPipeline(t, Options{})
	text := "Eins ist hier. Zwei ist dort. Das ist eine Schande. Vier folgt. Fünf endet."

	res, err := p.Scan(context.Background(), Request{Text: text, Triggers: triggers("schande"), Window: 2})
	require.NoError(t, err)

	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	assert.Equal(t, "Das ist eine Schande.", c.FocusSentence())
	assert.Equal(t, []string{"Eins ist hier.", "Zwei ist dort."}, c.Precontext())
	assert.Equal(t, []string{"Vier folgt.", "Fünf endet."}, c.Postcontext())
	assert.Equal(t, []model.TriggerWord{{Lemma: "Schande", Text: "Schande"}}, c.TriggerWords())
	assert.Empty(t, res.Diagnostics)
}

func TestScan_ParagraphsDoNotShareContext(t *testing.T) {
	p := newTestPipeline(t, Options{})
	text := "Erster Satz. Das ist eine Schande.\n\n\n  \nDas ist Pflicht. Letzter Satz."
	req := Request{Text: text, Triggers: triggers("schande", "pflicht"), Window: 2, SplitParagraphs: true}

	res, err := p.Scan(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)

	assert.Equal(t, "Das ist eine Schande.", res.Candidates[0].FocusSentence())
	assert.Equal(t, []string{"Erster Satz."}, res.Candidates[0].Precontext())
	assert.Empty(t, res.Candidates[0].Postcontext())

	assert.Equal(t, "Das ist Pflicht.", res.Candidates[1].FocusSentence())
	assert.Empty(t, res.Candidates[1].Precontext())
	assert.Equal(t, []string{"Letzter Satz."}, res.Candidates[1].Postcontext())

	req.SplitParagraphs = false
	res, err = p.Scan(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, []string{"Das ist Pflicht.", "Letzter Satz."}, res.Candidates[0].Postcontext())
}

func TestScan_SharesMetadata(t *testing.T) {
	p := newTestPipeline(t, Options{})
	meta := &model.MetaData{Title: "Bundestagsrede", Author: "N.N."}

	res, err := p.Scan(context.Background(), Request{Text: "Ehre. Noch mehr Ehre.", Triggers: triggers("ehre"), Window: 1, Metadata: meta})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	for _, c := range res.Candidates {
		assert.Same(t, meta, c.Metadata())
	}
}

func TestScan_Validation(t *testing.T) {
	_, err := NewPipeline(nil, Options{})
	assert.Error(t, err)

	p := newTestPipeline(t, Options{})
	_, err = p.Scan(context.Background(), Request{Text: "x"})
	assert.Error(t, err, "missing dictionary")

	_, err = p.ScanAndClassify(context.Background(), Request{Text: "x", Triggers: triggers("x")}, nil)
	assert.Error(t, err, "missing classifier")
}

type failingSegmenter struct{}

func (failingSegmenter) Segment(ctx context.Context, text string) ([]segment.Sentence, error) {
	return nil, errors.New("parser unavailable")
}

func TestScan_SegmenterError(t *testing.T) {
	p, err := NewPipeline(failingSegmenter{}, Options{})
	require.NoError(t, err)

	_, err = p.Scan(context.Background(), Request{Text: "x", Triggers: triggers("x")})
	assert.ErrorContains(t, err, "parser unavailable")
}

func TestScanAndClassify_Labels(t *testing.T) {
	p := newTestPipeline(t, Options{})
	text := "Das ist eine Schande. Dazwischen steht Text. Pflicht ist Pflicht."

	res, err := p.ScanAndClassify(context.Background(), Request{Text: text, Triggers: triggers("schande", "pflicht"), Window: 0}, newTestClassifier(t))
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 2, res.Lexical)

	assert.True(t, res.Candidates[0].Detected())
	label, ok := res.Candidates[1].Label()
	assert.True(t, ok)
	assert.Equal(t, model.LabelNotDetected, label)
	assert.Equal(t, []float64{2, -1}, res.Candidates[1].RawScores())
	assert.Len(t, res.Candidates[1].TriggerWords(), 2)
}

func TestScanAndClassify_PartialFailureKeepsOrder(t *testing.T) {
	text := "Ehre eins. Ehre mit Fehler. Ehre drei. Ehre und Schande. Ehre mit Fehler noch. Ehre sechs."

	for _, opts := range []Options{
		{Workers: 1, BatchSize: 1},
		{Workers: 4, BatchSize: 1},
		{Workers: 3, BatchSize: 2},
		{Workers: 2, BatchSize: 10},
	} {
		p := newTestPipeline(t, opts)
		res, err := p.ScanAndClassify(context.Background(), Request{Text: text, Triggers: triggers("ehre"), Window: 0}, newTestClassifier(t))
		require.NoError(t, err)

		got := make([]string, len(res.Candidates))
		for i, c := range res.Candidates {
			got[i] = c.FocusSentence()
		}
		assert.Equal(t, []string{"Ehre eins.", "Ehre drei.", "Ehre und Schande.", "Ehre sechs."}, got, "opts %+v", opts)

		require.Len(t, res.Failures, 2)
		assert.Equal(t, 1, res.Failures[0].Index)
		assert.Equal(t, "Ehre mit Fehler.", res.Failures[0].FocusSentence)
		assert.ErrorContains(t, res.Failures[0].Err, "model crashed")
		assert.Equal(t, 4, res.Failures[1].Index)
		assert.True(t, res.Candidates[2].Detected())
	}
}

func TestClassify_CancelledContext(t *testing.T) {
	p := newTestPipeline(t, Options{Workers: 2})
	res, err := p.Scan(context.Background(), Request{Text: "Ehre. Ehre.", Triggers: triggers("ehre"), Window: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	modelled, failures := p.Classify(ctx, res.Candidates, newTestClassifier(t))
	assert.Len(t, modelled, 0)
	assert.Len(t, failures, 2)
}

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("\n\nErster Absatz.\nNoch erster.\n\n\n\nZweiter.\n \n")
	assert.Equal(t, []string{"Erster Absatz.\nNoch erster.", "Zweiter."}, got)

	assert.Empty(t, SplitParagraphs("  \n\n  "))
}

func TestScanAndClassify_BatchFailureOnlyDropsBadCandidate(t *testing.T) {
	c, err := classify.NewClassifier(wordTokenizer{}, batchKeywordModel{}, "cpu")
	require.NoError(t, err)
	text := "Ehre eins. Ehre mit Fehler. Ehre und Schande. Ehre vier."

	for _, size := range []int{1, 2, 4} {
		p := newTestPipeline(t, Options{Workers: 2, BatchSize: size})
		res, err := p.ScanAndClassify(context.Background(), Request{Text: text, Triggers: triggers("ehre")}, c)
		require.NoError(t, err)

		assert.Equal(t, 4, res.Lexical, "batch size %d", size)
		require.Len(t, res.Candidates, 3, "batch size %d", size)
		require.Len(t, res.Failures, 1, "batch size %d", size)
		assert.Equal(t, 1, res.Failures[0].Index)
		assert.ErrorContains(t, res.Failures[0].Err, "model crashed")
		assert.Equal(t, "Ehre und Schande.", res.Candidates[1].FocusSentence())
		assert.True(t, res.Candidates[1].Detected())
	}
}
