package segment

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/dimiscan/internal/util"
)

// HTTPDoer is the subset of *http.Client used by remote backends
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSegmenter delegates parsing to an external parser service.
//
// Request:  POST {"text": "...", "model": "de_core_news_lg"}
// Response: {"sentences": [{"text": "...", "tokens": [{"lemma": "...", "text": "..."}]}]}
type HTTPSegmenter struct {
	client   HTTPDoer
	endpoint string
	model    string
	retries  uint64
}

type segmentRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type segmentResponse struct {
	Sentences []Sentence `json:"sentences"`
}

// NewHTTPSegmenter creates a segmenter that calls endpoint
func NewHTTPSegmenter(client HTTPDoer, endpoint, model string) (*HTTPSegmenter, error) {
	if endpoint == "" {
		return nil, eris.New("http segmenter: endpoint is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSegmenter{client: client, endpoint: endpoint, model: model, retries: 2}, nil
}

// Segment posts text to the parser service
func (s *HTTPSegmenter) Segment(ctx context.Context, text string) ([]Sentence, error) {
	body, err := json.Marshal(segmentRequest{Text: text, Model: s.model})
	if err != nil {
		return nil, eris.Wrap(err, "http segmenter: marshal request")
	}

	var out segmentResponse
	err = util.Retry(ctx, s.retries, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
		if err != nil {
			return eris.Wrap(err, "http segmenter: create request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &util.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		}
		return json.NewDecoder(resp.Body).Decode(&out)
	})
	if err != nil {
		return nil, eris.Wrap(err, "http segmenter: segment")
	}

	for i := range out.Sentences {
		if out.Sentences[i].Text == "" {
			out.Sentences[i].Text = joinTokens(out.Sentences[i].Tokens)
		}
	}
	return out.Sentences, nil
}

func joinTokens(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}
