package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/dimiscan/internal/util"
	"github.com/ppiankov/dimiscan/internal/worker"
)

// HTTPDoer is the subset of *http.Client used by remote models
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPModel calls a JSON inference endpoint serving a sequence classifier.
//
// Request:  POST {"model": "...", "device": "cpu", "input_ids": [[...]], "attention_mask": [[...]]}
// Response: {"logits": [[...], ...]}, one row per input
type HTTPModel struct {
	client   HTTPDoer
	endpoint string
	model    string
	device   string
	apiKey   string
	retries  uint64
	limiter  *worker.Limiter
}

type inferenceRequest struct {
	Model         string  `json:"model,omitempty"`
	Device        string  `json:"device,omitempty"`
	InputIDs      [][]int `json:"input_ids"`
	AttentionMask [][]int `json:"attention_mask"`
}

type inferenceResponse struct {
	Logits [][]float64 `json:"logits"`
}

// HTTPModelOptions configures an HTTPModel
type HTTPModelOptions struct {
	Model   string
	Device  string
	APIKey  string // sent as a bearer token when set
	Retries uint64
	Limiter *worker.Limiter
}

// NewHTTPModel creates a model backed by endpoint
func NewHTTPModel(client HTTPDoer, endpoint string, opts HTTPModelOptions) (*HTTPModel, error) {
	if endpoint == "" {
		return nil, eris.New("http model: endpoint is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPModel{
		client:   client,
		endpoint: endpoint,
		model:    opts.Model,
		device:   opts.Device,
		apiKey:   opts.APIKey,
		retries:  opts.Retries,
		limiter:  opts.Limiter,
	}, nil
}

// Forward scores one input
func (m *HTTPModel) Forward(ctx context.Context, in Input) (Output, error) {
	outs, err := m.ForwardBatch(ctx, []Input{in})
	if err != nil {
		return Output{}, err
	}
	return outs[0], nil
}

// ForwardBatch scores inputs in a single request
func (m *HTTPModel) ForwardBatch(ctx context.Context, in []Input) ([]Output, error) {
	req := inferenceRequest{
		Model:         m.model,
		Device:        m.device,
		InputIDs:      make([][]int, len(in)),
		AttentionMask: make([][]int, len(in)),
	}
	for i, input := range in {
		req.InputIDs[i] = input.InputIDs
		req.AttentionMask[i] = input.AttentionMask
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "http model: marshal request")
	}

	var out inferenceResponse
	err = util.Retry(ctx, m.retries, func(ctx context.Context) error {
		if err := m.limiter.Wait(ctx, m.endpoint); err != nil {
			return err
		}
		return m.post(ctx, body, &out)
	})
	if err != nil {
		return nil, eris.Wrap(err, "http model: forward")
	}

	if len(out.Logits) != len(in) {
		return nil, eris.Errorf("http model: %d logit rows for %d inputs", len(out.Logits), len(in))
	}

	outs := make([]Output, len(in))
	for i, row := range out.Logits {
		outs[i] = Output{Scores: row}
	}
	return outs, nil
}

func (m *HTTPModel) post(ctx context.Context, body []byte, out *inferenceResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "http model: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &util.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	*out = inferenceResponse{}
	return json.NewDecoder(resp.Body).Decode(out)
}
