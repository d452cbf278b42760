package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/dimiscan/internal/util"
	"github.com/ppiankov/dimiscan/internal/worker"
)

const openAISystemPrompt = `You are a text classifier for moralizing language in German and English text.
A passage is moralizing when it uses moral values, duties or judgements to demand or justify a position.
Answer ONLY with a JSON object of the form {"scores": [s0, s1, ...]} holding one raw logit per class.
Class 0 means "not moralizing", class 1 means "moralizing".`

// OpenAIModel asks an OpenAI compatible chat model for class logits. It
// reads Input.Text and ignores the token ids.
type OpenAIModel struct {
	client     *openai.Client
	model      string
	numClasses int
	timeout    time.Duration
	retries    uint64
	limiter    *worker.Limiter
	endpoint   string
}

// OpenAIModelOptions configures an OpenAIModel
type OpenAIModelOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	NumClasses int
	Timeout    time.Duration
	Retries    uint64
	Limiter    *worker.Limiter
	HTTPClient HTTPDoer
}

type openAIScores struct {
	Scores []float64 `json:"scores"`
}

// NewOpenAIModel creates a new OpenAI backed model
func NewOpenAIModel(opts OpenAIModelOptions) (*OpenAIModel, error) {
	if opts.APIKey == "" {
		return nil, eris.New("openai model: API key is required")
	}

	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		clientConfig.HTTPClient = opts.HTTPClient
	}

	model := opts.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIModel{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		numClasses: opts.NumClasses,
		timeout:    timeout,
		retries:    opts.Retries,
		limiter:    opts.Limiter,
		endpoint:   clientConfig.BaseURL,
	}, nil
}

// Forward scores the input text with one chat completion
func (m *OpenAIModel) Forward(ctx context.Context, in Input) (Output, error) {
	req := openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: m.systemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: in.Text,
			},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var content string
	err := util.Retry(ctx, m.retries, func(ctx context.Context) error {
		if err := m.limiter.Wait(ctx, m.endpoint); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()

		resp, err := m.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return statusOf(err)
		}
		if len(resp.Choices) == 0 {
			return eris.New("no choices in response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return Output{}, eris.Wrap(err, "openai model: forward")
	}

	scores, err := parseScores(content)
	if err != nil {
		return Output{}, eris.Wrap(err, "openai model: parse")
	}
	if m.numClasses > 0 && len(scores) != m.numClasses {
		return Output{}, eris.Errorf("openai model: got %d scores, want %d", len(scores), m.numClasses)
	}
	return Output{Scores: scores}, nil
}

func (m *OpenAIModel) systemPrompt() string {
	if m.numClasses <= 2 {
		return openAISystemPrompt
	}
	return openAISystemPrompt + fmt.Sprintf("\nThere are %d classes; classes 1..%d are kinds of moralizing.", m.numClasses, m.numClasses-1)
}

// parseScores accepts the bare JSON object, optionally wrapped in a code fence
func parseScores(content string) ([]float64, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var out openAIScores
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return nil, err
	}
	return out.Scores, nil
}

// statusOf maps go-openai errors onto util.StatusError so retry can classify them
func statusOf(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &util.StatusError{Code: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &util.StatusError{Code: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return err
}
