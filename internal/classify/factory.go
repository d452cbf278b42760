package classify

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/dimiscan/internal/cache"
	"github.com/ppiankov/dimiscan/internal/model"
	"github.com/ppiankov/dimiscan/internal/worker"
)

// Deps are the shared resources a backend may use. All are optional.
type Deps struct {
	Client  HTTPDoer
	Cache   cache.Cache
	Limiter *worker.Limiter
}

// NewModel creates the model backend named by cfg.Provider
func NewModel(cfg model.ClassificationConfig, deps Deps, cacheCfg model.CacheConfig) (Model, error) {
	var (
		m   Model
		err error
	)

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case "http":
		m, err = NewHTTPModel(deps.Client, cfg.Endpoint, HTTPModelOptions{
			Model:   cfg.Model,
			Device:  cfg.Device,
			APIKey:  cfg.APIKey,
			Retries: cfg.Retries,
			Limiter: deps.Limiter,
		})

	case "openai":
		m, err = NewOpenAIModel(OpenAIModelOptions{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.Endpoint,
			Model:      cfg.Model,
			NumClasses: cfg.NumClasses,
			Timeout:    cfg.Timeout,
			Retries:    cfg.Retries,
			Limiter:    deps.Limiter,
			HTTPClient: deps.Client,
		})

	case "fake":
		m = NewFakeModel(cfg.NumClasses)

	default:
		return nil, eris.Errorf("unknown classification provider: %s (supported: http, openai, fake)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if deps.Cache != nil && provider != "fake" {
		ns := fmt.Sprintf("%s|%s|%s|%d", provider, cfg.Model, cfg.Device, cfg.NumClasses)
		m = NewCachedModel(m, deps.Cache, cacheCfg.DiskTTL, ns)
	}
	return m, nil
}

// NewTokenizer loads the WordPiece vocabulary named by cfg.Vocab. The fake
// provider falls back to FakeTokenizer when no vocab is configured.
func NewTokenizer(cfg model.ClassificationConfig) (Tokenizer, error) {
	if cfg.Vocab == "" {
		if strings.EqualFold(cfg.Provider, "fake") {
			return NewFakeTokenizer(cfg.MaxLength), nil
		}
		return nil, eris.New("classification.vocab is required")
	}
	return LoadVocab(cfg.Vocab, WordPieceOptions{
		Lowercase: cfg.Lowercase,
		MaxLength: cfg.MaxLength,
		Pad:       cfg.Pad,
	})
}

// New builds the tokenizer, the model and the classifier binding them
func New(cfg model.ClassificationConfig, deps Deps, cacheCfg model.CacheConfig) (*Classifier, error) {
	tok, err := NewTokenizer(cfg)
	if err != nil {
		return nil, err
	}
	m, err := NewModel(cfg, deps, cacheCfg)
	if err != nil {
		return nil, err
	}
	return NewClassifier(tok, m, cfg.Device)
}
