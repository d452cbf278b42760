package classify

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/dimiscan/internal/cache"
)

// CachedModel memoizes scores of an inner model keyed by namespace and input ids
type CachedModel struct {
	inner     Model
	cache     cache.Cache
	ttl       time.Duration
	namespace string
}

// NewCachedModel wraps inner. namespace must change whenever the scores
// would (model name, device, class count).
func NewCachedModel(inner Model, c cache.Cache, ttl time.Duration, namespace string) *CachedModel {
	return &CachedModel{inner: inner, cache: c, ttl: ttl, namespace: namespace}
}

// Forward returns cached scores or calls the inner model
func (m *CachedModel) Forward(ctx context.Context, in Input) (Output, error) {
	key := m.key(in)
	if out, ok := m.lookup(key); ok {
		return out, nil
	}

	out, err := m.inner.Forward(ctx, in)
	if err != nil {
		return Output{}, err
	}
	m.store(key, out)
	return out, nil
}

// ForwardBatch serves hits from the cache and sends only the misses to the
// inner model, in one call when it supports batching
func (m *CachedModel) ForwardBatch(ctx context.Context, in []Input) ([]Output, error) {
	outs := make([]Output, len(in))
	keys := make([]string, len(in))

	var (
		misses []Input
		index  []int
	)
	for i, input := range in {
		keys[i] = m.key(input)
		if out, ok := m.lookup(keys[i]); ok {
			outs[i] = out
			continue
		}
		misses = append(misses, input)
		index = append(index, i)
	}
	if len(misses) == 0 {
		return outs, nil
	}

	var fresh []Output
	if bm, ok := m.inner.(BatchModel); ok {
		var err error
		if fresh, err = bm.ForwardBatch(ctx, misses); err != nil {
			return nil, err
		}
	} else {
		fresh = make([]Output, len(misses))
		for k, input := range misses {
			out, err := m.inner.Forward(ctx, input)
			if err != nil {
				return nil, err
			}
			fresh[k] = out
		}
	}

	if len(fresh) != len(misses) {
		return nil, eris.Errorf("cached model: %d outputs for %d inputs", len(fresh), len(misses))
	}
	for k, i := range index {
		outs[i] = fresh[k]
		m.store(keys[i], fresh[k])
	}
	return outs, nil
}

func (m *CachedModel) key(in Input) string {
	ids := make([]string, len(in.InputIDs))
	for i, id := range in.InputIDs {
		ids[i] = strconv.Itoa(id)
	}
	// remote chat models read the text, not the ids
	return cache.Key(m.namespace, strings.Join(ids, " "), in.Text)
}

func (m *CachedModel) lookup(key string) (Output, bool) {
	data, ok := m.cache.Get(key)
	if !ok {
		return Output{}, false
	}
	var scores []float64
	if err := json.Unmarshal(data, &scores); err != nil || len(scores) == 0 {
		return Output{}, false
	}
	return Output{Scores: scores}, true
}

func (m *CachedModel) store(key string, out Output) {
	if len(out.Scores) == 0 {
		return
	}
	data, err := json.Marshal(out.Scores)
	if err != nil {
		return
	}
	if err := m.cache.Set(key, data, m.ttl); err != nil {
		zap.L().Debug("classify: cache write failed", zap.Error(err))
	}
}
