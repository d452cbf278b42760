package pipeline

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/dimiscan/internal/extract"
	"github.com/ppiankov/dimiscan/internal/model"
	"github.com/ppiankov/dimiscan/internal/util"
	"github.com/ppiankov/dimiscan/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("fetch: disallowed by robots.txt")

// Fetcher downloads documents and reduces HTML to visible text
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	retries    uint64
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
}

// NewFetcher creates a fetcher. limiter may be nil.
func NewFetcher(client *http.Client, cfg model.HTTPConfig, limiter *worker.Limiter) *Fetcher {
	if client == nil {
		client = util.NewHTTPClient(cfg.Timeout, cfg.InsecureTLS, util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy))
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
		retries:    2,
		limiter:    limiter,
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(client, cfg.UserAgent)
	}
	return f
}

// FetchResult contains the fetched document
type FetchResult struct {
	Text        string // visible text
	Title       string
	ContentType string
	FinalURL    string
}

// Fetch retrieves rawURL, retrying transient failures
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.robots != nil {
		ok, err := f.robots.Allowed(ctx, rawURL)
		if err != nil {
			return nil, eris.Wrap(err, "fetch: robots")
		}
		if !ok {
			return nil, eris.Wrapf(ErrDisallowed, "fetch: %s", rawURL)
		}
	}

	var (
		body        []byte
		contentType string
		finalURL    string
	)
	err := util.Retry(ctx, f.retries, func(ctx context.Context) error {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return eris.Wrap(err, "create request")
		}
		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &util.StatusError{Code: resp.StatusCode}
		}

		reader := io.Reader(resp.Body)
		if f.maxBytes > 0 {
			reader = io.LimitReader(resp.Body, f.maxBytes)
		}
		if body, err = io.ReadAll(reader); err != nil {
			return eris.Wrap(err, "read body")
		}
		contentType = resp.Header.Get("Content-Type")
		finalURL = resp.Request.URL.String()
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetch %s", rawURL)
	}

	text := string(body)
	if isHTML(contentType, text) {
		if text, err = extract.VisibleText(text); err != nil {
			return nil, eris.Wrap(err, "fetch: extract text")
		}
	}

	return &FetchResult{
		Text:        text,
		Title:       extractSubject(finalURL),
		ContentType: contentType,
		FinalURL:    finalURL,
	}, nil
}

func isHTML(contentType, body string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType == "text/html" || mediaType == "application/xhtml+xml"
	}
	head := strings.ToLower(strings.TrimSpace(body[:min(len(body), 512)]))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

// extractSubject derives a human-readable title from the URL path
func extractSubject(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")

	return last
}
