package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/dimiscan/internal/extract"
)

// Document is raw text loaded from a source
type Document struct {
	Source string
	Text   string
	Title  string // best guess from the URL or file name
}

// Loader reads documents from files, stdin ("-") or http(s) URLs
type Loader struct {
	fetcher *Fetcher
	stdin   io.Reader
}

// NewLoader creates a loader. fetcher may be nil when URLs are not needed.
func NewLoader(fetcher *Fetcher, stdin io.Reader) *Loader {
	if stdin == nil {
		stdin = os.Stdin
	}
	return &Loader{fetcher: fetcher, stdin: stdin}
}

// Load reads source. HTML files and pages are reduced to their visible text.
func (l *Loader) Load(ctx context.Context, source string) (*Document, error) {
	switch {
	case source == "-":
		data, err := io.ReadAll(l.stdin)
		if err != nil {
			return nil, eris.Wrap(err, "load: read stdin")
		}
		return &Document{Source: source, Text: string(data)}, nil

	case IsURL(source):
		if l.fetcher == nil {
			return nil, eris.Errorf("load: %s: URL sources are not enabled", source)
		}
		res, err := l.fetcher.Fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		return &Document{Source: res.FinalURL, Text: res.Text, Title: res.Title}, nil

	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, eris.Wrapf(err, "load: read %s", source)
		}
		text := string(data)
		ext := strings.ToLower(filepath.Ext(source))
		if ext == ".html" || ext == ".htm" {
			if text, err = extract.VisibleText(text); err != nil {
				return nil, eris.Wrapf(err, "load: extract text from %s", source)
			}
		}
		title := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		return &Document{Source: source, Text: text, Title: title}, nil
	}
}

// IsURL reports whether source is an http(s) URL
func IsURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
