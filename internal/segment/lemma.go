package segment

import (
	"bufio"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lemmatizer maps a surface form to its base form
type Lemmatizer interface {
	Lemma(surface string) string
}

// IdentityLemmatizer uses the surface form as the lemma
type IdentityLemmatizer struct{}

// Lemma returns surface unchanged
func (IdentityLemmatizer) Lemma(surface string) string { return surface }

// TableLemmatizer looks surface forms up in a table, exact match first and
// then lower-cased. Unknown forms are returned unchanged.
type TableLemmatizer struct {
	lemmas map[string]string
	tag    language.Tag
}

// NewTableLemmatizer creates a lemmatizer from a surface → lemma map.
// model is a language tag such as "de_core_news_lg"; its prefix selects
// the lower-casing rules.
func NewTableLemmatizer(lemmas map[string]string, model string) *TableLemmatizer {
	t := &TableLemmatizer{
		lemmas: make(map[string]string, len(lemmas)),
		tag:    LanguageOf(model),
	}
	for surface, lemma := range lemmas {
		t.lemmas[surface] = lemma
		lower := t.lower(surface)
		if _, exists := t.lemmas[lower]; !exists {
			t.lemmas[lower] = lemma
		}
	}
	return t
}

// LoadLemmaTable reads a TSV file with one "surface<TAB>lemma" pair per
// line. Empty lines and lines starting with # are skipped.
func LoadLemmaTable(path string, model string) (*TableLemmatizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "lemma table: open")
	}
	defer func() { _ = f.Close() }()

	lemmas := make(map[string]string)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		surface, lemma, ok := strings.Cut(text, "\t")
		if !ok || strings.TrimSpace(surface) == "" || strings.TrimSpace(lemma) == "" {
			return nil, eris.Errorf("lemma table: %s line %d: expected surface<TAB>lemma", path, line)
		}
		lemmas[strings.TrimSpace(surface)] = strings.TrimSpace(lemma)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "lemma table: scan")
	}

	return NewTableLemmatizer(lemmas, model), nil
}

// Lemma returns the table entry for surface, or surface itself
func (t *TableLemmatizer) Lemma(surface string) string {
	if lemma, ok := t.lemmas[surface]; ok {
		return lemma
	}
	if lemma, ok := t.lemmas[t.lower(surface)]; ok {
		return lemma
	}
	return surface
}

// Len returns the number of table entries
func (t *TableLemmatizer) Len() int { return len(t.lemmas) }

// lower uses a fresh Caser per call; Casers are not safe for concurrent use
func (t *TableLemmatizer) lower(s string) string {
	return cases.Lower(t.tag).String(s)
}

// LanguageOf extracts the language from a model tag ("de_core_news_lg" → de).
// Unparseable tags yield language.Und.
func LanguageOf(model string) language.Tag {
	prefix, _, _ := strings.Cut(model, "_")
	if prefix == "" {
		return language.Und
	}
	tag, err := language.Parse(prefix)
	if err != nil {
		return language.Und
	}
	return tag
}
