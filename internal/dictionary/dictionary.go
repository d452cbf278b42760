// Package dictionary loads the trigger lemma ("DIMI") dictionary.
package dictionary

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned when a dictionary source yields no lemmas
var ErrEmpty = errors.New("dictionary: no lemmas")

// Set is a set of trigger lemmas. With case folding enabled, membership is
// tested on the folded form.
type Set struct {
	lemmas   map[string]struct{}
	foldCase bool
}

// Options controls loading
type Options struct {
	FoldCase   bool // Match lemmas case-insensitively
	SkipHeader bool // Skip the first spreadsheet row
	SheetName  string
}

// NewSet builds a set from lemmas. Blank entries are dropped and
// surrounding whitespace is trimmed.
func NewSet(lemmas []string, foldCase bool) *Set {
	s := &Set{lemmas: make(map[string]struct{}, len(lemmas)), foldCase: foldCase}
	for _, l := range lemmas {
		s.Add(l)
	}
	return s
}

// Add inserts a lemma
func (s *Set) Add(lemma string) {
	lemma = strings.TrimSpace(lemma)
	if lemma == "" {
		return
	}
	s.lemmas[s.key(lemma)] = struct{}{}
}

// Contains reports whether lemma is a trigger
func (s *Set) Contains(lemma string) bool {
	if s == nil {
		return false
	}
	_, ok := s.lemmas[s.key(lemma)]
	return ok
}

// Len returns the number of lemmas
func (s *Set) Len() int { return len(s.lemmas) }

// Lemmas returns the lemmas sorted
func (s *Set) Lemmas() []string {
	out := make([]string, 0, len(s.lemmas))
	for l := range s.lemmas {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (s *Set) key(lemma string) string {
	if !s.foldCase {
		return lemma
	}
	return cases.Fold().String(lemma)
}

// Load reads a dictionary, choosing the format by file extension:
// .xlsx (first column), .json (array of strings), .yaml/.yml (list of
// strings) or anything else as plain text with one lemma per line.
func Load(path string, opts Options) (*Set, error) {
	var (
		lemmas []string
		err    error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		lemmas, err = readXLSX(path, opts)
	case ".json":
		lemmas, err = readJSON(path)
	case ".yaml", ".yml":
		lemmas, err = readYAML(path)
	default:
		lemmas, err = readText(path)
	}
	if err != nil {
		return nil, err
	}

	set := NewSet(lemmas, opts.FoldCase)
	if set.Len() == 0 {
		return nil, eris.Wrapf(ErrEmpty, "dictionary: %s", path)
	}
	return set, nil
}

// Save writes the set as a sorted JSON array
func Save(set *Set, path string) error {
	data, err := json.MarshalIndent(set.Lemmas(), "", "  ")
	if err != nil {
		return eris.Wrap(err, "dictionary: marshal")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return eris.Wrapf(err, "dictionary: write %s", path)
	}
	return nil
}

// readXLSX takes the first column of the selected sheet (first sheet by default)
func readXLSX(path string, opts Options) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "dictionary: open xlsx")
	}

	var sheet *xlsx.Sheet
	if opts.SheetName != "" {
		s, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("dictionary: sheet %q not found", opts.SheetName)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("dictionary: xlsx has no sheets")
		}
		sheet = f.Sheets[0]
	}

	var lemmas []string
	for i, row := range sheet.Rows {
		if i == 0 && opts.SkipHeader {
			continue
		}
		if row == nil || len(row.Cells) == 0 {
			continue
		}
		lemmas = append(lemmas, row.Cells[0].String())
	}
	return lemmas, nil
}

func readJSON(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dictionary: read %s", path)
	}
	var lemmas []string
	if err := json.Unmarshal(data, &lemmas); err != nil {
		return nil, eris.Wrapf(err, "dictionary: parse %s", path)
	}
	return lemmas, nil
}

func readYAML(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dictionary: read %s", path)
	}
	var lemmas []string
	if err := yaml.Unmarshal(data, &lemmas); err != nil {
		return nil, eris.Wrapf(err, "dictionary: parse %s", path)
	}
	return lemmas, nil
}

func readText(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dictionary: open %s", path)
	}
	defer func() { _ = f.Close() }()

	var lemmas []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lemmas = append(lemmas, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "dictionary: scan")
	}
	return lemmas, nil
}
