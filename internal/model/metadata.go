package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// MetaData describes the document a candidate was found in.
// One instance is shared by every candidate of a document and must not be
// modified once attached.
type MetaData struct {
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author" yaml:"author"`
	Date   string `json:"date" yaml:"date"`
	Source string `json:"source" yaml:"source"`
	Other  string `json:"other" yaml:"other"`
}

// EmptyMetaData returns metadata with every field unset
func EmptyMetaData() *MetaData {
	return &MetaData{}
}

// ToRecord returns the flat key-value form of the metadata
func (m *MetaData) ToRecord() map[string]string {
	if m == nil {
		m = &MetaData{}
	}
	return map[string]string{
		"title":  m.Title,
		"author": m.Author,
		"date":   m.Date,
		"source": m.Source,
		"other":  m.Other,
	}
}

// MetaDataFromRecord builds metadata from a flat record. Missing keys stay empty.
func MetaDataFromRecord(rec map[string]string) *MetaData {
	return &MetaData{
		Title:  rec["title"],
		Author: rec["author"],
		Date:   rec["date"],
		Source: rec["source"],
		Other:  rec["other"],
	}
}

// LoadMetaData reads metadata from a JSON or YAML file (chosen by extension).
// JSON null values and missing keys decode as empty strings.
func LoadMetaData(path string) (*MetaData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "metadata: read %s", path)
	}

	var meta MetaData
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &meta); err != nil {
			return nil, eris.Wrapf(err, "metadata: parse %s", path)
		}
	default:
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, eris.Wrapf(err, "metadata: parse %s", path)
		}
	}

	return &meta, nil
}
