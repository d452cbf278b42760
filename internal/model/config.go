package model

import "time"

// Config holds the complete dimiscan configuration
type Config struct {
	Segmenter      SegmenterConfig      `yaml:"segmenter" mapstructure:"segmenter"`
	Dictionary     DictionaryConfig     `yaml:"dictionary" mapstructure:"dictionary"`
	Scan           ScanConfig           `yaml:"scan" mapstructure:"scan"`
	Classification ClassificationConfig `yaml:"classification" mapstructure:"classification"`
	Cache          CacheConfig          `yaml:"cache" mapstructure:"cache"`
	HTTP           HTTPConfig           `yaml:"http" mapstructure:"http"`
	Log            LogConfig            `yaml:"log" mapstructure:"log"`
	Output         OutputConfig         `yaml:"output" mapstructure:"output"`
}

// SegmenterConfig selects the sentence segmentation / lemmatization backend
type SegmenterConfig struct {
	Provider   string        `yaml:"provider" mapstructure:"provider"`       // rule, http
	Model      string        `yaml:"model" mapstructure:"model"`             // Language model tag, passed through (e.g. de_core_news_lg)
	LemmaTable string        `yaml:"lemma_table" mapstructure:"lemma_table"` // TSV surface<TAB>lemma for the rule segmenter
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"`       // Parser service URL for the http provider
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DictionaryConfig locates the trigger lemma dictionary
type DictionaryConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	FoldCase   bool   `yaml:"fold_case" mapstructure:"fold_case"`
	SkipHeader bool   `yaml:"skip_header" mapstructure:"skip_header"` // Spreadsheets only
}

// ScanConfig controls candidate construction
type ScanConfig struct {
	ContextWindow   int  `yaml:"context_window" mapstructure:"context_window"`
	SplitParagraphs bool `yaml:"split_paragraphs" mapstructure:"split_paragraphs"`
}

// ClassificationConfig controls the optional model stage
type ClassificationConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	Provider          string        `yaml:"provider" mapstructure:"provider"` // http, openai, fake
	Model             string        `yaml:"model" mapstructure:"model"`
	Endpoint          string        `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Device            string        `yaml:"device" mapstructure:"device"`
	Vocab             string        `yaml:"vocab" mapstructure:"vocab"` // WordPiece vocab.txt
	Lowercase         bool          `yaml:"lowercase" mapstructure:"lowercase"`
	MaxLength         int           `yaml:"max_length" mapstructure:"max_length"`
	Pad               bool          `yaml:"pad" mapstructure:"pad"`
	NumClasses        int           `yaml:"num_classes" mapstructure:"num_classes"`
	Workers           int           `yaml:"workers" mapstructure:"workers"`
	BatchSize         int           `yaml:"batch_size" mapstructure:"batch_size"`
	Retries           uint64        `yaml:"retries" mapstructure:"retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CacheConfig controls caching of classifier scores
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// HTTPConfig controls fetching documents from URLs
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy     string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Segmenter: SegmenterConfig{
			Provider: "rule",
			Model:    "de_core_news_lg",
			Timeout:  30 * time.Second,
		},
		Dictionary: DictionaryConfig{
			SkipHeader: true,
		},
		Scan: ScanConfig{
			ContextWindow: DefaultContextWindow,
		},
		Classification: ClassificationConfig{
			Provider:          "http",
			Device:            "cpu",
			MaxLength:         512,
			NumClasses:        2,
			Workers:           1,
			BatchSize:         1,
			Retries:           3,
			RequestsPerSecond: 10,
			Timeout:           30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".dimiscan-cache",
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "dimiscan/0.1 (+https://github.com/ppiankov/dimiscan)",
			MaxBodyBytes:  5_000_000,
			RespectRobots: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
