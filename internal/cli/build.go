package cli

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/dimiscan/internal/cache"
	"github.com/ppiankov/dimiscan/internal/classify"
	"github.com/ppiankov/dimiscan/internal/dictionary"
	"github.com/ppiankov/dimiscan/internal/model"
	"github.com/ppiankov/dimiscan/internal/pipeline"
	"github.com/ppiankov/dimiscan/internal/segment"
	"github.com/ppiankov/dimiscan/internal/util"
	"github.com/ppiankov/dimiscan/internal/worker"
)

// scanFlags are shared by scan and batch. They override the loaded config
// only when set on the command line.
type scanFlags struct {
	dict       string
	window     int
	meta       string
	paragraphs bool
	classify   bool
	provider   string
	workers    int
	batchSize  int
	noCache    bool
	noRobots   bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.dict, "dict", "d", "", "trigger dictionary (.xlsx, .json, .yaml or one lemma per line)")
	cmd.Flags().IntVarP(&f.window, "window", "w", model.DefaultContextWindow, "context sentences before and after the focus sentence")
	cmd.Flags().StringVar(&f.meta, "meta", "", "document metadata file (JSON or YAML)")
	cmd.Flags().BoolVar(&f.paragraphs, "paragraphs", false, "keep context windows inside paragraphs")
	cmd.Flags().BoolVar(&f.classify, "classify", false, "run the classification model on every candidate")
	cmd.Flags().StringVar(&f.provider, "provider", "", "classification backend (http, openai, fake)")
	cmd.Flags().IntVar(&f.workers, "workers", 1, "concurrent classification jobs")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 1, "candidates per model call")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the classifier score cache")
	cmd.Flags().BoolVar(&f.noRobots, "ignore-robots", false, "fetch URLs even when robots.txt disallows them")
}

// apply copies changed flags into c
func (f *scanFlags) apply(cmd *cobra.Command, c *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("dict") {
		c.Dictionary.Path = f.dict
	}
	if flags.Changed("window") {
		c.Scan.ContextWindow = f.window
	}
	if flags.Changed("paragraphs") {
		c.Scan.SplitParagraphs = f.paragraphs
	}
	if flags.Changed("classify") {
		c.Classification.Enabled = f.classify
	}
	if flags.Changed("provider") {
		c.Classification.Provider = f.provider
	}
	if flags.Changed("workers") {
		c.Classification.Workers = f.workers
	}
	if flags.Changed("batch-size") {
		c.Classification.BatchSize = f.batchSize
	}
	if f.noCache {
		c.Cache.Enabled = false
	}
	if f.noRobots {
		c.HTTP.RespectRobots = false
	}
}

// scanRuntime is everything one scan or batch run shares
type scanRuntime struct {
	scanner *pipeline.DocumentScanner
	scores  cache.Cache // nil without classification or with caching off
}

// finish logs what the run got out of the score cache
func (r *scanRuntime) finish() {
	cache.LogStats(r.scores)
}

// newScanRuntime wires dictionary, segmenter, classifier and loader from c.
// Everything is built once and shared by all documents of the run.
func newScanRuntime(c *model.Config, metaPath string) (*scanRuntime, error) {
	if c.Dictionary.Path == "" {
		return nil, eris.New("a trigger dictionary is required (--dict or dictionary.path)")
	}
	triggers, err := dictionary.Load(c.Dictionary.Path, dictionary.Options{
		FoldCase:   c.Dictionary.FoldCase,
		SkipHeader: c.Dictionary.SkipHeader,
	})
	if err != nil {
		return nil, err
	}

	var meta *model.MetaData
	if metaPath != "" {
		if meta, err = model.LoadMetaData(metaPath); err != nil {
			return nil, err
		}
	}

	client := util.NewHTTPClient(c.HTTP.Timeout, c.HTTP.InsecureTLS, util.NewProxyFunc(c.HTTP.HTTPProxy, c.HTTP.HTTPSProxy, c.HTTP.NoProxy))
	limiter := worker.NewLimiter(c.Classification.RequestsPerSecond, 0)

	seg, err := segment.New(c.Segmenter, client)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.NewPipeline(seg, pipeline.Options{
		Workers:   c.Classification.Workers,
		BatchSize: c.Classification.BatchSize,
	})
	if err != nil {
		return nil, err
	}

	var (
		classifier *classify.Classifier
		scores     cache.Cache
	)
	if c.Classification.Enabled {
		scores = cache.New(c.Cache)
		deps := classify.Deps{Client: client, Cache: scores, Limiter: limiter}
		if classifier, err = classify.New(c.Classification, deps, c.Cache); err != nil {
			return nil, err
		}
	}

	zap.L().Debug("cli: scanner ready",
		zap.Int("triggers", triggers.Len()),
		zap.Int("window", c.Scan.ContextWindow),
		zap.Bool("classify", classifier != nil))

	loader := pipeline.NewLoader(pipeline.NewFetcher(client, c.HTTP, nil), os.Stdin)
	scanner, err := pipeline.NewDocumentScanner(p, loader, pipeline.ScannerOptions{
		Triggers:        triggers,
		Window:          c.Scan.ContextWindow,
		SplitParagraphs: c.Scan.SplitParagraphs,
		Metadata:        meta,
		Classifier:      classifier,
	})
	if err != nil {
		return nil, err
	}
	return &scanRuntime{scanner: scanner, scores: scores}, nil
}
