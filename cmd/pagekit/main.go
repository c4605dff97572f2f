package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/wudi/pagekit/aiedit"
	"github.com/wudi/pagekit/assemble"
	"github.com/wudi/pagekit/config"
	"github.com/wudi/pagekit/document"
	"github.com/wudi/pagekit/editor"
	"github.com/wudi/pagekit/observability"
	"github.com/wudi/pagekit/ocr"
	_ "github.com/wudi/pagekit/ocr/tesseract"
	"github.com/wudi/pagekit/raster"
	"github.com/wudi/pagekit/rasterize"
	"github.com/wudi/pagekit/session"
)

type options struct {
	configPath     string
	outPath        string
	prompt         string
	background     string
	logoPath       string
	pages          string
	pageNumbers    bool
	sessionPath    string
	discardSession bool
	ocr            bool
	inputs         []string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pagekit: %v\n", err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "pagekit: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pagekit", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: pagekit [flags] <page image>...\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configPath, "config", "pagekit.toml", "TOML configuration file")
	fs.StringVar(&opts.outPath, "out", "out.pdf", "Path of the assembled PDF")
	fs.StringVar(&opts.prompt, "prompt", "", "AI edit prompt applied to the selected pages")
	fs.StringVar(&opts.background, "background", "", "Replace the page background with this colour (#RRGGBB)")
	fs.StringVar(&opts.logoPath, "logo", "", "PNG or JPEG stamped in the top-right corner of the selected pages")
	fs.StringVar(&opts.pages, "pages", "", "Pages to process, e.g. 1,3-5 (default all)")
	fs.BoolVar(&opts.pageNumbers, "page-numbers", false, "Stamp page numbers using the configured label script")
	fs.StringVar(&opts.sessionPath, "session", "", "Crash-recovery snapshot file (overrides config)")
	fs.BoolVar(&opts.discardSession, "discard-session", false, "Drop any saved session instead of restoring it")
	fs.BoolVar(&opts.ocr, "ocr", false, "Run OCR on loaded pages to find text spans")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	// run checks for missing pages once the session is known.
	opts.inputs = fs.Args()
	return opts, nil
}

func run(ctx context.Context, opts options) error {
	cfg, undecoded, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger := observability.NewTextLogger(os.Stderr, cfg.Log.Level)
	for _, key := range undecoded {
		logger.Warn("unknown config key", observability.String("key", key))
	}
	if opts.sessionPath != "" {
		cfg.Session.Path = opts.sessionPath
	}
	if opts.ocr {
		cfg.OCR.Enabled = true
	}

	var store *session.FileStore
	var restored *session.Snapshot
	if cfg.Session.Path != "" {
		store = session.NewFileStore(cfg.Session.Path)
		rec, err := session.Recover(ctx, store)
		if err != nil {
			logger.Warn("saved session unreadable, starting fresh", observability.Error("error", err))
		} else if rec != nil {
			if opts.discardSession {
				if err := rec.Discard(ctx); err != nil {
					return fmt.Errorf("discard session: %w", err)
				}
				logger.Info("saved session discarded", observability.String("path", store.Path()))
			} else {
				s := rec.Restore()
				restored = &s
				logger.Info("restoring saved session",
					observability.String("path", store.Path()),
					observability.Int("pages", s.Document.Len()),
				)
			}
		}
	}

	var doc *document.Document
	switch {
	case restored != nil:
		doc = restored.Document
		if len(opts.inputs) > 0 {
			logger.Warn("page arguments ignored in favour of the saved session")
		}
		if cfg.OCR.Enabled {
			n, err := rasterize.Annotate(ctx, doc, ocr.DefaultEngine(), int(cfg.Assemble.DPI), cfg.OCR.Languages...)
			if err != nil {
				logger.Warn("ocr of restored pages failed", observability.Error("error", err))
			} else {
				logger.Info("text spans recovered", observability.Int("spans", n))
			}
		}
	case len(opts.inputs) > 0:
		doc, err = loadPages(ctx, cfg, logger, opts.inputs)
		if err != nil {
			return err
		}
	default:
		return errors.New("no saved session and no page images")
	}

	edOpts := []editor.Option{
		editor.WithConfig(cfg),
		editor.WithLogger(logger),
	}
	if store != nil {
		edOpts = append(edOpts, editor.WithAutosaver(session.NewAutosaver(store,
			session.WithDebounce(cfg.Session.Debounce.Duration),
			session.WithLogger(logger),
		)))
	}
	if opts.prompt != "" {
		svc, err := aiedit.NewOpenAI(aiedit.Config{
			APIKey: os.Getenv(cfg.AI.APIKeyEnv),
			Model:  cfg.AI.Model,
			Size:   cfg.AI.Size,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		edOpts = append(edOpts, editor.WithAIService(svc))
	}
	ed, err := editor.New(doc, edOpts...)
	if err != nil {
		return err
	}
	defer ed.Close(context.WithoutCancel(ctx))
	if restored != nil {
		if err := ed.Restore(*restored); err != nil {
			return err
		}
	}

	pages, err := parsePages(opts.pages, ed.PageCount())
	if err != nil {
		return err
	}

	var reports []batchSummary
	if opts.prompt != "" {
		rep, err := ed.ApplyAIEditAll(ctx, pages, opts.prompt)
		reports = append(reports, summarize("ai-edit", rep))
		if err != nil {
			return err
		}
	}
	if opts.background != "" && ctx.Err() == nil {
		rep, err := ed.ApplyBackground(ctx, pages, opts.background, 16)
		reports = append(reports, summarize("background", rep))
		if err != nil {
			return err
		}
	}
	if opts.logoPath != "" && ctx.Err() == nil {
		logo, err := loadImage(opts.logoPath)
		if err != nil {
			return err
		}
		rep, err := ed.ApplyLogo(ctx, pages, logo, editor.DefaultPlacement)
		reports = append(reports, summarize("logo", rep))
		if err != nil {
			return err
		}
	}
	if opts.pageNumbers && ctx.Err() == nil {
		pn := editor.DefaultPageNumbers
		pn.Script = cfg.PageNumbers.Script
		pn.Position = cfg.PageNumbers.Position
		pn.FontSize = cfg.PageNumbers.FontSize
		pn.Margin = cfg.PageNumbers.Margin
		rep, err := ed.ApplyPageNumbers(ctx, pages, pn)
		reports = append(reports, summarize("page-numbers", rep))
		if err != nil {
			return err
		}
	}
	if err := emitSection("batches", reports); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		// the session file keeps the work done so far
		return fmt.Errorf("interrupted: %w", err)
	}

	out, err := ed.Export(ctx, assemble.NewPDFWriter(assemble.Config{
		DPI:    cfg.Assemble.DPI,
		Verify: cfg.Assemble.Verify,
		Logger: logger,
	}))
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	if err := os.WriteFile(opts.outPath, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.outPath, err)
	}
	logger.Info("document written", observability.String("path", opts.outPath), observability.Int("bytes", len(out)))
	if store != nil {
		if err := ed.Close(ctx); err != nil {
			logger.Warn("final session save failed", observability.Error("error", err))
		}
		if err := store.Clear(ctx); err != nil {
			logger.Warn("clear session", observability.Error("error", err))
		}
	}
	return nil
}

func loadPages(ctx context.Context, cfg config.Config, logger observability.Logger, paths []string) (*document.Document, error) {
	rOpts := []rasterize.Option{
		rasterize.WithDPI(int(cfg.Assemble.DPI)),
		rasterize.WithLogger(logger),
	}
	if cfg.OCR.Enabled {
		rOpts = append(rOpts, rasterize.WithOCR(ocr.DefaultEngine(), cfg.OCR.Languages...))
	}
	sources := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		sources = append(sources, data)
	}
	doc, err := rasterize.Load(ctx, rasterize.NewImageRasterizer(rOpts...), sources...)
	if err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}
	logger.Info("pages loaded", observability.Int("pages", doc.Len()))
	return doc, nil
}

func loadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read logo: %w", err)
	}
	img, err := raster.Decode(raster.FromBytes(data))
	if err != nil {
		return nil, fmt.Errorf("decode logo: %w", err)
	}
	return img, nil
}

// parsePages turns "1,3-5" into zero-based indices. Empty means all pages.
func parsePages(ranges string, total int) ([]int, error) {
	ranges = strings.TrimSpace(ranges)
	if ranges == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(ranges, ",") {
		lo, hi, isRange := strings.Cut(strings.TrimSpace(part), "-")
		first, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("page range %q: %w", part, err)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(hi); err != nil {
				return nil, fmt.Errorf("page range %q: %w", part, err)
			}
		}
		if first < 1 || last > total || first > last {
			return nil, fmt.Errorf("%w: %q of %d pages", editor.ErrInvalidRange, part, total)
		}
		for p := first; p <= last; p++ {
			out = append(out, p-1)
		}
	}
	return out, nil
}

type batchSummary struct {
	Operation string   `json:"operation"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Cancelled bool     `json:"cancelled"`
	Errors    []string `json:"errors,omitempty"`
}

func summarize(op string, rep editor.BatchReport) batchSummary {
	s := batchSummary{
		Operation: op,
		Total:     rep.Total,
		Succeeded: rep.Succeeded,
		Failed:    rep.Failed,
		Cancelled: rep.Cancelled,
	}
	for _, e := range rep.Errors {
		s.Errors = append(s.Errors, e.Error())
	}
	return s
}

func emitSection(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	fmt.Printf("== %s ==\n%s\n\n", name, data)
	return nil
}
