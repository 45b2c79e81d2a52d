/**
 * Extraction orchestrator.
 *
 * Sequences the pipeline: text-layer attempt → garbled check → optional
 * OCR fallback → post-processing, and records telemetry on every
 * terminal transition. One orchestrator instance owns its adaptive state
 * and performance counters; production wires a single instance per
 * process, tests construct as many independent ones as they need.
 */

package extract

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docforge/extract-worker/internal/errors"
	"github.com/docforge/extract-worker/internal/garble"
	"github.com/docforge/extract-worker/internal/logging"
	"github.com/docforge/extract-worker/internal/ocr"
	"github.com/docforge/extract-worker/internal/textclean"
)

// ocrPageConcurrency bounds in-request page recognition. OCR is CPU- and
// memory-heavy per page; request-level concurrency is already capped by
// the worker pool.
const ocrPageConcurrency = 2

// Config holds the orchestrator's limits and thresholds.
type Config struct {
	MaxFileSize         int64
	MaxTextPages        int
	OCRMaxPages         int
	OCRRenderScale      float64
	OCRLanguages        []string
	OCRPageTimeout      time.Duration
	Scan                ScanConfig
	SimpleModeThreshold int
}

// DefaultConfig returns the documented starting defaults.
func DefaultConfig() Config {
	return Config{
		MaxFileSize:         100 << 20,
		MaxTextPages:        100,
		OCRMaxPages:         5,
		OCRRenderScale:      2.0,
		OCRLanguages:        []string{"eng", "chi_sim"},
		OCRPageTimeout:      time.Minute,
		Scan:                DefaultScanConfig(),
		SimpleModeThreshold: 3,
	}
}

// Deps are the orchestrator's collaborators. TextLayer is required;
// leaving Raster or Engine nil disables the OCR path (the pipeline then
// degrades gracefully instead of failing).
type Deps struct {
	TextLayer TextExtractor
	Raster    RasterOpener
	Engine    ocr.Engine
	Detector  GarbledDetector
	Cleaner   TextCleaner
	Logger    *logging.Logger
}

// Orchestrator runs the extraction state machine.
type Orchestrator struct {
	cfg       Config
	textLayer TextExtractor
	raster    RasterOpener
	engine    ocr.Engine
	detector  GarbledDetector
	cleaner   TextCleaner
	log       *logging.Logger

	state *AdaptiveState
	stats *PerformanceStats
}

// NewOrchestrator constructs an orchestrator owning fresh adaptive state.
func NewOrchestrator(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.TextLayer == nil {
		return nil, fmt.Errorf("text-layer extractor is required")
	}

	def := DefaultConfig()
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = def.MaxFileSize
	}
	if cfg.MaxTextPages <= 0 {
		cfg.MaxTextPages = def.MaxTextPages
	}
	if cfg.OCRMaxPages <= 0 {
		cfg.OCRMaxPages = def.OCRMaxPages
	}
	if cfg.OCRRenderScale < 1.0 {
		cfg.OCRRenderScale = def.OCRRenderScale
	}
	if len(cfg.OCRLanguages) == 0 {
		cfg.OCRLanguages = def.OCRLanguages
	}
	if cfg.SimpleModeThreshold <= 0 {
		cfg.SimpleModeThreshold = def.SimpleModeThreshold
	}
	if cfg.Scan.SamplePages <= 0 {
		cfg.Scan = def.Scan
	}

	detector := deps.Detector
	if detector == nil {
		detector = garble.NewDetector(garble.DefaultThresholds())
	}
	cleaner := deps.Cleaner
	if cleaner == nil {
		cleaner = textclean.NewCleaner()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewLogger("extract")
	}

	return &Orchestrator{
		cfg:       cfg,
		textLayer: deps.TextLayer,
		raster:    deps.Raster,
		engine:    deps.Engine,
		detector:  detector,
		cleaner:   cleaner,
		log:       logger,
		state:     NewAdaptiveState(cfg.SimpleModeThreshold),
		stats:     NewPerformanceStats(),
	}, nil
}

// Stats returns a snapshot of the performance counters.
func (o *Orchestrator) Stats() StatsSnapshot { return o.stats.Snapshot() }

// Adaptive exposes the adaptive state for telemetry readers.
func (o *Orchestrator) Adaptive() *AdaptiveState { return o.state }

// Process runs the full pipeline for one request and returns exactly one
// outcome; it never panics past this boundary.
func (o *Orchestrator) Process(ctx context.Context, req *Request) *Outcome {
	start := time.Now()
	outcome := o.process(ctx, req)
	outcome.Duration = time.Since(start)
	o.recordTelemetry(outcome)
	return outcome
}

func (o *Orchestrator) process(ctx context.Context, req *Request) *Outcome {
	log := o.log.WithJob(req.JobID)

	// Init: validate the request before any extraction attempt.
	data, failure := o.validate(req)
	if failure != nil {
		return failure
	}

	kind := ResolveKind(data, req.DeclaredMIME, req.Filename)
	log.Info("request validated", "kind", kind, "bytes", len(data))

	switch kind {
	case KindUnknown, KindLegacyOffice:
		return failureOutcome(errors.NewUnsupportedFormatError(req.JobID, req.DeclaredMIME), "")
	case KindImage:
		return o.processImage(ctx, req, data)
	}

	return o.processDocument(ctx, req, data, kind)
}

// validate enforces the size limit and resolves the file bytes. The
// limit is checked before the file is read so an oversize upload is
// rejected, never truncated silently.
func (o *Orchestrator) validate(req *Request) ([]byte, *Outcome) {
	if req == nil || req.JobID == "" {
		return nil, failureOutcome(errors.NewInvalidInputError("", "job ID is required"), "")
	}

	sizeLimit := req.SizeLimit
	if sizeLimit <= 0 {
		sizeLimit = o.cfg.MaxFileSize
	}
	if req.PageLimit > o.cfg.MaxTextPages {
		return nil, failureOutcome(errors.NewInvalidInputError(req.JobID,
			fmt.Sprintf("page limit %d exceeds maximum %d", req.PageLimit, o.cfg.MaxTextPages)), "")
	}

	data := req.Data
	if len(data) == 0 && req.Path != "" {
		info, err := os.Stat(req.Path)
		if err != nil {
			return nil, failureOutcome(errors.NewInvalidInputError(req.JobID,
				fmt.Sprintf("source file not accessible: %v", err)), "")
		}
		if info.Size() > sizeLimit {
			return nil, failureOutcome(errors.NewInvalidInputError(req.JobID,
				fmt.Sprintf("file size %d exceeds maximum %d", info.Size(), sizeLimit)), "")
		}
		data, err = os.ReadFile(req.Path)
		if err != nil {
			return nil, failureOutcome(errors.NewInvalidInputError(req.JobID,
				fmt.Sprintf("source file not readable: %v", err)), "")
		}
	}

	if len(data) == 0 {
		return nil, failureOutcome(errors.NewInvalidInputError(req.JobID, "no file data or path provided"), "")
	}
	if int64(len(data)) > sizeLimit {
		return nil, failureOutcome(errors.NewInvalidInputError(req.JobID,
			fmt.Sprintf("file size %d exceeds maximum %d", len(data), sizeLimit)), "")
	}
	return data, nil
}

// processDocument drives the state machine for structured documents.
func (o *Orchestrator) processDocument(ctx context.Context, req *Request, data []byte, kind FileKind) *Outcome {
	log := o.log.WithJob(req.JobID)

	maxPages := req.PageLimit
	if maxPages <= 0 {
		maxPages = o.cfg.MaxTextPages
	}

	// TextLayerAttempt
	pages, err := o.textLayer.Extract(ctx, data, kind, TextExtractOptions{
		MaxPages:       maxPages,
		SkipConversion: o.state.SimpleMode(),
	})
	if err != nil {
		log.Warn("text-layer extraction failed", "error", err)
		// A PDF whose text layer cannot be read at all may still be a
		// scan; probe for raster content before giving up.
		if kind == KindPDF {
			if outcome := o.tryScannedWithoutText(ctx, req, data); outcome != nil {
				return outcome
			}
		}
		return failureOutcome(errors.NewExtractionFailedError(req.JobID, "text_layer", err), "")
	}

	rawText := concatPageText(pages)
	markedText := JoinPages(pages)
	log.Info("text layer extracted", "pages", len(pages), "chars", len(rawText))

	// Scanned-document classification bypasses the garbled check: there
	// is no text to judge.
	if kind == KindPDF && o.raster != nil && looksTextless(pages, o.cfg.Scan) {
		if doc, openErr := o.raster.Open(data); openErr == nil {
			scanned := classifyScanned(pages, doc, o.cfg.Scan)
			doc.Close()
			if scanned {
				log.Info("document classified as scanned; trying OCR directly")
				return o.ocrAttempt(ctx, req, data, markedText, len(pages), nil)
			}
		}
	}

	// GarbledCheck
	if o.detector.IsGarbled(rawText) {
		log.Warn("text layer classified garbled", "chars", len(rawText), "kind", kind)
		if kind != KindPDF {
			// Text and office formats cannot be rasterized for OCR; the
			// garbled content is returned as-is with a warning.
			return o.finish(markedText, MethodTextLayer, len(pages),
				[]string{"extracted text appears garbled; no OCR fallback for this format"})
		}
		if !o.ocrAvailable() {
			// Degrade gracefully: the imperfect text beats nothing.
			log.Warn("ocr engine unavailable; keeping garbled text layer")
			return o.finish(markedText, MethodTextLayer, len(pages),
				[]string{"text layer appears garbled; OCR engine unavailable"})
		}
		return o.ocrAttempt(ctx, req, data, markedText, len(pages),
			[]string{"text layer appeared garbled; attempting OCR"})
	}

	// PostProcess
	return o.finish(markedText, MethodTextLayer, len(pages), nil)
}

// tryScannedWithoutText handles documents whose text layer could not be
// read at all. If the file opens for rasterization and its leading pages
// carry raster images, OCR is attempted directly; otherwise nil is
// returned and the caller surfaces the original failure.
func (o *Orchestrator) tryScannedWithoutText(ctx context.Context, req *Request, data []byte) *Outcome {
	if o.raster == nil || !o.ocrAvailable() {
		return nil
	}
	doc, err := o.raster.Open(data)
	if err != nil {
		return nil
	}
	pseudo := make([]PageResult, 0, o.cfg.Scan.SamplePages)
	for i := 0; i < doc.PageCount() && i < o.cfg.Scan.SamplePages; i++ {
		pseudo = append(pseudo, PageResult{Index: i})
	}
	scanned := classifyScanned(pseudo, doc, o.cfg.Scan)
	doc.Close()
	if !scanned {
		return nil
	}
	return o.ocrAttempt(ctx, req, data, "", 0, nil)
}

// processImage recognizes a standalone raster image: there is no text
// layer, so OCR is the only path.
func (o *Orchestrator) processImage(ctx context.Context, req *Request, data []byte) *Outcome {
	if o.engine == nil {
		return failureOutcome(errors.NewEngineUnavailableError(req.JobID, "ocr", nil), "")
	}
	if err := o.engine.Available(); err != nil {
		return failureOutcome(errors.NewEngineUnavailableError(req.JobID, o.engine.Name(), err), "")
	}

	ctx, cancel := o.pageContext(ctx)
	defer cancel()

	text, err := o.engine.Recognize(ctx, data, o.cfg.OCRLanguages)
	if err != nil {
		if ocrUnavailable(err) {
			return failureOutcome(errors.NewEngineUnavailableError(req.JobID, o.engine.Name(), err), "")
		}
		return failureOutcome(errors.NewExtractionFailedError(req.JobID, "ocr", err), "")
	}
	return o.finish(text, MethodOCR, 1, nil)
}

// ocrAttempt rasterizes and recognizes pages up to the OCR cap. Partial
// success is success; total failure falls back to the text-layer result
// when one exists. OCR failure must never discard a non-empty
// lower-quality result.
func (o *Orchestrator) ocrAttempt(ctx context.Context, req *Request, data []byte, fallbackText string, fallbackPages int, warnings []string) *Outcome {
	log := o.log.WithJob(req.JobID)

	degrade := func(reason string) *Outcome {
		if fallbackText != "" {
			log.Warn("ocr fallback degraded to text layer", "reason", reason)
			return o.finish(fallbackText, MethodTextLayer, fallbackPages,
				append(warnings[:len(warnings):len(warnings)], "OCR failed: "+reason))
		}
		return failureOutcome(errors.NewExtractionFailedError(req.JobID, "ocr", fmt.Errorf("%s", reason)), "")
	}

	if o.raster == nil || o.engine == nil {
		return degrade("no OCR engine configured")
	}
	if err := o.engine.Available(); err != nil {
		if fallbackText == "" {
			return failureOutcome(errors.NewEngineUnavailableError(req.JobID, o.engine.Name(), err), "")
		}
		return degrade("engine unavailable")
	}

	doc, err := o.raster.Open(data)
	if err != nil {
		return degrade(fmt.Sprintf("rasterization failed: %v", err))
	}
	defer doc.Close()

	pageCount := doc.PageCount()
	if pageCount > o.cfg.OCRMaxPages {
		warnings = append(warnings, fmt.Sprintf("OCR limited to first %d of %d pages", o.cfg.OCRMaxPages, pageCount))
		pageCount = o.cfg.OCRMaxPages
	}
	if pageCount == 0 {
		return degrade("document has no pages")
	}

	// Rendering goes through the shared document handle and stays
	// serialized; recognition fans out across a bounded group.
	type rendered struct {
		index int
		png   []byte
		err   error
	}
	images := make([]rendered, pageCount)
	for i := 0; i < pageCount; i++ {
		png, renderErr := doc.RenderPNG(i, o.cfg.OCRRenderScale)
		images[i] = rendered{index: i, png: png, err: renderErr}
	}

	results := make([]PageResult, pageCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ocrPageConcurrency)
	for _, img := range images {
		img := img
		g.Go(func() error {
			if img.err != nil {
				results[img.index] = PageResult{Index: img.index, Failed: true}
				return nil
			}
			pctx, cancel := o.pageContext(gctx)
			defer cancel()
			text, recErr := o.engine.Recognize(pctx, img.png, o.cfg.OCRLanguages)
			if recErr != nil {
				// A pathological page must not stall or abort the rest.
				results[img.index] = PageResult{Index: img.index, Failed: true}
				if ocrUnavailable(recErr) {
					return recErr
				}
				return nil
			}
			results[img.index] = PageResult{Index: img.index, Text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ocrUnavailable(err) && fallbackText == "" {
			return failureOutcome(errors.NewEngineUnavailableError(req.JobID, o.engine.Name(), err), "")
		}
		return degrade(fmt.Sprintf("recognition aborted: %v", err))
	}

	recognized := 0
	for _, r := range results {
		if !r.Failed {
			recognized++
		} else {
			warnings = append(warnings, fmt.Sprintf("OCR failed on page %d", r.Index+1))
		}
	}
	log.Info("ocr attempt finished", "pages", pageCount, "recognized", recognized)

	if recognized == 0 {
		return degrade("no pages recognized")
	}

	// Once OCR text is produced it is final; it is not re-validated.
	return o.finish(JoinPages(results), MethodOCR, pageCount, warnings)
}

// finish applies post-processing, always the final step regardless of
// which path produced the text.
func (o *Orchestrator) finish(text string, method SourceMethod, pageCount int, warnings []string) *Outcome {
	return successOutcome(o.cleaner.Clean(text), method, pageCount, warnings)
}

func (o *Orchestrator) ocrAvailable() bool {
	return o.raster != nil && o.engine != nil && o.engine.Available() == nil
}

// pageContext derives a per-page timeout context when one is configured.
func (o *Orchestrator) pageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.OCRPageTimeout > 0 {
		return context.WithTimeout(ctx, o.cfg.OCRPageTimeout)
	}
	return context.WithCancel(ctx)
}

// recordTelemetry updates stats and adaptive state on every terminal
// transition.
func (o *Orchestrator) recordTelemetry(outcome *Outcome) {
	o.stats.Record(outcome.Success, outcome.Duration)

	if outcome.Success {
		switch outcome.Method {
		case MethodTextLayer:
			o.state.RecordSuccess(StrategyTextLayer)
		case MethodOCR:
			o.state.RecordSuccess(StrategyOCR)
		}
		return
	}

	if outcome.Reason != errors.ErrorExtractionFailed {
		// Invalid input and unsupported formats say nothing about the
		// health of an extraction strategy.
		return
	}
	if extractionStage(outcome.Err) == "ocr" {
		o.state.RecordFailure(StrategyOCR)
		return
	}
	o.state.RecordFailure(StrategyTextLayer)
}

func extractionStage(err error) string {
	var ee *errors.ExtractionError
	if stderrors.As(err, &ee) && ee.Details != nil {
		if s, ok := ee.Details["stage"].(string); ok {
			return s
		}
	}
	return ""
}

// concatPageText joins raw page text for heuristics that should not see
// the page-boundary markers.
func concatPageText(pages []PageResult) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if t := strings.TrimSpace(p.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// looksTextless is the cheap precondition for the scanned-document
// probe: only near-textless leading pages justify opening the raster
// backend. It applies the same ratio as classifyScanned so the probe is
// never gated stricter than the classification it feeds.
func looksTextless(pages []PageResult, cfg ScanConfig) bool {
	sample := cfg.SamplePages
	if sample <= 0 {
		sample = DefaultScanConfig().SamplePages
	}
	if sample > len(pages) {
		sample = len(pages)
	}
	if sample == 0 {
		return false
	}
	textless := 0
	for i := 0; i < sample; i++ {
		if len(strings.TrimSpace(pages[i].Text)) <= cfg.MaxPageChars {
			textless++
		}
	}
	ratio := cfg.ImageRatio
	if ratio <= 0 {
		ratio = DefaultScanConfig().ImageRatio
	}
	return float64(textless) >= ratio*float64(sample)
}

func ocrUnavailable(err error) bool {
	return stderrors.Is(err, ocr.ErrUnavailable)
}
