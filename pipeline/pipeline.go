package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tsawler/pdfhtml/background"
	"github.com/tsawler/pdfhtml/classify"
	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/layout"
	"github.com/tsawler/pdfhtml/model"
	"github.com/tsawler/pdfhtml/ocr"
	"github.com/tsawler/pdfhtml/pages"
	"github.com/tsawler/pdfhtml/reader"
	"github.com/tsawler/pdfhtml/render"
	"github.com/tsawler/pdfhtml/text"
	"github.com/tsawler/pdfhtml/webfont"
)

// Pipeline converts one document. Create one per conversion.
type Pipeline struct {
	cfg    Config
	conv   *webfont.Converter
	eraser *background.Eraser
	cache  *Cache
	diags  *diag.Collector

	mu        sync.Mutex
	cancels   map[int]context.CancelFunc
	cancelled map[int]bool

	auditOnce sync.Once
}

// New returns a pipeline for cfg.
func New(cfg Config) *Pipeline {
	cfg = cfg.defaults()
	eraser := background.NewEraser(cfg.Background)
	eraser.Logger = cfg.Logger
	return &Pipeline{
		cfg:       cfg,
		conv:      &webfont.Converter{WOFF2: !cfg.NoWOFF2, Tool: cfg.FontTool, Logger: cfg.Logger},
		eraser:    eraser,
		cache:     NewCache(),
		diags:     &diag.Collector{},
		cancels:   make(map[int]context.CancelFunc),
		cancelled: make(map[int]bool),
	}
}

// Cache returns the font cache.
func (p *Pipeline) Cache() *Cache { return p.cache }

// CancelPage cancels page n (1-based). A page cancelled before it starts
// is skipped without being rendered. Font processing is not affected.
func (p *Pipeline) CancelPage(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.cancels[n]; ok {
		cancel()
		return
	}
	p.cancelled[n] = true
}

func (p *Pipeline) pageContext(ctx context.Context, n int) (context.Context, context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx, cancel := context.WithCancel(ctx)
	if p.cancelled[n] {
		cancel()
	}
	p.cancels[n] = cancel
	return ctx, cancel
}

// Run converts the PDF at path.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, r, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// RunBytes converts a PDF held in memory.
func (p *Pipeline) RunBytes(ctx context.Context, data []byte) (*Result, error) {
	r, err := reader.FromBytes(data)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, r, "")
}

// pageState is one page moving through the phases.
type pageState struct {
	page    *pages.Page
	layout  layout.PageLayout
	content *text.Content
	tally   classify.Tally
	result  *PageResult
}

func (p *Pipeline) run(ctx context.Context, r *reader.Reader, title string) (*Result, error) {
	log := p.cfg.Logger
	pgs, err := r.Pages()
	if err != nil {
		var le *diag.DocumentLoadError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &diag.DocumentLoadError{Path: r.Path(), Err: err}
	}
	if t := strings.TrimSpace(r.Title()); t != "" {
		title = t
	}
	log.Info("converting document", "path", r.Path(), "pages", len(pgs), "dpi", p.cfg.DPI)

	states := make([]*pageState, len(pgs))
	for i, pg := range pgs {
		states[i] = &pageState{page: pg, layout: layout.ForPage(pg, p.cfg.DPI), tally: classify.Tally{}}
	}
	fonts := newFontSet()
	if err := p.classifyPages(ctx, r, states, fonts); err != nil {
		return nil, err
	}

	entries := p.collectUses(states, fonts)
	if err := p.processFonts(ctx, entries); err != nil {
		return nil, err
	}
	p.reclassify(states)

	if err := p.composePages(ctx, r, states); err != nil {
		return nil, err
	}

	res := &Result{Title: title, Fonts: p.cache.Results()}
	failed := 0
	for _, st := range states {
		res.Pages = append(res.Pages, st.result)
		if st.result.Skipped {
			failed++
		}
	}
	res.Diagnostics = p.diags.Sorted()
	log.Info("document converted", "pages", len(states), "skipped", failed, "fonts", len(res.Fonts), "diagnostics", len(res.Diagnostics))

	if len(states) > 0 && failed == len(states) {
		return res, fmt.Errorf("%d of %d pages: %w", failed, len(states), diag.ErrAllPagesFailed)
	}
	return res, nil
}

// classifyPages interprets every page and classifies its glyphs.
func (p *Pipeline) classifyPages(ctx context.Context, r *reader.Reader, states []*pageState, fonts *fontSet) error {
	src := text.NewFontCache(r)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, st := range states {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n := st.page.Number
			ex := text.NewExtractor(r, text.WithFontSource(src), text.WithLogger(p.cfg.Logger))
			c, err := ex.ExtractPage(st.page)
			if err != nil {
				p.diags.Add(diag.Diagnostic{Severity: diag.PageFailed, Kind: diag.KindOther, Page: n, Message: err.Error(), Err: err})
				return nil
			}
			for _, prob := range c.Problems {
				p.diags.AddError(n, prob)
			}
			for i := range c.Glyphs {
				gl := &c.Glyphs[i]
				e := fonts.entry(gl.Font, c.Fonts[gl.Font])
				reason := classify.Classify(gl, classify.Font{Table: e.table, Unavailable: e.unavailable()}, p.cfg.Classify, st.layout.Matrix)
				st.tally.Add(reason)
			}
			st.content = c
			p.cfg.Logger.Debug("page classified", "page", n, "glyphs", len(c.Glyphs), "demoted", st.tally.Demoted())
			return nil
		})
	}
	return g.Wait()
}

// collectUses is the barrier between pages and fonts: it records every code
// each font shows as text, over the whole document.
func (p *Pipeline) collectUses(states []*pageState, fonts *fontSet) []*fontEntry {
	for _, st := range states {
		if st.content == nil {
			continue
		}
		for i := range st.content.Glyphs {
			gl := &st.content.Glyphs[i]
			e := fonts.entry(gl.Font, st.content.Fonts[gl.Font])
			if gl.Tier == model.TierUnresolved {
				e.unresolved++
			}
			if !gl.Extractable {
				continue
			}
			if _, ok := e.uses[gl.Code]; !ok {
				e.uses[gl.Code] = use{gid: gl.GID, text: gl.Text}
			}
		}
	}
	entries := fonts.sorted()
	for _, e := range entries {
		if e.unresolved > 0 {
			p.diags.AddError(0, &diag.ToUnicodeResolutionFailure{Font: e.ref, Count: e.unresolved})
		}
	}
	return entries
}

// processFonts runs every font through the cache.
func (p *Pipeline) processFonts(ctx context.Context, entries []*fontEntry) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, e := range entries {
		g.Go(func() error {
			_, err := p.cache.Get(gctx, e.ref, func(ctx context.Context) *FontResult {
				return p.processFont(ctx, e)
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, e := range entries {
		if res, ok := p.cache.Lookup(e.ref); ok {
			for _, err := range res.Errs {
				p.diags.AddError(0, err)
			}
		}
	}
	return nil
}

// reclassify moves glyphs whose font failed, or whose glyph fell out of the
// subset, to the background.
func (p *Pipeline) reclassify(states []*pageState) {
	for _, st := range states {
		if st.content == nil {
			continue
		}
		for i := range st.content.Glyphs {
			gl := &st.content.Glyphs[i]
			if !gl.Extractable {
				continue
			}
			res, ok := p.cache.Lookup(gl.Font)
			if !ok {
				continue
			}
			var reason classify.Reason
			switch {
			case res.Unavailable:
				reason = classify.FontUnavailable
			case res.MissingCodes[gl.Code]:
				reason = classify.MissingOutline
			default:
				continue
			}
			classify.Demote(gl)
			st.tally[classify.Extractable]--
			st.tally.Add(reason)
		}
	}
}

// composePages renders, erases and composes every page.
func (p *Pipeline) composePages(ctx context.Context, r *reader.Reader, states []*pageState) error {
	var largest int64
	for _, st := range states {
		largest = max(largest, int64(st.layout.Width)*int64(st.layout.Height)*4)
	}
	workers := p.cfg.workersFor(largest)

	infos := make(map[model.FontRef]layout.FontInfo)
	for ref, res := range p.cache.Results() {
		infos[ref] = res.Info()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, st := range states {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pctx, cancel := p.pageContext(gctx, st.page.Number)
			defer cancel()
			st.result = p.composePage(pctx, r, st, infos)
			if p.cfg.OnPage != nil {
				p.cfg.OnPage(st.result)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) composePage(ctx context.Context, r *reader.Reader, st *pageState, infos map[model.FontRef]layout.FontInfo) *PageResult {
	n := st.page.Number
	pr := &PageResult{Number: n, Layout: st.layout, Tally: st.tally}
	skip := func(d diag.Diagnostic) *PageResult {
		p.diags.Add(d)
		pr.Skipped, pr.Reason = true, d.Message
		p.cfg.Logger.Warn("page skipped", "page", n, "reason", d.Message)
		return pr
	}
	if st.content == nil {
		pr.Skipped, pr.Reason = true, "content could not be read"
		return pr
	}
	pr.Glyphs = st.content.Glyphs
	if err := ctx.Err(); err != nil {
		return skip(diag.FromError(n, err))
	}

	img, err := p.cfg.Renderer.Render(ctx, render.Request{
		Document: r.Bytes(),
		Path:     r.Path(),
		Page:     n,
		Layout:   st.layout,
		Content:  st.content,
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return skip(diag.FromError(n, err))
		}
		var re *diag.RenderError
		if !errors.As(err, &re) {
			err = &diag.RenderError{Page: n, Err: err}
		}
		return skip(diag.FromError(n, err))
	}

	ras := background.NewRaster(img)
	er := p.eraser.Erase(ras, &background.Page{
		Number: n,
		Layout: st.layout,
		Glyphs: st.content.Glyphs,
		Paths:  st.content.Paths,
	})
	for range er.Demoted {
		pr.Tally[classify.Extractable]--
		pr.Tally.Add(classify.ComplexBackground)
	}
	if er.Skipped > 0 {
		p.diags.Add(diag.Diagnostic{Severity: diag.Info, Kind: diag.KindErasure, Page: n,
			Message: fmt.Sprintf("%d glyph region(s) already erased", er.Skipped)})
	}
	pr.Erased = er.Erased
	pr.Background = ras.RGBA

	pr.Nodes = layout.Compose(st.content.Glyphs, st.layout, infos, p.cfg.Runs)
	if p.cfg.Audit {
		p.audit(pr)
	}
	p.cfg.Logger.Debug("page composed", "page", n, "nodes", len(pr.Nodes), "erased", len(pr.Erased))
	return pr
}

// audit looks for text left in the erased regions of a page.
func (p *Pipeline) audit(pr *PageResult) {
	client, err := ocr.New()
	if err != nil {
		p.auditOnce.Do(func() {
			p.diags.Add(diag.Diagnostic{Severity: diag.Info, Kind: diag.KindAudit, Message: "audit skipped", Err: err})
			p.cfg.Logger.Warn("residual text audit unavailable", "error", err)
		})
		return
	}
	defer client.Close()

	regions := make([]image.Rectangle, 0, len(pr.Nodes))
	for _, nd := range pr.Nodes {
		regions = append(regions, image.Rect(int(nd.Left), int(nd.Top), int(nd.Left+nd.Width+1), int(nd.Top+nd.Size+1)))
	}
	findings, err := ocr.NewAuditor(client).Audit(pr.Background, regions)
	if err != nil {
		p.diags.Add(diag.Diagnostic{Severity: diag.Info, Kind: diag.KindAudit, Page: pr.Number, Message: err.Error(), Err: err})
	}
	for _, f := range findings {
		p.diags.Add(diag.Diagnostic{Severity: diag.Degraded, Kind: diag.KindAudit, Page: pr.Number,
			Message: fmt.Sprintf("residual text %q at %v", f.Text, f.Region)})
	}
}
