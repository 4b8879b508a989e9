package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/starford/excalibur/internal/apperr"
)

// Renderer names accepted by NewCompiler.
const (
	RendererChrome   = "chromedp"
	RendererDisabled = "disabled"
)

// DefaultMermaidURL is the Mermaid bundle loaded into the headless page.
const DefaultMermaidURL = "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.min.js"

// Options configures the Chrome compiler.
type Options struct {
	MermaidURL string
	Timeout    time.Duration
	ChromePath string
}

// CloseCompiler is a Compiler holding resources.
type CloseCompiler interface {
	Compiler
	Close()
}

// NewCompiler returns the compiler for renderer.
func NewCompiler(renderer string, opts Options, logger *slog.Logger) (CloseCompiler, error) {
	switch renderer {
	case RendererChrome:
		return NewChrome(opts, logger), nil
	case RendererDisabled:
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("preview: unknown renderer %q", renderer)
	}
}

// Disabled never renders.
type Disabled struct{}

// Render implements Compiler.
func (Disabled) Render(context.Context, string, string) (string, error) {
	return "", apperr.ErrRendererUnavailable
}

// Close implements CloseCompiler.
func (Disabled) Close() {}

// Chrome renders diagrams with Mermaid running in a headless Chrome tab.
// The browser starts on the first render; renders are serialized on one tab.
type Chrome struct {
	opts   Options
	logger *slog.Logger

	mu          sync.Mutex
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	closed      bool
}

// NewChrome creates a Chrome compiler. Zero options take defaults.
func NewChrome(opts Options, logger *slog.Logger) *Chrome {
	if opts.MermaidURL == "" {
		opts.MermaidURL = DefaultMermaidURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chrome{opts: opts, logger: logger}
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

const loadScript = `new Promise((resolve, reject) => {
	const s = document.createElement('script');
	s.src = %s;
	s.onload = () => { mermaid.initialize({ startOnLoad: false }); resolve(true); };
	s.onerror = () => reject(new Error('mermaid failed to load'));
	document.head.appendChild(s);
})`

const renderScript = `(async (id, text) => {
	try {
		const { svg } = await mermaid.render(id, text);
		return svg;
	} finally {
		document.getElementById('d' + id)?.remove();
	}
})(%s, %s)`

func (c *Chrome) start() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	if c.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ChromePath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tab, cancelTab := chromedp.NewContext(allocCtx)

	// The first Run allocates the browser and must not carry a timeout.
	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return err
	}

	src, _ := json.Marshal(c.opts.MermaidURL)
	loadCtx, cancel := context.WithTimeout(tab, c.opts.Timeout)
	defer cancel()
	var loaded bool
	err := chromedp.Run(loadCtx,
		chromedp.Navigate("about:blank"),
		chromedp.Evaluate(fmt.Sprintf(loadScript, src), &loaded, awaitPromise),
	)
	if err != nil {
		cancelTab()
		cancelAlloc()
		return err
	}

	c.tab, c.cancelTab, c.cancelAlloc = tab, cancelTab, cancelAlloc
	c.logger.Info("preview: chrome renderer ready", slog.String("mermaid_url", c.opts.MermaidURL))
	return nil
}

// Render implements Compiler.
func (c *Chrome) Render(ctx context.Context, id, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", apperr.ErrRendererUnavailable
	}
	if c.tab == nil {
		if err := c.start(); err != nil {
			return "", fmt.Errorf("preview: start chrome: %w: %v", apperr.ErrRendererUnavailable, err)
		}
	}

	renderCtx, cancel := context.WithTimeout(c.tab, c.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	idJSON, _ := json.Marshal(id)
	textJSON, _ := json.Marshal(text)
	var svg string
	if err := chromedp.Run(renderCtx,
		chromedp.Evaluate(fmt.Sprintf(renderScript, idJSON, textJSON), &svg, awaitPromise),
	); err != nil {
		return "", fmt.Errorf("preview: render %s: %w", id, err)
	}
	return svg, nil
}

// Close shuts the browser down. Later renders fail.
func (c *Chrome) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.tab != nil {
		c.cancelTab()
		c.cancelAlloc()
		c.tab = nil
	}
}
