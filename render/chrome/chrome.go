// Package chrome is a render.Renderer backed by a headless Chrome/Chromium controlled through chromedp. Every
// Session launches its own browser process, which Close shuts down.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/generic"
	"github.com/alanbriolat/media-archiver/render"
)

type Renderer struct {
	allocatorOptions []chromedp.ExecAllocatorOption
}

var _ render.Renderer = (*Renderer)(nil)

// New creates a Renderer; extra allocator options are appended to chromedp's headless defaults.
func New(opts render.Options, extra ...chromedp.ExecAllocatorOption) *Renderer {
	allocatorOptions := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if opts.UserAgent != "" {
		allocatorOptions = append(allocatorOptions, chromedp.UserAgent(opts.UserAgent))
	}
	allocatorOptions = append(allocatorOptions, extra...)
	return &Renderer{allocatorOptions: allocatorOptions}
}

func (r *Renderer) Open(ctx context.Context) (render.Session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelTab()
		cancelAlloc()
	}
	// The first Run starts the browser; it must be on the tab context itself, because cancelling a derived context
	// during the first Run would take the browser down with it.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	media_archiver.Logger(ctx).Debug("browser session opened")
	return &session{ctx: tabCtx, cancel: cancel}, nil
}

type session struct {
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// run executes actions bounded by both the caller's context and the timeout.
func (s *session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := s.ctx.Err(); err != nil {
		return render.ErrClosed
	}
	var runCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(s.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(s.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	err := s.run(ctx, timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", render.ErrNavigation, url, err)
	}
	return nil
}

func (s *session) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	err := s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
	if errors.Is(err, context.DeadlineExceeded) {
		return render.ErrSelectorTimeout
	}
	return err
}

func (s *session) QueryAll(ctx context.Context, selector string) ([]render.Element, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, 0, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	elements := make([]render.Element, 0, len(nodes))
	for _, node := range nodes {
		elements = append(elements, element{node})
	}
	return elements, nil
}

func (s *session) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

type element struct {
	node *cdp.Node
}

func (e element) Attribute(name string) generic.Option[string] {
	return generic.FromPair(e.node.Attribute(name))
}
