// Package static is a render.Renderer that fetches a page over plain HTTP and queries the served HTML with goquery.
// No scripts run, so it only sees media present in the initial document.
package static

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/alanbriolat/media-archiver/generic"
	"github.com/alanbriolat/media-archiver/internal/httpclient"
	"github.com/alanbriolat/media-archiver/render"
)

type Renderer struct {
	client *httpclient.Client
}

func New(client *httpclient.Client) *Renderer {
	return &Renderer{client: client}
}

var _ render.Renderer = (*Renderer)(nil)

func (r *Renderer) Open(_ context.Context) (render.Session, error) {
	return &session{client: r.client}, nil
}

type session struct {
	client *httpclient.Client
	doc    *goquery.Document
	closed bool
}

func (s *session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if s.closed {
		return render.ErrClosed
	}
	resp, err := s.client.Get(ctx, url, timeout)
	if err != nil {
		return fmt.Errorf("%w: %v", render.ErrNavigation, err)
	}
	defer resp.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", render.ErrNavigation, url, err)
	}
	s.doc = doc
	return nil
}

// WaitFor can't wait for anything to appear in a static document, so it only checks.
func (s *session) WaitFor(_ context.Context, selector string, _ time.Duration) error {
	if s.closed {
		return render.ErrClosed
	}
	if s.doc == nil || s.doc.Find(selector).Length() == 0 {
		return render.ErrSelectorTimeout
	}
	return nil
}

func (s *session) QueryAll(_ context.Context, selector string) ([]render.Element, error) {
	if s.closed {
		return nil, render.ErrClosed
	}
	if s.doc == nil {
		return nil, render.ErrNavigation
	}
	var elements []render.Element
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		elements = append(elements, element{sel})
	})
	return elements, nil
}

func (s *session) Close() error {
	s.closed = true
	s.doc = nil
	return nil
}

type element struct {
	sel *goquery.Selection
}

func (e element) Attribute(name string) generic.Option[string] {
	return generic.FromPair(e.sel.Attr(name))
}
