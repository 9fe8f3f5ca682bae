// Package render defines the headless page rendering capability used for platform sniffing and media scraping.
//
// A Renderer opens a Session per call site; callers must Close every Session they open, on every exit path.
package render

import (
	"context"
	"errors"
	"time"

	"github.com/alanbriolat/media-archiver/generic"
)

var (
	ErrNavigation      = errors.New("navigation failed")
	ErrSelectorTimeout = errors.New("timed out waiting for selector")
	ErrClosed          = errors.New("session closed")
)

// Renderer creates rendering sessions.
type Renderer interface {
	Open(ctx context.Context) (Session, error)
}

// Session is a single page in a single browser (or browser stand-in).
type Session interface {
	// Navigate loads the URL and waits for DOM readiness, failing if that takes longer than timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitFor waits until at least one element matches the CSS selector, or returns ErrSelectorTimeout.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// QueryAll returns every element matching the CSS selector, in document order.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Close releases the session (and browser, if the session owns one). Safe to call more than once.
	Close() error
}

// Element is a matched DOM element.
type Element interface {
	// Attribute returns the value of the named attribute, or None if it is absent.
	Attribute(name string) generic.Option[string]
}

// Options shared by Renderer implementations.
type Options struct {
	UserAgent string
}

// DefaultUserAgent is a desktop browser user agent, since some platforms serve stripped pages otherwise.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/115.0 Safari/537.36"

// Func adapts a function to the Renderer interface.
type Func func(ctx context.Context) (Session, error)

func (f Func) Open(ctx context.Context) (Session, error) {
	return f(ctx)
}
